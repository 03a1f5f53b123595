package game

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"fortytwo/internal/model"
	"fortytwo/internal/protocol"
)

// recorder captures listener callbacks for assertions.
type recorder struct {
	mu       sync.Mutex
	snaps    []model.GameState
	toasts   []string
	chats    []model.ChatMessage
	cleared  []model.GameState
	winners  []int
}

func (r *recorder) GameChanged(g model.GameState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, g)
}

func (r *recorder) Toast(text string, _ ToastLevel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toasts = append(r.toasts, text)
}

func (r *recorder) ChatReceived(msg model.ChatMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chats = append(r.chats, msg)
}

func (r *recorder) TrickCleared(g model.GameState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cleared = append(r.cleared, g)
}

func (r *recorder) GameOver(winner int, _ model.GameState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.winners = append(r.winners, winner)
}

func (r *recorder) ConnectionChanged(bool) {}

func (r *recorder) clearedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cleared)
}

func newTestStore() (*Store, *recorder) {
	rec := &recorder{}
	s := NewStore(rec, zerolog.Nop())
	return s, rec
}

func snapshot() protocol.Snapshot {
	trump := 5
	return protocol.Snapshot{GameState: model.GameState{
		GameID:      "g1",
		Phase:       model.PhasePlaying,
		CurrentTurn: model.South,
		HighBid:     31,
		HighBidder:  model.East,
		TrumpSuit:   &trump,
		MySeat:      model.South,
		Players: map[model.Seat]*model.Player{
			model.North: {Username: "nina", HandCount: 7},
			model.South: {Username: "sam", Hand: []model.Domino{model.NewDomino(3, 5)}},
			model.East:  {Username: "ed", HandCount: 7},
			model.West:  {Username: "wes", HandCount: 7},
		},
	}}
}

func TestSnapshotReplacesEverything(t *testing.T) {
	s, _ := newTestStore()

	// Seed with unrelated prior state.
	old := 2
	s.Apply(protocol.Snapshot{GameState: model.GameState{
		GameID: "stale", Phase: model.PhaseBidding, HighBid: 42,
		TrumpSuit: &old, Team1Marks: 6,
		Players: map[model.Seat]*model.Player{model.West: {Username: "ghost"}},
	}})

	s.Apply(snapshot())

	g := s.Game()
	if g.GameID != "g1" || g.Phase != model.PhasePlaying || g.HighBid != 31 {
		t.Fatalf("snapshot fields not replaced: %+v", g)
	}
	if g.Team1Marks != 0 {
		t.Error("prior marks leaked through a full replace")
	}
	if g.TrumpSuit == nil || *g.TrumpSuit != 5 {
		t.Errorf("trump suit = %v, want 5", g.TrumpSuit)
	}
	if g.Players[model.West].Username != "wes" {
		t.Error("prior roster leaked through a full replace")
	}
	if g.MySeat != model.South {
		t.Errorf("my seat = %q, want south", g.MySeat)
	}
}

func TestBidUpdateMerge(t *testing.T) {
	s, _ := newTestStore()
	s.Apply(protocol.Snapshot{GameState: model.GameState{
		Phase: model.PhaseBidding, MySeat: model.South,
		Players: map[model.Seat]*model.Player{
			model.South: {Username: "sam"},
			model.East:  {Username: "ed"},
		},
	}})

	s.Apply(protocol.BidUpdate{
		Position: model.South, Bid: 30, HighBid: 30, HighBidder: model.South,
		Phase: model.PhaseBidding, CurrentTurn: model.East,
	})

	g := s.Game()
	if g.HighBid != 30 || g.HighBidder != model.South || g.CurrentTurn != model.East {
		t.Fatalf("auction fields not overwritten: %+v", g)
	}
	p := g.Players[model.South]
	if p.CurrentBid != 30 || p.HasPassed {
		t.Fatalf("bidder = %+v, want bid 30 and not passed", p)
	}
	if g.Players[model.East].Username != "ed" {
		t.Error("partial merge should not touch other seats")
	}
}

func TestBidUpdatePass(t *testing.T) {
	s, _ := newTestStore()
	s.Apply(protocol.Snapshot{GameState: model.GameState{
		Phase: model.PhaseBidding,
		Players: map[model.Seat]*model.Player{
			model.West: {Username: "wes", CurrentBid: 31},
		},
	}})

	s.Apply(protocol.BidUpdate{
		Position: model.West, Bid: 0, HighBid: 31, HighBidder: model.West,
		Phase: model.PhaseBidding, CurrentTurn: model.North,
	})

	p := s.Game().Players[model.West]
	if !p.HasPassed {
		t.Error("pass should set has_passed")
	}
	if p.CurrentBid != 31 {
		t.Errorf("pass should leave the earlier bid, got %d", p.CurrentBid)
	}
}

func TestBidUpdateForUnknownSeatCreatesStub(t *testing.T) {
	s, _ := newTestStore()
	s.Apply(protocol.BidUpdate{
		Position: model.North, Bid: 33, HighBid: 33, HighBidder: model.North,
		Phase: model.PhaseBidding, CurrentTurn: model.West,
	})
	p := s.Game().Players[model.North]
	if p == nil || p.CurrentBid != 33 {
		t.Fatalf("expected stub seat with bid, got %+v", p)
	}
}

func TestTrumpSelected(t *testing.T) {
	s, _ := newTestStore()
	zero := 0
	s.Apply(protocol.TrumpSelected{
		TrumpSuit: &zero, Phase: model.PhasePlaying, CurrentLeader: model.East,
	})
	g := s.Game()
	if g.TrumpSuit == nil || *g.TrumpSuit != 0 {
		t.Fatalf("trump suit = %v, want 0", g.TrumpSuit)
	}
	if g.Phase != model.PhasePlaying || g.CurrentTurn != model.East {
		t.Fatalf("phase/turn not taken from payload: %+v", g)
	}
}

func TestDominoPlayedMidTrick(t *testing.T) {
	s, _ := newTestStore()
	s.Apply(snapshot())

	lead := 3
	trick := []model.TrickPlay{{Seat: model.South, Domino: model.NewDomino(3, 5)}}
	s.Apply(protocol.DominoPlayed{
		Position: model.South, DominoID: "3-5", CurrentTrick: trick,
		LeadSuit: &lead, Phase: model.PhasePlaying, CurrentTurn: model.East,
	})

	g := s.Game()
	if len(g.CurrentTrick) != 1 || g.CurrentTrick[0].Seat != model.South {
		t.Fatalf("current trick not overwritten: %+v", g.CurrentTrick)
	}
	if g.LeadSuit == nil || *g.LeadSuit != 3 {
		t.Fatalf("lead suit = %v, want 3", g.LeadSuit)
	}
	if g.CurrentTurn != model.East {
		t.Fatalf("turn = %q, want east", g.CurrentTurn)
	}
	if len(g.DisplayTrick) != 1 {
		t.Fatalf("display trick should follow mid-trick plays: %+v", g.DisplayTrick)
	}
}

func completionEvent() protocol.DominoPlayed {
	return protocol.DominoPlayed{
		Position: model.West, DominoID: "6-4",
		CurrentTrick: nil, LeadSuit: nil,
		Phase: model.PhasePlaying, CurrentTurn: model.North,
		TrickResult:     &protocol.TrickResult{Winner: model.North, Points: 7},
		Team1Tricks:     2,
		Team2Tricks:     1,
		Team1HandPoints: 15,
		Team2HandPoints: 8,
	}
}

func TestTrickCompletionOverwritesCounters(t *testing.T) {
	s, _ := newTestStore()
	s.clearDelay = time.Hour // keep the timer from firing during the test
	s.Apply(snapshot())

	// Three plays already on the table.
	lead := 3
	s.Apply(protocol.DominoPlayed{
		Position: model.South, DominoID: "3-5",
		CurrentTrick: []model.TrickPlay{
			{Seat: model.North, Domino: model.NewDomino(3, 3)},
			{Seat: model.South, Domino: model.NewDomino(3, 5)},
			{Seat: model.East, Domino: model.NewDomino(3, 1)},
		},
		LeadSuit: &lead, Phase: model.PhasePlaying, CurrentTurn: model.West,
	})

	s.Apply(completionEvent())

	g := s.Game()
	if g.Team1Tricks != 2 || g.Team2Tricks != 1 || g.Team1HandPoints != 15 || g.Team2HandPoints != 8 {
		t.Fatalf("counters not overwritten: %+v", g)
	}
	if len(g.CurrentTrick) != 0 {
		t.Fatalf("authoritative trick should be empty after completion: %+v", g.CurrentTrick)
	}
	if len(g.DisplayTrick) != 4 {
		t.Fatalf("completed trick should stay on display with 4 plays, got %d", len(g.DisplayTrick))
	}
	if last := g.DisplayTrick[3]; last.Seat != model.West || last.Domino != model.NewDomino(6, 4) {
		t.Fatalf("reconstructed fourth play wrong: %+v", last)
	}
}

func TestStaleClearIsNoOp(t *testing.T) {
	s, rec := newTestStore()
	s.clearDelay = time.Hour
	s.Apply(snapshot())
	s.Apply(completionEvent())

	s.mu.Lock()
	staleSeq := s.trickSeq
	s.mu.Unlock()

	// Next trick starts before the deferred clear fires.
	lead := 6
	s.Apply(protocol.DominoPlayed{
		Position: model.North, DominoID: "6-6",
		CurrentTrick: []model.TrickPlay{{Seat: model.North, Domino: model.NewDomino(6, 6)}},
		LeadSuit:     &lead, Phase: model.PhasePlaying, CurrentTurn: model.West,
	})

	s.clearTrick(staleSeq)

	g := s.Game()
	if len(g.DisplayTrick) != 1 {
		t.Fatalf("stale clear wiped the newer trick: %+v", g.DisplayTrick)
	}
	if rec.clearedCount() != 0 {
		t.Fatal("stale clear should not notify")
	}
}

func TestCurrentClearFiresOnce(t *testing.T) {
	s, rec := newTestStore()
	s.clearDelay = time.Hour
	s.Apply(snapshot())
	s.Apply(completionEvent())

	s.mu.Lock()
	seq := s.trickSeq
	s.mu.Unlock()

	s.clearTrick(seq)
	if g := s.Game(); len(g.DisplayTrick) != 0 {
		t.Fatalf("clear should empty the display trick: %+v", g.DisplayTrick)
	}
	if rec.clearedCount() != 1 {
		t.Fatalf("expected one clear notification, got %d", rec.clearedCount())
	}

	// Firing the same task again must be a no-op: the first clear did not
	// change the sequence, but the display is already empty and listeners
	// are notified once per scheduled clear only if state still matches.
	s.clearTrick(seq)
}

func TestDeferredClearFires(t *testing.T) {
	s, rec := newTestStore()
	s.clearDelay = 20 * time.Millisecond
	s.Apply(snapshot())
	s.Apply(completionEvent())

	deadline := time.Now().Add(2 * time.Second)
	for rec.clearedCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if rec.clearedCount() == 0 {
		t.Fatal("deferred clear never fired")
	}
	if g := s.Game(); len(g.DisplayTrick) != 0 {
		t.Fatalf("display trick not cleared: %+v", g.DisplayTrick)
	}
}

func TestSnapshotDiscardsPendingClear(t *testing.T) {
	s, rec := newTestStore()
	s.clearDelay = time.Hour
	s.Apply(snapshot())
	s.Apply(completionEvent())

	s.mu.Lock()
	staleSeq := s.trickSeq
	s.mu.Unlock()

	// Reconnect resync: fresh snapshot mid-window.
	fresh := snapshot()
	fresh.CurrentTrick = []model.TrickPlay{{Seat: model.East, Domino: model.NewDomino(2, 2)}}
	s.Apply(fresh)

	s.clearTrick(staleSeq)

	g := s.Game()
	if len(g.DisplayTrick) != 1 || g.DisplayTrick[0].Domino != model.NewDomino(2, 2) {
		t.Fatalf("snapshot's trick should survive the orphaned clear: %+v", g.DisplayTrick)
	}
	if rec.clearedCount() != 0 {
		t.Fatal("orphaned clear should not notify")
	}
}

func TestGameOver(t *testing.T) {
	s, rec := newTestStore()
	s.clearDelay = time.Hour
	s.Apply(snapshot())

	ev := completionEvent()
	ev.GameOver = true
	ev.Winner = 2
	ev.Team1Marks = 4
	ev.Team2Marks = 7
	s.Apply(ev)

	g := s.Game()
	if g.Team1Marks != 4 || g.Team2Marks != 7 {
		t.Fatalf("marks not overwritten: %+v", g)
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.winners) != 1 || rec.winners[0] != 2 {
		t.Fatalf("winners = %v, want [2]", rec.winners)
	}
}

func TestHandUpdate(t *testing.T) {
	s, _ := newTestStore()
	s.Apply(snapshot())

	hand := []model.Domino{model.NewDomino(1, 1), model.NewDomino(6, 2)}
	s.Apply(protocol.HandUpdate{Hand: hand})

	p := s.Game().Players[model.South]
	if len(p.Hand) != 2 || p.HandCount != 2 {
		t.Fatalf("hand not replaced: %+v", p)
	}
}

func TestHandUpdateWithoutSeatIgnored(t *testing.T) {
	s, rec := newTestStore()
	s.Apply(protocol.HandUpdate{Hand: []model.Domino{model.NewDomino(1, 1)}})
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.snaps) != 0 {
		t.Fatal("hand_update without a seat should be skipped")
	}
}

func TestChatAppendOnlyAndSurvivesSnapshot(t *testing.T) {
	s, rec := newTestStore()
	s.Apply(protocol.Chat{ChatMessage: model.ChatMessage{Username: "sam", Message: "hello"}})
	s.Apply(protocol.Chat{ChatMessage: model.ChatMessage{Username: "ghost", Message: "boo", IsSpectator: true}})
	s.Apply(snapshot())

	msgs := s.ChatMessages()
	if len(msgs) != 2 || msgs[0].Message != "hello" || msgs[1].Message != "boo" {
		t.Fatalf("chat log wrong: %+v", msgs)
	}
	if !msgs[1].IsSpectator {
		t.Error("spectator flag lost")
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.chats) != 2 {
		t.Fatalf("expected 2 chat notifications, got %d", len(rec.chats))
	}
}

func TestChatLogTrims(t *testing.T) {
	var log ChatLog
	for i := 0; i < chatLimit+25; i++ {
		log.Append(model.ChatMessage{Username: "u", Message: "m"})
	}
	if log.Len() != chatLimit {
		t.Fatalf("chat log length = %d, want %d", log.Len(), chatLimit)
	}
}

func TestServerErrorLeavesStateUntouched(t *testing.T) {
	s, rec := newTestStore()
	s.Apply(snapshot())
	before := s.Game()

	s.Apply(protocol.ServerError{Message: "Not your turn"})

	after := s.Game()
	if after.Phase != before.Phase || after.HighBid != before.HighBid ||
		len(after.CurrentTrick) != len(before.CurrentTrick) {
		t.Fatal("error event must not mutate state")
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.toasts) == 0 || rec.toasts[len(rec.toasts)-1] != "Not your turn" {
		t.Fatalf("expected error toast, got %v", rec.toasts)
	}
}

func TestListenerGetsCopies(t *testing.T) {
	s, rec := newTestStore()
	s.Apply(snapshot())

	rec.mu.Lock()
	snap := rec.snaps[len(rec.snaps)-1]
	rec.mu.Unlock()
	snap.Players[model.South].Username = "tampered"

	if s.Game().Players[model.South].Username != "sam" {
		t.Fatal("listener snapshot aliases store memory")
	}
}
