package game

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"fortytwo/internal/model"
	"fortytwo/internal/protocol"
)

// ToastLevel classifies transient notices for presentation.
type ToastLevel int

const (
	ToastInfo ToastLevel = iota
	ToastSuccess
	ToastError
)

// Listener is the presentation adapter boundary. Implementations receive
// copies of state and must never mutate game data; all methods are invoked
// from the event loop, one at a time.
type Listener interface {
	// GameChanged delivers a fresh snapshot after any state mutation.
	GameChanged(g model.GameState)
	// Toast shows a transient notice.
	Toast(text string, level ToastLevel)
	// ChatReceived appends one chat line.
	ChatReceived(msg model.ChatMessage)
	// TrickCleared fires when the post-trick display window elapses.
	TrickCleared(g model.GameState)
	// GameOver announces the terminal result.
	GameOver(winnerTeam int, g model.GameState)
	// ConnectionChanged reports transport connectivity.
	ConnectionChanged(connected bool)
}

// trickDisplayWindow keeps a completed trick on the table before the
// deferred clear.
const trickDisplayWindow = 1500 * time.Millisecond

// Store owns the single GameState mirror. All mutation happens inside
// Apply; everything else reads clones. Events merge atomically: a failed
// decode never reaches Apply, and Apply itself never partially applies.
type Store struct {
	mu         sync.Mutex
	game       model.GameState
	chat       ChatLog
	trickSeq   uint64
	clearDelay time.Duration

	listener Listener
	log      zerolog.Logger
}

// NewStore builds an empty store reporting to listener.
func NewStore(listener Listener, log zerolog.Logger) *Store {
	return &Store{
		game:       model.GameState{Players: make(map[model.Seat]*model.Player)},
		clearDelay: trickDisplayWindow,
		listener:   listener,
		log:        log,
	}
}

// Game returns a deep copy of the current state.
func (s *Store) Game() model.GameState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.game.Clone()
}

// ChatMessages returns a copy of the chat log.
func (s *Store) ChatMessages() []model.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chat.Messages()
}

// Apply dispatches one decoded event through the reducer. Notifications go
// out after the mutation completes so listeners always observe the merged
// state.
func (s *Store) Apply(ev protocol.Inbound) {
	s.mu.Lock()
	notes := s.reduce(ev)
	s.mu.Unlock()

	for _, note := range notes {
		note()
	}
}

type note = func()

// reduce is the single mutation point. Caller holds the lock.
func (s *Store) reduce(ev protocol.Inbound) []note {
	s.log.Debug().Str("event", ev.EventName()).Msg("applying event")

	switch e := ev.(type) {
	case protocol.Snapshot:
		return s.replace(e.GameState, "")
	case protocol.GameStarted:
		return s.replace(e.GameState, "Game started! Time to bid.")
	case protocol.Connected:
		return s.toast(fmt.Sprintf("Connected as %s", e.User.Username), ToastInfo)
	case protocol.PlayerJoined:
		return s.playerJoined(e)
	case protocol.PlayerLeft:
		return s.toast(fmt.Sprintf("%s left the game", e.Username), ToastInfo)
	case protocol.BotsAdded:
		return s.botsAdded(e)
	case protocol.SpectatorJoined:
		return s.toast(fmt.Sprintf("%s is now spectating", e.Username), ToastInfo)
	case protocol.BidUpdate:
		return s.bidUpdate(e)
	case protocol.TrumpSelected:
		return s.trumpSelected(e)
	case protocol.DominoPlayed:
		return s.dominoPlayed(e)
	case protocol.HandUpdate:
		return s.handUpdate(e)
	case protocol.Chat:
		s.chat.Append(e.ChatMessage)
		msg := e.ChatMessage
		return []note{func() { s.listener.ChatReceived(msg) }}
	case protocol.ServerError:
		// Rejected action: nothing was applied locally, nothing to roll back.
		return s.toast(e.Message, ToastError)
	}

	s.log.Warn().Str("event", ev.EventName()).Msg("event fell through reducer")
	return nil
}

// replace installs a full snapshot. Nothing from the prior game state
// survives; any pending trick clear is orphaned by the sequence bump. The
// chat log is independent and untouched.
func (s *Store) replace(gs model.GameState, toast string) []note {
	if gs.Players == nil {
		gs.Players = make(map[model.Seat]*model.Player)
	}
	for seat, p := range gs.Players {
		p.Position = seat
	}
	gs.DisplayTrick = append([]model.TrickPlay(nil), gs.CurrentTrick...)
	s.game = gs
	s.trickSeq++

	notes := s.changed()
	if toast != "" {
		notes = append(s.toast(toast, ToastSuccess), notes...)
	}
	return notes
}

func (s *Store) playerJoined(e protocol.PlayerJoined) []note {
	text := fmt.Sprintf("%s joined as %s", e.Username, seatLabel(e.Position))
	if e.Reconnect {
		text = fmt.Sprintf("%s reconnected", e.Username)
	}
	notes := s.toast(text, ToastInfo)

	if e.Players != nil {
		s.adoptRoster(e.Players)
		if e.Phase != "" {
			s.game.Phase = e.Phase
		}
		notes = append(notes, s.changed()...)
	}
	return notes
}

func (s *Store) botsAdded(e protocol.BotsAdded) []note {
	notes := s.toast(e.Message, ToastInfo)
	if e.Players != nil {
		s.adoptRoster(e.Players)
		if e.Phase != "" {
			s.game.Phase = e.Phase
		}
		notes = append(notes, s.changed()...)
	}
	return notes
}

// adoptRoster replaces the seat map from a payload roster. Seats occupied
// before stay occupied; the server never un-seats players mid-hand.
func (s *Store) adoptRoster(players map[model.Seat]*model.Player) {
	for seat, p := range players {
		p.Position = seat
	}
	s.game.Players = players
}

func (s *Store) bidUpdate(e protocol.BidUpdate) []note {
	p := s.playerAt(e.Position)
	if e.Bid > 0 {
		p.CurrentBid = e.Bid
	} else {
		// A pass never erases an earlier bid; whether a pass can later be
		// superseded is the server's call, not ours.
		p.HasPassed = true
	}
	s.game.HighBid = e.HighBid
	s.game.HighBidder = e.HighBidder
	s.game.Phase = e.Phase
	s.game.CurrentTurn = e.Turn()

	text := fmt.Sprintf("%s passed", s.nameOf(e.Position))
	if e.Bid > 0 {
		text = fmt.Sprintf("%s bid %d", s.nameOf(e.Position), e.Bid)
	}
	return append(s.toast(text, ToastInfo), s.changed()...)
}

func (s *Store) trumpSelected(e protocol.TrumpSelected) []note {
	suit := *e.TrumpSuit
	s.game.TrumpSuit = &suit
	s.game.Phase = e.Phase
	s.game.CurrentTurn = e.Turn()

	text := fmt.Sprintf("Trump is %s! %s leads.", model.SuitNames[suit], s.nameOf(e.Turn()))
	return append(s.toast(text, ToastInfo), s.changed()...)
}

func (s *Store) handUpdate(e protocol.HandUpdate) []note {
	p := s.game.Me()
	if p == nil {
		// No local seat yet (or spectating): nothing to update.
		s.log.Debug().Msg("hand_update without a local seat, skipped")
		return nil
	}
	p.Hand = append([]model.Domino(nil), e.Hand...)
	p.HandCount = len(p.Hand)
	return s.changed()
}

// playerAt returns the seat's player, creating a stub when an event for a
// seat arrives ahead of its roster entry. Occupied keys are never removed.
func (s *Store) playerAt(seat model.Seat) *model.Player {
	if p, ok := s.game.Players[seat]; ok {
		return p
	}
	p := &model.Player{Position: seat, Username: string(seat)}
	s.game.Players[seat] = p
	return p
}

func (s *Store) nameOf(seat model.Seat) string {
	if p, ok := s.game.Players[seat]; ok && p.Username != "" {
		return p.Username
	}
	return string(seat)
}

func (s *Store) changed() []note {
	snap := s.game.Clone()
	return []note{func() { s.listener.GameChanged(snap) }}
}

func (s *Store) toast(text string, level ToastLevel) []note {
	return []note{func() { s.listener.Toast(text, level) }}
}

func seatLabel(seat model.Seat) string {
	switch seat {
	case model.North:
		return "North"
	case model.South:
		return "South"
	case model.East:
		return "East"
	case model.West:
		return "West"
	}
	return string(seat)
}
