package game

import (
	"fmt"

	"fortytwo/internal/model"
)

// Bid bounds. 42 points are on the table each hand, so bids run 30-42;
// 0 on the wire means pass.
const (
	MinBid = 30
	MaxBid = 42
)

// WinningMarks is the match target used to derive a winner from marks when
// the server omits one.
const WinningMarks = 7

// Everything here is advisory. The server remains the arbiter of every
// action; these checks only mirror its rules so the UI can mark affordances
// without a round trip. None of them mutate state.

// BidAvailable reports whether the viewing seat may currently offer bid.
func BidAvailable(g *model.GameState, bid int) bool {
	if g.Phase != model.PhaseBidding || g.IsSpectator {
		return false
	}
	if g.CurrentTurn != g.MySeat || !g.MySeat.Valid() {
		return false
	}
	if bid < MinBid || bid > MaxBid {
		return false
	}
	return bid > g.HighBid
}

// CanPass reports whether the viewing seat may pass right now.
func CanPass(g *model.GameState) bool {
	return g.Phase == model.PhaseBidding && !g.IsSpectator &&
		g.MySeat.Valid() && g.CurrentTurn == g.MySeat
}

// AvailableBids lists every bid value currently presentable as enabled.
func AvailableBids(g *model.GameState) []int {
	var bids []int
	for bid := MinBid; bid <= MaxBid; bid++ {
		if BidAvailable(g, bid) {
			bids = append(bids, bid)
		}
	}
	return bids
}

// CanSelectTrump reports whether the viewing seat won the auction and must
// now name trump.
func CanSelectTrump(g *model.GameState) bool {
	return g.Phase == model.PhaseTrumpSelection && !g.IsSpectator &&
		g.MySeat.Valid() && g.HighBidder == g.MySeat
}

// CanFollowSuit reports whether the hand holds any domino of the suit.
func CanFollowSuit(hand []model.Domino, suit int) bool {
	for _, d := range hand {
		if d.BelongsToSuit(suit) {
			return true
		}
	}
	return false
}

// IsPlayable applies the follow-suit rule: with no lead suit anything goes;
// otherwise the domino must touch the lead suit unless the hand is exhausted
// of it.
func IsPlayable(hand []model.Domino, d model.Domino, leadSuit *int) bool {
	if leadSuit == nil {
		return true
	}
	if d.BelongsToSuit(*leadSuit) {
		return true
	}
	return !CanFollowSuit(hand, *leadSuit)
}

// PlayableDominoes filters the hand down to legally playable tiles.
func PlayableDominoes(hand []model.Domino, leadSuit *int) []model.Domino {
	var out []model.Domino
	for _, d := range hand {
		if IsPlayable(hand, d, leadSuit) {
			out = append(out, d)
		}
	}
	return out
}

// CheckPlay is the full advisory gate for playing a domino. The returned
// error carries the user-facing reason.
func CheckPlay(g *model.GameState, d model.Domino) error {
	if g.IsSpectator {
		return fmt.Errorf("spectators cannot play")
	}
	if g.Phase != model.PhasePlaying {
		return fmt.Errorf("wait for play phase")
	}
	if g.CurrentTurn != g.MySeat {
		return fmt.Errorf("not your turn")
	}
	hand := g.MyHand()
	held := false
	for _, h := range hand {
		if h == d {
			held = true
			break
		}
	}
	if !held {
		return fmt.Errorf("you don't have %s", d)
	}
	if g.LeadSuit != nil && !d.BelongsToSuit(*g.LeadSuit) && CanFollowSuit(hand, *g.LeadSuit) {
		return fmt.Errorf("must follow %s", model.SuitNames[*g.LeadSuit])
	}
	return nil
}
