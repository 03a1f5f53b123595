package game

import "fortytwo/internal/model"

// Panel identifies which modal action panel the presentation layer should
// show. Selection is a pure function of the current state; the store never
// transitions phases on its own.
type Panel int

const (
	PanelNone Panel = iota
	PanelWaiting
	PanelBidding
	PanelTrump
	PanelGameOver
)

func (p Panel) String() string {
	switch p {
	case PanelWaiting:
		return "waiting"
	case PanelBidding:
		return "bidding"
	case PanelTrump:
		return "trump"
	case PanelGameOver:
		return "game_over"
	}
	return "none"
}

// ActivePanel picks the panel for (phase, currentTurn, mySeat, isSpectator,
// highBidder). Spectators never get action panels.
func ActivePanel(g *model.GameState) Panel {
	if g.IsSpectator {
		return PanelNone
	}
	switch g.Phase {
	case model.PhaseWaiting:
		return PanelWaiting
	case model.PhaseBidding:
		// Shown for every seat during bidding; individual bid values are
		// enabled only on the bidder's turn (see BidAvailable).
		return PanelBidding
	case model.PhaseTrumpSelection:
		if g.HighBidder == g.MySeat && g.MySeat.Valid() {
			return PanelTrump
		}
		return PanelNone
	case model.PhaseFinished:
		return PanelGameOver
	}
	return PanelNone
}

// CanStart reports whether the start affordance applies: a full table still
// in the waiting phase.
func CanStart(g *model.GameState) bool {
	return g.Phase == model.PhaseWaiting && !g.IsSpectator && g.SeatedCount() >= 4
}

// CanAddBots reports whether the fill-with-bots affordance applies.
func CanAddBots(g *model.GameState) bool {
	return g.Phase == model.PhaseWaiting && !g.IsSpectator && g.SeatedCount() < 4
}

// WinnerTeam resolves the winning team for the terminal summary: the
// server's word when given, otherwise derived from marks.
func WinnerTeam(g *model.GameState, winner int) int {
	if winner == 1 || winner == 2 {
		return winner
	}
	if g.Team1Marks >= WinningMarks {
		return 1
	}
	return 2
}
