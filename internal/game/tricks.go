package game

import (
	"fmt"
	"time"

	"fortytwo/internal/model"
	"fortytwo/internal/protocol"
)

// Trick aggregation. Counters are recorded in the store the moment a
// completion event arrives, so reads are always current; only the visual
// trick display is deferred. The race guard is a monotonically increasing
// trick sequence: a scheduled clear fires only if the sequence is unchanged
// since scheduling, so a clear from trick N can never wipe trick N+1.

// dominoPlayed handles both mid-trick plays and trick completions.
// Caller holds the lock.
func (s *Store) dominoPlayed(e protocol.DominoPlayed) []note {
	// Reconstruct the completed trick before overwriting: on the fourth
	// play the server has already reset current_trick to empty, so the
	// full trick is the prior three plays plus this one.
	var completed []model.TrickPlay
	if e.TrickResult != nil {
		completed = append(completed, s.game.CurrentTrick...)
		if d, err := model.ParseDominoID(e.DominoID); err == nil {
			completed = append(completed, model.TrickPlay{Seat: e.Position, Domino: d})
		} else {
			s.log.Warn().Str("domino_id", e.DominoID).Err(err).Msg("unparseable domino id in play")
		}
	}

	s.game.CurrentTrick = e.CurrentTrick
	if e.LeadSuit != nil {
		suit := *e.LeadSuit
		s.game.LeadSuit = &suit
	} else {
		s.game.LeadSuit = nil
	}
	s.game.Phase = e.Phase
	s.game.CurrentTurn = e.CurrentTurn

	// Any play supersedes a pending clear from the previous trick.
	s.trickSeq++

	if e.TrickResult == nil {
		s.game.DisplayTrick = append([]model.TrickPlay(nil), e.CurrentTrick...)
		return s.changed()
	}
	return s.completeTrick(e, completed)
}

// completeTrick overwrites the running counters (last-writer-wins, exactly
// as sent), leaves the finished trick on display, and schedules the
// deferred clear. Caller holds the lock.
func (s *Store) completeTrick(e protocol.DominoPlayed, completed []model.TrickPlay) []note {
	s.game.Team1Tricks = e.Team1Tricks
	s.game.Team2Tricks = e.Team2Tricks
	s.game.Team1HandPoints = e.Team1HandPoints
	s.game.Team2HandPoints = e.Team2HandPoints
	s.game.DisplayTrick = completed
	if e.GameOver {
		s.game.Team1Marks = e.Team1Marks
		s.game.Team2Marks = e.Team2Marks
	}

	seq := s.trickSeq
	time.AfterFunc(s.clearDelay, func() { s.clearTrick(seq) })

	text := fmt.Sprintf("%s wins the trick! (%d pts)", s.nameOf(e.TrickResult.Winner), e.TrickResult.Points)
	notes := append(s.toast(text, ToastSuccess), s.changed()...)

	if e.GameOver {
		winner := WinnerTeam(&s.game, e.Winner)
		snap := s.game.Clone()
		notes = append(notes, func() { s.listener.GameOver(winner, snap) })
	}
	return notes
}

// clearTrick runs when the display window elapses. A stale sequence means a
// newer trick (or a snapshot resync) owns the table now, so the clear is a
// no-op; it therefore executes exactly once per completed trick at most.
func (s *Store) clearTrick(seq uint64) {
	s.mu.Lock()
	if seq != s.trickSeq || s.game.DisplayTrick == nil {
		s.mu.Unlock()
		return
	}
	s.game.DisplayTrick = nil
	snap := s.game.Clone()
	s.mu.Unlock()

	s.listener.TrickCleared(snap)
}
