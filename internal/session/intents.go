package session

import (
	"errors"
	"fmt"
	"strings"

	"fortytwo/internal/game"
	"fortytwo/internal/model"
	"fortytwo/internal/protocol"
)

// chatMessageLimit mirrors the server's per-message cap.
const chatMessageLimit = 200

// User intents. Each one runs the advisory legality check against the local
// mirror before emitting; the server still re-validates everything, so a
// stale local view at worst means one rejected action instead of a blocked
// one.

// PlaceBid offers a bid. Bid 0 is a pass.
func (s *Session) PlaceBid(bid int) error {
	g := s.store.Game()
	if bid == 0 {
		if !game.CanPass(&g) {
			return errors.New("you can't pass right now")
		}
	} else if !game.BidAvailable(&g, bid) {
		return fmt.Errorf("bid %d is not available", bid)
	}
	return s.emit(protocol.PlaceBid{GameID: s.cfg.GameID, Bid: bid})
}

// Pass declines to bid.
func (s *Session) Pass() error { return s.PlaceBid(0) }

// SelectTrump names the trump suit after winning the auction.
func (s *Session) SelectTrump(suit int) error {
	if suit < 0 || suit > 6 {
		return fmt.Errorf("no such suit %d", suit)
	}
	g := s.store.Game()
	if !game.CanSelectTrump(&g) {
		return errors.New("it's not your trump call")
	}
	return s.emit(protocol.SelectTrump{GameID: s.cfg.GameID, Suit: suit})
}

// PlayDomino plays one tile from the local hand.
func (s *Session) PlayDomino(d model.Domino) error {
	g := s.store.Game()
	if err := game.CheckPlay(&g, d); err != nil {
		return err
	}
	return s.emit(protocol.PlayDomino{GameID: s.cfg.GameID, DominoID: d.ID()})
}

// PlayDominoID plays a tile named by its "high-low" id.
func (s *Session) PlayDominoID(id string) error {
	d, err := model.ParseDominoID(id)
	if err != nil {
		return err
	}
	return s.PlayDomino(d)
}

// StartGame asks the server to deal; only offered at a full table.
func (s *Session) StartGame() error {
	g := s.store.Game()
	if !game.CanStart(&g) {
		return errors.New("need four seated players to start")
	}
	return s.emit(protocol.StartGame{GameID: s.cfg.GameID})
}

// AddBots asks the server to fill the empty seats.
func (s *Session) AddBots() error {
	g := s.store.Game()
	if !game.CanAddBots(&g) {
		return errors.New("no empty seats to fill")
	}
	return s.emit(protocol.AddBots{GameID: s.cfg.GameID})
}

// SendChat sends one chat line, trimmed and capped.
func (s *Session) SendChat(message string) error {
	message = strings.TrimSpace(message)
	if message == "" {
		return errors.New("empty message")
	}
	if runes := []rune(message); len(runes) > chatMessageLimit {
		message = string(runes[:chatMessageLimit])
	}
	return s.emit(protocol.ChatSend{GameID: s.cfg.GameID, Message: message})
}

// LeaveGame tells the server the seat is being vacated.
func (s *Session) LeaveGame() error {
	return s.emit(protocol.LeaveGame{GameID: s.cfg.GameID})
}
