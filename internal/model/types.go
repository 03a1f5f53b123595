package model

import (
	"encoding/json"
	"fmt"
)

// Seat is one of the four fixed table positions.
type Seat string

const (
	North Seat = "north"
	South Seat = "south"
	East  Seat = "east"
	West  Seat = "west"
)

// PlayOrder is the counter-clockwise turn order starting at north.
var PlayOrder = [4]Seat{North, West, South, East}

// Valid reports whether s names a real seat.
func (s Seat) Valid() bool {
	return s == North || s == South || s == East || s == West
}

// Team returns 1 for north/south, 2 for east/west, 0 for an empty seat.
func (s Seat) Team() int {
	switch s {
	case North, South:
		return 1
	case East, West:
		return 2
	}
	return 0
}

// Partner returns the seat across the table.
func (s Seat) Partner() Seat {
	switch s {
	case North:
		return South
	case South:
		return North
	case East:
		return West
	case West:
		return East
	}
	return ""
}

// Phase is the lifecycle stage of a hand or match. The client never
// self-transitions; the value is always taken from the latest event payload.
type Phase string

const (
	PhaseWaiting        Phase = "waiting"
	PhaseDealing        Phase = "dealing"
	PhaseBidding        Phase = "bidding"
	PhaseTrumpSelection Phase = "trump_selection"
	PhasePlaying        Phase = "playing"
	PhaseScoring        Phase = "scoring"
	PhaseFinished       Phase = "finished"
)

// Player is one occupied seat. Hand is populated only for the viewing seat
// or for spectators; everyone else sees HandCount.
type Player struct {
	Position   Seat     `json:"position"`
	Username   string   `json:"username"`
	HandCount  int      `json:"hand_count"`
	Hand       []Domino `json:"hand,omitempty"`
	CurrentBid int      `json:"current_bid"`
	HasPassed  bool     `json:"has_passed"`
	IsBot      bool     `json:"is_ai"`
}

// TrickPlay is one (seat, domino) entry of the current trick. The server
// encodes it as a two-element array, a habit inherited from tuples.
type TrickPlay struct {
	Seat   Seat
	Domino Domino
}

func (tp *TrickPlay) UnmarshalJSON(data []byte) error {
	var pair [2]json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if err := json.Unmarshal(pair[0], &tp.Seat); err != nil {
		return err
	}
	if err := json.Unmarshal(pair[1], &tp.Domino); err != nil {
		return err
	}
	if !tp.Seat.Valid() {
		return fmt.Errorf("trick play has bad seat %q", tp.Seat)
	}
	return nil
}

func (tp TrickPlay) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]interface{}{tp.Seat, tp.Domino})
}

// GameState is the local mirror of the server's authoritative view.
// It is owned exclusively by the game store; everything else reads copies.
type GameState struct {
	GameID      string           `json:"game_id"`
	Phase       Phase            `json:"phase"`
	Players     map[Seat]*Player `json:"players"`
	Dealer      Seat             `json:"dealer"`
	CurrentTurn Seat             `json:"current_turn"`

	HighBid    int  `json:"high_bid"`
	HighBidder Seat `json:"high_bidder"`
	TrumpSuit  *int `json:"trump_suit"`
	LeadSuit   *int `json:"lead_suit"`

	CurrentTrick []TrickPlay `json:"current_trick"`
	TrickNumber  int         `json:"trick_number"`

	// DisplayTrick is what the table should render. It lags CurrentTrick by
	// the post-trick display window: a completed trick stays visible until
	// the deferred clear fires or the next trick starts.
	DisplayTrick []TrickPlay `json:"-"`

	Team1Marks      int `json:"team1_marks"`
	Team2Marks      int `json:"team2_marks"`
	Team1Tricks     int `json:"team1_tricks"`
	Team2Tricks     int `json:"team2_tricks"`
	Team1HandPoints int `json:"team1_hand_points"`
	Team2HandPoints int `json:"team2_hand_points"`

	MySeat      Seat `json:"my_position"`
	IsSpectator bool `json:"is_spectator"`
}

// Me returns the viewing seat's player, or nil for spectators and
// not-yet-seated sessions.
func (g *GameState) Me() *Player {
	if !g.MySeat.Valid() || g.Players == nil {
		return nil
	}
	return g.Players[g.MySeat]
}

// MyHand returns the viewing seat's hand, or nil.
func (g *GameState) MyHand() []Domino {
	if p := g.Me(); p != nil {
		return p.Hand
	}
	return nil
}

// SeatedCount is the number of occupied seats.
func (g *GameState) SeatedCount() int {
	return len(g.Players)
}

// Clone deep-copies the state so observers never alias store-owned memory.
func (g *GameState) Clone() GameState {
	out := *g
	if g.Players != nil {
		out.Players = make(map[Seat]*Player, len(g.Players))
		for seat, p := range g.Players {
			cp := *p
			if p.Hand != nil {
				cp.Hand = append([]Domino(nil), p.Hand...)
			}
			out.Players[seat] = &cp
		}
	}
	if g.CurrentTrick != nil {
		out.CurrentTrick = append([]TrickPlay(nil), g.CurrentTrick...)
	}
	if g.DisplayTrick != nil {
		out.DisplayTrick = append([]TrickPlay(nil), g.DisplayTrick...)
	}
	if g.TrumpSuit != nil {
		v := *g.TrumpSuit
		out.TrumpSuit = &v
	}
	if g.LeadSuit != nil {
		v := *g.LeadSuit
		out.LeadSuit = &v
	}
	return out
}

// ChatMessage is one entry of the append-only chat log.
type ChatMessage struct {
	Username    string `json:"username"`
	Message     string `json:"message"`
	IsSpectator bool   `json:"is_spectator"`
	Timestamp   string `json:"timestamp,omitempty"`
}

// User is the authenticated account behind this session, as returned by the
// auxiliary /api/user endpoint.
type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	IsGuest  bool   `json:"is_guest"`
}
