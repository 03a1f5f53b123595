// Package protocol defines the wire format shared with the 42 server: a JSON
// envelope {"event": name, "data": payload} and one typed payload per event.
// Inbound events form a closed union so the reducer can switch exhaustively.
package protocol

import (
	"encoding/json"

	"fortytwo/internal/model"
)

// Inbound event names.
const (
	EventGameState       = "game_state"
	EventGameStarted     = "game_started"
	EventConnected       = "connected"
	EventPlayerJoined    = "player_joined"
	EventPlayerLeft      = "player_left"
	EventBotsAdded       = "bots_added"
	EventSpectatorJoined = "spectator_joined"
	EventBidUpdate       = "bid_update"
	EventTrumpSelected   = "trump_selected"
	EventDominoPlayed    = "domino_played"
	EventHandUpdate      = "hand_update"
	EventChatMessage     = "chat_message"
	EventError           = "error"
)

// Outbound event names.
const (
	EventJoinGame    = "join_game"
	EventLeaveGame   = "leave_game"
	EventStartGame   = "start_game"
	EventAddBots     = "add_bots"
	EventPlaceBid    = "place_bid"
	EventSelectTrump = "select_trump"
	EventPlayDomino  = "play_domino"
)

// Envelope is one framed message in either direction.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Inbound is the closed set of server-to-client events. Every variant is a
// payload struct below; Decode is the only constructor.
type Inbound interface {
	EventName() string
}

// Snapshot is the full-state payload of a game_state event. It replaces the
// local mirror wholesale.
type Snapshot struct {
	model.GameState
}

func (Snapshot) EventName() string { return EventGameState }

// GameStarted carries the same full snapshot as game_state but marks the
// start of a new hand, so presentation can announce it.
type GameStarted struct {
	model.GameState
}

func (GameStarted) EventName() string { return EventGameStarted }

// Connected is the server's greeting once the transport authenticates.
type Connected struct {
	User model.User `json:"user"`
}

func (Connected) EventName() string { return EventConnected }

// PlayerJoined announces a seat being taken. Players/Phase are optional;
// when present they partially refresh the roster.
type PlayerJoined struct {
	Username  string                      `json:"username"`
	Position  model.Seat                  `json:"position"`
	IsBot     bool                        `json:"is_bot"`
	Reconnect bool                        `json:"reconnect"`
	Players   map[model.Seat]*model.Player `json:"players"`
	Phase     model.Phase                 `json:"phase"`
}

func (PlayerJoined) EventName() string { return EventPlayerJoined }

// PlayerLeft is informational only; the server follows with authoritative
// state if the roster actually changed.
type PlayerLeft struct {
	Username string     `json:"username"`
	Position model.Seat `json:"position"`
}

func (PlayerLeft) EventName() string { return EventPlayerLeft }

// BotsAdded announces empty seats being filled with bots.
type BotsAdded struct {
	Message string                       `json:"message"`
	Players map[model.Seat]*model.Player `json:"players"`
	Phase   model.Phase                  `json:"phase"`
}

func (BotsAdded) EventName() string { return EventBotsAdded }

// SpectatorJoined announces a new observer.
type SpectatorJoined struct {
	Username string `json:"username"`
}

func (SpectatorJoined) EventName() string { return EventSpectatorJoined }

// BidUpdate reports one seat's bid or pass plus the refreshed auction state.
// Bid 0 means pass. Older servers name the turn field current_bidder.
type BidUpdate struct {
	Position      model.Seat  `json:"position"`
	Bid           int         `json:"bid"`
	HighBid       int         `json:"high_bid"`
	HighBidder    model.Seat  `json:"high_bidder"`
	Phase         model.Phase `json:"phase"`
	CurrentTurn   model.Seat  `json:"current_turn"`
	CurrentBidder model.Seat  `json:"current_bidder"`
	Message       string      `json:"message"`
}

func (BidUpdate) EventName() string { return EventBidUpdate }

// Turn returns the next seat to act, tolerating both field spellings.
func (e BidUpdate) Turn() model.Seat {
	if e.CurrentTurn.Valid() {
		return e.CurrentTurn
	}
	return e.CurrentBidder
}

// TrumpSelected reports the bid winner's trump choice. Older servers name
// the turn field current_leader.
type TrumpSelected struct {
	TrumpSuit     *int        `json:"trump_suit"`
	Phase         model.Phase `json:"phase"`
	CurrentTurn   model.Seat  `json:"current_turn"`
	CurrentLeader model.Seat  `json:"current_leader"`
	Message       string      `json:"message"`
}

func (TrumpSelected) EventName() string { return EventTrumpSelected }

// Turn returns the seat that leads the first trick.
func (e TrumpSelected) Turn() model.Seat {
	if e.CurrentTurn.Valid() {
		return e.CurrentTurn
	}
	return e.CurrentLeader
}

// TrickResult is present on the fourth play of a trick.
type TrickResult struct {
	Winner     model.Seat `json:"winner"`
	Points     int        `json:"points"`
	GameWinner int        `json:"game_winner"`
}

// DominoPlayed reports one play. When TrickResult is set the trick is
// complete and the counter fields are authoritative; when GameOver is set
// the marks are final.
type DominoPlayed struct {
	Position     model.Seat        `json:"position"`
	DominoID     string            `json:"domino_id"`
	CurrentTrick []model.TrickPlay `json:"current_trick"`
	LeadSuit     *int              `json:"lead_suit"`
	Phase        model.Phase       `json:"phase"`
	CurrentTurn  model.Seat        `json:"current_turn"`

	TrickResult     *TrickResult `json:"trick_result"`
	Team1Tricks     int          `json:"team1_tricks"`
	Team2Tricks     int          `json:"team2_tricks"`
	Team1HandPoints int          `json:"team1_hand_points"`
	Team2HandPoints int          `json:"team2_hand_points"`

	GameOver   bool `json:"game_over"`
	Winner     int  `json:"winner"`
	Team1Marks int  `json:"team1_marks"`
	Team2Marks int  `json:"team2_marks"`
}

func (DominoPlayed) EventName() string { return EventDominoPlayed }

// HandUpdate replaces the viewing seat's hand wholesale.
type HandUpdate struct {
	Hand []model.Domino `json:"hand"`
}

func (HandUpdate) EventName() string { return EventHandUpdate }

// Chat is one inbound chat line.
type Chat struct {
	model.ChatMessage
}

func (Chat) EventName() string { return EventChatMessage }

// ServerError is the server rejecting an action. No local state changed.
type ServerError struct {
	Message string `json:"message"`
}

func (ServerError) EventName() string { return EventError }

// Outbound is a client-to-server intent. Implementations are plain payload
// structs; Encode frames them.
type Outbound interface {
	EventName() string
}

type JoinGame struct {
	GameID string `json:"game_id"`
}

func (JoinGame) EventName() string { return EventJoinGame }

type LeaveGame struct {
	GameID string `json:"game_id"`
}

func (LeaveGame) EventName() string { return EventLeaveGame }

type StartGame struct {
	GameID string `json:"game_id"`
}

func (StartGame) EventName() string { return EventStartGame }

type AddBots struct {
	GameID string `json:"game_id"`
}

func (AddBots) EventName() string { return EventAddBots }

// PlaceBid with Bid 0 passes.
type PlaceBid struct {
	GameID string `json:"game_id"`
	Bid    int    `json:"bid"`
}

func (PlaceBid) EventName() string { return EventPlaceBid }

type SelectTrump struct {
	GameID string `json:"game_id"`
	Suit   int    `json:"suit"`
}

func (SelectTrump) EventName() string { return EventSelectTrump }

type PlayDomino struct {
	GameID   string `json:"game_id"`
	DominoID string `json:"domino_id"`
}

func (PlayDomino) EventName() string { return EventPlayDomino }

// ChatSend carries one outbound chat line.
type ChatSend struct {
	GameID  string `json:"game_id"`
	Message string `json:"message"`
}

func (ChatSend) EventName() string { return EventChatMessage }
