package server

import (
	"sync"

	"github.com/gorilla/websocket"

	"fortytwo/internal/model"
)

// member is one websocket inside a room. A member without a seat spectates.
type member struct {
	conn    *websocket.Conn
	user    model.User
	seat    model.Seat
	writeMu sync.Mutex
}

// room is one game's membership. The dev server tracks who sits where and
// nothing else; game flow comes from the replay script.
type room struct {
	id     string
	name   string
	public bool

	mu      sync.Mutex
	members map[*websocket.Conn]*member
}

func newRoom(id, name string, public bool) *room {
	return &room{id: id, name: name, public: public, members: make(map[*websocket.Conn]*member)}
}

// seatFor hands out the next free seat in play order, or "" when the table
// is full. If the user already held a seat (a reconnect) they get it back.
func (rm *room) seatFor(u model.User) (model.Seat, bool) {
	taken := make(map[model.Seat]bool)
	for _, m := range rm.members {
		if m.seat.Valid() {
			if m.user.Username == u.Username {
				return m.seat, true
			}
			taken[m.seat] = true
		}
	}
	for _, seat := range model.PlayOrder {
		if !taken[seat] {
			return seat, false
		}
	}
	return "", false
}

// roster builds the players map for snapshots and join announcements.
func (rm *room) roster() map[model.Seat]*model.Player {
	players := make(map[model.Seat]*model.Player)
	for _, m := range rm.members {
		if m.seat.Valid() {
			players[m.seat] = &model.Player{Position: m.seat, Username: m.user.Username}
		}
	}
	return players
}

// snapshot is the waiting-phase state a joiner sees.
func (rm *room) snapshot(viewer *member) model.GameState {
	return model.GameState{
		GameID:      rm.id,
		Phase:       model.PhaseWaiting,
		Players:     rm.roster(),
		MySeat:      viewer.seat,
		IsSpectator: !viewer.seat.Valid(),
	}
}

func (rm *room) summary() map[string]any {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	names := make(map[string]string)
	count := 0
	for _, m := range rm.members {
		if m.seat.Valid() {
			names[string(m.seat)] = m.user.Username
			count++
		}
	}
	return map[string]any{
		"game_id":      rm.id,
		"name":         rm.name,
		"phase":        "waiting",
		"player_count": count,
		"is_public":    rm.public,
		"player_names": names,
	}
}
