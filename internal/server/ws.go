package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"fortytwo/internal/model"
	"fortytwo/internal/protocol"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	u, err := sessionUser(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "not signed in")
		return
	}
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	m := &member{conn: ws, user: u}
	var rm *room

	defer func() {
		if rm != nil {
			s.dropMember(rm, m)
		}
		ws.Close()
	}()

	m.send(protocol.EventConnected, map[string]any{"user": u})

	for {
		var env protocol.Envelope
		if err := ws.ReadJSON(&env); err != nil {
			return
		}

		switch env.Event {
		case protocol.EventJoinGame:
			var in protocol.JoinGame
			if err := json.Unmarshal(env.Data, &in); err != nil || in.GameID == "" {
				m.send(protocol.EventError, map[string]string{"message": "game_id required"})
				continue
			}
			// Switching rooms vacates the old seat first; otherwise the
			// member would keep receiving the old room's broadcasts.
			if rm != nil && rm.id != in.GameID {
				s.dropMember(rm, m)
				m.seat = ""
			}
			rm = s.joinRoom(in.GameID, m)

		case protocol.EventLeaveGame:
			if rm != nil {
				s.dropMember(rm, m)
				rm = nil
			}

		case protocol.EventChatMessage:
			var in protocol.ChatSend
			if err := json.Unmarshal(env.Data, &in); err != nil || in.Message == "" || rm == nil {
				continue
			}
			msg := in.Message
			if runes := []rune(msg); len(runes) > 200 {
				msg = string(runes[:200])
			}
			rm.broadcast(protocol.EventChatMessage, model.ChatMessage{
				Username:    u.Username,
				Message:     msg,
				IsSpectator: !m.seat.Valid(),
				Timestamp:   time.Now().UTC().Format(time.RFC3339),
			})

		case protocol.EventStartGame:
			if rm == nil {
				continue
			}
			s.log.Info().Str("game_id", rm.id).Int("events", len(s.cfg.Script)).Msg("replaying script")
			rm.replay(s.cfg.Script)

		default:
			// No rule engine here. Game-flow intents only work through the
			// replay script.
			m.send(protocol.EventError, map[string]string{
				"message": "action not supported by the dev server",
			})
		}
	}
}

func (s *Server) joinRoom(id string, m *member) *room {
	rm := s.room(id)

	rm.mu.Lock()
	seat, reconnect := rm.seatFor(m.user)
	m.seat = seat
	rm.members[m.conn] = m
	snap := rm.snapshot(m)
	roster := rm.roster()
	rm.mu.Unlock()

	m.send(protocol.EventGameState, snap)

	if !seat.Valid() {
		rm.broadcast(protocol.EventSpectatorJoined, map[string]string{"username": m.user.Username})
		return rm
	}
	rm.broadcast(protocol.EventPlayerJoined, map[string]any{
		"username":  m.user.Username,
		"position":  seat,
		"reconnect": reconnect,
		"players":   roster,
		"phase":     model.PhaseWaiting,
	})
	return rm
}

func (s *Server) dropMember(rm *room, m *member) {
	rm.mu.Lock()
	_, present := rm.members[m.conn]
	delete(rm.members, m.conn)
	seat := m.seat
	rm.mu.Unlock()

	if present && seat.Valid() {
		rm.broadcast(protocol.EventPlayerLeft, map[string]any{
			"username": m.user.Username,
			"position": seat,
		})
	}
}

// broadcast fans one event out to every member.
func (rm *room) broadcast(event string, payload any) {
	rm.mu.Lock()
	members := make([]*member, 0, len(rm.members))
	for _, m := range rm.members {
		members = append(members, m)
	}
	rm.mu.Unlock()

	for _, m := range members {
		m.send(event, payload)
	}
}

// replay pushes the scripted envelopes to every member in order.
func (rm *room) replay(script []protocol.Envelope) {
	for _, env := range script {
		rm.mu.Lock()
		members := make([]*member, 0, len(rm.members))
		for _, m := range rm.members {
			members = append(members, m)
		}
		rm.mu.Unlock()
		for _, m := range members {
			m.sendEnvelope(env)
		}
	}
}

func (m *member) send(event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	m.sendEnvelope(protocol.Envelope{Event: event, Data: data})
}

func (m *member) sendEnvelope(env protocol.Envelope) {
	m.writeMu.Lock()
	m.conn.WriteJSON(env)
	m.writeMu.Unlock()
}
