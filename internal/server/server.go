// Package server is a development stand-in for the real 42 server. It speaks
// the same HTTP auth surface and websocket envelope protocol, seats joiners
// in play order, relays chat, and answers start_game by replaying a scripted
// event sequence. It has no rule engine; clients exercising game flow run
// against recorded scripts.
package server

import (
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"fortytwo/internal/protocol"
)

// Config wires the dev server together.
type Config struct {
	// JWTSecret signs session cookies.
	JWTSecret string
	// Script is the envelope sequence replayed to every room member when a
	// start_game intent arrives.
	Script []protocol.Envelope
	Logger zerolog.Logger
}

type account struct {
	ID           int
	Username     string
	PasswordHash string
	IsGuest      bool
}

// Server holds the in-memory accounts and rooms. Nothing persists.
type Server struct {
	cfg Config
	r   *chi.Mux
	log zerolog.Logger

	mu     sync.Mutex
	users  map[string]*account // keyed by lowercase username
	nextID int
	rooms  map[string]*room
}

func New(cfg Config) *Server {
	s := &Server{
		cfg:    cfg,
		r:      chi.NewRouter(),
		log:    cfg.Logger,
		users:  make(map[string]*account),
		nextID: 1,
		rooms:  make(map[string]*room),
	}

	s.r.Use(chimw.RequestID)
	s.r.Use(chimw.RealIP)
	s.r.Use(chimw.Recoverer)

	s.r.Post("/api/signup", s.handleSignup)
	s.r.Post("/api/signin", s.handleSignin)
	s.r.Post("/api/guest", s.handleGuest)
	s.r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Post("/api/logout", s.handleLogout)
		r.Get("/api/user", s.handleUser)
		r.Get("/api/games", s.handleListGames)
		r.Post("/api/games", s.handleCreateGame)
		r.Get("/ws", s.handleWS)
	})
	return s
}

// Router exposes the handler for http.Server or tests.
func (s *Server) Router() http.Handler { return s.r }

// LoadScript reads a JSON array of envelopes from path.
func LoadScript(path string) ([]protocol.Envelope, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var script []protocol.Envelope
	if err := json.Unmarshal(raw, &script); err != nil {
		return nil, err
	}
	return script, nil
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "bad request")
		return
	}
	in.Username = strings.TrimSpace(in.Username)
	if len(in.Username) < 3 || len(in.Username) > 20 {
		writeError(w, http.StatusBadRequest, "Username must be 3-20 characters")
		return
	}
	if len(in.Password) < 6 {
		writeError(w, http.StatusBadRequest, "Password must be at least 6 characters")
		return
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.mu.Lock()
	if _, taken := s.users[strings.ToLower(in.Username)]; taken {
		s.mu.Unlock()
		writeError(w, http.StatusBadRequest, "Username already taken")
		return
	}
	a := &account{ID: s.nextID, Username: in.Username, PasswordHash: hash}
	s.nextID++
	s.users[strings.ToLower(in.Username)] = a
	s.mu.Unlock()

	s.issueSession(w, a)
}

func (s *Server) handleSignin(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "bad request")
		return
	}

	s.mu.Lock()
	a := s.users[strings.ToLower(strings.TrimSpace(in.Username))]
	s.mu.Unlock()

	if a == nil || !checkPassword(a.PasswordHash, in.Password) {
		writeError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}
	s.issueSession(w, a)
}

func (s *Server) handleGuest(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	a := &account{
		ID:       s.nextID,
		Username: "Guest_" + uuid.NewString()[:8],
		IsGuest:  true,
	}
	s.nextID++
	s.users[strings.ToLower(a.Username)] = a
	s.mu.Unlock()

	s.issueSession(w, a)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if u, err := sessionUser(r); err == nil && u.IsGuest {
		s.mu.Lock()
		delete(s.users, strings.ToLower(u.Username))
		s.mu.Unlock()
	}
	clearAuthCookie(w)
	writeJSON(w, map[string]any{"success": true})
}

func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	u, err := sessionUser(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "not signed in")
		return
	}
	writeJSON(w, map[string]any{"user": u})
}

func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	games := make([]map[string]any, 0, len(s.rooms))
	for _, rm := range s.rooms {
		if !rm.public {
			continue
		}
		games = append(games, rm.summary())
	}
	s.mu.Unlock()
	writeJSON(w, map[string]any{"games": games})
}

func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	u, err := sessionUser(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "not signed in")
		return
	}
	var in struct {
		Name     string `json:"name"`
		IsPublic *bool  `json:"is_public"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "bad request")
		return
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = u.Username + "'s Game"
	}
	if len(name) > 50 {
		name = name[:50]
	}
	public := in.IsPublic == nil || *in.IsPublic

	id := uuid.NewString()[:8]
	s.mu.Lock()
	s.rooms[id] = newRoom(id, name, public)
	s.mu.Unlock()

	s.log.Info().Str("game_id", id).Str("host", u.Username).Msg("game created")
	writeJSON(w, map[string]any{"success": true, "game_id": id})
}

// room looks a game room up, creating it on demand so scripted sessions can
// join by any id.
func (s *Server) room(id string) *room {
	s.mu.Lock()
	defer s.mu.Unlock()
	rm, ok := s.rooms[id]
	if !ok {
		rm = newRoom(id, "Game "+id, true)
		s.rooms[id] = rm
	}
	return rm
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
