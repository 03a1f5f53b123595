// Package session owns the duplex channel to the 42 server: one websocket
// per game session, the join/resync handshake, and reconnects. Inbound
// events are processed strictly in arrival order, one at a time; the server
// is the sole authority and a fresh snapshot always wins over anything
// accumulated locally.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"fortytwo/internal/game"
	"fortytwo/internal/protocol"
)

// reconnect backoff bounds.
const (
	backoffInitial = 500 * time.Millisecond
	backoffMax     = 5 * time.Second
)

// Config wires a session together.
type Config struct {
	// BaseURL is the server's http(s) origin, e.g. "http://localhost:5001".
	BaseURL string
	// GameID identifies the game room to join.
	GameID string
	// HTTPClient supplies the authenticated cookie jar; may be nil.
	HTTPClient *http.Client
	// Listener receives all presentation notifications.
	Listener game.Listener
	Logger   zerolog.Logger
}

// Session is the connection/session manager. It owns the websocket and the
// state store; user intents go out through the emit methods after advisory
// legality pre-checks.
type Session struct {
	cfg   Config
	store *game.Store
	log   zerolog.Logger

	writeMu sync.Mutex
	conn    *websocket.Conn

	closeOnce sync.Once
	closed    chan struct{}
}

// New validates the config and builds a session with an empty store.
func New(cfg Config) (*Session, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("session: base URL required")
	}
	if cfg.GameID == "" {
		return nil, errors.New("session: game id required")
	}
	if cfg.Listener == nil {
		return nil, errors.New("session: listener required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("session: bad base URL: %w", err)
	}
	return &Session{
		cfg:    cfg,
		store:  game.NewStore(cfg.Listener, cfg.Logger.With().Str("component", "store").Logger()),
		log:    cfg.Logger.With().Str("component", "session").Logger(),
		closed: make(chan struct{}),
	}, nil
}

// Store exposes the state store for read-only observers.
func (s *Session) Store() *game.Store { return s.store }

// Run connects and processes events until ctx is canceled or Close is
// called. Transport drops are recoverable: each reconnect re-emits the join
// intent, which makes the server resend a full snapshot; deltas missed
// during the outage are never replayed.
func (s *Session) Run(ctx context.Context) error {
	backoff := backoffInitial
	for {
		conn, err := s.dial(ctx)
		if err != nil {
			if s.done(ctx) {
				return nil
			}
			s.log.Warn().Err(err).Dur("retry_in", backoff).Msg("connect failed")
			s.cfg.Listener.Toast("Connection lost. Reconnecting...", game.ToastError)
			if !s.sleep(ctx, backoff) {
				return nil
			}
			backoff = min(backoff*2, backoffMax)
			continue
		}
		backoff = backoffInitial

		s.setConn(conn)
		s.cfg.Listener.ConnectionChanged(true)

		// The join intent doubles as the resync request: the server
		// answers with an authoritative full snapshot.
		if err := s.emit(protocol.JoinGame{GameID: s.cfg.GameID}); err != nil {
			s.log.Warn().Err(err).Msg("join emit failed")
		}

		err = s.readLoop(conn)
		s.setConn(nil)
		conn.Close()
		s.cfg.Listener.ConnectionChanged(false)

		if s.done(ctx) {
			return nil
		}
		s.log.Warn().Err(err).Msg("connection dropped")
		s.cfg.Listener.Toast("Connection lost. Reconnecting...", game.ToastError)
		if !s.sleep(ctx, backoff) {
			return nil
		}
	}
}

// Close tears the session down. Safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() { close(s.closed) })
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

func (s *Session) dial(ctx context.Context) (*websocket.Conn, error) {
	wsURL, err := websocketURL(s.cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	if s.cfg.HTTPClient != nil {
		dialer.Jar = s.cfg.HTTPClient.Jar
	}
	conn, resp, err := dialer.DialContext(ctx, wsURL, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", wsURL, err)
	}
	return conn, nil
}

// readLoop decodes and applies events one at a time, in arrival order.
// Malformed payloads are skipped without touching state and without ending
// the loop; only transport errors return.
func (s *Session) readLoop(conn *websocket.Conn) error {
	for {
		var env protocol.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			return err
		}
		ev, err := protocol.Decode(env)
		if err != nil {
			if errors.Is(err, protocol.ErrUnknownEvent) {
				s.log.Debug().Str("event", env.Event).Msg("ignoring unknown event")
			} else {
				s.log.Warn().Err(err).Str("event", env.Event).Msg("skipping malformed event")
			}
			continue
		}
		s.store.Apply(ev)
	}
}

func (s *Session) setConn(conn *websocket.Conn) {
	s.writeMu.Lock()
	s.conn = conn
	s.writeMu.Unlock()
}

func (s *Session) emit(out protocol.Outbound) error {
	payload, err := protocol.Encode(out)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.conn == nil {
		return errors.New("not connected")
	}
	return s.conn.WriteMessage(websocket.TextMessage, payload)
}

func (s *Session) done(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	case <-s.closed:
		return true
	default:
		return false
	}
}

func (s *Session) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-s.closed:
		return false
	case <-t.C:
		return true
	}
}

// websocketURL turns the http(s) origin into the ws(s) endpoint.
func websocketURL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base URL: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	return u.String(), nil
}
