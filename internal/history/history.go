// Package history keeps a local sqlite log of finished matches so the player
// can review past results. It records only what the terminal summary shows;
// it is never a source of game state.
package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"fortytwo/internal/model"
)

type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the match log at dbPath.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	sqlStmt := `CREATE TABLE IF NOT EXISTS matches (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		game_id TEXT,
		my_seat TEXT,
		my_team INTEGER,
		winner_team INTEGER,
		team1_marks INTEGER,
		team2_marks INTEGER,
		finished_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`
	if _, err := db.Exec(sqlStmt); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() {
	if s.db != nil {
		s.db.Close()
	}
}

// Match is one recorded result.
type Match struct {
	GameID     string
	MySeat     model.Seat
	MyTeam     int
	WinnerTeam int
	Team1Marks int
	Team2Marks int
	FinishedAt time.Time
}

// Won reports whether the viewing seat's team took the match.
func (m Match) Won() bool { return m.MyTeam != 0 && m.MyTeam == m.WinnerTeam }

// Record logs one finished match.
func (s *Store) Record(g model.GameState, winnerTeam int) error {
	_, err := s.db.Exec(
		`INSERT INTO matches (game_id, my_seat, my_team, winner_team, team1_marks, team2_marks)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		g.GameID, string(g.MySeat), g.MySeat.Team(), winnerTeam, g.Team1Marks, g.Team2Marks,
	)
	if err != nil {
		return fmt.Errorf("history: record match: %w", err)
	}
	return nil
}

// Recent returns up to n matches, newest first.
func (s *Store) Recent(n int) ([]Match, error) {
	rows, err := s.db.Query(
		`SELECT game_id, my_seat, my_team, winner_team, team1_marks, team2_marks, finished_at
		 FROM matches ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("history: list matches: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		var seat string
		if err := rows.Scan(&m.GameID, &seat, &m.MyTeam, &m.WinnerTeam,
			&m.Team1Marks, &m.Team2Marks, &m.FinishedAt); err != nil {
			return nil, fmt.Errorf("history: scan match: %w", err)
		}
		m.MySeat = model.Seat(seat)
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// Tally is the win/loss summary across the whole log.
type Tally struct {
	Played int
	Won    int
}

// Totals aggregates every recorded match.
func (s *Store) Totals() (Tally, error) {
	var t Tally
	err := s.db.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN my_team = winner_team AND my_team != 0 THEN 1 ELSE 0 END), 0)
		 FROM matches`).Scan(&t.Played, &t.Won)
	if err != nil {
		return Tally{}, fmt.Errorf("history: totals: %w", err)
	}
	return t, nil
}
