// Package profile stands in for the external Firestore-backed account
// store the spec treats as an outside collaborator: a player profile is
// read at join and aggregated stats/crypto are persisted back on a
// debounced schedule. Here that collaborator is a local sqlite database
// (modernc.org/sqlite, pure Go, no cgo) rather than a live cloud
// dependency, so the server is fully self-contained.
package profile

import (
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Profile is one player's persisted account record.
type Profile struct {
	PlayerID    string
	DisplayName string
	TotalCrypto int64
	Badges      []string
	Title       string
	Kills       int
	Deaths      int
	UpdatedAt   time.Time
}

// Store wraps a sqlite-backed profile table with a debounced write-back
// queue: callers stage updates with Stage, and a background goroutine
// flushes dirty profiles periodically, fire-and-forget from the tick
// loop's perspective.
type Store struct {
	db *sql.DB

	mu     sync.Mutex
	dirty  map[string]Profile
	stopCh chan struct{}
	done   chan struct{}
}

// Open opens (creating if absent) the sqlite database at path and starts
// the debounce-flush loop at the given interval.
func Open(path string, flushInterval time.Duration) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("profile: open db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("profile: migrate schema: %w", err)
	}

	s := &Store{
		db:     db,
		dirty:  make(map[string]Profile),
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
	go s.flushLoop(flushInterval)
	return s, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS profiles (
	player_id    TEXT PRIMARY KEY,
	display_name TEXT NOT NULL DEFAULT '',
	total_crypto INTEGER NOT NULL DEFAULT 0,
	badges       TEXT NOT NULL DEFAULT '',
	title        TEXT NOT NULL DEFAULT '',
	kills        INTEGER NOT NULL DEFAULT 0,
	deaths       INTEGER NOT NULL DEFAULT 0,
	updated_at   INTEGER NOT NULL DEFAULT 0
);
`

// Load reads one player's profile, returning a zero-value Profile if none
// exists yet (a first-time joiner).
func (s *Store) Load(playerID string) (Profile, error) {
	row := s.db.QueryRow(`SELECT player_id, display_name, total_crypto, badges, title, kills, deaths, updated_at
		FROM profiles WHERE player_id = ?`, playerID)

	var p Profile
	var badges string
	var updatedUnix int64
	err := row.Scan(&p.PlayerID, &p.DisplayName, &p.TotalCrypto, &badges, &p.Title, &p.Kills, &p.Deaths, &updatedUnix)
	if err == sql.ErrNoRows {
		return Profile{PlayerID: playerID}, nil
	}
	if err != nil {
		return Profile{}, fmt.Errorf("profile: load %s: %w", playerID, err)
	}
	p.Badges = splitBadges(badges)
	p.UpdatedAt = time.Unix(updatedUnix, 0)
	return p, nil
}

// Stage queues a profile for write-back on the next flush; it does not
// block on disk I/O.
func (s *Store) Stage(p Profile) {
	s.mu.Lock()
	s.dirty[p.PlayerID] = p
	s.mu.Unlock()
}

func (s *Store) flushLoop(interval time.Duration) {
	defer close(s.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.flush()
		case <-s.stopCh:
			s.flush()
			return
		}
	}
}

func (s *Store) flush() {
	s.mu.Lock()
	if len(s.dirty) == 0 {
		s.mu.Unlock()
		return
	}
	batch := s.dirty
	s.dirty = make(map[string]Profile)
	s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		log.Printf("profile: begin flush tx: %v", err)
		return
	}
	stmt, err := tx.Prepare(`INSERT INTO profiles (player_id, display_name, total_crypto, badges, title, kills, deaths, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(player_id) DO UPDATE SET
			display_name=excluded.display_name, total_crypto=excluded.total_crypto,
			badges=excluded.badges, title=excluded.title, kills=excluded.kills,
			deaths=excluded.deaths, updated_at=excluded.updated_at`)
	if err != nil {
		log.Printf("profile: prepare flush stmt: %v", err)
		tx.Rollback()
		return
	}
	defer stmt.Close()

	for _, p := range batch {
		if _, err := stmt.Exec(p.PlayerID, p.DisplayName, p.TotalCrypto, joinBadges(p.Badges), p.Title, p.Kills, p.Deaths, time.Now().Unix()); err != nil {
			log.Printf("profile: flush %s: %v", p.PlayerID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		log.Printf("profile: commit flush tx: %v", err)
	}
}

// Close flushes any pending writes and closes the database.
func (s *Store) Close() error {
	close(s.stopCh)
	<-s.done
	return s.db.Close()
}

// WipeAll deletes every stored profile in fixed-size batches, returning the
// total number removed or the first error encountered.
func (s *Store) WipeAll(batchSize int) (int, error) {
	total := 0
	for {
		res, err := s.db.Exec(`DELETE FROM profiles WHERE player_id IN (SELECT player_id FROM profiles LIMIT ?)`, batchSize)
		if err != nil {
			return total, fmt.Errorf("profile: wipe batch: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("profile: wipe batch rows affected: %w", err)
		}
		total += int(n)
		if n == 0 {
			return total, nil
		}
	}
}

func splitBadges(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	return out
}

func joinBadges(badges []string) string {
	out := ""
	for i, b := range badges {
		if i > 0 {
			out += ","
		}
		out += b
	}
	return out
}
