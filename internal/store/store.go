// Package store mirrors live timer sessions into SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/smtimer/internal/model"
	"github.com/verte-zerg/smtimer/internal/transition"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Store wraps SQLite access for session data.
type Store struct {
	db      *sql.DB
	session uuid.UUID
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL DEFAULT '',
			log_path TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS transitions (
			session_id TEXT NOT NULL,
			ts TEXT NOT NULL,
			room_id INTEGER NOT NULL,
			entry_room_id INTEGER NOT NULL,
			exit_room_id INTEGER NOT NULL,
			entry_door_id INTEGER NOT NULL,
			exit_door_id INTEGER NOT NULL,
			items TEXT NOT NULL,
			beams TEXT NOT NULL,
			game_frames INTEGER NOT NULL,
			real_frames INTEGER NOT NULL,
			room_lag_frames INTEGER NOT NULL,
			door_lag_frames INTEGER NOT NULL,
			door_real_frames INTEGER NOT NULL,
			door_real INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS resets (
			session_id TEXT NOT NULL,
			ts TEXT NOT NULL,
			room_id INTEGER NOT NULL,
			entry_room_id INTEGER NOT NULL,
			exit_room_id INTEGER NOT NULL,
			items TEXT NOT NULL,
			beams TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON sessions(started_at);`,
		`CREATE INDEX IF NOT EXISTS idx_transitions_session ON transitions(session_id);`,
		`CREATE INDEX IF NOT EXISTS idx_resets_key ON resets(room_id, entry_room_id, exit_room_id, items, beams);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// StartSession records a new session. Later inserts belong to it.
func (s *Store) StartSession(ctx context.Context, logPath string, at time.Time) (uuid.UUID, error) {
	id := uuid.New()
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, started_at, log_path) VALUES (?, ?, ?)`,
		id.String(), at.Format(time.RFC3339Nano), logPath,
	); err != nil {
		return uuid.Nil, err
	}
	s.session = id
	return id, nil
}

// EndSession stamps the current session as finished.
func (s *Store) EndSession(ctx context.Context, at time.Time) error {
	if s.session == uuid.Nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET ended_at = ? WHERE id = ?`,
		at.Format(time.RFC3339Nano), s.session.String())
	return err
}

// InsertTransition stores t under the current session.
func (s *Store) InsertTransition(ctx context.Context, t transition.Transition) error {
	k := t.ID.Key()
	door := 0
	if t.Time.DoorTimeIsReal {
		door = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transitions (session_id, ts, room_id, entry_room_id, exit_room_id, entry_door_id, exit_door_id,
			items, beams, game_frames, real_frames, room_lag_frames, door_lag_frames, door_real_frames, door_real)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.session.String(),
		t.Timestamp.Format(time.RFC3339Nano),
		k.Room, k.Entry, k.Exit,
		t.ID.EntryDoor.ID, t.ID.ExitDoor.ID,
		k.Items, k.Beams,
		int64(t.Time.GameTime),
		int64(t.Time.RealTime),
		int64(t.Time.RoomLag),
		int64(t.Time.DoorLag),
		int64(t.Time.RealTimeDoor),
		door,
	)
	return err
}

// InsertReset stores a reset under the current session.
func (s *Store) InsertReset(ctx context.Context, id transition.ID) error {
	k := id.Key()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO resets (session_id, ts, room_id, entry_room_id, exit_room_id, items, beams)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.session.String(), time.Now().Format(time.RFC3339Nano),
		k.Room, k.Entry, k.Exit, k.Items, k.Beams,
	)
	return err
}

// ResetCounts returns the number of stored resets per reset identity
// across every session.
func (s *Store) ResetCounts(ctx context.Context) ([]model.ResetCount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT room_id, entry_room_id, exit_room_id, items, beams, COUNT(*)
		 FROM resets
		 GROUP BY room_id, entry_room_id, exit_room_id, items, beams
		 ORDER BY room_id, entry_room_id`)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.ResetCount
	for rows.Next() {
		var rc model.ResetCount
		if err := rows.Scan(&rc.Key.Room, &rc.Key.Entry, &rc.Key.Exit, &rc.Key.Items, &rc.Key.Beams, &rc.Count); err != nil {
			return nil, err
		}
		result = append(result, rc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ListSessions returns every session with its counts, oldest first.
func (s *Store) ListSessions(ctx context.Context, since *time.Time) ([]model.SessionAggregate, error) {
	query := `SELECT s.id, s.started_at, s.ended_at, s.log_path,
			(SELECT COUNT(*) FROM transitions t WHERE t.session_id = s.id),
			(SELECT COALESCE(SUM(t.real_frames + t.door_real_frames), 0) FROM transitions t WHERE t.session_id = s.id),
			(SELECT COUNT(*) FROM resets r WHERE r.session_id = s.id)
		FROM sessions s
		WHERE (? = '' OR s.started_at >= ?)
		ORDER BY s.started_at ASC`
	sinceArg := ""
	if since != nil {
		sinceArg = since.Format(time.RFC3339Nano)
	}
	rows, err := s.db.QueryContext(ctx, query, sinceArg, sinceArg)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var sessions []model.SessionAggregate
	for rows.Next() {
		var agg model.SessionAggregate
		var id, startedAt, endedAt string
		var realFrames int64
		if err := rows.Scan(&id, &startedAt, &endedAt, &agg.LogPath, &agg.Transitions, &realFrames, &agg.Resets); err != nil {
			return nil, err
		}
		if agg.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("failed to parse session id: %w", err)
		}
		if agg.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
			return nil, err
		}
		if endedAt != "" {
			if agg.EndedAt, err = time.Parse(time.RFC3339Nano, endedAt); err != nil {
				return nil, err
			}
		}
		agg.RealTime = time.Duration(realFrames) * time.Second / 60
		sessions = append(sessions, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}
