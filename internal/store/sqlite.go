package store

import (
	"database/sql"
	"fmt"
	"sync"
)

// Current schema version
const SchemaVersion = "1"

// SQLite is a SQLite-backed store.
type SQLite struct {
	mu sync.Mutex
	db *sql.DB
}

// NewSQLite creates a new SQLite store at the given path.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			sid TEXT PRIMARY KEY,
			valid_until INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS session_params (
			sid TEXT NOT NULL,
			name TEXT NOT NULL,
			value TEXT NOT NULL,
			PRIMARY KEY (sid, name),
			FOREIGN KEY (sid) REFERENCES sessions(sid)
		);
		CREATE TABLE IF NOT EXISTS metadata (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	if err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLite{db: db}

	version, err := s.getMetadataUnlocked("schema_version")
	if err != nil {
		db.Close()
		return nil, err
	}
	switch version {
	case "":
		if err := s.setMetadataUnlocked("schema_version", SchemaVersion); err != nil {
			db.Close()
			return nil, err
		}
	case SchemaVersion:
	default:
		db.Close()
		return nil, fmt.Errorf("unsupported schema version: %s (expected %s)", version, SchemaVersion)
	}

	return s, nil
}

// Load returns all persisted sessions with their parameters.
func (s *SQLite) Load() ([]Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query("SELECT sid, valid_until FROM sessions")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byID := make(map[string]*Session)
	var sids []string
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.SID, &sess.ValidUntil); err != nil {
			return nil, err
		}
		sess.Params = make(map[string]string)
		byID[sess.SID] = &sess
		sids = append(sids, sess.SID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	prows, err := s.db.Query("SELECT sid, name, value FROM session_params")
	if err != nil {
		return nil, err
	}
	defer prows.Close()
	for prows.Next() {
		var sid, name, value string
		if err := prows.Scan(&sid, &name, &value); err != nil {
			return nil, err
		}
		if sess, ok := byID[sid]; ok {
			sess.Params[name] = value
		}
	}
	if err := prows.Err(); err != nil {
		return nil, err
	}

	sessions := make([]Session, 0, len(sids))
	for _, sid := range sids {
		sessions = append(sessions, *byID[sid])
	}
	return sessions, nil
}

// Put stores a session snapshot, replacing any previous parameters.
func (s *SQLite) Put(sess Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO sessions (sid, valid_until) VALUES (?, ?)
		ON CONFLICT(sid) DO UPDATE SET valid_until = excluded.valid_until
	`, sess.SID, sess.ValidUntil)
	if err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM session_params WHERE sid = ?", sess.SID); err != nil {
		return err
	}
	for name, value := range sess.Params {
		_, err := tx.Exec(
			"INSERT INTO session_params (sid, name, value) VALUES (?, ?, ?)",
			sess.SID, name, value,
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Delete removes a session and its parameters by SID.
func (s *SQLite) Delete(sid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM session_params WHERE sid = ?", sid); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM sessions WHERE sid = ?", sid); err != nil {
		return err
	}
	return tx.Commit()
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) getMetadataUnlocked(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (s *SQLite) setMetadataUnlocked(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}
