package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Session records one capture run: which device, how long, and how many
// frames were captured, delivered and dropped.
type Session struct {
	ID         string     `json:"id"`
	DeviceID   int        `json:"device_id"`
	DeviceName string     `json:"device_name"`
	StartedAt  time.Time  `json:"started_at"`
	StoppedAt  *time.Time `json:"stopped_at,omitempty"`
	Captured   uint64     `json:"captured"`
	Delivered  uint64     `json:"delivered"`
	Dropped    uint64     `json:"dropped"`
	ReadErrors uint64     `json:"read_errors"`
}

// SessionRepository provides access to capture sessions.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

// Create inserts a new session. An empty ID is filled in.
func (r *SessionRepository) Create(sess *Session) error {
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	if sess.StartedAt.IsZero() {
		sess.StartedAt = time.Now()
	}

	_, err := r.db.Exec(
		`INSERT INTO sessions (id, device_id, device_name, started_at) VALUES (?, ?, ?, ?)`,
		sess.ID, sess.DeviceID, sess.DeviceName, sess.StartedAt,
	)
	return err
}

// Finish records the end of a session and its final counters.
func (r *SessionRepository) Finish(sess *Session) error {
	if sess.StoppedAt == nil {
		now := time.Now()
		sess.StoppedAt = &now
	}

	result, err := r.db.Exec(
		`UPDATE sessions SET stopped_at = ?, captured = ?, delivered = ?, dropped = ?, read_errors = ?
		 WHERE id = ?`,
		*sess.StoppedAt, int64(sess.Captured), int64(sess.Delivered), int64(sess.Dropped), int64(sess.ReadErrors), sess.ID,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// GetByID retrieves a session by its ID.
func (r *SessionRepository) GetByID(id string) (*Session, error) {
	row := r.db.QueryRow(
		`SELECT id, device_id, device_name, started_at, stopped_at, captured, delivered, dropped, read_errors
		 FROM sessions WHERE id = ?`,
		id,
	)

	sess, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return sess, nil
}

// List returns the most recent sessions first, at most limit of them.
func (r *SessionRepository) List(limit int) ([]*Session, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(
		`SELECT id, device_id, device_name, started_at, stopped_at, captured, delivered, dropped, read_errors
		 FROM sessions ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*Session, error) {
	sess := &Session{}
	var stopped sql.NullTime
	var captured, delivered, dropped, readErrors int64

	err := row.Scan(&sess.ID, &sess.DeviceID, &sess.DeviceName, &sess.StartedAt, &stopped,
		&captured, &delivered, &dropped, &readErrors)
	if err != nil {
		return nil, err
	}

	if stopped.Valid {
		t := stopped.Time
		sess.StoppedAt = &t
	}
	sess.Captured = uint64(captured)
	sess.Delivered = uint64(delivered)
	sess.Dropped = uint64(dropped)
	sess.ReadErrors = uint64(readErrors)
	return sess, nil
}
