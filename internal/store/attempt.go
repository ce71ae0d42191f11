package store

import (
	"database/sql"
	"image"
	"time"

	"github.com/google/uuid"
)

// Attempt is one candidate silhouette compared against the reference.
type Attempt struct {
	ID        string          `json:"id"`
	SessionID string          `json:"session_id"`
	Score     float64         `json:"score"`
	Accepted  bool            `json:"accepted"`
	Bounds    image.Rectangle `json:"bounds"`
	CreatedAt time.Time       `json:"created_at"`
}

// AttemptStats summarizes the attempts of a session.
type AttemptStats struct {
	Total    int     `json:"total"`
	Accepted int     `json:"accepted"`
	Best     float64 `json:"best"`
}

// AttemptRepository provides access to attempts.
type AttemptRepository struct {
	db *sql.DB
}

// Attempts returns the attempt repository for this store.
func (s *Store) Attempts() *AttemptRepository {
	return &AttemptRepository{db: s.db}
}

// Create inserts an attempt, assigning an ID and timestamp when missing.
func (r *AttemptRepository) Create(a *Attempt) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}

	_, err := r.db.Exec(
		`INSERT INTO attempts (id, session_id, score, accepted, min_x, min_y, max_x, max_y, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.SessionID, a.Score, a.Accepted,
		a.Bounds.Min.X, a.Bounds.Min.Y, a.Bounds.Max.X, a.Bounds.Max.Y, a.CreatedAt,
	)
	return err
}

// ListBySession returns a session's attempts in insertion order.
func (r *AttemptRepository) ListBySession(sessionID string) ([]*Attempt, error) {
	return r.query(
		`SELECT id, session_id, score, accepted, min_x, min_y, max_x, max_y, created_at
		 FROM attempts WHERE session_id = ? ORDER BY created_at, rowid`,
		sessionID,
	)
}

// Recent returns the latest attempts across sessions, newest first.
func (r *AttemptRepository) Recent(limit int) ([]*Attempt, error) {
	if limit <= 0 {
		limit = -1
	}
	return r.query(
		`SELECT id, session_id, score, accepted, min_x, min_y, max_x, max_y, created_at
		 FROM attempts ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
}

// Stats counts a session's attempts and returns its lowest score.
func (r *AttemptRepository) Stats(sessionID string) (AttemptStats, error) {
	var st AttemptStats
	var accepted sql.NullInt64
	var best sql.NullFloat64
	err := r.db.QueryRow(
		`SELECT COUNT(*), SUM(accepted), MIN(score) FROM attempts WHERE session_id = ?`,
		sessionID,
	).Scan(&st.Total, &accepted, &best)
	if err != nil {
		return st, err
	}
	st.Accepted = int(accepted.Int64)
	st.Best = best.Float64
	return st, nil
}

func (r *AttemptRepository) query(q string, args ...any) ([]*Attempt, error) {
	rows, err := r.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []*Attempt
	for rows.Next() {
		a := &Attempt{}
		err := rows.Scan(&a.ID, &a.SessionID, &a.Score, &a.Accepted,
			&a.Bounds.Min.X, &a.Bounds.Min.Y, &a.Bounds.Max.X, &a.Bounds.Max.Y, &a.CreatedAt)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return attempts, nil
}
