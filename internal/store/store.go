// Package store persists users and their question/answer history in
// Postgres.
package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

// ErrNotFound is returned when a lookup matches nothing.
var ErrNotFound = errors.New("store: not found")

type Store struct {
	DB *sql.DB
}

// NewWithDSN opens and pings a Postgres connection.
func NewWithDSN(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

func (s *Store) Close() error {
	return s.DB.Close()
}

// User is an API account.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// CreateUser inserts a new account with an already-hashed password.
func (s *Store) CreateUser(ctx context.Context, email, passwordHash string) (User, error) {
	u := User{ID: uuid.NewString(), Email: email, PasswordHash: passwordHash}
	err := s.DB.QueryRowContext(ctx,
		`INSERT INTO users (id, email, password_hash) VALUES ($1, $2, $3) RETURNING created_at`,
		u.ID, u.Email, u.PasswordHash,
	).Scan(&u.CreatedAt)
	if err != nil {
		return User{}, err
	}
	return u, nil
}

// UserByEmail fetches an account by email.
func (s *Store) UserByEmail(ctx context.Context, email string) (User, error) {
	var u User
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE email = $1`,
		email,
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	return u, nil
}

// Exchange is one persisted question/answer turn.
type Exchange struct {
	ID        string
	UserID    string
	Question  string
	Answer    string
	Label     string
	Quality   float64
	LatencyMS int64
	Helpful   *bool
	CreatedAt time.Time
}

// SaveExchange persists one answered question and returns its id.
func (s *Store) SaveExchange(ctx context.Context, e Exchange) (string, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO conversations (id, user_id, question, answer, label, quality, latency_ms)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.UserID, e.Question, e.Answer, e.Label, e.Quality, e.LatencyMS,
	)
	if err != nil {
		return "", err
	}
	return e.ID, nil
}

// ExchangeByID fetches one of the user's exchanges.
func (s *Store) ExchangeByID(ctx context.Context, userID, id string) (Exchange, error) {
	var e Exchange
	var helpful sql.NullBool
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, user_id, question, answer, label, quality, latency_ms, helpful, created_at
		 FROM conversations WHERE id = $1 AND user_id = $2`,
		id, userID,
	).Scan(&e.ID, &e.UserID, &e.Question, &e.Answer, &e.Label, &e.Quality, &e.LatencyMS, &helpful, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Exchange{}, ErrNotFound
	}
	if err != nil {
		return Exchange{}, err
	}
	if helpful.Valid {
		e.Helpful = &helpful.Bool
	}
	return e, nil
}

// History returns the user's most recent exchanges, newest first.
func (s *Store) History(ctx context.Context, userID string, limit int) ([]Exchange, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, user_id, question, answer, label, quality, latency_ms, helpful, created_at
		 FROM conversations WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanExchanges(rows)
}

// SearchHistory returns the user's exchanges whose question or answer
// matches the term, newest first.
func (s *Store) SearchHistory(ctx context.Context, userID, term string, limit int) ([]Exchange, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, user_id, question, answer, label, quality, latency_ms, helpful, created_at
		 FROM conversations
		 WHERE user_id = $1 AND (question ILIKE '%' || $2 || '%' OR answer ILIKE '%' || $2 || '%')
		 ORDER BY created_at DESC LIMIT $3`,
		userID, term, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanExchanges(rows)
}

// SetFeedback records whether an answer helped. Only the owner may rate it.
func (s *Store) SetFeedback(ctx context.Context, userID, exchangeID string, helpful bool) error {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE conversations SET helpful = $1 WHERE id = $2 AND user_id = $3`,
		helpful, exchangeID, userID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// UserStats aggregates a user's history.
type UserStats struct {
	TotalQuestions int64            `json:"total_questions"`
	AvgQuality     float64          `json:"avg_quality"`
	AvgLatencyMS   float64          `json:"avg_latency_ms"`
	HelpfulCount   int64            `json:"helpful_count"`
	SourceCounts   map[string]int64 `json:"source_counts"`
}

// Statistics computes the user's usage aggregates.
func (s *Store) Statistics(ctx context.Context, userID string) (UserStats, error) {
	stats := UserStats{SourceCounts: map[string]int64{}}
	err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(AVG(quality), 0),
		        COALESCE(AVG(latency_ms), 0),
		        COUNT(*) FILTER (WHERE helpful)
		 FROM conversations WHERE user_id = $1`,
		userID,
	).Scan(&stats.TotalQuestions, &stats.AvgQuality, &stats.AvgLatencyMS, &stats.HelpfulCount)
	if err != nil {
		return UserStats{}, err
	}

	rows, err := s.DB.QueryContext(ctx,
		`SELECT label, COUNT(*) FROM conversations
		 WHERE user_id = $1 AND label <> '' GROUP BY label ORDER BY COUNT(*) DESC LIMIT 10`,
		userID,
	)
	if err != nil {
		return UserStats{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var label string
		var count int64
		if err := rows.Scan(&label, &count); err != nil {
			return UserStats{}, err
		}
		stats.SourceCounts[label] = count
	}
	return stats, rows.Err()
}

func scanExchanges(rows *sql.Rows) ([]Exchange, error) {
	var out []Exchange
	for rows.Next() {
		var e Exchange
		var helpful sql.NullBool
		if err := rows.Scan(&e.ID, &e.UserID, &e.Question, &e.Answer, &e.Label, &e.Quality, &e.LatencyMS, &helpful, &e.CreatedAt); err != nil {
			return nil, err
		}
		if helpful.Valid {
			e.Helpful = &helpful.Bool
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
