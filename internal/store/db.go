// Package store keeps the stand-in service's validation history.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"vetdesk/internal/models"
)

// LogStore records every validation the stand-in service performs.
type LogStore interface {
	Record(ctx context.Context, l models.ValidationLog) error
	List(ctx context.Context, page, limit int) (models.LogPage, error)
	Ping(ctx context.Context) error
	Close() error
}

// DB is the SQL-backed LogStore: Postgres through pgx, or a SQLite file.
type DB struct {
	db *sql.DB
	d  dialect
}

type dialect struct {
	driver string
	schema []string
	insert string
	count  string
	list   string
}

var postgres = dialect{
	driver: "pgx",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS validation_logs (
			id BIGSERIAL PRIMARY KEY,
			email TEXT NOT NULL,
			status TEXT NOT NULL,
			score INT NOT NULL,
			processing_time DOUBLE PRECISION NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE INDEX IF NOT EXISTS validation_logs_created_at ON validation_logs (created_at DESC);`,
	},
	insert: `INSERT INTO validation_logs (email, status, score, processing_time, created_at) VALUES ($1, $2, $3, $4, $5)`,
	count:  `SELECT COUNT(*) FROM validation_logs`,
	list: `SELECT id, email, status, score, processing_time, created_at
		FROM validation_logs ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`,
}

var sqlite = dialect{
	driver: "sqlite",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS validation_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			email TEXT NOT NULL,
			status TEXT NOT NULL,
			score INTEGER NOT NULL,
			processing_time REAL NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS validation_logs_created_at ON validation_logs (created_at DESC);`,
	},
	insert: `INSERT INTO validation_logs (email, status, score, processing_time, created_at) VALUES (?, ?, ?, ?, ?)`,
	count:  `SELECT COUNT(*) FROM validation_logs`,
	list: `SELECT id, email, status, score, processing_time, created_at
		FROM validation_logs ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
}

// Open connects to the log database and runs migrations. A connString of
// the form "sqlite:<path>" opens a SQLite file; anything else is handed to
// the Postgres driver.
func Open(connString string) (*DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	d, dsn := postgres, connString
	if path, ok := strings.CutPrefix(connString, "sqlite:"); ok {
		d, dsn = sqlite, path
		if !strings.Contains(dsn, "?") {
			dsn += "?_time_format=sqlite"
		}
	}

	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if d.driver == sqlite.driver {
		// one writer at a time
		db.SetMaxOpenConns(1)
	}

	// Verify connection
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	s := &DB{db: db, d: d}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an open Postgres handle. Migrate is not run.
func New(db *sql.DB) *DB {
	return &DB{db: db, d: postgres}
}

// Migrate creates the validation_logs table if it doesn't exist.
func (s *DB) Migrate(ctx context.Context) error {
	for _, q := range s.d.schema {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("migration failed (validation_logs): %w", err)
		}
	}
	return nil
}

func (s *DB) Record(ctx context.Context, l models.ValidationLog) error {
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, s.d.insert,
		l.Email, string(l.Status), l.Score, l.ProcessingTime, l.CreatedAt)
	if err != nil {
		return fmt.Errorf("record validation log: %w", err)
	}
	return nil
}

// List returns one page of logs, newest first. Pages start at 1.
func (s *DB) List(ctx context.Context, page, limit int) (models.LogPage, error) {
	page, limit = clampPage(page, limit)
	out := models.LogPage{Logs: []models.ValidationLog{}}

	if err := s.db.QueryRowContext(ctx, s.d.count).Scan(&out.Total); err != nil {
		return out, fmt.Errorf("count validation logs: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, s.d.list, limit, (page-1)*limit)
	if err != nil {
		return out, fmt.Errorf("list validation logs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var l models.ValidationLog
		var status string
		if err := rows.Scan(&l.ID, &l.Email, &status, &l.Score, &l.ProcessingTime, &l.CreatedAt); err != nil {
			return out, fmt.Errorf("scan validation log: %w", err)
		}
		l.Status = models.Tier(status)
		out.Logs = append(out.Logs, l)
	}
	return out, rows.Err()
}

func (s *DB) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *DB) Close() error {
	return s.db.Close()
}

// DefaultPageSize applies when a caller asks for no limit.
const DefaultPageSize = 50

const maxPageSize = 500

func clampPage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit
}

// Memory is the LogStore used when no database is configured.
type Memory struct {
	mu     sync.Mutex
	nextID int64
	logs   []models.ValidationLog
	now    func() time.Time
}

func NewMemory() *Memory {
	return &Memory{now: time.Now}
}

func (m *Memory) Record(_ context.Context, l models.ValidationLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	l.ID = m.nextID
	if l.CreatedAt.IsZero() {
		l.CreatedAt = m.now().UTC()
	}
	m.logs = append(m.logs, l)
	return nil
}

func (m *Memory) List(_ context.Context, page, limit int) (models.LogPage, error) {
	page, limit = clampPage(page, limit)
	m.mu.Lock()
	defer m.mu.Unlock()

	out := models.LogPage{Logs: []models.ValidationLog{}, Total: len(m.logs)}
	// newest first
	for i := len(m.logs) - 1 - (page-1)*limit; i >= 0 && len(out.Logs) < limit; i-- {
		out.Logs = append(out.Logs, m.logs[i])
	}
	return out, nil
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() error { return nil }
