package chatlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// Record is the audit snapshot of one conversation turn. Written once,
// never read back by the core.
type Record struct {
	Seq       int64
	SessionID string
	Message   string
	Chunks    []string
	Summary   string
	Response  string
	CreatedAt time.Time
}

const schema = `
CREATE TABLE IF NOT EXISTS chat_logs (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	message TEXT NOT NULL,
	chunks TEXT NOT NULL,
	summary TEXT NOT NULL,
	response TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// Repo appends turn records to an embedded SQLite store keyed by an
// autoincrementing sequence number.
type Repo struct {
	db *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{db: db}
}

// Open opens (creating if needed) the audit database at path and ensures the
// schema exists.
func Open(path string) (*Repo, *sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, nil, fmt.Errorf("creating chat log directory: %w", err)
	}

	// WAL keeps concurrent turn writes from blocking each other.
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, nil, fmt.Errorf("opening chat log database: %w", err)
	}

	repo := NewRepo(db)
	if err := repo.Init(context.Background()); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return repo, db, nil
}

func (r *Repo) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating chat_logs table: %w", err)
	}
	return nil
}

// Write appends one record and fills in its assigned sequence number.
func (r *Repo) Write(ctx context.Context, rec *Record) error {
	chunks, err := json.Marshal(rec.Chunks)
	if err != nil {
		return fmt.Errorf("encoding chunks: %w", err)
	}

	res, err := r.db.ExecContext(ctx,
		"INSERT INTO chat_logs (session_id, message, chunks, summary, response) VALUES (?, ?, ?, ?, ?)",
		rec.SessionID, rec.Message, string(chunks), rec.Summary, rec.Response)
	if err != nil {
		return fmt.Errorf("writing chat log record: %w", err)
	}

	seq, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading chat log sequence: %w", err)
	}
	rec.Seq = seq
	return nil
}

// Count reports how many turns have been logged.
func (r *Repo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chat_logs").Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
