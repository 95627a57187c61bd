package submit

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"fmt"
	"sync/atomic"
	"ticket_desk/internal/core"
	apperrors "ticket_desk/pkg/errors"

	_ "github.com/mattn/go-sqlite3"
)

const journalSchema = `
CREATE TABLE IF NOT EXISTS tickets (
	id          TEXT PRIMARY KEY,
	symbol      TEXT NOT NULL,
	payload     TEXT NOT NULL,
	checksum    BLOB NOT NULL,
	accepted_at INTEGER NOT NULL
)`

// SQLiteJournal implements core.ITicketJournal on a local SQLite file
type SQLiteJournal struct {
	db     *sql.DB
	closed int32 // atomic bool
}

// NewSQLiteJournal opens (and if needed creates) the ticket journal
func NewSQLiteJournal(dbPath string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// WAL mode for crash recovery
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.Exec(journalSchema); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteJournal{db: db}, nil
}

// Append records an accepted ticket with a payload checksum
func (j *SQLiteJournal) Append(ctx context.Context, receipt *core.TicketReceipt, payload []byte) error {
	if atomic.LoadInt32(&j.closed) == 1 {
		return apperrors.ErrJournalClosed
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	checksum := sha256.Sum256(payload)
	query := `INSERT INTO tickets (id, symbol, payload, checksum, accepted_at) VALUES (?, ?, ?, ?, ?)`
	_, err = tx.ExecContext(ctx, query,
		receipt.TicketID, receipt.Symbol, string(payload), checksum[:], receipt.AcceptedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to write ticket to journal: %w", err)
	}

	return tx.Commit()
}

// Count returns the number of journaled tickets
func (j *SQLiteJournal) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := j.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tickets`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count tickets: %w", err)
	}
	return n, nil
}

// Close closes the underlying database
func (j *SQLiteJournal) Close() error {
	if !atomic.CompareAndSwapInt32(&j.closed, 0, 1) {
		return nil
	}
	return j.db.Close()
}
