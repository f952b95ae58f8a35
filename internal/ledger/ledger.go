// Package ledger records conversion usage in PostgreSQL. The ledger is
// optional and best-effort: when no database is configured, or a write
// fails, conversions proceed without it.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	_ "github.com/lib/pq"
)

// Ledger tracks how often each content fingerprint has been converted
type Ledger struct {
	db *sql.DB
}

// Open connects to PostgreSQL and ensures the ledger table exists
func Open(databaseURL string) (*Ledger, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	l := &Ledger{db: db}
	if err := l.ensureTable(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure ledger table: %w", err)
	}

	return l, nil
}

// Close releases the database connection
func (l *Ledger) Close() error {
	return l.db.Close()
}

// ensureTable creates the conversion_ledger table if it doesn't exist
func (l *Ledger) ensureTable() error {
	query := `
		CREATE TABLE IF NOT EXISTS conversion_ledger (
			fingerprint TEXT PRIMARY KEY,
			operation TEXT,
			first_seen_at TIMESTAMPTZ DEFAULT NOW(),
			last_seen_at TIMESTAMPTZ DEFAULT NOW(),
			seen_count INTEGER DEFAULT 1
		)
	`

	_, err := l.db.Exec(query)
	if err != nil {
		return fmt.Errorf("failed to create conversion_ledger table: %w", err)
	}

	log.Printf("✓ conversion_ledger table ready")
	return nil
}

// Record upserts a conversion for the given fingerprint and returns how
// many times this content has been seen
func (l *Ledger) Record(ctx context.Context, fingerprint string, operation string) (int, error) {
	query := `
		INSERT INTO conversion_ledger (fingerprint, operation, first_seen_at, last_seen_at, seen_count)
		VALUES ($1, $2, NOW(), NOW(), 1)
		ON CONFLICT (fingerprint) DO UPDATE
		SET last_seen_at = NOW(),
		    seen_count = conversion_ledger.seen_count + 1,
		    operation = EXCLUDED.operation
		RETURNING seen_count
	`

	var seenCount int
	err := l.db.QueryRowContext(ctx, query, fingerprint, operation).Scan(&seenCount)
	if err != nil {
		return 0, fmt.Errorf("failed to record conversion: %w", err)
	}

	return seenCount, nil
}
