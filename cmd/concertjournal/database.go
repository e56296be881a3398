package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"concertjournal/internal/store"
)

// openDatabase connects to the journal database and applies pending migrations.
func openDatabase(ctx context.Context, dsn string) (*sql.DB, store.Dialect, error) {
	db, dialect, err := connectDatabase(ctx, dsn)
	if err != nil {
		return nil, dialect, err
	}
	if err := store.Migrate(db, dialect); err != nil {
		_ = db.Close()
		return nil, dialect, err
	}
	log.Debug().Str("dialect", string(dialect)).Msg("database ready")
	return db, dialect, nil
}

// connectDatabase opens dsn and waits until the server answers.
func connectDatabase(ctx context.Context, dsn string) (*sql.DB, store.Dialect, error) {
	dialect := store.DialectFromDSN(dsn)

	source := dsn
	if dialect == store.DialectSQLite {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, dialect, fmt.Errorf("create data dir: %w", err)
		}
		source = "file:" + dsn + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open(dialect.DriverName(), source)
	if err != nil {
		return nil, dialect, fmt.Errorf("open database: %w", err)
	}

	if dialect == store.DialectSQLite {
		// one writer at a time
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	if err := waitForDatabase(ctx, db); err != nil {
		_ = db.Close()
		return nil, dialect, err
	}

	return db, dialect, nil
}

func waitForDatabase(ctx context.Context, db *sql.DB) error {
	const (
		pingTimeout    = 5 * time.Second
		maxWait        = 30 * time.Second
		initialBackoff = 500 * time.Millisecond
		maxBackoff     = 5 * time.Second
	)

	deadline := time.Now().Add(maxWait)
	backoff := initialBackoff
	var lastErr error

	for {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		lastErr = db.PingContext(pingCtx)
		cancel()

		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil || time.Now().After(deadline) {
			break
		}

		log.Warn().Err(lastErr).Dur("retry_in", backoff).Msg("database not ready")
		select {
		case <-ctx.Done():
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}

	return fmt.Errorf("ping database: %w", lastErr)
}
