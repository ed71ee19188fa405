/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

const memoryDB = ":memory:"

// InitDB initializes the SQLite database and creates necessary tables.
func InitDB(ctx context.Context, dbPath string) (*sql.DB, error) {
	dsn := dbPath
	if dbPath != memoryDB && !strings.Contains(dbPath, "?") {
		dsn = dbPath + "?_busy_timeout=5000&_foreign_keys=on"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Verify the connection
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Configure connection pool. Every connection to ":memory:" opens a fresh
	// database, so an in-memory ledger must stay on a single connection.
	if dbPath == memoryDB {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
	}

	// Connection-level pragmas to improve concurrency and reliability.
	// These are executed per-connection; setting them here ensures sensible defaults.
	// NOTE: Some pragmas are persistent per DB file (journal_mode) and return a row.
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set PRAGMA foreign_keys: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set PRAGMA journal_mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA synchronous = NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set PRAGMA synchronous: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set PRAGMA busy_timeout: %w", err)
	}

	// Create tables and indexes
	if err := createSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return db, nil
}

// createSchema creates all necessary database tables.
func createSchema(ctx context.Context, db *sql.DB) error {
	schema := `
	-- Enable foreign keys
	PRAGMA foreign_keys = ON;

	-- Committed wipe certificates. One row per ledger key, never updated except for revocation.
	CREATE TABLE IF NOT EXISTS certificates (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ledger_key TEXT UNIQUE NOT NULL,
		schema_version INTEGER NOT NULL,
		device_type TEXT NOT NULL,
		model TEXT NOT NULL,
		serial_number TEXT NOT NULL,
		capacity_bytes TEXT NOT NULL, -- decimal uint64
		wipe_method TEXT NOT NULL,
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		duration_seconds INTEGER NOT NULL,
		verification_status TEXT NOT NULL,
		operator TEXT NOT NULL,
		host TEXT NOT NULL,
		certificate_id TEXT NOT NULL,
		digital_signature TEXT NOT NULL DEFAULT '',
		record_digest TEXT NOT NULL,
		artifact_digest TEXT NOT NULL DEFAULT '',
		block_timestamp INTEGER NOT NULL,
		minter TEXT NOT NULL,
		tx_ref TEXT UNIQUE NOT NULL,
		revoked_at INTEGER,
		revocation_reason TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_certificates_serial_number ON certificates(serial_number);
	CREATE INDEX IF NOT EXISTS idx_certificates_certificate_id ON certificates(certificate_id);

	-- Stored fields are immutable; only the revocation flag may be set, and only once.
	CREATE TRIGGER IF NOT EXISTS trg_certificates_immutable
	BEFORE UPDATE OF ledger_key, schema_version, device_type, model, serial_number, capacity_bytes,
		wipe_method, start_time, end_time, duration_seconds, verification_status, operator, host,
		certificate_id, digital_signature, record_digest, artifact_digest, block_timestamp, minter, tx_ref
	ON certificates
	BEGIN
		SELECT RAISE(ABORT, 'certificate records are append-only');
	END;

	CREATE TRIGGER IF NOT EXISTS trg_certificates_revocation_once
	BEFORE UPDATE OF revoked_at, revocation_reason ON certificates
	WHEN OLD.revoked_at IS NOT NULL
	BEGIN
		SELECT RAISE(ABORT, 'certificate already revoked');
	END;

	CREATE TRIGGER IF NOT EXISTS trg_certificates_no_delete
	BEFORE DELETE ON certificates
	BEGIN
		SELECT RAISE(ABORT, 'certificate records are append-only');
	END;

	-- Public keys trusted to verify certificate seals
	CREATE TABLE IF NOT EXISTS sealing_keys (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		kid BLOB UNIQUE NOT NULL,
		public_key BLOB NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		revoked_at INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_sealing_keys_kid ON sealing_keys(kid);

	-- Ledger journal: one row per submission or revocation
	CREATE TABLE IF NOT EXISTS ledger_events (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		ledger_key TEXT NOT NULL,
		tx_ref TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_ledger_events_ledger_key ON ledger_events(ledger_key);

	-- Minter address of this ledger file when none is configured
	CREATE TABLE IF NOT EXISTS ledger_identity (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		minter TEXT NOT NULL
	);
	`

	// Execute schema using transaction
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// CloseDB closes the database connection.
func CloseDB(db *sql.DB) error {
	if db == nil {
		return nil
	}
	return db.Close()
}
