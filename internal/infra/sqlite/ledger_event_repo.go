/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package sqlite

import (
	"context"
	"fmt"

	"github.com/Stranger542/SSDWipe-BlockChain/internal/domain/model"
	"github.com/google/uuid"
)

// LedgerEventRepository handles the ledger journal.
type LedgerEventRepository struct {
	db DBTX
}

func NewLedgerEventRepository(db DBTX) *LedgerEventRepository {
	return &LedgerEventRepository{db: db}
}

// Append records an event. An empty ID is filled with a random UUID.
func (r *LedgerEventRepository) Append(ctx context.Context, e *model.LedgerEvent) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	const q = `
		INSERT INTO ledger_events (id, kind, ledger_key, tx_ref, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	if _, err := r.db.ExecContext(ctx, q, e.ID, string(e.Kind), e.LedgerKey, e.TransactionReference, e.CreatedAt); err != nil {
		return fmt.Errorf("insert ledger_event: %w", translateError(err))
	}
	return nil
}

// ListByKey returns the events for a ledger key, oldest first.
func (r *LedgerEventRepository) ListByKey(ctx context.Context, key string) ([]model.LedgerEvent, error) {
	const q = `
		SELECT id, kind, ledger_key, tx_ref, created_at
		FROM ledger_events
		WHERE ledger_key = ?
		ORDER BY created_at ASC, rowid ASC
	`
	rows, err := r.db.QueryContext(ctx, q, key)
	if err != nil {
		return nil, fmt.Errorf("query ledger_events: %w", translateError(err))
	}
	defer rows.Close()

	var events []model.LedgerEvent
	for rows.Next() {
		var e model.LedgerEvent
		var kind string
		if err := rows.Scan(&e.ID, &kind, &e.LedgerKey, &e.TransactionReference, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ledger_event: %w", err)
		}
		e.Kind = model.LedgerEventKind(kind)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}
