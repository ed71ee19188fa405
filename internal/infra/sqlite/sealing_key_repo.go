/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Stranger542/SSDWipe-BlockChain/internal/domain"
	"github.com/Stranger542/SSDWipe-BlockChain/internal/domain/model"
)

// SealingKeyRepository handles trusted sealing key persistence.
type SealingKeyRepository struct {
	db DBTX
}

func NewSealingKeyRepository(db DBTX) *SealingKeyRepository {
	return &SealingKeyRepository{db: db}
}

// Create inserts a new sealing key and returns the inserted id.
func (r *SealingKeyRepository) Create(ctx context.Context, key *model.SealingKey) (int64, error) {
	const q = `
		INSERT INTO sealing_keys (kid, public_key, created_at)
		VALUES (?, ?, ?)
	`
	res, err := r.db.ExecContext(ctx, q, key.KID, key.PublicKey, key.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("insert sealing_key: %w", translateError(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return id, nil
}

// FindByKID returns an active sealing key. Revoked keys yield domain.ErrRevoked.
func (r *SealingKeyRepository) FindByKID(ctx context.Context, kid []byte) (*model.SealingKey, error) {
	key, err := r.find(ctx, kid)
	if err != nil {
		return nil, err
	}
	if key == nil {
		return nil, domain.ErrNotFound
	}
	if key.RevokedAt != nil {
		return nil, domain.ErrRevoked
	}
	return key, nil
}

// FindByKIDIgnoreRevoked returns the key regardless of revocation, or nil when absent.
func (r *SealingKeyRepository) FindByKIDIgnoreRevoked(ctx context.Context, kid []byte) (*model.SealingKey, error) {
	return r.find(ctx, kid)
}

func (r *SealingKeyRepository) find(ctx context.Context, kid []byte) (*model.SealingKey, error) {
	const q = `
		SELECT id, kid, public_key, created_at, revoked_at
		FROM sealing_keys
		WHERE kid = ?
		LIMIT 1
	`
	row := r.db.QueryRowContext(ctx, q, kid)
	var key model.SealingKey
	var revokedAtUnix sql.NullInt64
	if err := row.Scan(&key.ID, &key.KID, &key.PublicKey, &key.CreatedAt, &revokedAtUnix); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan sealing_key: %w", err)
	}
	if revokedAtUnix.Valid {
		t := time.Unix(revokedAtUnix.Int64, 0).UTC()
		key.RevokedAt = &t
	}
	return &key, nil
}

// RevokeByKID marks a sealing key as revoked by setting revoked_at to the current Unix timestamp.
func (r *SealingKeyRepository) RevokeByKID(ctx context.Context, kid []byte) error {
	const q = `
		UPDATE sealing_keys
		SET revoked_at = ?
		WHERE kid = ? AND revoked_at IS NULL
	`
	res, err := r.db.ExecContext(ctx, q, time.Now().UTC().Unix(), kid)
	if err != nil {
		return err
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
