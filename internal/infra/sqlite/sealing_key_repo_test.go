/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package sqlite

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Stranger542/SSDWipe-BlockChain/internal/domain"
	"github.com/Stranger542/SSDWipe-BlockChain/internal/domain/model"
)

func TestSealingKeyRepository_CreateFindRevoke(t *testing.T) {
	ctx := context.Background()

	db, err := InitDB(ctx, ":memory:")
	if err != nil {
		t.Fatalf("InitDB error: %v", err)
	}
	defer CloseDB(db)

	repo := NewSealingKeyRepository(db)

	// Not found
	if _, err := repo.FindByKID(ctx, []byte("missing")); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got: %v", err)
	}
	got, err := repo.FindByKIDIgnoreRevoked(ctx, []byte("missing"))
	if err != nil || got != nil {
		t.Fatalf("expected nil, nil; got %v, %v", got, err)
	}

	k := &model.SealingKey{
		KID:       []byte("kid-1"), // NOTE: dummy bytes; a COSE Key Thumbprint in production.
		PublicKey: []byte("pk-1"),
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	if _, err := repo.Create(ctx, k); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if _, err := repo.Create(ctx, k); !errors.Is(err, domain.ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey on second create, got: %v", err)
	}

	got, err = repo.FindByKID(ctx, k.KID)
	if err != nil {
		t.Fatalf("FindByKID error: %v", err)
	}
	if !bytes.Equal(got.PublicKey, k.PublicKey) {
		t.Fatalf("PublicKey mismatch: got %v want %v", got.PublicKey, k.PublicKey)
	}

	if err := repo.RevokeByKID(ctx, k.KID); err != nil {
		t.Fatalf("RevokeByKID error: %v", err)
	}
	if _, err := repo.FindByKID(ctx, k.KID); !errors.Is(err, domain.ErrRevoked) {
		t.Fatalf("expected ErrRevoked, got: %v", err)
	}
	got, err = repo.FindByKIDIgnoreRevoked(ctx, k.KID)
	if err != nil || got == nil || got.RevokedAt == nil {
		t.Fatalf("expected revoked key, got %v, %v", got, err)
	}
	if err := repo.RevokeByKID(ctx, k.KID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second revoke, got: %v", err)
	}
}
