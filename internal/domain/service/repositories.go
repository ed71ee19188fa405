/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package service

import (
	"context"

	"github.com/Stranger542/SSDWipe-BlockChain/internal/domain/model"
)

// LedgerClient is the append-only store a certificate is registered with.
// Implementations must enforce at most one committed record per key and
// report a second submission for the same key as domain.ErrDuplicateKey.
type LedgerClient interface {
	Submit(ctx context.Context, s *model.Submission) (*model.CertificateHandle, error)
	GetByKey(ctx context.Context, key string) (*model.CommittedRecord, error)
}

// Revoker is implemented by ledgers that support the revocation status flag.
type Revoker interface {
	Revoke(ctx context.Context, key, reason string) error
}

// CertificateRepository defines the interface for committed certificate persistence.
type CertificateRepository interface {
	Insert(ctx context.Context, c *model.CommittedRecord) (int64, error)
	FindByKey(ctx context.Context, key string) (*model.CommittedRecord, error)
	MarkRevoked(ctx context.Context, key, reason string) error
}

// SealingKeyRepository defines the interface for trusted sealing key persistence.
type SealingKeyRepository interface {
	Create(ctx context.Context, key *model.SealingKey) (int64, error)
	FindByKID(ctx context.Context, kid []byte) (*model.SealingKey, error)
	FindByKIDIgnoreRevoked(ctx context.Context, kid []byte) (*model.SealingKey, error)
	RevokeByKID(ctx context.Context, kid []byte) error
}

// LedgerEventRepository defines the interface for the local ledger journal.
type LedgerEventRepository interface {
	Append(ctx context.Context, e *model.LedgerEvent) error
	ListByKey(ctx context.Context, key string) ([]model.LedgerEvent, error)
}
