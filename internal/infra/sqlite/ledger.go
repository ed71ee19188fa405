/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package sqlite

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/binary"
	"fmt"
	"log"
	"time"

	"github.com/Stranger542/SSDWipe-BlockChain/internal/certificate"
	"github.com/Stranger542/SSDWipe-BlockChain/internal/domain"
	"github.com/Stranger542/SSDWipe-BlockChain/internal/domain/model"
	"github.com/ethereum/go-ethereum/common"
)

// Ledger is an append-only certificate ledger on a local SQLite file.
// Uniqueness per key is enforced by the certificates table, not by this type,
// so concurrent submitters sharing the file cannot both commit the same key.
type Ledger struct {
	db     *sql.DB
	minter common.Address
	logger *log.Logger
}

func NewLedger(db *sql.DB, minter common.Address, logger *log.Logger) *Ledger {
	if logger == nil {
		logger = log.Default()
	}
	return &Ledger{db: db, minter: minter, logger: logger}
}

// Submit commits the record once. The block timestamp and minter are assigned here.
func (l *Ledger) Submit(ctx context.Context, s *model.Submission) (*model.CertificateHandle, error) {
	if l.minter == (common.Address{}) {
		return nil, fmt.Errorf("%w: ledger has no minter address", domain.ErrRejected)
	}
	if err := checkSubmission(s); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	committed := &model.CommittedRecord{
		Record: s.Record,
		Server: model.ServerAssignedFields{
			BlockTimestamp: uint64(now.Unix()),
			Minter:         l.minter,
		},
		TransactionReference: transactionReference(s.Key(), s.RecordDigest, now),
		RecordDigest:         s.RecordDigest,
		ArtifactDigest:       s.ArtifactDigest,
		Status:               model.RecordStored,
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin submit: %w", translateError(err))
	}
	defer tx.Rollback()

	if _, err := NewCertificateRepository(tx).Insert(ctx, committed); err != nil {
		return nil, err
	}
	event := &model.LedgerEvent{
		Kind:                 model.LedgerEventSubmitted,
		LedgerKey:            s.Key(),
		TransactionReference: committed.TransactionReference,
		CreatedAt:            now,
	}
	if err := NewLedgerEventRepository(tx).Append(ctx, event); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit submit: %w", translateError(err))
	}

	l.logger.Printf("ledger: committed %s (tx %s, event %s)", s.Key(), committed.TransactionReference, event.ID)
	return &model.CertificateHandle{
		TransactionReference: committed.TransactionReference,
		CertificateKey:       s.Key(),
	}, nil
}

func (l *Ledger) GetByKey(ctx context.Context, key string) (*model.CommittedRecord, error) {
	if key == "" {
		return nil, domain.ErrNotFound
	}
	return NewCertificateRepository(l.db).FindByKey(ctx, key)
}

// Revoke flags the record as revoked and journals the change.
func (l *Ledger) Revoke(ctx context.Context, key, reason string) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin revoke: %w", translateError(err))
	}
	defer tx.Rollback()

	certs := NewCertificateRepository(tx)
	if err := certs.MarkRevoked(ctx, key, reason); err != nil {
		return err
	}
	committed, err := certs.FindByKey(ctx, key)
	if err != nil {
		return err
	}
	event := &model.LedgerEvent{
		Kind:                 model.LedgerEventRevoked,
		LedgerKey:            key,
		TransactionReference: committed.TransactionReference,
		CreatedAt:            time.Now().UTC(),
	}
	if err := NewLedgerEventRepository(tx).Append(ctx, event); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit revoke: %w", translateError(err))
	}

	l.logger.Printf("ledger: revoked %s (%s)", key, reason)
	return nil
}

// History lists the journal entries for a key.
func (l *Ledger) History(ctx context.Context, key string) ([]model.LedgerEvent, error) {
	return NewLedgerEventRepository(l.db).ListByKey(ctx, key)
}

// checkSubmission applies the ledger's own acceptance rules.
func checkSubmission(s *model.Submission) error {
	if s == nil {
		return fmt.Errorf("%w: empty submission", domain.ErrRejected)
	}
	if !s.Placeholders.IsZero() {
		return fmt.Errorf("%w: server-assigned fields must be zero on submission", domain.ErrRejected)
	}
	if !s.Record.SchemaVersion.Valid() {
		return fmt.Errorf("%w: unsupported schema version %d", domain.ErrRejected, int(s.Record.SchemaVersion))
	}
	if s.Key() == "" {
		return fmt.Errorf("%w: empty %s", domain.ErrRejected, s.Record.SchemaVersion.KeyField())
	}
	digest, err := certificate.DigestRecord(&s.Record)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrRejected, err)
	}
	if digest != s.RecordDigest {
		return fmt.Errorf("%w: record digest does not match record content", domain.ErrRejected)
	}
	if s.ArtifactDigest != "" && !certificate.ValidDigest(s.ArtifactDigest) {
		return fmt.Errorf("%w: malformed artifact digest", domain.ErrRejected)
	}
	return nil
}

func transactionReference(key, recordDigest string, at time.Time) string {
	h := sha256.New()
	h.Write([]byte(key))
	h.Write([]byte{0})
	h.Write([]byte(recordDigest))
	var nanos [8]byte
	binary.BigEndian.PutUint64(nanos[:], uint64(at.UnixNano()))
	h.Write(nanos[:])
	return common.BytesToHash(h.Sum(nil)).Hex()
}
