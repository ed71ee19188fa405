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
	"strconv"
	"time"

	"github.com/Stranger542/SSDWipe-BlockChain/internal/domain"
	"github.com/Stranger542/SSDWipe-BlockChain/internal/domain/model"
	"github.com/ethereum/go-ethereum/common"
)

// CertificateRepository handles committed certificate persistence.
type CertificateRepository struct {
	db DBTX
}

func NewCertificateRepository(db DBTX) *CertificateRepository {
	return &CertificateRepository{db: db}
}

// Insert stores a committed certificate. A second insert for the same ledger key
// fails with domain.ErrDuplicateKey.
func (r *CertificateRepository) Insert(ctx context.Context, c *model.CommittedRecord) (int64, error) {
	const q = `
		INSERT INTO certificates (
			ledger_key, schema_version, device_type, model, serial_number, capacity_bytes,
			wipe_method, start_time, end_time, duration_seconds, verification_status,
			operator, host, certificate_id, digital_signature, record_digest, artifact_digest,
			block_timestamp, minter, tx_ref
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	rec := c.Record
	res, err := r.db.ExecContext(ctx, q,
		rec.Key(), int(rec.SchemaVersion), rec.DeviceType, rec.Model, rec.SerialNumber,
		strconv.FormatUint(rec.CapacityBytes, 10), rec.WipeMethod, rec.StartTime, rec.EndTime,
		int64(rec.DurationSeconds), string(rec.VerificationStatus), rec.Operator, rec.Host,
		rec.CertificateID, rec.DigitalSignature, c.RecordDigest, c.ArtifactDigest,
		int64(c.Server.BlockTimestamp), c.Server.Minter.Hex(), c.TransactionReference,
	)
	if err != nil {
		return 0, fmt.Errorf("insert certificate: %w", translateError(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return id, nil
}

// FindByKey returns the committed certificate for a ledger key, revoked or not.
func (r *CertificateRepository) FindByKey(ctx context.Context, key string) (*model.CommittedRecord, error) {
	const q = `
		SELECT schema_version, device_type, model, serial_number, capacity_bytes,
			wipe_method, start_time, end_time, duration_seconds, verification_status,
			operator, host, certificate_id, digital_signature, record_digest, artifact_digest,
			block_timestamp, minter, tx_ref, revoked_at, revocation_reason
		FROM certificates
		WHERE ledger_key = ?
		LIMIT 1
	`
	var (
		c              model.CommittedRecord
		schemaVersion  int
		capacity       string
		duration       int64
		status         string
		blockTimestamp int64
		minter         string
		revokedAtUnix  sql.NullInt64
		revokedBecause sql.NullString
	)
	rec := &c.Record
	row := r.db.QueryRowContext(ctx, q, key)
	err := row.Scan(&schemaVersion, &rec.DeviceType, &rec.Model, &rec.SerialNumber, &capacity,
		&rec.WipeMethod, &rec.StartTime, &rec.EndTime, &duration, &status,
		&rec.Operator, &rec.Host, &rec.CertificateID, &rec.DigitalSignature, &c.RecordDigest, &c.ArtifactDigest,
		&blockTimestamp, &minter, &c.TransactionReference, &revokedAtUnix, &revokedBecause)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scan certificate: %w", translateError(err))
	}

	rec.SchemaVersion = model.SchemaVersion(schemaVersion)
	rec.CapacityBytes, err = strconv.ParseUint(capacity, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse capacity_bytes %q: %w", capacity, err)
	}
	rec.DurationSeconds = uint32(duration)
	rec.VerificationStatus = model.VerificationStatus(status)
	c.Server = model.ServerAssignedFields{
		BlockTimestamp: uint64(blockTimestamp),
		Minter:         common.HexToAddress(minter),
	}

	c.Status = model.RecordStored
	if revokedAtUnix.Valid {
		t := time.Unix(revokedAtUnix.Int64, 0).UTC()
		c.RevokedAt = &t
		c.RevocationReason = revokedBecause.String
		c.Status = model.RecordRevoked
	}
	return &c, nil
}

// MarkRevoked sets the revocation flag. Stored fields are left untouched.
func (r *CertificateRepository) MarkRevoked(ctx context.Context, key, reason string) error {
	const q = `
		UPDATE certificates
		SET revoked_at = ?, revocation_reason = ?
		WHERE ledger_key = ? AND revoked_at IS NULL
	`
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, q, now.Unix(), reason, key)
	if err != nil {
		return fmt.Errorf("revoke certificate: %w", translateError(err))
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		if _, err := r.FindByKey(ctx, key); err != nil {
			return err
		}
		return domain.ErrRevoked
	}
	return nil
}
