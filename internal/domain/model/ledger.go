/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package model

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ServerAssignedFields are written by the ledger at commit time.
// A submission always carries the zero value.
type ServerAssignedFields struct {
	BlockTimestamp uint64         `json:"blockTimestamp"`
	Minter         common.Address `json:"minter"`
}

func (f ServerAssignedFields) IsZero() bool {
	return f.BlockTimestamp == 0 && f.Minter == (common.Address{})
}

// Submission is the payload handed to a ledger client.
type Submission struct {
	Record       WipeCertificateRecord `json:"record"`
	Placeholders ServerAssignedFields  `json:"placeholders"`
	RecordDigest string                `json:"recordDigest"`
	// ArtifactDigest is set when a human-readable artifact was rendered and hashed before submission.
	ArtifactDigest string `json:"artifactDigest,omitempty"`
}

func (s *Submission) Key() string {
	return s.Record.Key()
}

type RecordStatus string

const (
	RecordStored  RecordStatus = "stored"
	RecordRevoked RecordStatus = "revoked"
)

// CommittedRecord is what the ledger returns for a key.
type CommittedRecord struct {
	Record               WipeCertificateRecord `json:"record"`
	Server               ServerAssignedFields  `json:"server"`
	TransactionReference string                `json:"transactionReference"`
	RecordDigest         string                `json:"recordDigest"`
	ArtifactDigest       string                `json:"artifactDigest,omitempty"`
	Status               RecordStatus          `json:"status"`
	RevokedAt            *time.Time            `json:"revokedAt,omitempty"`
	RevocationReason     string                `json:"revocationReason,omitempty"`
}

func (c *CommittedRecord) Revoked() bool {
	return c.Status == RecordRevoked
}

// CertificateHandle locates a committed record.
type CertificateHandle struct {
	TransactionReference string `json:"transactionReference"`
	CertificateKey       string `json:"certificateKey"`
}

type LedgerEventKind string

const (
	LedgerEventSubmitted LedgerEventKind = "submitted"
	LedgerEventRevoked   LedgerEventKind = "revoked"
)

// LedgerEvent is one row of the local ledger's audit journal.
type LedgerEvent struct {
	ID                   string
	Kind                 LedgerEventKind
	LedgerKey            string
	TransactionReference string
	CreatedAt            time.Time
}
