/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package model

import (
	"fmt"
	"time"
)

// SchemaVersion selects the record layout and the ledger key.
type SchemaVersion int

const (
	// SchemaV1 records are keyed by certificateId and carry no signature.
	SchemaV1 SchemaVersion = 1
	// SchemaV2 records are keyed by serialNumber and may carry a digitalSignature.
	SchemaV2 SchemaVersion = 2

	DefaultSchemaVersion = SchemaV2
)

func (v SchemaVersion) Valid() bool {
	return v == SchemaV1 || v == SchemaV2
}

// KeyField is the record field used as the ledger key.
func (v SchemaVersion) KeyField() string {
	if v == SchemaV1 {
		return "certificateId"
	}
	return "serialNumber"
}

func (v SchemaVersion) String() string {
	return fmt.Sprintf("v%d", int(v))
}

type VerificationStatus string

const (
	VerificationVerified   VerificationStatus = "VERIFIED"
	VerificationFailed     VerificationStatus = "FAILED"
	VerificationUnverified VerificationStatus = "UNVERIFIED"
)

func (s VerificationStatus) Valid() bool {
	switch s {
	case VerificationVerified, VerificationFailed, VerificationUnverified:
		return true
	}
	return false
}

// WipeCertificateRecord is the caller-supplied part of a certificate as stored on the ledger.
// Server-assigned values live in ServerAssignedFields and never appear here.
type WipeCertificateRecord struct {
	SchemaVersion      SchemaVersion      `json:"schemaVersion"`
	DeviceType         string             `json:"deviceType"`
	Model              string             `json:"model"`
	SerialNumber       string             `json:"serialNumber"`
	CapacityBytes      uint64             `json:"capacityBytes"`
	WipeMethod         string             `json:"wipeMethod"`
	StartTime          string             `json:"startTime"`
	EndTime            string             `json:"endTime"`
	DurationSeconds    uint32             `json:"durationSeconds"`
	VerificationStatus VerificationStatus `json:"verificationStatus"`
	Operator           string             `json:"operator"`
	Host               string             `json:"host"`
	CertificateID      string             `json:"certificateId"`
	DigitalSignature   string             `json:"digitalSignature,omitempty"`
}

// Key returns the ledger key for the record's schema version.
func (r *WipeCertificateRecord) Key() string {
	if r.SchemaVersion == SchemaV1 {
		return r.CertificateID
	}
	return r.SerialNumber
}

// Elapsed returns endTime - startTime. Times are expected in RFC 3339.
func (r *WipeCertificateRecord) Elapsed() (time.Duration, error) {
	start, err := time.Parse(time.RFC3339, r.StartTime)
	if err != nil {
		return 0, fmt.Errorf("parse startTime: %w", err)
	}
	end, err := time.Parse(time.RFC3339, r.EndTime)
	if err != nil {
		return 0, fmt.Errorf("parse endTime: %w", err)
	}
	return end.Sub(start), nil
}

// DurationConsistent reports whether durationSeconds matches the recorded start and end times.
func (r *WipeCertificateRecord) DurationConsistent() bool {
	elapsed, err := r.Elapsed()
	if err != nil {
		return false
	}
	return uint64(elapsed/time.Second) == uint64(r.DurationSeconds)
}
