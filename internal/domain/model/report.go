/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package model

import "encoding/json"

// RawReport is the wipe report produced by the erasure tool, as loaded from disk.
// Numeric leaves keep their raw JSON token so the builder can tell a missing
// value from a malformed one.
type RawReport struct {
	Device        *DeviceSection       `json:"device"`
	WipeProcess   *WipeProcessSection  `json:"wipe_process"`
	Verification  *VerificationSection `json:"verification"`
	Operator      string               `json:"operator"`
	Host          string               `json:"host"`
	CertificateID string               `json:"certificate_id"`
	Audit         *AuditSection        `json:"audit,omitempty"`
}

type DeviceSection struct {
	DeviceType    string          `json:"device_type"`
	Model         string          `json:"model"`
	SerialNumber  string          `json:"serial_number"`
	CapacityBytes json.RawMessage `json:"capacity_bytes"`
}

type WipeProcessSection struct {
	WipeMethod      string          `json:"wipe_method"`
	StartTime       string          `json:"start_time"`
	EndTime         string          `json:"end_time"`
	DurationSeconds json.RawMessage `json:"duration_seconds"`
}

type VerificationSection struct {
	VerificationStatus string `json:"verification_status"`
}

type AuditSection struct {
	DigitalSignature string `json:"digital_signature"`
}
