/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package certificate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Stranger542/SSDWipe-BlockChain/internal/domain"
	"github.com/Stranger542/SSDWipe-BlockChain/internal/domain/model"
)

// Build maps a raw wipe report onto the canonical record for the given schema version.
// It performs no I/O. The returned error wraps domain.ErrValidation.
func Build(raw *model.RawReport, version model.SchemaVersion) (*model.WipeCertificateRecord, error) {
	if raw == nil {
		return nil, domain.MissingField("report")
	}
	if !version.Valid() {
		return nil, domain.InvalidValue("schemaVersion", fmt.Sprintf("unsupported version %d", int(version)))
	}
	if raw.Device == nil {
		return nil, domain.MissingField("device")
	}
	if raw.WipeProcess == nil {
		return nil, domain.MissingField("wipe_process")
	}
	if raw.Verification == nil {
		return nil, domain.MissingField("verification")
	}

	strs := []struct {
		field string
		value string
	}{
		{"device.device_type", raw.Device.DeviceType},
		{"device.model", raw.Device.Model},
		{"device.serial_number", raw.Device.SerialNumber},
		{"wipe_process.wipe_method", raw.WipeProcess.WipeMethod},
		{"wipe_process.start_time", raw.WipeProcess.StartTime},
		{"wipe_process.end_time", raw.WipeProcess.EndTime},
		{"verification.verification_status", raw.Verification.VerificationStatus},
		{"operator", raw.Operator},
		{"host", raw.Host},
		{"certificate_id", raw.CertificateID},
	}
	for _, s := range strs {
		if strings.TrimSpace(s.value) == "" {
			return nil, domain.MissingField(s.field)
		}
	}

	capacity, err := parseUnsigned("device.capacity_bytes", raw.Device.CapacityBytes, 64)
	if err != nil {
		return nil, err
	}
	duration, err := parseUnsigned("wipe_process.duration_seconds", raw.WipeProcess.DurationSeconds, 32)
	if err != nil {
		return nil, err
	}

	start, err := time.Parse(time.RFC3339, raw.WipeProcess.StartTime)
	if err != nil {
		return nil, domain.InvalidValue("wipe_process.start_time", "not an RFC 3339 timestamp")
	}
	end, err := time.Parse(time.RFC3339, raw.WipeProcess.EndTime)
	if err != nil {
		return nil, domain.InvalidValue("wipe_process.end_time", "not an RFC 3339 timestamp")
	}
	if end.Before(start) {
		return nil, domain.InvalidValue("wipe_process.end_time", "earlier than start_time")
	}

	status := model.VerificationStatus(raw.Verification.VerificationStatus)
	if !status.Valid() {
		return nil, domain.InvalidValue("verification.verification_status", fmt.Sprintf("unknown status %q", status))
	}

	record := &model.WipeCertificateRecord{
		SchemaVersion:      version,
		DeviceType:         raw.Device.DeviceType,
		Model:              raw.Device.Model,
		SerialNumber:       raw.Device.SerialNumber,
		CapacityBytes:      capacity,
		WipeMethod:         raw.WipeProcess.WipeMethod,
		StartTime:          raw.WipeProcess.StartTime,
		EndTime:            raw.WipeProcess.EndTime,
		DurationSeconds:    uint32(duration),
		VerificationStatus: status,
		Operator:           raw.Operator,
		Host:               raw.Host,
		CertificateID:      raw.CertificateID,
	}
	if version == model.SchemaV2 && raw.Audit != nil {
		record.DigitalSignature = raw.Audit.DigitalSignature
	}
	return record, nil
}

// ParseReport decodes a raw wipe report from JSON.
func ParseReport(data []byte) (*model.RawReport, error) {
	var raw model.RawReport
	if err := json.Unmarshal(data, &raw); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, domain.TypeMismatch(typeErr.Field)
		}
		return nil, fmt.Errorf("%w: decode report: %v", domain.ErrEncoding, err)
	}
	return &raw, nil
}

// parseUnsigned accepts only a bare non-negative integer JSON token that fits in bitSize bits.
func parseUnsigned(field string, token json.RawMessage, bitSize int) (uint64, error) {
	token = bytes.TrimSpace(token)
	if len(token) == 0 || bytes.Equal(token, []byte("null")) {
		return 0, domain.MissingField(field)
	}
	v, err := strconv.ParseUint(string(token), 10, bitSize)
	if err != nil {
		return 0, domain.TypeMismatch(field)
	}
	return v, nil
}
