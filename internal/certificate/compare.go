/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package certificate

import (
	"fmt"
	"strconv"

	"github.com/Stranger542/SSDWipe-BlockChain/internal/domain"
	"github.com/Stranger542/SSDWipe-BlockChain/internal/domain/model"
	"github.com/Stranger542/SSDWipe-BlockChain/internal/util"
)

type Verdict string

const (
	VerdictMatch    Verdict = "MATCH"
	VerdictMismatch Verdict = "MISMATCH"
)

// VerificationVerdict is the result of comparing a ledger record with a reference.
// MismatchedFields is empty in hash mode.
type VerificationVerdict struct {
	Verdict          Verdict  `json:"verdict"`
	MismatchedFields []string `json:"mismatchedFields,omitempty"`
}

func (v VerificationVerdict) Matched() bool {
	return v.Verdict == VerdictMatch
}

// DefaultCompareFields is the subset compared in field mode unless the caller asks for more.
var DefaultCompareFields = []string{"serialNumber", "model", "endTime", "operator"}

// AllCompareFields lists every caller-supplied record field in canonical order.
var AllCompareFields = []string{
	"schemaVersion",
	"deviceType",
	"model",
	"serialNumber",
	"capacityBytes",
	"wipeMethod",
	"startTime",
	"endTime",
	"durationSeconds",
	"verificationStatus",
	"operator",
	"host",
	"certificateId",
	"digitalSignature",
}

var fieldValue = map[string]func(*model.WipeCertificateRecord) string{
	"schemaVersion":      func(r *model.WipeCertificateRecord) string { return strconv.Itoa(int(r.SchemaVersion)) },
	"deviceType":         func(r *model.WipeCertificateRecord) string { return r.DeviceType },
	"model":              func(r *model.WipeCertificateRecord) string { return r.Model },
	"serialNumber":       func(r *model.WipeCertificateRecord) string { return r.SerialNumber },
	"capacityBytes":      func(r *model.WipeCertificateRecord) string { return strconv.FormatUint(r.CapacityBytes, 10) },
	"wipeMethod":         func(r *model.WipeCertificateRecord) string { return r.WipeMethod },
	"startTime":          func(r *model.WipeCertificateRecord) string { return r.StartTime },
	"endTime":            func(r *model.WipeCertificateRecord) string { return r.EndTime },
	"durationSeconds":    func(r *model.WipeCertificateRecord) string { return strconv.FormatUint(uint64(r.DurationSeconds), 10) },
	"verificationStatus": func(r *model.WipeCertificateRecord) string { return string(r.VerificationStatus) },
	"operator":           func(r *model.WipeCertificateRecord) string { return r.Operator },
	"host":               func(r *model.WipeCertificateRecord) string { return r.Host },
	"certificateId":      func(r *model.WipeCertificateRecord) string { return r.CertificateID },
	"digitalSignature":   func(r *model.WipeCertificateRecord) string { return r.DigitalSignature },
}

// CompareFields checks the named fields for pairwise equality and reports every
// differing one, in the order given. Neither record is modified.
func CompareFields(ledger, reference *model.WipeCertificateRecord, fields []string) (VerificationVerdict, error) {
	if ledger == nil || reference == nil {
		return VerificationVerdict{}, domain.MissingField("record")
	}
	if len(fields) == 0 {
		fields = DefaultCompareFields
	}

	seen := util.NewSet[string]()
	var mismatched []string
	for _, f := range fields {
		if seen.Has(f) {
			continue
		}
		seen.Add(f)

		get, ok := fieldValue[f]
		if !ok {
			return VerificationVerdict{}, domain.InvalidValue("fields", fmt.Sprintf("unknown field %q", f))
		}
		if get(ledger) != get(reference) {
			mismatched = append(mismatched, f)
		}
	}

	if len(mismatched) > 0 {
		return VerificationVerdict{Verdict: VerdictMismatch, MismatchedFields: mismatched}, nil
	}
	return VerificationVerdict{Verdict: VerdictMatch}, nil
}

// CompareDigests is hash mode: the artifact is opaque, so no field detail is reported.
func CompareDigests(stored, recomputed string) VerificationVerdict {
	if stored != "" && stored == recomputed {
		return VerificationVerdict{Verdict: VerdictMatch}
	}
	return VerificationVerdict{Verdict: VerdictMismatch}
}

// CompareArtifact re-hashes a saved artifact and compares it with the stored digest.
func CompareArtifact(storedDigest string, artifact []byte) (VerificationVerdict, error) {
	recomputed, err := DigestText(artifact)
	if err != nil {
		return VerificationVerdict{}, err
	}
	return CompareDigests(storedDigest, recomputed), nil
}
