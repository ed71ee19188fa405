/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package certificate

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"
	"unicode/utf8"

	"github.com/Stranger542/SSDWipe-BlockChain/internal/domain"
	"github.com/Stranger542/SSDWipe-BlockChain/internal/domain/model"
	"github.com/gowebpki/jcs"
)

const DigestPrefix = "0x"

var digestPattern = regexp.MustCompile(`^0x[0-9a-f]{64}$`)

// ValidDigest reports whether s has the "0x" + 64 lower-case hex shape.
func ValidDigest(s string) bool {
	return digestPattern.MatchString(s)
}

// DigestText hashes the exact bytes of a text artifact. No newline or
// whitespace normalisation takes place.
func DigestText(text []byte) (string, error) {
	if !utf8.Valid(text) {
		return "", fmt.Errorf("%w: artifact is not valid UTF-8", domain.ErrEncoding)
	}
	return digestBytes(text), nil
}

// DigestRecord hashes the RFC 8785 canonical JSON form of the record.
// Server-assigned fields are not part of the record and so never influence the digest.
func DigestRecord(r *model.WipeCertificateRecord) (string, error) {
	canonical, err := CanonicalJSON(r)
	if err != nil {
		return "", err
	}
	return digestBytes(canonical), nil
}

// SigningDigest is the record digest with digitalSignature cleared; a seal covers this value.
func SigningDigest(r *model.WipeCertificateRecord) ([]byte, error) {
	unsigned := *r
	unsigned.DigitalSignature = ""
	canonical, err := CanonicalJSON(&unsigned)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(canonical)
	return sum[:], nil
}

// CanonicalJSON returns the JCS serialisation of the record.
func CanonicalJSON(r *model.WipeCertificateRecord) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: nil record", domain.ErrEncoding)
	}
	view := canonicalRecord{
		SchemaVersion:      int(r.SchemaVersion),
		DeviceType:         r.DeviceType,
		Model:              r.Model,
		SerialNumber:       r.SerialNumber,
		CapacityBytes:      r.CapacityBytes,
		WipeMethod:         r.WipeMethod,
		StartTime:          r.StartTime,
		EndTime:            r.EndTime,
		DurationSeconds:    r.DurationSeconds,
		VerificationStatus: string(r.VerificationStatus),
		Operator:           r.Operator,
		Host:               r.Host,
		CertificateID:      r.CertificateID,
		DigitalSignature:   r.DigitalSignature,
	}
	for _, s := range view.strings() {
		if !utf8.ValidString(s) {
			return nil, fmt.Errorf("%w: record contains invalid UTF-8", domain.ErrEncoding)
		}
	}

	plain, err := json.Marshal(view)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEncoding, err)
	}
	canonical, err := jcs.Transform(plain)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEncoding, err)
	}
	return canonical, nil
}

// canonicalRecord fixes the hashed field set. capacityBytes is carried as a
// decimal string because JCS numbers are IEEE 754 doubles.
type canonicalRecord struct {
	SchemaVersion      int    `json:"schemaVersion"`
	DeviceType         string `json:"deviceType"`
	Model              string `json:"model"`
	SerialNumber       string `json:"serialNumber"`
	CapacityBytes      uint64 `json:"capacityBytes,string"`
	WipeMethod         string `json:"wipeMethod"`
	StartTime          string `json:"startTime"`
	EndTime            string `json:"endTime"`
	DurationSeconds    uint32 `json:"durationSeconds"`
	VerificationStatus string `json:"verificationStatus"`
	Operator           string `json:"operator"`
	Host               string `json:"host"`
	CertificateID      string `json:"certificateId"`
	DigitalSignature   string `json:"digitalSignature,omitempty"`
}

func (c canonicalRecord) strings() []string {
	return []string{
		c.DeviceType, c.Model, c.SerialNumber, c.WipeMethod, c.StartTime, c.EndTime,
		c.VerificationStatus, c.Operator, c.Host, c.CertificateID, c.DigitalSignature,
	}
}

func digestBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return DigestPrefix + hex.EncodeToString(sum[:])
}
