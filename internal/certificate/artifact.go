/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package certificate

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/Stranger542/SSDWipe-BlockChain/internal/domain"
	"github.com/Stranger542/SSDWipe-BlockChain/internal/domain/model"
)

const (
	artifactTitle   = "CERTIFICATE OF SECURE DATA ERASURE"
	artifactTrailer = "This certificate attests that all user data on the device above was irrecoverably erased."
	issueDateLayout = "2006-01-02"
)

// RenderArtifact produces the human-readable certificate text. The output is a
// pure function of the record and the issue date, so re-rendering reproduces it
// byte for byte. Lines end in "\n", including the last one.
func RenderArtifact(r *model.WipeCertificateRecord, issuedAt time.Time) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: nil record", domain.ErrEncoding)
	}
	if issuedAt.IsZero() {
		return nil, domain.MissingField("issuedAt")
	}

	lines := []struct {
		label string
		value string
	}{
		{"Date of Issue", issuedAt.UTC().Format(issueDateLayout)},
		{"Certificate ID", r.CertificateID},
		{"Serial Number", r.SerialNumber},
		{"Model", r.Model},
		{"Wipe Method", r.WipeMethod},
		{"Completed", r.EndTime},
	}

	var buf bytes.Buffer
	buf.WriteString(artifactTitle)
	buf.WriteByte('\n')
	for _, l := range lines {
		if strings.ContainsAny(l.value, "\r\n") {
			return nil, fmt.Errorf("%w: %s contains a line break", domain.ErrEncoding, l.label)
		}
		fmt.Fprintf(&buf, "%s: %s\n", l.label, l.value)
	}
	buf.WriteString(artifactTrailer)
	buf.WriteByte('\n')

	if _, err := DigestText(buf.Bytes()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SealArtifact renders the artifact and returns it with its digest.
func SealArtifact(r *model.WipeCertificateRecord, issuedAt time.Time) ([]byte, string, error) {
	text, err := RenderArtifact(r, issuedAt)
	if err != nil {
		return nil, "", err
	}
	digest, err := DigestText(text)
	if err != nil {
		return nil, "", err
	}
	return text, digest, nil
}
