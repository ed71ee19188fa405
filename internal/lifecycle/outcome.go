/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package lifecycle

import (
	"github.com/Stranger542/SSDWipe-BlockChain/internal/certificate"
	"github.com/Stranger542/SSDWipe-BlockChain/internal/domain/model"
)

// Outcome is the single result shape returned for every lifecycle operation.
// Failures are reported through Success and Error, never as a Go error.
type Outcome struct {
	Success          bool                `json:"success"`
	Verdict          certificate.Verdict `json:"verdict,omitempty"`
	MismatchedFields []string            `json:"mismatchedFields,omitempty"`
	Error            string              `json:"error,omitempty"`

	State             State                        `json:"state,omitempty"`
	Handle            *model.CertificateHandle     `json:"handle,omitempty"`
	Record            *model.WipeCertificateRecord `json:"record,omitempty"`
	Committed         *model.CommittedRecord       `json:"committed,omitempty"`
	RecordDigest      string                       `json:"recordDigest,omitempty"`
	ArtifactDigest    string                       `json:"artifactDigest,omitempty"`
	Artifact          string                       `json:"artifact,omitempty"`
	Revoked           bool                         `json:"revoked,omitempty"`
	SignatureVerified *bool                        `json:"signatureVerified,omitempty"`

	err error
}

// Err returns the underlying error of a failed outcome, for callers that map it
// onto a transport status.
func (o *Outcome) Err() error {
	return o.err
}

func (o *Outcome) fail(err error) *Outcome {
	o.Success = false
	o.err = err
	o.Error = err.Error()
	return o
}

func (o *Outcome) applyVerdict(v certificate.VerificationVerdict) {
	o.Verdict = v.Verdict
	o.MismatchedFields = v.MismatchedFields
}
