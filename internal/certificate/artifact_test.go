/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package certificate

import (
	"errors"
	"testing"
	"time"

	"github.com/Stranger542/SSDWipe-BlockChain/internal/domain"
	"github.com/Stranger542/SSDWipe-BlockChain/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderArtifact_Layout(t *testing.T) {
	rec, err := Build(parseSample(t), model.SchemaV2)
	require.NoError(t, err)

	text, err := RenderArtifact(rec, issuedAt)
	require.NoError(t, err)

	want := "CERTIFICATE OF SECURE DATA ERASURE\n" +
		"Date of Issue: 2024-01-02\n" +
		"Certificate ID: CERT-1\n" +
		"Serial Number: SN123\n" +
		"Model: X1\n" +
		"Wipe Method: NIST 800-88\n" +
		"Completed: 2024-01-01T00:10:00Z\n" +
		"This certificate attests that all user data on the device above was irrecoverably erased.\n"
	assert.Equal(t, want, string(text))
}

func TestRenderArtifact_IssueDateInUTC(t *testing.T) {
	rec, err := Build(parseSample(t), model.SchemaV2)
	require.NoError(t, err)

	tokyo := time.FixedZone("JST", 9*60*60)
	local := time.Date(2024, 1, 3, 8, 0, 0, 0, tokyo) // 2024-01-02 23:00 UTC
	text, err := RenderArtifact(rec, local)
	require.NoError(t, err)
	assert.Contains(t, string(text), "Date of Issue: 2024-01-02\n")
}

func TestRenderArtifact_Errors(t *testing.T) {
	rec, err := Build(parseSample(t), model.SchemaV2)
	require.NoError(t, err)

	_, err = RenderArtifact(rec, time.Time{})
	assert.True(t, errors.Is(err, domain.ErrMissingField))

	rec.Model = "X1\nSerial Number: FORGED"
	_, err = RenderArtifact(rec, issuedAt)
	assert.True(t, errors.Is(err, domain.ErrEncoding))
}
