/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Stranger542/SSDWipe-BlockChain/internal/certificate"
	"github.com/Stranger542/SSDWipe-BlockChain/internal/config"
	"github.com/Stranger542/SSDWipe-BlockChain/internal/infra/remote"
	"github.com/Stranger542/SSDWipe-BlockChain/internal/infra/sqlite"
	"github.com/Stranger542/SSDWipe-BlockChain/internal/lifecycle"
	"github.com/Stranger542/SSDWipe-BlockChain/resources"
)

const sampleKey = "S4EWNX0R123456"

// newTestServer serves a manager backed by an in-memory SQLite ledger, which is
// also exposed as the ledger gateway.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	db, err := sqlite.InitDB(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("InitDB error: %v", err)
	}
	t.Cleanup(func() { sqlite.CloseDB(db) })

	ledger := sqlite.NewLedger(db, common.HexToAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"), log.Default())
	m, err := lifecycle.NewManager(ledger, lifecycle.Options{
		Keys: lifecycle.NewKeyring(sqlite.NewSealingKeyRepository(db)),
	})
	require.NoError(t, err)

	s, err := New(config.ServerConfig{}, m, ledger, log.Default())
	require.NoError(t, err)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, url string, body []byte) (*http.Response, lifecycle.Outcome) {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	return resp, decodeOutcome(t, resp)
}

func decodeOutcome(t *testing.T, resp *http.Response) lifecycle.Outcome {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out lifecycle.Outcome
	if len(data) > 0 {
		require.NoError(t, json.Unmarshal(data, &out), string(data))
	}
	return out
}

func TestHandler_IssueLookupVerify(t *testing.T) {
	srv := newTestServer(t)
	base := srv.URL + certificatesPath

	resp, out := post(t, base+"?artifact=true", resources.SampleReport)
	require.Equal(t, http.StatusCreated, resp.StatusCode, out.Error)
	assert.True(t, out.Success)
	assert.Equal(t, lifecycle.StateConfirmed, out.State)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	require.NotEmpty(t, out.Artifact)

	got, err := http.Get(base + "/" + sampleKey)
	require.NoError(t, err)
	lookup := decodeOutcome(t, got)
	assert.Equal(t, http.StatusOK, got.StatusCode)
	assert.Equal(t, out.RecordDigest, lookup.RecordDigest)
	assert.Equal(t, uint64(1000204886016), lookup.Record.CapacityBytes)

	resp, match := post(t, base+"/"+sampleKey+"/verify-artifact", []byte(out.Artifact))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, certificate.VerdictMatch, match.Verdict)

	resp, mismatch := post(t, base+"/"+sampleKey+"/verify-artifact", []byte(strings.ToLower(out.Artifact)))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, mismatch.Success)
	assert.Equal(t, certificate.VerdictMismatch, mismatch.Verdict)

	resp, field := post(t, base+"/"+sampleKey+"/verify-record?full=true", resources.SampleReport)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, field.Success, field.Error)

	altered := bytes.Replace(resources.SampleReport, []byte(`"j.doe"`), []byte(`"m.allory"`), 1)
	resp, field = post(t, base+"/"+sampleKey+"/verify-record", altered)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"operator"}, field.MismatchedFields)
}

func TestHandler_ErrorStatuses(t *testing.T) {
	srv := newTestServer(t)
	base := srv.URL + certificatesPath

	resp, _ := post(t, base, resources.SampleReport)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, dup := post(t, base, resources.SampleReport)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, lifecycle.StateRejected, dup.State)

	resp, _ = post(t, base, []byte(`{"device": {}}`))
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp, _ = post(t, base, []byte(`{`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = post(t, base+"?seal=maybe", resources.SampleReport)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	got, err := http.Get(base + "/SN-NOPE")
	require.NoError(t, err)
	missing := decodeOutcome(t, got)
	assert.Equal(t, http.StatusNotFound, got.StatusCode)
	assert.Contains(t, missing.Error, "not found")

	resp, _ = post(t, base, bytes.Repeat([]byte(" "), maxRequestBodyBytes+1))
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)

	got, err = http.Get(base)
	require.NoError(t, err)
	got.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, got.StatusCode)
}

func TestHandler_Revoke(t *testing.T) {
	srv := newTestServer(t)
	base := srv.URL + certificatesPath

	resp, _ := post(t, base, resources.SampleReport)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, out := post(t, base+"/"+sampleKey+"/revoke", []byte(`{"reason":"drive resold"}`))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, out.Revoked)
	assert.Equal(t, "drive resold", out.Committed.RevocationReason)

	resp, _ = post(t, base+"/"+sampleKey+"/revoke", nil)
	assert.Equal(t, http.StatusGone, resp.StatusCode)

	resp, verify := post(t, base+"/"+sampleKey+"/verify-record", resources.SampleReport)
	assert.Equal(t, http.StatusGone, resp.StatusCode)
	assert.False(t, verify.Success)
}

// A manager using the remote client against this server's ledger gateway.
func TestHandler_LedgerGatewayBacksRemoteClient(t *testing.T) {
	srv := newTestServer(t)

	client, err := remote.NewLedgerClient(config.RemoteConfig{BaseURL: srv.URL, Timeout: 5 * time.Second})
	require.NoError(t, err)
	m, err := lifecycle.NewManager(client, lifecycle.Options{})
	require.NoError(t, err)

	raw, err := certificate.ParseReport(resources.SampleReport)
	require.NoError(t, err)

	ctx := context.Background()
	out := m.Issue(ctx, raw, lifecycle.IssueOptions{Artifact: true})
	require.True(t, out.Success, out.Error)
	assert.NotEmpty(t, out.Handle.TransactionReference)

	again := m.Issue(ctx, raw, lifecycle.IssueOptions{})
	assert.False(t, again.Success)
	assert.Equal(t, lifecycle.StateRejected, again.State)

	retried := m.Issue(ctx, raw, lifecycle.IssueOptions{Artifact: true, IssuedAt: time.Now(), Retry: true})
	assert.Equal(t, lifecycle.StateConfirmed, retried.State, retried.Error)

	lookup := m.Lookup(ctx, sampleKey)
	require.True(t, lookup.Success, lookup.Error)
	assert.Equal(t, out.RecordDigest, lookup.RecordDigest)
	assert.False(t, lookup.Committed.Server.IsZero())

	verify := m.VerifyArtifact(ctx, sampleKey, []byte(out.Artifact))
	assert.True(t, verify.Success, verify.Error)

	revoked := m.Revoke(ctx, sampleKey, "decommissioned")
	require.True(t, revoked.Success, revoked.Error)
	assert.True(t, revoked.Revoked)

	missing := m.Lookup(ctx, "SN-NOPE")
	assert.False(t, missing.Success)
}
