/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package app

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Stranger542/SSDWipe-BlockChain/internal/config"
	"github.com/Stranger542/SSDWipe-BlockChain/internal/domain/model"
	"github.com/Stranger542/SSDWipe-BlockChain/internal/lifecycle"
	"github.com/Stranger542/SSDWipe-BlockChain/resources"
)

func TestOpen_SQLiteWithEphemeralSeal(t *testing.T) {
	cfg := config.Default()
	cfg.Ledger.DBPath = ":memory:"
	cfg.Seal = config.SealConfig{Enabled: true, DevEphemeralKey: true}
	require.NoError(t, cfg.Validate())

	ctx := context.Background()
	a, err := Open(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	require.NotNil(t, a.Local)
	require.NotNil(t, a.Sealer)

	var raw model.RawReport
	require.NoError(t, json.Unmarshal(resources.SampleReport, &raw))

	out := a.Manager.Issue(ctx, &raw, lifecycle.IssueOptions{Seal: true})
	require.NoError(t, out.Err())
	assert.Equal(t, lifecycle.StateConfirmed, out.State)

	// the process's own key is trusted, so its seal verifies
	v := a.Manager.VerifySignature(ctx, out.Handle.CertificateKey)
	require.NoError(t, v.Err())
	assert.True(t, v.Success)
}

func TestOpen_SQLiteCommitsNonZeroMinter(t *testing.T) {
	ctx := context.Background()
	var raw model.RawReport
	require.NoError(t, json.Unmarshal(resources.SampleReport, &raw))

	// no principal configured: the ledger file's own principal is used
	cfg := config.Default()
	cfg.Ledger.DBPath = ":memory:"
	a, err := Open(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	out := a.Manager.Issue(ctx, &raw, lifecycle.IssueOptions{})
	require.NoError(t, out.Err())
	committed, err := a.Local.GetByKey(ctx, out.Handle.CertificateKey)
	require.NoError(t, err)
	if committed.Server.Minter == (common.Address{}) {
		t.Fatalf("committed minter is the zero address")
	}

	// a configured principal takes precedence
	cfg.Ledger.Principal = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	b, err := Open(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	out = b.Manager.Issue(ctx, &raw, lifecycle.IssueOptions{})
	require.NoError(t, out.Err())
	committed, err = b.Local.GetByKey(ctx, out.Handle.CertificateKey)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(cfg.Ledger.Principal), committed.Server.Minter)
}

func TestOpen_RemoteBackendHasNoLocalLedger(t *testing.T) {
	cfg := config.Default()
	cfg.Ledger.DBPath = ":memory:"
	cfg.Ledger.Backend = config.BackendRemote
	cfg.Ledger.Remote.BaseURL = "http://127.0.0.1:1"

	a, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()
	assert.Nil(t, a.Local)
	assert.Nil(t, a.Sealer)
}
