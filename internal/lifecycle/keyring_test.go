/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package lifecycle

import (
	"context"
	"crypto"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/veraison/go-cose"

	"github.com/Stranger542/SSDWipe-BlockChain/internal/domain"
	"github.com/Stranger542/SSDWipe-BlockChain/internal/infra/sqlite"
)

var (
	x = []byte{
		0x65, 0xed, 0xa5, 0xa1, 0x25, 0x77, 0xc2, 0xba, 0xe8, 0x29, 0x43, 0x7f, 0xe3, 0x38, 0x70, 0x1a,
		0x10, 0xaa, 0xa3, 0x75, 0xe1, 0xbb, 0x5b, 0x5d, 0xe1, 0x08, 0xde, 0x43, 0x9c, 0x08, 0x55, 0x1d,
	}
	y = []byte{
		0x1e, 0x52, 0xed, 0x75, 0x70, 0x11, 0x63, 0xf7, 0xf9, 0xe4, 0x0d, 0xdf, 0x9f, 0x34, 0x1b, 0x3d,
		0xc9, 0xba, 0x86, 0x0a, 0xf7, 0xe0, 0xca, 0x7c, 0xa7, 0xe9, 0xee, 0xcd, 0x00, 0x84, 0xd1, 0x9c,
	}
	testKey = cose.Key{
		Type:      cose.KeyTypeEC2,
		Algorithm: cose.AlgorithmESP256,
		Params: map[any]any{
			cose.KeyLabelEC2Curve: cose.CurveP256,
			cose.KeyLabelEC2X:     x,
			cose.KeyLabelEC2Y:     y,
		},
	}
)

func TestKeyring_TrustResolveDistrust(t *testing.T) {
	ctx := context.Background()
	db, err := sqlite.InitDB(ctx, ":memory:")
	if err != nil {
		t.Fatalf("InitDB error: %v", err)
	}
	defer sqlite.CloseDB(db)
	keys := NewKeyring(sqlite.NewSealingKeyRepository(db))

	// unknown kid resolves to nil
	k, err := keys.ResolveKey(ctx, make([]byte, 32))
	assert.Nil(t, err)
	assert.Nil(t, k)

	kid, err := keys.Trust(ctx, &testKey)
	assert.Nil(t, err)
	want, err := testKey.Thumbprint(crypto.SHA256)
	assert.Nil(t, err)
	assert.Equal(t, want, kid)

	// trusting twice is a no-op
	again, err := keys.Trust(ctx, &testKey)
	assert.Nil(t, err)
	assert.Equal(t, kid, again)

	k, err = keys.ResolveKey(ctx, kid)
	if err != nil || k == nil {
		t.Fatalf("ResolveKey: %v, %v", k, err)
	}
	got, err := k.Thumbprint(crypto.SHA256)
	assert.Nil(t, err)
	assert.Equal(t, kid, got)

	assert.Nil(t, keys.Distrust(ctx, kid))
	_, err = keys.ResolveKey(ctx, kid)
	assert.True(t, errors.Is(err, domain.ErrRevoked))

	// malformed kids and keys fail
	_, err = keys.ResolveKey(ctx, nil)
	assert.NotNil(t, err)
	_, err = keys.Trust(ctx, nil)
	assert.NotNil(t, err)
}
