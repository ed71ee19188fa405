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
	"time"

	"github.com/Stranger542/SSDWipe-BlockChain/internal/domain"
	"github.com/Stranger542/SSDWipe-BlockChain/internal/domain/model"
	"github.com/Stranger542/SSDWipe-BlockChain/internal/domain/service"
	"github.com/fxamacker/cbor/v2"
	"github.com/veraison/go-cose"
)

const kidLength = 32

// Keyring holds the public keys trusted to verify certificate seals.
type Keyring struct {
	repo service.SealingKeyRepository
}

func NewKeyring(repo service.SealingKeyRepository) *Keyring {
	return &Keyring{repo: repo}
}

// Trust stores a public key and returns its kid. Trusting a known key is a no-op.
func (k *Keyring) Trust(ctx context.Context, key *cose.Key) ([]byte, error) {
	if key == nil {
		return nil, errors.New("public key is nil")
	}
	kid, err := key.Thumbprint(crypto.SHA256)
	if err != nil {
		return nil, err
	}
	if len(kid) != kidLength {
		return nil, errors.New("invalid key thumbprint length (expected: 32)")
	}

	existing, err := k.repo.FindByKIDIgnoreRevoked(ctx, kid)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return kid, nil
	}

	pubKeyBytes, err := cbor.Marshal(key)
	if err != nil {
		return nil, err
	}
	sk := &model.SealingKey{
		KID:       kid,
		PublicKey: pubKeyBytes,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	if _, err := k.repo.Create(ctx, sk); err != nil {
		return nil, err
	}
	return kid, nil
}

// ResolveKey returns the trusted key for kid, or nil when the kid is unknown.
// A revoked key is reported as domain.ErrRevoked.
func (k *Keyring) ResolveKey(ctx context.Context, kid []byte) (*cose.Key, error) {
	if len(kid) != kidLength {
		return nil, errors.New("invalid kid length (expected: 32)")
	}
	sk, err := k.repo.FindByKID(ctx, kid)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var key cose.Key
	if err := cbor.Unmarshal(sk.PublicKey, &key); err != nil {
		return nil, err
	}
	return &key, nil
}

func (k *Keyring) Distrust(ctx context.Context, kid []byte) error {
	if len(kid) != kidLength {
		return errors.New("invalid kid length (expected: 32)")
	}
	return k.repo.RevokeByKID(ctx, kid)
}
