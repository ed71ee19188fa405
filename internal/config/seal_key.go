/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package config

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
)

// LoadSealingKey returns the configured P-256 sealing key. With no key path and
// DevEphemeralKey set, a fresh key is generated for this process only.
func LoadSealingKey(cfg SealConfig) (*ecdsa.PrivateKey, error) {
	if cfg.KeyPath == "" {
		if !cfg.DevEphemeralKey {
			return nil, errors.New("no sealing key configured")
		}
		key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("ephemeral key generation failed: %w", err)
		}
		return key, nil
	}

	data, err := os.ReadFile(cfg.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("reading sealing key %q: %w", cfg.KeyPath, err)
	}
	key, err := ParseSealingKey(data)
	if err != nil {
		return nil, fmt.Errorf("sealing key %q: %w", cfg.KeyPath, err)
	}
	return key, nil
}

// ParseSealingKey accepts SEC 1 ("EC PRIVATE KEY") or PKCS#8 ("PRIVATE KEY") PEM.
func ParseSealingKey(data []byte) (*ecdsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("no PEM block found")
	}

	var key *ecdsa.PrivateKey
	switch block.Type {
	case "EC PRIVATE KEY":
		k, err := x509.ParseECPrivateKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		key = k
	case "PRIVATE KEY":
		parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		k, ok := parsed.(*ecdsa.PrivateKey)
		if !ok {
			return nil, errors.New("must be ECDSA P-256")
		}
		key = k
	default:
		return nil, fmt.Errorf("unsupported PEM type %q", block.Type)
	}
	if key.Curve != elliptic.P256() {
		return nil, fmt.Errorf("must be ECDSA P-256, got %s", key.Curve.Params().Name)
	}
	return key, nil
}

// EncodeSealingKey serialises a key as SEC 1 PEM.
func EncodeSealingKey(key *ecdsa.PrivateKey) ([]byte, error) {
	der, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der}), nil
}
