/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package certificate

import (
	"bytes"
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/Stranger542/SSDWipe-BlockChain/internal/domain"
	"github.com/Stranger542/SSDWipe-BlockChain/internal/domain/model"
	"github.com/Stranger542/SSDWipe-BlockChain/internal/util"
	"github.com/fxamacker/cbor/v2"
	"github.com/veraison/eat"
	"github.com/veraison/go-cose"
)

// KeyResolver returns the trusted public key for a kid, or nil when unknown.
type KeyResolver interface {
	ResolveKey(ctx context.Context, kid []byte) (*cose.Key, error)
}

// Sealer signs records with a P-256 key. The seal is a COSE_Sign1 over an EAT
// whose only nonce is the record's signing digest.
type Sealer struct {
	private *cose.Key
	public  *cose.Key
	kid     []byte
}

func NewSealer(priv *ecdsa.PrivateKey) (*Sealer, error) {
	if priv == nil {
		return nil, errors.New("private key is nil")
	}
	if priv.Curve != elliptic.P256() {
		return nil, errors.New("sealing key must be on P-256")
	}

	x := priv.PublicKey.X.FillBytes(make([]byte, 32))
	y := priv.PublicKey.Y.FillBytes(make([]byte, 32))
	d := priv.D.FillBytes(make([]byte, 32))

	private, err := cose.NewKeyEC2(cose.AlgorithmESP256, x, y, d)
	if err != nil {
		return nil, fmt.Errorf("build private COSE key: %w", err)
	}
	public, err := cose.NewKeyEC2(cose.AlgorithmESP256, x, y, nil)
	if err != nil {
		return nil, fmt.Errorf("build public COSE key: %w", err)
	}
	kid, err := public.Thumbprint(crypto.SHA256)
	if err != nil {
		return nil, fmt.Errorf("compute key thumbprint: %w", err)
	}

	return &Sealer{private: private, public: public, kid: kid}, nil
}

func (s *Sealer) KID() []byte {
	return bytes.Clone(s.kid)
}

func (s *Sealer) PublicKey() *cose.Key {
	return s.public
}

// Seal returns the base64 seal for r. It does not modify r.
func (s *Sealer) Seal(r *model.WipeCertificateRecord) (string, error) {
	if r.SchemaVersion == model.SchemaV1 {
		return "", ErrSealUnsupported
	}
	digest, err := SigningDigest(r)
	if err != nil {
		return "", err
	}

	nonce := eat.Nonce{}
	nonce.Add(digest)
	claims := eat.Eat{
		Nonce: &nonce,
	}
	tbs, err := cbor.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("encode seal claims: %w", err)
	}

	signer, err := s.private.Signer()
	if err != nil {
		return "", err
	}
	alg, err := s.private.AlgorithmOrDefault()
	if err != nil {
		return "", err
	}
	headers := cose.Headers{
		Protected: cose.ProtectedHeader{
			cose.HeaderLabelAlgorithm: alg,
		},
		Unprotected: cose.UnprotectedHeader{
			cose.HeaderLabelKeyID: s.kid,
		},
	}
	sig, err := cose.Sign1(rand.Reader, signer, headers, tbs, nil)
	if err != nil {
		return "", fmt.Errorf("sign seal: %w", err)
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

// VerifySeal checks r.DigitalSignature against a key known to resolver and
// confirms the sealed nonce equals the record's signing digest.
func VerifySeal(ctx context.Context, r *model.WipeCertificateRecord, resolver KeyResolver) error {
	if r.SchemaVersion == model.SchemaV1 {
		return ErrSealUnsupported
	}
	if r.DigitalSignature == "" {
		return ErrNotSealed
	}

	msg, err := decodeSeal(r.DigitalSignature)
	if err != nil {
		return err
	}
	kid, ok := msg.Headers.Unprotected[int64(cose.HeaderLabelKeyID)].([]byte)
	if !ok || len(kid) == 0 {
		return ErrKidIsMissing
	}
	key, err := resolver.ResolveKey(ctx, kid)
	if err != nil {
		return err
	}
	if key == nil {
		return ErrUnknownKey
	}
	verifier, err := key.Verifier()
	if err != nil {
		return err
	}
	if err := msg.Verify(nil, verifier); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSeal, err)
	}

	var claims eat.Eat
	if err := claims.FromCBOR(msg.Payload); err != nil {
		return fmt.Errorf("%w: decode seal claims: %v", domain.ErrEncoding, err)
	}
	if claims.Nonce == nil || claims.Nonce.Validate() != nil || claims.Nonce.Len() != 1 {
		return fmt.Errorf("%w: seal nonce malformed", ErrInvalidSeal)
	}
	expected, err := SigningDigest(r)
	if err != nil {
		return err
	}
	if !bytes.Equal(claims.Nonce.GetI(0), expected) {
		return ErrDigestMismatch
	}
	return nil
}

// RenderSeal pretty-prints the claims inside a seal without verifying it.
func RenderSeal(seal string) (string, error) {
	msg, err := decodeSeal(seal)
	if err != nil {
		return "", err
	}
	out, err := util.RenderCBOR(msg.Payload, claimNames)
	if err != nil {
		return "", fmt.Errorf("%w: decode seal payload: %v", domain.ErrEncoding, err)
	}
	return out, nil
}

// EAT claim keys that may appear in a seal payload.
var claimNames = map[int64]string{
	2:  "sub",
	6:  "iat",
	7:  "cti",
	10: "nonce",
	11: "ueid",
}

func decodeSeal(seal string) (*cose.Sign1Message, error) {
	raw, err := base64.StdEncoding.DecodeString(seal)
	if err != nil {
		return nil, fmt.Errorf("%w: seal is not base64: %v", domain.ErrEncoding, err)
	}
	var msg cose.Sign1Message
	if err := msg.UnmarshalCBOR(raw); err != nil {
		return nil, fmt.Errorf("%w: seal is not COSE_Sign1: %v", domain.ErrEncoding, err)
	}
	return &msg, nil
}
