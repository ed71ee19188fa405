/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

// Package fabric submits wipe certificates to a Hyperledger Fabric channel
// through the Fabric Gateway.
package fabric

import (
	"context"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/hyperledger/fabric-gateway/pkg/client"
	"github.com/hyperledger/fabric-gateway/pkg/identity"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"

	"github.com/Stranger542/SSDWipe-BlockChain/internal/config"
	"github.com/Stranger542/SSDWipe-BlockChain/internal/domain"
	"github.com/Stranger542/SSDWipe-BlockChain/internal/domain/model"
)

// Chaincode transaction names.
const (
	FnCreate = "CreateWipeCertificate"
	FnRead   = "ReadWipeCertificate"
	FnRevoke = "RevokeWipeCertificate"
)

type LedgerClient struct {
	gateway  *client.Gateway
	contract *client.Contract
	conn     *grpc.ClientConn
	logger   *log.Logger
}

func NewLedgerClient(cfg config.FabricConfig) (*LedgerClient, error) {
	conn, err := newGrpcConnection(cfg)
	if err != nil {
		return nil, err
	}

	id, err := newIdentity(cfg.CertPath, cfg.MSPID)
	if err != nil {
		conn.Close()
		return nil, err
	}
	sign, err := newSign(cfg.KeyPath)
	if err != nil {
		conn.Close()
		return nil, err
	}

	gw, err := client.Connect(id, client.WithSign(sign), client.WithClientConnection(conn))
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("connect to gateway: %w", err)
	}

	return &LedgerClient{
		gateway:  gw,
		contract: gw.GetNetwork(cfg.Channel).GetContract(cfg.Chaincode),
		conn:     conn,
		logger:   cfg.Logger,
	}, nil
}

func (c *LedgerClient) Close() error {
	if c.gateway != nil {
		c.gateway.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func (c *LedgerClient) Submit(ctx context.Context, s *model.Submission) (*model.CertificateHandle, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: nil submission", domain.ErrRejected)
	}
	payload, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEncoding, err)
	}

	txID, err := c.submit(ctx, FnCreate, string(payload))
	if err != nil {
		return nil, err
	}
	return &model.CertificateHandle{TransactionReference: txID, CertificateKey: s.Key()}, nil
}

func (c *LedgerClient) GetByKey(ctx context.Context, key string) (*model.CommittedRecord, error) {
	result, err := c.contract.EvaluateWithContext(ctx, FnRead, client.WithArguments(key))
	if err != nil {
		return nil, classify(FnRead, err)
	}
	var rec model.CommittedRecord
	if err := json.Unmarshal(result, &rec); err != nil {
		return nil, fmt.Errorf("%w: decode %s result: %v", domain.ErrEncoding, FnRead, err)
	}
	return &rec, nil
}

func (c *LedgerClient) Revoke(ctx context.Context, key, reason string) error {
	_, err := c.submit(ctx, FnRevoke, key, reason)
	return err
}

// submit endorses, orders and waits for commit, returning the transaction ID.
func (c *LedgerClient) submit(ctx context.Context, fn string, args ...string) (string, error) {
	proposal, err := c.contract.NewProposal(fn, client.WithArguments(args...))
	if err != nil {
		return "", fmt.Errorf("%w: %s proposal: %v", domain.ErrRejected, fn, err)
	}
	txn, err := proposal.EndorseWithContext(ctx)
	if err != nil {
		return "", classify(fn, err)
	}
	commit, err := txn.SubmitWithContext(ctx)
	if err != nil {
		return "", classify(fn, err)
	}
	status, err := commit.StatusWithContext(ctx)
	if err != nil {
		return "", classify(fn, err)
	}
	if !status.Successful {
		return "", fmt.Errorf("%w: %s transaction %s failed validation with code %d",
			domain.ErrRejected, fn, status.TransactionID, int32(status.Code))
	}
	if c.logger != nil {
		c.logger.Printf("fabric %s committed tx %s in block %d", fn, status.TransactionID, status.BlockNumber)
	}
	return status.TransactionID, nil
}

func newGrpcConnection(cfg config.FabricConfig) (*grpc.ClientConn, error) {
	certificate, err := loadCertificate(cfg.TLSCertPath)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	pool.AddCert(certificate)
	creds := credentials.NewClientTLSFromCert(pool, cfg.GatewayPeer)

	conn, err := grpc.NewClient(cfg.PeerEndpoint, grpc.WithTransportCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("create gRPC connection: %w", err)
	}
	return conn, nil
}

func newIdentity(certPath, mspID string) (*identity.X509Identity, error) {
	certificate, err := loadCertificate(certPath)
	if err != nil {
		return nil, err
	}
	return identity.NewX509Identity(mspID, certificate)
}

// newSign accepts a key file or an MSP keystore directory holding one key.
func newSign(keyPath string) (identity.Sign, error) {
	path, err := keyFile(keyPath)
	if err != nil {
		return nil, err
	}
	keyPEM, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}
	privateKey, err := identity.PrivateKeyFromPEM(keyPEM)
	if err != nil {
		return nil, err
	}
	return identity.NewPrivateKeySign(privateKey)
}

func keyFile(keyPath string) (string, error) {
	info, err := os.Stat(keyPath)
	if err != nil {
		return "", fmt.Errorf("private key: %w", err)
	}
	if !info.IsDir() {
		return keyPath, nil
	}
	entries, err := os.ReadDir(keyPath)
	if err != nil {
		return "", fmt.Errorf("read keystore: %w", err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			return filepath.Join(keyPath, e.Name()), nil
		}
	}
	return "", errors.New("keystore contains no key file")
}

func loadCertificate(path string) (*x509.Certificate, error) {
	certificatePEM, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read certificate: %w", err)
	}
	return identity.CertificateFromPEM(certificatePEM)
}
