/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package config

import (
	"log"
	"time"
)

const (
	BackendSQLite = "sqlite"
	BackendRemote = "remote"
	BackendFabric = "fabric"
)

// Config captures everything read once at start-up. Nothing here changes at runtime.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Ledger LedgerConfig `yaml:"ledger"`
	Seal   SealConfig   `yaml:"seal"`
	Logger *log.Logger  `yaml:"-"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LedgerConfig selects and configures the ledger backend.
type LedgerConfig struct {
	Backend       string        `yaml:"backend"`
	SchemaVersion int           `yaml:"schemaVersion"`
	Timeout       time.Duration `yaml:"timeout"`
	// Principal is the 0x address the local ledger records as minter. When empty
	// the sqlite ledger generates one and keeps it in the database file.
	Principal string       `yaml:"principal"`
	DBPath    string       `yaml:"dbPath"`
	Remote    RemoteConfig `yaml:"remote"`
	Fabric    FabricConfig `yaml:"fabric"`
}

// RemoteConfig points at a ledger gateway speaking the HTTP ledger API.
type RemoteConfig struct {
	BaseURL     string        `yaml:"baseURL"`
	InsecureTLS bool          `yaml:"insecureTLS"`
	Timeout     time.Duration `yaml:"-"`
	Logger      *log.Logger   `yaml:"-"`
}

type FabricConfig struct {
	PeerEndpoint string        `yaml:"peerEndpoint"`
	GatewayPeer  string        `yaml:"gatewayPeer"`
	TLSCertPath  string        `yaml:"tlsCertPath"`
	CertPath     string        `yaml:"certPath"`
	KeyPath      string        `yaml:"keyPath"`
	MSPID        string        `yaml:"mspID"`
	Channel      string        `yaml:"channel"`
	Chaincode    string        `yaml:"chaincode"`
	Timeout      time.Duration `yaml:"-"`
	Logger       *log.Logger   `yaml:"-"`
}

type SealConfig struct {
	Enabled bool `yaml:"enabled"`
	// KeyPath is a PEM encoded P-256 private key.
	KeyPath string `yaml:"keyPath"`
	// DevEphemeralKey generates a throwaway key when KeyPath is empty. Development only.
	DevEphemeralKey bool `yaml:"devEphemeralKey"`
}
