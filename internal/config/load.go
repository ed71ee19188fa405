/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

// Environment variables overriding the config file.
const (
	EnvAddr          = "SSDWIPE_ADDR"
	EnvBackend       = "SSDWIPE_LEDGER_BACKEND"
	EnvSchemaVersion = "SSDWIPE_SCHEMA_VERSION"
	EnvTimeout       = "SSDWIPE_LEDGER_TIMEOUT"
	EnvPrincipal     = "SSDWIPE_PRINCIPAL"
	EnvDBPath        = "SSDWIPE_DB_PATH"
	EnvRemoteURL     = "SSDWIPE_LEDGER_URL"
	EnvInsecureTLS   = "SSDWIPE_LEDGER_INSECURE_TLS"
	EnvSealKey       = "SSDWIPE_SEAL_KEY"
)

const (
	defaultAddr    = "127.0.0.1:8080"
	defaultTimeout = 30 * time.Second
	defaultDBPath  = "ssdwipe.db"
)

// Default returns a configuration for a local SQLite ledger.
func Default() Config {
	return Config{
		Server: ServerConfig{Addr: defaultAddr},
		Ledger: LedgerConfig{
			Backend:       BackendSQLite,
			SchemaVersion: 2,
			Timeout:       defaultTimeout,
			DBPath:        defaultDBPath,
		},
	}
}

// Load reads a YAML file on top of Default, applies environment overrides and validates.
// An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from the environment. lookup is usually os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}
	str(EnvAddr, &c.Server.Addr)
	str(EnvBackend, &c.Ledger.Backend)
	str(EnvPrincipal, &c.Ledger.Principal)
	str(EnvDBPath, &c.Ledger.DBPath)
	str(EnvRemoteURL, &c.Ledger.Remote.BaseURL)

	if v, ok := lookup(EnvSchemaVersion); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvSchemaVersion, err)
		}
		c.Ledger.SchemaVersion = n
	}
	if v, ok := lookup(EnvTimeout); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTimeout, err)
		}
		c.Ledger.Timeout = d
	}
	if v, ok := lookup(EnvInsecureTLS); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvInsecureTLS, err)
		}
		c.Ledger.Remote.InsecureTLS = b
	}
	if v, ok := lookup(EnvSealKey); ok && v != "" {
		c.Seal.KeyPath = v
		c.Seal.Enabled = true
	}
	return nil
}

// Validate checks the settings the selected backend needs.
func (c *Config) Validate() error {
	var errs []error
	if c.Ledger.SchemaVersion != 1 && c.Ledger.SchemaVersion != 2 {
		errs = append(errs, fmt.Errorf("ledger.schemaVersion must be 1 or 2, got %d", c.Ledger.SchemaVersion))
	}
	if c.Ledger.Timeout <= 0 {
		errs = append(errs, errors.New("ledger.timeout must be positive"))
	}
	if c.Ledger.Principal != "" {
		switch {
		case !common.IsHexAddress(c.Ledger.Principal):
			errs = append(errs, fmt.Errorf("ledger.principal %q is not a hex address", c.Ledger.Principal))
		case common.HexToAddress(c.Ledger.Principal) == (common.Address{}):
			errs = append(errs, errors.New("ledger.principal must not be the zero address"))
		}
	}

	c.Ledger.Backend = strings.ToLower(c.Ledger.Backend)
	switch c.Ledger.Backend {
	case BackendSQLite:
		if c.Ledger.DBPath == "" {
			errs = append(errs, errors.New("ledger.dbPath is required for the sqlite backend"))
		}
	case BackendRemote:
		if c.Ledger.Remote.BaseURL == "" {
			errs = append(errs, errors.New("ledger.remote.baseURL is required for the remote backend"))
		}
	case BackendFabric:
		f := c.Ledger.Fabric
		for name, v := range map[string]string{
			"peerEndpoint": f.PeerEndpoint,
			"tlsCertPath":  f.TLSCertPath,
			"certPath":     f.CertPath,
			"keyPath":      f.KeyPath,
			"mspID":        f.MSPID,
			"channel":      f.Channel,
			"chaincode":    f.Chaincode,
		} {
			if v == "" {
				errs = append(errs, fmt.Errorf("ledger.fabric.%s is required for the fabric backend", name))
			}
		}
	default:
		errs = append(errs, fmt.Errorf("unknown ledger.backend %q", c.Ledger.Backend))
	}

	if c.Seal.Enabled && c.Seal.KeyPath == "" && !c.Seal.DevEphemeralKey {
		errs = append(errs, errors.New("seal.keyPath is required when sealing is enabled"))
	}
	return errors.Join(errs...)
}

// MinterAddress is the configured principal, or the zero address when unset.
// The sqlite backend then falls back to the ledger file's own principal.
func (l LedgerConfig) MinterAddress() common.Address {
	if l.Principal == "" {
		return common.Address{}
	}
	return common.HexToAddress(l.Principal)
}
