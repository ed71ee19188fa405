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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Stranger542/SSDWipe-BlockChain/resources"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, BackendSQLite, cfg.Ledger.Backend)
	assert.Equal(t, 2, cfg.Ledger.SchemaVersion)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := `
server:
  addr: ":9090"
ledger:
  backend: Remote
  schemaVersion: 1
  timeout: 5s
  remote:
    baseURL: https://ledger.example.com
    insecureTLS: true
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	t.Setenv(EnvAddr, "")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, BackendRemote, cfg.Ledger.Backend)
	assert.Equal(t, 1, cfg.Ledger.SchemaVersion)
	assert.Equal(t, 5*time.Second, cfg.Ledger.Timeout)
	assert.Equal(t, "https://ledger.example.com", cfg.Ledger.Remote.BaseURL)
	assert.True(t, cfg.Ledger.Remote.InsecureTLS)
	// defaults survive for keys not in the file
	assert.Equal(t, defaultDBPath, cfg.Ledger.DBPath)
}

func TestApplyEnv_Overrides(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(envMap(map[string]string{
		EnvBackend:       "remote",
		EnvRemoteURL:     "http://127.0.0.1:8080",
		EnvTimeout:       "250ms",
		EnvSchemaVersion: "1",
		EnvPrincipal:     "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		EnvSealKey:       "/etc/ssdwipe/seal.pem",
	}))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 250*time.Millisecond, cfg.Ledger.Timeout)
	assert.Equal(t, 1, cfg.Ledger.SchemaVersion)
	assert.True(t, cfg.Seal.Enabled)
	assert.Equal(t, "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", cfg.Ledger.MinterAddress().Hex())

	bad := Default()
	assert.Error(t, bad.ApplyEnv(envMap(map[string]string{EnvTimeout: "soon"})))
}

func TestValidate_Errors(t *testing.T) {
	cfg := Default()
	cfg.Ledger.Backend = "ethereum"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Ledger.Backend = BackendFabric
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ledger.fabric.peerEndpoint")

	cfg = Default()
	cfg.Ledger.SchemaVersion = 3
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Ledger.Principal = "alice"
	assert.Error(t, cfg.Validate())
	cfg.Ledger.Principal = "0x0000000000000000000000000000000000000000"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Seal.Enabled = true
	assert.Error(t, cfg.Validate())
	cfg.Seal.DevEphemeralKey = true
	assert.NoError(t, cfg.Validate())
}

func TestSealingKey_RoundTrip(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	pemBytes, err := EncodeSealingKey(key)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "seal.pem")
	require.NoError(t, os.WriteFile(path, pemBytes, 0o600))

	loaded, err := LoadSealingKey(SealConfig{KeyPath: path})
	require.NoError(t, err)
	assert.True(t, key.Equal(loaded))

	_, err = LoadSealingKey(SealConfig{})
	assert.Error(t, err)
	eph, err := LoadSealingKey(SealConfig{DevEphemeralKey: true})
	require.NoError(t, err)
	assert.NotNil(t, eph)

	_, err = ParseSealingKey([]byte("not pem"))
	assert.Error(t, err)
}

func TestExampleConfigParses(t *testing.T) {
	cfg := Default()
	require.NoError(t, yaml.Unmarshal(resources.ConfigExample, &cfg))
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "Org1MSP", cfg.Ledger.Fabric.MSPID)
	assert.Equal(t, 30*time.Second, cfg.Ledger.Timeout)
}
