/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

// Package app assembles the certificate manager and its ledger backend from configuration.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/Stranger542/SSDWipe-BlockChain/internal/certificate"
	"github.com/Stranger542/SSDWipe-BlockChain/internal/config"
	"github.com/Stranger542/SSDWipe-BlockChain/internal/domain/model"
	"github.com/Stranger542/SSDWipe-BlockChain/internal/domain/service"
	"github.com/Stranger542/SSDWipe-BlockChain/internal/infra/fabric"
	"github.com/Stranger542/SSDWipe-BlockChain/internal/infra/remote"
	"github.com/Stranger542/SSDWipe-BlockChain/internal/infra/sqlite"
	"github.com/Stranger542/SSDWipe-BlockChain/internal/lifecycle"
	"github.com/ethereum/go-ethereum/common"
)

type App struct {
	Manager *lifecycle.Manager
	Keys    *lifecycle.Keyring
	// Local is the SQLite ledger when that backend is selected, nil otherwise.
	// The HTTP server exposes it as a ledger gateway.
	Local  *sqlite.Ledger
	Sealer *certificate.Sealer
	Logger *log.Logger

	db     *sql.DB
	fabric *fabric.LedgerClient
}

// Open initialises the local database, the selected ledger backend and the
// sealing key. The local database always holds the trusted sealing keys.
func Open(ctx context.Context, cfg config.Config) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	db, err := sqlite.InitDB(ctx, cfg.Ledger.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	a := &App{
		Keys:   lifecycle.NewKeyring(sqlite.NewSealingKeyRepository(db)),
		Logger: logger,
		db:     db,
	}

	ledger, err := a.openLedger(ctx, cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	if cfg.Seal.Enabled {
		key, err := config.LoadSealingKey(cfg.Seal)
		if err != nil {
			a.Close()
			return nil, err
		}
		if a.Sealer, err = certificate.NewSealer(key); err != nil {
			a.Close()
			return nil, err
		}
		if _, err := a.Keys.Trust(ctx, a.Sealer.PublicKey()); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to trust sealing key: %w", err)
		}
	}

	a.Manager, err = lifecycle.NewManager(ledger, lifecycle.Options{
		SchemaVersion: model.SchemaVersion(cfg.Ledger.SchemaVersion),
		Timeout:       cfg.Ledger.Timeout,
		Sealer:        a.Sealer,
		Keys:          a.Keys,
		Logger:        logger,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	logger.Printf("ledger backend %s, schema v%d", cfg.Ledger.Backend, cfg.Ledger.SchemaVersion)
	return a, nil
}

func (a *App) openLedger(ctx context.Context, cfg config.Config, logger *log.Logger) (service.LedgerClient, error) {
	switch cfg.Ledger.Backend {
	case config.BackendSQLite:
		minter := cfg.Ledger.MinterAddress()
		if minter == (common.Address{}) {
			var err error
			if minter, err = sqlite.LocalPrincipal(ctx, a.db); err != nil {
				return nil, err
			}
		}
		a.Local = sqlite.NewLedger(a.db, minter, logger)
		return a.Local, nil
	case config.BackendRemote:
		rc := cfg.Ledger.Remote
		rc.Timeout = cfg.Ledger.Timeout
		rc.Logger = logger
		return remote.NewLedgerClient(rc)
	case config.BackendFabric:
		fc := cfg.Ledger.Fabric
		fc.Timeout = cfg.Ledger.Timeout
		fc.Logger = logger
		client, err := fabric.NewLedgerClient(fc)
		if err != nil {
			return nil, err
		}
		a.fabric = client
		return client, nil
	default:
		return nil, fmt.Errorf("unknown ledger backend %q", cfg.Ledger.Backend)
	}
}

func (a *App) Close() error {
	var errs []error
	if a.fabric != nil {
		errs = append(errs, a.fabric.Close())
	}
	errs = append(errs, sqlite.CloseDB(a.db))
	return errors.Join(errs...)
}
