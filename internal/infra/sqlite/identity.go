/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package sqlite

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// LocalPrincipal returns the minter address stored in the ledger file,
// generating and storing a random one on first use.
func LocalPrincipal(ctx context.Context, db DBTX) (common.Address, error) {
	addr, err := readPrincipal(ctx, db)
	if err == nil {
		return addr, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return common.Address{}, err
	}

	var b [common.AddressLength]byte
	for addr == (common.Address{}) {
		if _, err := rand.Read(b[:]); err != nil {
			return common.Address{}, err
		}
		addr = common.BytesToAddress(b[:])
	}
	// a concurrent opener may win; either way the stored row is returned
	if _, err := db.ExecContext(ctx, `INSERT OR IGNORE INTO ledger_identity (id, minter) VALUES (1, ?)`, addr.Hex()); err != nil {
		return common.Address{}, fmt.Errorf("store ledger principal: %w", translateError(err))
	}
	return readPrincipal(ctx, db)
}

func readPrincipal(ctx context.Context, db DBTX) (common.Address, error) {
	var hex string
	if err := db.QueryRowContext(ctx, `SELECT minter FROM ledger_identity WHERE id = 1`).Scan(&hex); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.Address{}, err
		}
		return common.Address{}, fmt.Errorf("read ledger principal: %w", translateError(err))
	}
	if !common.IsHexAddress(hex) {
		return common.Address{}, fmt.Errorf("stored ledger principal %q is not a hex address", hex)
	}
	return common.HexToAddress(hex), nil
}
