/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package model

import "time"

// SealingKey is a public COSE key trusted to verify certificate seals.
type SealingKey struct {
	ID        int64
	KID       []byte
	PublicKey []byte // CBOR-encoded COSE_Key
	CreatedAt time.Time
	RevokedAt *time.Time
}
