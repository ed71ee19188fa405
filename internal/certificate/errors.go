/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package certificate

import "errors"

var (
	ErrNotSealed       = errors.New("record carries no seal")
	ErrSealUnsupported = errors.New("schema version does not carry a seal")
	ErrKidIsMissing    = errors.New("kid is missing")
	ErrUnknownKey      = errors.New("sealing key not trusted")
	ErrInvalidSeal     = errors.New("seal verification failed")
	ErrDigestMismatch  = errors.New("seal does not cover this record")
)
