/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package fabric

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Stranger542/SSDWipe-BlockChain/internal/domain"
)

// classify maps gateway and chaincode failures to domain error kinds.
// Chaincode errors only surface as text, so the messages are matched as well.
func classify(fn string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %s: %v", domain.ErrUnavailable, fn, err)
	}

	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("%w: %s: %v", domain.ErrUnavailable, fn, err)
	}
	msg := detailMessages(st)

	var kind error
	switch {
	case strings.Contains(msg, "already exists"):
		kind = domain.ErrDuplicateKey
	case strings.Contains(msg, "does not exist"):
		kind = domain.ErrNotFound
	case strings.Contains(msg, "already revoked"):
		kind = domain.ErrRevoked
	default:
		switch st.Code() {
		case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled, codes.ResourceExhausted, codes.Internal:
			kind = domain.ErrUnavailable
		case codes.NotFound:
			kind = domain.ErrNotFound
		case codes.AlreadyExists:
			kind = domain.ErrDuplicateKey
		default:
			kind = domain.ErrRejected
		}
	}
	return fmt.Errorf("%w: %s: %s", kind, fn, msg)
}

// detailMessages joins the status message with the per-peer messages the gateway attaches.
func detailMessages(st *status.Status) string {
	parts := []string{st.Message()}
	for _, d := range st.Details() {
		if m, ok := d.(interface{ GetMessage() string }); ok && m.GetMessage() != "" {
			parts = append(parts, m.GetMessage())
		}
	}
	return strings.Join(parts, "; ")
}
