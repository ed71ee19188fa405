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
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Stranger542/SSDWipe-BlockChain/internal/domain"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"duplicate", status.Error(codes.Aborted, "chaincode response 500, certificate SN123 already exists"), domain.ErrDuplicateKey},
		{"missing", status.Error(codes.Unknown, "certificate SN404 does not exist"), domain.ErrNotFound},
		{"revoked twice", status.Error(codes.Aborted, "certificate SN123 is already revoked"), domain.ErrRevoked},
		{"peer down", status.Error(codes.Unavailable, "connection refused"), domain.ErrUnavailable},
		{"grpc deadline", status.Error(codes.DeadlineExceeded, "timed out"), domain.ErrUnavailable},
		{"endorsement policy", status.Error(codes.Aborted, "endorsement policy failure"), domain.ErrRejected},
		{"bad args", status.Error(codes.InvalidArgument, "wrong number of args"), domain.ErrRejected},
		{"denied", status.Error(codes.PermissionDenied, "access denied"), domain.ErrRejected},
		{"context", fmt.Errorf("wrapped: %w", context.DeadlineExceeded), domain.ErrUnavailable},
		{"plain", errors.New("socket closed"), domain.ErrUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := classify(FnCreate, tc.err)
			if !errors.Is(got, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}
