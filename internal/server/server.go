/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/Stranger542/SSDWipe-BlockChain/internal/config"
	"github.com/Stranger542/SSDWipe-BlockChain/internal/domain/service"
	"github.com/Stranger542/SSDWipe-BlockChain/internal/lifecycle"
)

// Gateway is a ledger the server exposes over the ledger API.
type Gateway interface {
	service.LedgerClient
	service.Revoker
}

// Server wires the HTTP listener and request handling stack.
type Server struct {
	handler *handler
	http    *http.Server
	logger  *log.Logger
}

// New constructs a Server. gateway may be nil, in which case the ledger API is not served.
func New(cfg config.ServerConfig, manager *lifecycle.Manager, gateway Gateway, logger *log.Logger) (*Server, error) {
	if manager == nil {
		return nil, errors.New("certificate manager is nil")
	}
	if logger == nil {
		logger = log.Default()
	}

	h := newHandler(manager, gateway, logger)

	httpSrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return &Server{
		handler: h,
		http:    httpSrv,
		logger:  logger,
	}, nil
}

// Handler returns the request router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe starts the HTTP server and blocks until it stops.
func (s *Server) ListenAndServe() error {
	s.logger.Printf("Run certificate server on %s.", s.http.Addr)

	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully takes down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
