/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

// Package remote talks to a ledger gateway over the HTTP ledger API.
package remote

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Stranger542/SSDWipe-BlockChain/internal/config"
	"github.com/Stranger542/SSDWipe-BlockChain/internal/domain"
	"github.com/Stranger542/SSDWipe-BlockChain/internal/domain/model"
)

const (
	RecordsPath = "/api/v1/ledger/records"

	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "ssdwipe/ledger-client"
	maxResponseBody  = 1 << 20
)

// ErrorBody is the JSON body of every non-2xx response of the ledger API.
type ErrorBody struct {
	Error string `json:"error"`
}

// RevokeRequest is the body of POST {RecordsPath}/{key}/revoke.
type RevokeRequest struct {
	Reason string `json:"reason"`
}

type LedgerClient struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     *log.Logger
}

func NewLedgerClient(cfg config.RemoteConfig) (*LedgerClient, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("ledger base URL is empty")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse ledger URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("unsupported ledger URL scheme %q", base.Scheme)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	transport := &http.Transport{}
	if base.Scheme == "https" {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: cfg.InsecureTLS}
	}

	return &LedgerClient{
		baseURL: base,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		logger: cfg.Logger,
	}, nil
}

func (c *LedgerClient) Submit(ctx context.Context, s *model.Submission) (*model.CertificateHandle, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: nil submission", domain.ErrRejected)
	}
	body, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEncoding, err)
	}

	var handle model.CertificateHandle
	if err := c.do(ctx, http.MethodPost, RecordsPath, body, http.StatusCreated, &handle); err != nil {
		return nil, err
	}
	if handle.TransactionReference == "" {
		return nil, fmt.Errorf("%w: ledger response missing transaction reference", domain.ErrUnavailable)
	}
	return &handle, nil
}

func (c *LedgerClient) GetByKey(ctx context.Context, key string) (*model.CommittedRecord, error) {
	var rec model.CommittedRecord
	if err := c.do(ctx, http.MethodGet, RecordsPath+"/"+url.PathEscape(key), nil, http.StatusOK, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (c *LedgerClient) Revoke(ctx context.Context, key, reason string) error {
	body, err := json.Marshal(RevokeRequest{Reason: reason})
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrEncoding, err)
	}
	return c.do(ctx, http.MethodPost, RecordsPath+"/"+url.PathEscape(key)+"/revoke", body, http.StatusNoContent, nil)
}

func (c *LedgerClient) do(ctx context.Context, method, path string, body []byte, want int, out any) error {
	target, err := c.baseURL.Parse(strings.TrimSuffix(c.baseURL.Path, "/") + path)
	if err != nil {
		return fmt.Errorf("build ledger URL: %w", err)
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", defaultUserAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", domain.ErrUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return fmt.Errorf("%w: read response: %v", domain.ErrUnavailable, err)
	}

	if resp.StatusCode != want {
		return c.statusError(resp, respBody)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%w: decode ledger response: %v", domain.ErrEncoding, err)
	}
	return nil
}

func (c *LedgerClient) statusError(resp *http.Response, body []byte) error {
	msg := strings.TrimSpace(string(body))
	var eb ErrorBody
	if json.Unmarshal(body, &eb) == nil && eb.Error != "" {
		msg = eb.Error
	}
	if c.logger != nil {
		c.logger.Printf("ledger %s %s: %s: %s", resp.Request.Method, resp.Request.URL.Path, resp.Status, msg)
	}
	return fmt.Errorf("%w: ledger returned %s: %s", StatusKind(resp.StatusCode), resp.Status, msg)
}

// StatusKind maps an HTTP status of the ledger API to its error kind.
func StatusKind(code int) error {
	switch {
	case code == http.StatusConflict:
		return domain.ErrDuplicateKey
	case code == http.StatusNotFound:
		return domain.ErrNotFound
	case code == http.StatusGone:
		return domain.ErrRevoked
	case code == http.StatusBadRequest, code == http.StatusUnauthorized,
		code == http.StatusForbidden, code == http.StatusUnprocessableEntity:
		return domain.ErrRejected
	default:
		return domain.ErrUnavailable
	}
}
