/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package server

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/Stranger542/SSDWipe-BlockChain/internal/certificate"
	"github.com/Stranger542/SSDWipe-BlockChain/internal/domain"
	"github.com/Stranger542/SSDWipe-BlockChain/internal/domain/model"
	"github.com/Stranger542/SSDWipe-BlockChain/internal/infra/remote"
	"github.com/Stranger542/SSDWipe-BlockChain/internal/lifecycle"
)

const (
	maxRequestBodyBytes = 1 << 20 // 1 MiB is far above any wipe report.

	certificatesPath = "/api/v1/certificates"
)

type handler struct {
	manager *lifecycle.Manager
	gateway Gateway
	mux     *http.ServeMux
	logger  *log.Logger
}

type response struct {
	status      int
	body        []byte
	contentType string
}

type revokeRequest = remote.RevokeRequest

func newHandler(manager *lifecycle.Manager, gateway Gateway, logger *log.Logger) *handler {
	h := &handler{
		manager: manager,
		gateway: gateway,
		mux:     http.NewServeMux(),
		logger:  logger,
	}

	h.mux.HandleFunc("POST "+certificatesPath, h.issue)
	h.mux.HandleFunc("GET "+certificatesPath+"/{key}", h.lookup)
	h.mux.HandleFunc("POST "+certificatesPath+"/{key}/verify-artifact", h.verifyArtifact)
	h.mux.HandleFunc("POST "+certificatesPath+"/{key}/verify-record", h.verifyRecord)
	h.mux.HandleFunc("GET "+certificatesPath+"/{key}/verify-signature", h.verifySignature)
	h.mux.HandleFunc("POST "+certificatesPath+"/{key}/revoke", h.revoke)

	if gateway != nil {
		h.mux.HandleFunc("POST "+remote.RecordsPath, h.ledgerSubmit)
		h.mux.HandleFunc("GET "+remote.RecordsPath+"/{key}", h.ledgerGet)
		h.mux.HandleFunc("POST "+remote.RecordsPath+"/{key}/revoke", h.ledgerRevoke)
	}
	return h
}

func (h *handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := r.Header.Get("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	w.Header().Set("X-Request-ID", requestID)
	for k, v := range defaultHeaders {
		w.Header().Set(k, v)
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	h.mux.ServeHTTP(w, r)
}

func (h *handler) issue(w http.ResponseWriter, r *http.Request) {
	opts := lifecycle.IssueOptions{}
	var err error
	if opts.Seal, err = boolParam(r, "seal"); err == nil {
		if opts.Artifact, err = boolParam(r, "artifact"); err == nil {
			opts.Retry, err = boolParam(r, "retry")
		}
	}
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	raw, ok := h.readReport(w, r)
	if !ok {
		return
	}
	out := h.manager.Issue(r.Context(), raw, opts)
	status := statusFor(out)
	if out.Success {
		status = http.StatusCreated
		h.logger.Printf("certificate %s confirmed in %s", out.Handle.CertificateKey, out.Handle.TransactionReference)
	}
	h.writeJSON(w, status, out)
}

func (h *handler) lookup(w http.ResponseWriter, r *http.Request) {
	out := h.manager.Lookup(r.Context(), r.PathValue("key"))
	h.writeJSON(w, statusFor(out), out)
}

func (h *handler) verifyArtifact(w http.ResponseWriter, r *http.Request) {
	body, ok := h.readBody(w, r)
	if !ok {
		return
	}
	out := h.manager.VerifyArtifact(r.Context(), r.PathValue("key"), body)
	h.writeJSON(w, statusFor(out), out)
}

func (h *handler) verifyRecord(w http.ResponseWriter, r *http.Request) {
	full, err := boolParam(r, "full")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	raw, ok := h.readReport(w, r)
	if !ok {
		return
	}
	out := h.manager.VerifyReport(r.Context(), r.PathValue("key"), raw, full)
	h.writeJSON(w, statusFor(out), out)
}

func (h *handler) verifySignature(w http.ResponseWriter, r *http.Request) {
	out := h.manager.VerifySignature(r.Context(), r.PathValue("key"))
	h.writeJSON(w, statusFor(out), out)
}

func (h *handler) revoke(w http.ResponseWriter, r *http.Request) {
	var req revokeRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	out := h.manager.Revoke(r.Context(), r.PathValue("key"), req.Reason)
	h.writeJSON(w, statusFor(out), out)
}

func (h *handler) ledgerSubmit(w http.ResponseWriter, r *http.Request) {
	var sub model.Submission
	if !h.decodeJSON(w, r, &sub) {
		return
	}
	handle, err := h.gateway.Submit(r.Context(), &sub)
	if err != nil {
		h.logger.Printf("ledger submit %q: %v", sub.Key(), err)
		h.writeError(w, statusForError(err), err.Error())
		return
	}
	h.writeJSON(w, http.StatusCreated, handle)
}

func (h *handler) ledgerGet(w http.ResponseWriter, r *http.Request) {
	rec, err := h.gateway.GetByKey(r.Context(), r.PathValue("key"))
	if err != nil {
		h.writeError(w, statusForError(err), err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, rec)
}

func (h *handler) ledgerRevoke(w http.ResponseWriter, r *http.Request) {
	var req revokeRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if err := h.gateway.Revoke(r.Context(), r.PathValue("key"), req.Reason); err != nil {
		h.writeError(w, statusForError(err), err.Error())
		return
	}
	h.writeResponse(w, response{status: http.StatusNoContent})
}

func (h *handler) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return nil, false
		}
		h.logger.Printf("failed reading request body: %v", err)
		h.writeError(w, http.StatusBadRequest, "failed to read request body")
		return nil, false
	}
	return body, true
}

func (h *handler) readReport(w http.ResponseWriter, r *http.Request) (*model.RawReport, bool) {
	body, ok := h.readBody(w, r)
	if !ok {
		return nil, false
	}
	raw, err := certificate.ParseReport(body)
	if err != nil {
		h.writeJSON(w, statusForError(err), &lifecycle.Outcome{Error: err.Error()})
		return nil, false
	}
	return raw, true
}

func (h *handler) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	body, ok := h.readBody(w, r)
	if !ok {
		return false
	}
	if len(body) == 0 {
		return true
	}
	if err := json.Unmarshal(body, v); err != nil {
		h.writeError(w, http.StatusBadRequest, "malformed JSON body: "+err.Error())
		return false
	}
	return true
}

func boolParam(r *http.Request, name string) (bool, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, errors.New("query parameter " + name + " must be a boolean")
	}
	return b, nil
}

// statusFor maps an outcome to an HTTP status. A mismatch is a valid answer and
// is reported with 200.
func statusFor(out *lifecycle.Outcome) int {
	if out.Success || out.Err() == nil {
		return http.StatusOK
	}
	return statusForError(out.Err())
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrDuplicateKey):
		return http.StatusConflict
	case errors.Is(err, domain.ErrRevoked):
		return http.StatusGone
	case errors.Is(err, domain.ErrEncoding):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrRejected):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, lifecycle.ErrRevocationUnsupported):
		return http.StatusNotImplemented
	case errors.Is(err, certificate.ErrNotSealed), errors.Is(err, certificate.ErrSealUnsupported),
		errors.Is(err, certificate.ErrKidIsMissing), errors.Is(err, certificate.ErrUnknownKey),
		errors.Is(err, certificate.ErrInvalidSeal), errors.Is(err, certificate.ErrDigestMismatch):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		h.logger.Printf("failed encoding response: %v", err)
		h.writeResponse(w, response{status: http.StatusInternalServerError})
		return
	}
	h.writeResponse(w, response{
		status:      status,
		body:        append(body, '\n'),
		contentType: "application/json",
	})
}

func (h *handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, remote.ErrorBody{Error: msg})
}

func (h *handler) writeResponse(w http.ResponseWriter, resp response) {
	if len(resp.body) > 0 {
		w.Header().Set("Content-Type", resp.contentType)
		w.Header().Set("Content-Length", strconv.Itoa(len(resp.body)))
		w.WriteHeader(resp.status)
		if _, err := w.Write(resp.body); err != nil {
			h.logger.Printf("failed writing response body: %v", err)
		}
		return
	}

	w.WriteHeader(resp.status)
}

var defaultHeaders = map[string]string{
	"Cache-Control":           "no-store",
	"X-Content-Type-Options":  "nosniff",
	"Content-Security-Policy": "default-src 'none'",
	"Referrer-Policy":         "no-referrer",
}
