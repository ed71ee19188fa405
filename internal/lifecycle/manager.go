/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package lifecycle

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Stranger542/SSDWipe-BlockChain/internal/certificate"
	"github.com/Stranger542/SSDWipe-BlockChain/internal/domain"
	"github.com/Stranger542/SSDWipe-BlockChain/internal/domain/model"
	"github.com/Stranger542/SSDWipe-BlockChain/internal/domain/service"
	"github.com/veraison/go-cose"
)

const defaultLedgerTimeout = 30 * time.Second

var ErrRevocationUnsupported = errors.New("ledger backend does not support revocation")

// Options configures a Manager. Only the ledger is required.
type Options struct {
	SchemaVersion model.SchemaVersion
	Timeout       time.Duration
	Sealer        *certificate.Sealer
	Keys          certificate.KeyResolver
	Logger        *log.Logger
}

// Manager drives certificates through build, local sealing, submission and
// confirmation, and answers lookups and verification requests.
type Manager struct {
	ledger  service.LedgerClient
	version model.SchemaVersion
	timeout time.Duration
	sealer  *certificate.Sealer
	keys    certificate.KeyResolver
	logger  *log.Logger
}

func NewManager(ledger service.LedgerClient, opts Options) (*Manager, error) {
	if ledger == nil {
		return nil, errors.New("ledger client is nil")
	}
	version := opts.SchemaVersion
	if version == 0 {
		version = model.DefaultSchemaVersion
	}
	if !version.Valid() {
		return nil, fmt.Errorf("unsupported schema version %d", int(version))
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultLedgerTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Manager{
		ledger:  ledger,
		version: version,
		timeout: timeout,
		sealer:  opts.Sealer,
		keys:    opts.Keys,
		logger:  logger,
	}, nil
}

func (m *Manager) SchemaVersion() model.SchemaVersion {
	return m.version
}

// IssueOptions selects the optional steps of Issue.
type IssueOptions struct {
	// Seal signs the record and stores the seal in digitalSignature.
	Seal bool
	// Artifact renders the human-readable certificate and records its digest on the ledger.
	Artifact bool
	// IssuedAt is the issue date printed on the artifact. Zero means now.
	IssuedAt time.Time
	// Retry checks the ledger before writing, so repeating an interrupted issue is safe.
	Retry bool
}

// Issue builds, optionally seals, and submits a certificate.
func (m *Manager) Issue(ctx context.Context, raw *model.RawReport, opts IssueOptions) *Outcome {
	inst := newInstance(m.logger)
	out := &Outcome{State: inst.state}
	defer func() { out.State = inst.state }()

	record, err := certificate.Build(raw, m.version)
	if err != nil {
		return m.reject(inst, out, err)
	}
	inst.key = record.Key()
	if err := inst.advance(StateBuilt); err != nil {
		return out.fail(err)
	}
	if !record.DurationConsistent() {
		m.logger.Printf("certificate %q: durationSeconds %d does not match %s..%s", inst.key, record.DurationSeconds, record.StartTime, record.EndTime)
	}

	if opts.Seal {
		if m.sealer == nil {
			return m.reject(inst, out, errors.New("no sealing key configured"))
		}
		sig, err := m.sealer.Seal(record)
		if err != nil {
			return m.reject(inst, out, err)
		}
		record.DigitalSignature = sig
	}
	if opts.Artifact {
		issuedAt := opts.IssuedAt
		if issuedAt.IsZero() {
			issuedAt = time.Now()
		}
		text, digest, err := certificate.SealArtifact(record, issuedAt)
		if err != nil {
			return m.reject(inst, out, err)
		}
		out.Artifact = string(text)
		out.ArtifactDigest = digest
		if err := inst.advance(StateLocallySealed); err != nil {
			return out.fail(err)
		}
	}

	recordDigest, err := certificate.DigestRecord(record)
	if err != nil {
		return m.reject(inst, out, err)
	}
	out.Record = record
	out.RecordDigest = recordDigest

	sub := &model.Submission{
		Record:         *record,
		RecordDigest:   recordDigest,
		ArtifactDigest: out.ArtifactDigest,
	}

	if opts.Retry {
		done, err := m.checkBeforeWrite(ctx, inst, out, sub)
		if err != nil || done {
			return out
		}
	}

	if err := inst.advance(StateSubmitted); err != nil {
		return out.fail(err)
	}
	handle, err := m.submit(ctx, sub)
	if err == nil {
		out.Handle = handle
		out.Success = true
		_ = inst.advance(StateConfirmed)
		return out
	}

	switch {
	case errors.Is(err, domain.ErrUnavailable):
		// The submit may have committed anyway; the ledger is authoritative.
		m.logger.Printf("certificate %q: submit outcome unknown: %v", inst.key, err)
		if committed, lookupErr := m.getByKey(ctx, sub.Key()); lookupErr == nil && m.sameSubmission(ctx, committed, sub) {
			return m.confirmExisting(inst, out, committed)
		}
		_ = inst.advance(StateFailed)
		return out.fail(err)
	default:
		return m.reject(inst, out, err)
	}
}

// checkBeforeWrite reports done=true when the outcome is already decided.
func (m *Manager) checkBeforeWrite(ctx context.Context, inst *instance, out *Outcome, sub *model.Submission) (bool, error) {
	committed, err := m.getByKey(ctx, sub.Key())
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return false, nil
	case err != nil:
		_ = inst.advance(StateFailed)
		out.fail(err)
		return true, err
	case m.sameSubmission(ctx, committed, sub):
		m.confirmExisting(inst, out, committed)
		return true, nil
	default:
		err := fmt.Errorf("%w: %s already holds a different record", domain.ErrDuplicateKey, sub.Key())
		m.reject(inst, out, err)
		return true, err
	}
}

// confirmExisting reports the committed record as the result of this issue.
// A freshly rendered artifact is only returned when the ledger holds its digest.
func (m *Manager) confirmExisting(inst *instance, out *Outcome, committed *model.CommittedRecord) *Outcome {
	out.Record = &committed.Record
	out.RecordDigest = committed.RecordDigest
	if out.Artifact != "" {
		digest, err := certificate.DigestText([]byte(out.Artifact))
		if err != nil || digest != committed.ArtifactDigest {
			m.logger.Printf("certificate %q: discarding rendered artifact, ledger holds artifact digest %q", inst.key, committed.ArtifactDigest)
			out.Artifact = ""
		}
	}
	out.ArtifactDigest = committed.ArtifactDigest
	out.Handle = &model.CertificateHandle{
		TransactionReference: committed.TransactionReference,
		CertificateKey:       committed.Record.Key(),
	}
	out.Committed = committed
	out.Success = true
	_ = inst.advance(StateConfirmed)
	return out
}

func (m *Manager) reject(inst *instance, out *Outcome, err error) *Outcome {
	_ = inst.advance(StateRejected)
	m.logger.Printf("certificate %q rejected: %v", inst.key, err)
	return out.fail(err)
}

// sameSubmission reports whether committed is the record sub would write.
// Seals are randomized, so a sealed record also matches a committed one with
// the same signing digest whose own seal verifies.
func (m *Manager) sameSubmission(ctx context.Context, committed *model.CommittedRecord, sub *model.Submission) bool {
	if committed == nil {
		return false
	}
	if committed.RecordDigest == sub.RecordDigest {
		return true
	}
	if sub.Record.DigitalSignature == "" || committed.Record.DigitalSignature == "" {
		return false
	}
	want, err := certificate.SigningDigest(&sub.Record)
	if err != nil {
		return false
	}
	got, err := certificate.SigningDigest(&committed.Record)
	if err != nil || !bytes.Equal(want, got) {
		return false
	}
	if err := certificate.VerifySeal(ctx, &committed.Record, sealKeys{m.sealer, m.keys}); err != nil {
		m.logger.Printf("certificate %q: committed seal does not verify: %v", sub.Key(), err)
		return false
	}
	return true
}

// sealKeys resolves the manager's own sealing key before the keyring.
type sealKeys struct {
	sealer *certificate.Sealer
	keys   certificate.KeyResolver
}

func (k sealKeys) ResolveKey(ctx context.Context, kid []byte) (*cose.Key, error) {
	if k.sealer != nil && bytes.Equal(kid, k.sealer.KID()) {
		return k.sealer.PublicKey(), nil
	}
	if k.keys == nil {
		return nil, nil
	}
	return k.keys.ResolveKey(ctx, kid)
}

// Lookup fetches the committed record for key.
func (m *Manager) Lookup(ctx context.Context, key string) *Outcome {
	out := &Outcome{}
	committed, err := m.getByKey(ctx, key)
	if err != nil {
		return out.fail(m.describe(key, err))
	}
	out.Success = true
	out.Committed = committed
	out.Record = &committed.Record
	out.RecordDigest = committed.RecordDigest
	out.ArtifactDigest = committed.ArtifactDigest
	out.Revoked = committed.Revoked()
	out.Handle = &model.CertificateHandle{
		TransactionReference: committed.TransactionReference,
		CertificateKey:       key,
	}
	return out
}

// VerifyArtifact is hash mode: the saved artifact is re-hashed and compared with
// the digest recorded on the ledger.
func (m *Manager) VerifyArtifact(ctx context.Context, key string, artifact []byte) *Outcome {
	out := m.Lookup(ctx, key)
	if !out.Success {
		return out
	}
	if out.Committed.ArtifactDigest == "" {
		return out.fail(fmt.Errorf("%w: no artifact digest recorded for %s", domain.ErrNotFound, key))
	}
	verdict, err := certificate.CompareArtifact(out.Committed.ArtifactDigest, artifact)
	if err != nil {
		return out.fail(err)
	}
	return m.finishVerification(key, out, verdict)
}

// VerifyRecord is field mode: the reference record is compared field by field
// with the committed one. Empty fields selects the default subset.
func (m *Manager) VerifyRecord(ctx context.Context, key string, reference *model.WipeCertificateRecord, fields []string) *Outcome {
	out := m.Lookup(ctx, key)
	if !out.Success {
		return out
	}
	verdict, err := certificate.CompareFields(&out.Committed.Record, reference, fields)
	if err != nil {
		return out.fail(err)
	}
	return m.finishVerification(key, out, verdict)
}

// VerifyReport builds a reference record from a raw report using the committed
// record's schema version and verifies it in field mode.
func (m *Manager) VerifyReport(ctx context.Context, key string, raw *model.RawReport, full bool) *Outcome {
	out := m.Lookup(ctx, key)
	if !out.Success {
		return out
	}
	reference, err := certificate.Build(raw, out.Committed.Record.SchemaVersion)
	if err != nil {
		return out.fail(err)
	}
	fields := certificate.DefaultCompareFields
	if full {
		fields = certificate.AllCompareFields
		if reference.DigitalSignature == "" {
			// a plain report cannot carry a seal added at issue time
			fields = fields[:len(fields)-1]
		}
	}
	verdict, err := certificate.CompareFields(&out.Committed.Record, reference, fields)
	if err != nil {
		return out.fail(err)
	}
	return m.finishVerification(key, out, verdict)
}

// VerifySignature checks the seal stored with the committed record.
func (m *Manager) VerifySignature(ctx context.Context, key string) *Outcome {
	out := m.Lookup(ctx, key)
	if !out.Success {
		return out
	}
	if m.keys == nil {
		return out.fail(errors.New("no sealing keyring configured"))
	}
	verified := false
	out.SignatureVerified = &verified
	if err := certificate.VerifySeal(ctx, &out.Committed.Record, m.keys); err != nil {
		return out.fail(err)
	}
	verified = true
	if out.Revoked {
		return out.fail(m.describe(key, domain.ErrRevoked))
	}
	return out
}

// Revoke sets the revocation flag for key. Stored fields are retained.
func (m *Manager) Revoke(ctx context.Context, key, reason string) *Outcome {
	out := &Outcome{}
	revoker, ok := m.ledger.(service.Revoker)
	if !ok {
		return out.fail(ErrRevocationUnsupported)
	}
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	if err := revoker.Revoke(ctx, key, reason); err != nil {
		return out.fail(m.describe(key, asUnavailable(err)))
	}
	m.logger.Printf("certificate %q revoked: %s", key, reason)
	return m.Lookup(ctx, key)
}

func (m *Manager) finishVerification(key string, out *Outcome, verdict certificate.VerificationVerdict) *Outcome {
	out.applyVerdict(verdict)
	if !verdict.Matched() {
		out.Success = false
		out.Error = fmt.Sprintf("certificate %s does not match the ledger record", key)
		return out
	}
	if out.Revoked {
		return out.fail(m.describe(key, domain.ErrRevoked))
	}
	return out
}

func (m *Manager) describe(key string, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return fmt.Errorf("certificate %s not found: %w", key, err)
	case errors.Is(err, domain.ErrRevoked):
		return fmt.Errorf("certificate %s has been revoked: %w", key, err)
	}
	return err
}

func (m *Manager) submit(ctx context.Context, sub *model.Submission) (*model.CertificateHandle, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	handle, err := m.ledger.Submit(ctx, sub)
	return handle, asUnavailable(err)
}

func (m *Manager) getByKey(ctx context.Context, key string) (*model.CommittedRecord, error) {
	if key == "" {
		return nil, domain.ErrNotFound
	}
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	committed, err := m.ledger.GetByKey(ctx, key)
	return committed, asUnavailable(err)
}

// asUnavailable maps an expired or cancelled call onto ErrUnavailable.
func asUnavailable(err error) error {
	if err == nil || errors.Is(err, domain.ErrUnavailable) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	}
	return err
}
