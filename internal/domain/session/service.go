package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/psyhead/clinic/internal/platform/authz"
)

// DefaultPaymentStatus is the status a new session starts with when none
// is given, and the value forced onto writes by blocked callers.
const DefaultPaymentStatus = "pending"

type Service struct {
	repo     Repository
	engine   *authz.Engine
	redactor *authz.Redactor
}

func NewService(repo Repository, engine *authz.Engine, redactor *authz.Redactor) *Service {
	return &Service{repo: repo, engine: engine, redactor: redactor}
}

func (s *Service) authorize(ctx context.Context, identity authz.Identity, kind authz.ResourceKind, id uuid.UUID) error {
	d, err := s.engine.Authorize(ctx, identity, kind, id)
	if err != nil {
		return err
	}
	if !d.Granted {
		return authz.ErrNotFound
	}
	return nil
}

// view converts a session to its response payload with the caller's
// redaction policies applied. Blocked fields are absent, not nulled.
func (s *Service) view(identity authz.Identity, sess *Session) (map[string]any, error) {
	raw, err := json.Marshal(sess)
	if err != nil {
		return nil, err
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	return s.redactor.RedactPayload(identity, authz.PayloadSession, payload), nil
}

// applyWritePolicies forces redacted payment fields to their safe values
// so a blocked caller can never smuggle payment data in through a write.
func (s *Service) applyWritePolicies(identity authz.Identity, sess *Session) {
	if _, blocked := s.redactor.WriteDefault(identity, authz.PayloadSession, "fee_amount"); blocked {
		sess.FeeAmount = nil
	}
	if v, blocked := s.redactor.WriteDefault(identity, authz.PayloadSession, "payment_status"); blocked {
		if str, ok := v.(string); ok {
			sess.PaymentStatus = &str
		} else {
			sess.PaymentStatus = nil
		}
	}
}

// paymentBlocked reports whether the caller's payment fields are redacted.
// Blocked callers update clinical columns only; the stored payment data
// stays as it is.
func (s *Service) paymentBlocked(identity authz.Identity) bool {
	return s.redactor.FieldBlocked(identity, authz.PayloadSession, "fee_amount") ||
		s.redactor.FieldBlocked(identity, authz.PayloadSession, "payment_status")
}

// Create schedules a session. Access is checked against the patient the
// session belongs to, so a caller can only book into records they may see.
func (s *Service) Create(ctx context.Context, identity authz.Identity, sess *Session) (map[string]any, error) {
	if sess.PatientID == uuid.Nil {
		return nil, fmt.Errorf("patient_id is required")
	}
	if sess.ScheduledAt.IsZero() {
		return nil, fmt.Errorf("scheduled_at is required")
	}
	if err := s.authorize(ctx, identity, authz.KindPatient, sess.PatientID); err != nil {
		return nil, err
	}

	s.applyWritePolicies(identity, sess)
	if sess.PaymentStatus == nil {
		status := DefaultPaymentStatus
		sess.PaymentStatus = &status
	}

	if err := s.repo.Create(ctx, sess); err != nil {
		return nil, err
	}
	created, err := s.repo.GetByID(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	return s.view(identity, created)
}

func (s *Service) Get(ctx context.Context, identity authz.Identity, id uuid.UUID) (map[string]any, error) {
	if err := s.authorize(ctx, identity, authz.KindSession, id); err != nil {
		return nil, err
	}
	sess, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(identity, sess)
}

func (s *Service) Update(ctx context.Context, identity authz.Identity, sess *Session) (map[string]any, error) {
	if sess.ScheduledAt.IsZero() {
		return nil, fmt.Errorf("scheduled_at is required")
	}
	if err := s.authorize(ctx, identity, authz.KindSession, sess.ID); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, sess, !s.paymentBlocked(identity)); err != nil {
		return nil, err
	}
	updated, err := s.repo.GetByID(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	return s.view(identity, updated)
}

func (s *Service) Delete(ctx context.Context, identity authz.Identity, id uuid.UUID) error {
	if err := s.authorize(ctx, identity, authz.KindSession, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// ListByPatient returns a patient's sessions, newest first, with the
// caller's redaction policies applied to each entry.
func (s *Service) ListByPatient(ctx context.Context, identity authz.Identity, patientID uuid.UUID) ([]map[string]any, error) {
	if err := s.authorize(ctx, identity, authz.KindPatient, patientID); err != nil {
		return nil, err
	}
	sessions, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(sessions))
	for _, sess := range sessions {
		v, err := s.view(identity, sess)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Agenda returns the calendar entries for every session the caller may
// see. Entries carry no payment data, so no redaction applies.
func (s *Service) Agenda(ctx context.Context, identity authz.Identity) ([]*AgendaEntry, error) {
	scope := s.engine.ScopeFor(ctx, identity)
	return s.repo.Agenda(ctx, scope)
}
