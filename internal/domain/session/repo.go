package session

import (
	"context"

	"github.com/google/uuid"

	"github.com/psyhead/clinic/internal/platform/authz"
)

// Repository persists sessions. Update takes includePayment so callers
// whose payment fields are redacted can rewrite the clinical columns
// without touching the stored fee and payment status.
type Repository interface {
	Create(ctx context.Context, s *Session) error
	GetByID(ctx context.Context, id uuid.UUID) (*Session, error)
	Update(ctx context.Context, s *Session, includePayment bool) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Session, error)
	Agenda(ctx context.Context, scope authz.ScopePredicate) ([]*AgendaEntry, error)
}
