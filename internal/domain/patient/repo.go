package patient

import (
	"context"

	"github.com/google/uuid"

	"github.com/psyhead/clinic/internal/platform/authz"
)

// Repository persists patient records. List filters through the caller's
// scope predicate so the database never returns a record the caller could
// not read individually.
type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, scope authz.ScopePredicate, limit, offset int) ([]*Patient, int, error)
	Assign(ctx context.Context, id uuid.UUID, a Assignment) (*Patient, error)
}
