package patient

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/psyhead/clinic/internal/platform/authz"
)

// ErrLoginLinked is returned when a patient login is already attached to
// another patient record.
var ErrLoginLinked = errors.New("login already linked to a patient record")

type Service struct {
	repo   Repository
	engine *authz.Engine
}

func NewService(repo Repository, engine *authz.Engine) *Service {
	return &Service{repo: repo, engine: engine}
}

func (s *Service) validate(p *Patient) error {
	if strings.TrimSpace(p.FullName) == "" {
		return fmt.Errorf("full_name is required")
	}
	return nil
}

// Create registers a new patient record. Therapists always own the
// records they create; admins may hand ownership to any therapist or
// leave the record unassigned.
func (s *Service) Create(ctx context.Context, creator authz.Identity, p *Patient) (*Patient, error) {
	if err := s.validate(p); err != nil {
		return nil, err
	}
	if creator.Role == authz.RoleTherapist {
		owner := creator.ActorID
		p.TherapistID = &owner
	}
	p.FullName = strings.TrimSpace(p.FullName)
	p.LoginID = nil
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, p.ID)
}

// authorize runs the record-level access check. Denied and unresolvable
// collapse into the same not-found error so callers cannot distinguish a
// record they may not see from one that does not exist.
func (s *Service) authorize(ctx context.Context, identity authz.Identity, id uuid.UUID) error {
	d, err := s.engine.Authorize(ctx, identity, authz.KindPatient, id)
	if err != nil {
		return err
	}
	if !d.Granted {
		return authz.ErrNotFound
	}
	return nil
}

func (s *Service) Get(ctx context.Context, identity authz.Identity, id uuid.UUID) (*Patient, error) {
	if err := s.authorize(ctx, identity, id); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, identity authz.Identity, p *Patient) (*Patient, error) {
	if err := s.validate(p); err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, identity, p.ID); err != nil {
		return nil, err
	}
	p.FullName = strings.TrimSpace(p.FullName)
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, p.ID)
}

func (s *Service) Delete(ctx context.Context, identity authz.Identity, id uuid.UUID) error {
	if err := s.authorize(ctx, identity, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// List returns the patient records the identity may see, scoped by the
// same rules that govern record-level access.
func (s *Service) List(ctx context.Context, identity authz.Identity, limit, offset int) ([]*Patient, int, error) {
	scope := s.engine.ScopeFor(ctx, identity)
	return s.repo.List(ctx, scope, limit, offset)
}

// Assign sets a record's owning therapist and linked login. Admin only;
// the handler enforces the role gate.
func (s *Service) Assign(ctx context.Context, id uuid.UUID, a Assignment) (*Patient, error) {
	p, err := s.repo.Assign(ctx, id, a)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return nil, ErrLoginLinked
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}
