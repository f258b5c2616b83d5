package medication

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/psyhead/clinic/internal/platform/authz"
)

type Service struct {
	repo   Repository
	engine *authz.Engine
}

func NewService(repo Repository, engine *authz.Engine) *Service {
	return &Service{repo: repo, engine: engine}
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

func (s *Service) validate(m *Medication) error {
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if m.StartDate.IsZero() {
		return fmt.Errorf("start_date is required")
	}
	return nil
}

func (s *Service) Create(ctx context.Context, identity authz.Identity, m *Medication) (*Medication, error) {
	if err := s.validate(m); err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, identity, authz.KindPatient, m.PatientID); err != nil {
		return nil, err
	}
	m.Name = strings.TrimSpace(m.Name)
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, m.ID)
}

func (s *Service) Update(ctx context.Context, identity authz.Identity, m *Medication) (*Medication, error) {
	if err := s.validate(m); err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, identity, authz.KindMedication, m.ID); err != nil {
		return nil, err
	}
	m.Name = strings.TrimSpace(m.Name)
	if err := s.repo.Update(ctx, m); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, m.ID)
}

func (s *Service) Delete(ctx context.Context, identity authz.Identity, id uuid.UUID) error {
	if err := s.authorize(ctx, identity, authz.KindMedication, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) ListByPatient(ctx context.Context, identity authz.Identity, patientID uuid.UUID) ([]*Medication, error) {
	if err := s.authorize(ctx, identity, authz.KindPatient, patientID); err != nil {
		return nil, err
	}
	return s.repo.ListByPatient(ctx, patientID)
}
