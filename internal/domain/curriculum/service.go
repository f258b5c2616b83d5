package curriculum

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/psyhead/clinic/internal/platform/authz"
	"github.com/psyhead/clinic/internal/platform/db"
)

// ErrForbidden is returned when a caller may see a target but not delete
// it. Targets are shared clinic-wide, so unlike patient-scoped resources
// their existence is not hidden on denial.
var ErrForbidden = errors.New("forbidden")

// ErrProgramMismatch is returned when an attached program does not belong
// to the folder's patient.
var ErrProgramMismatch = errors.New("program belongs to a different patient")

// ErrProgramNotAttached is returned when a target is bound to a program
// that has not been attached to the folder yet.
var ErrProgramNotAttached = errors.New("attach the program to the folder before binding targets to it")

type Service struct {
	repo   Repository
	engine *authz.Engine
	pool   *pgxpool.Pool
}

func NewService(repo Repository, engine *authz.Engine, pool *pgxpool.Pool) *Service {
	return &Service{repo: repo, engine: engine, pool: pool}
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

func validateProgram(p *Program) error {
	if p.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("name is required")
	}
	return nil
}

func (s *Service) CreateProgram(ctx context.Context, identity authz.Identity, p *Program) (*Program, error) {
	if err := validateProgram(p); err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, identity, authz.KindPatient, p.PatientID); err != nil {
		return nil, err
	}
	p.Name = strings.TrimSpace(p.Name)
	if p.Category == "" {
		p.Category = DefaultProgramCategory
	}
	if p.Status == "" {
		p.Status = DefaultProgramStatus
	}
	if err := s.repo.CreateProgram(ctx, p); err != nil {
		return nil, err
	}
	return s.repo.GetProgram(ctx, p.ID)
}

func (s *Service) UpdateProgram(ctx context.Context, identity authz.Identity, p *Program) (*Program, error) {
	if err := validateProgram(p); err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, identity, authz.KindProgram, p.ID); err != nil {
		return nil, err
	}
	// Moving a program to another patient requires access to that
	// patient too.
	if err := s.authorize(ctx, identity, authz.KindPatient, p.PatientID); err != nil {
		return nil, err
	}
	p.Name = strings.TrimSpace(p.Name)
	if p.Category == "" {
		p.Category = DefaultProgramCategory
	}
	if p.Status == "" {
		p.Status = DefaultProgramStatus
	}
	if err := s.repo.UpdateProgram(ctx, p); err != nil {
		return nil, err
	}
	return s.repo.GetProgram(ctx, p.ID)
}

func (s *Service) DeleteProgram(ctx context.Context, identity authz.Identity, id uuid.UUID) error {
	if err := s.authorize(ctx, identity, authz.KindProgram, id); err != nil {
		return err
	}
	return s.repo.DeleteProgram(ctx, id)
}

// ListPrograms returns the programs of every patient the caller may see,
// optionally narrowed to one patient.
func (s *Service) ListPrograms(ctx context.Context, identity authz.Identity, patientID *uuid.UUID) ([]*Program, error) {
	scope := s.engine.ScopeFor(ctx, identity)
	return s.repo.ListPrograms(ctx, scope, patientID)
}

func (s *Service) CreateTarget(ctx context.Context, identity authz.Identity, label string) (*Target, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return nil, fmt.Errorf("label is required")
	}
	owner := identity.ActorID
	t := &Target{TherapistID: &owner, Label: label}
	if err := s.repo.CreateTarget(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// DeleteTarget removes a shared target. Admins may delete any target;
// a therapist only their own. Unowned targets are admin-only.
func (s *Service) DeleteTarget(ctx context.Context, identity authz.Identity, id uuid.UUID) (*Target, error) {
	t, err := s.repo.GetTarget(ctx, id)
	if err != nil {
		return nil, err
	}
	if identity.Role != authz.RoleAdmin {
		if t.TherapistID == nil || *t.TherapistID != identity.ActorID {
			return nil, ErrForbidden
		}
	}
	if err := s.repo.DeleteTarget(ctx, id); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) ListTargets(ctx context.Context) ([]*Target, error) {
	return s.repo.ListTargets(ctx)
}

func validatePlan(p *Plan) error {
	if p.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if strings.TrimSpace(p.Title) == "" {
		return fmt.Errorf("title is required")
	}
	if p.StartDate.IsZero() {
		return fmt.Errorf("start_date is required")
	}
	return nil
}

// normalizeGoals trims every goal and drops blanks, keeping order.
func normalizeGoals(goals []string) []string {
	out := make([]string, 0, len(goals))
	for _, g := range goals {
		if trimmed := strings.TrimSpace(g); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func (s *Service) CreatePlan(ctx context.Context, identity authz.Identity, p *Plan) (*Plan, error) {
	if err := validatePlan(p); err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, identity, authz.KindPatient, p.PatientID); err != nil {
		return nil, err
	}
	p.Title = strings.TrimSpace(p.Title)
	if p.Status == "" {
		p.Status = DefaultPlanStatus
	}
	goals := normalizeGoals(p.Goals)

	err := db.WithTx(ctx, s.pool, func(ctx context.Context) error {
		if err := s.repo.CreatePlan(ctx, p); err != nil {
			return err
		}
		return s.repo.ReplacePlanGoals(ctx, p.ID, goals)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetPlan(ctx, p.ID)
}

func (s *Service) UpdatePlan(ctx context.Context, identity authz.Identity, p *Plan) (*Plan, error) {
	if err := validatePlan(p); err != nil {
		return nil, err
	}
	existing, err := s.repo.GetPlan(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, identity, authz.KindPatient, existing.PatientID); err != nil {
		return nil, err
	}
	if p.PatientID != existing.PatientID {
		if err := s.authorize(ctx, identity, authz.KindPatient, p.PatientID); err != nil {
			return nil, err
		}
	}
	p.Title = strings.TrimSpace(p.Title)
	if p.Status == "" {
		p.Status = DefaultPlanStatus
	}
	goals := normalizeGoals(p.Goals)

	err = db.WithTx(ctx, s.pool, func(ctx context.Context) error {
		if err := s.repo.UpdatePlan(ctx, p); err != nil {
			return err
		}
		return s.repo.ReplacePlanGoals(ctx, p.ID, goals)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetPlan(ctx, p.ID)
}

func (s *Service) DeletePlan(ctx context.Context, identity authz.Identity, id uuid.UUID) error {
	existing, err := s.repo.GetPlan(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, identity, authz.KindPatient, existing.PatientID); err != nil {
		return err
	}
	return s.repo.DeletePlan(ctx, id)
}

func (s *Service) ListPlans(ctx context.Context, identity authz.Identity, patientID *uuid.UUID) ([]*Plan, error) {
	scope := s.engine.ScopeFor(ctx, identity)
	return s.repo.ListPlans(ctx, scope, patientID)
}

func validateDataRecord(r *DataRecord) error {
	if r.ProgramID == uuid.Nil {
		return fmt.Errorf("program_id is required")
	}
	if r.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if r.RecordedAt.IsZero() {
		return fmt.Errorf("recorded_at is required")
	}
	if r.Trials < 0 || r.Successes < 0 {
		return fmt.Errorf("trials and successes must not be negative")
	}
	return nil
}

// CreateDataRecord stores one trial run. Access is checked against the
// owning patient, and the program must belong to that patient.
func (s *Service) CreateDataRecord(ctx context.Context, identity authz.Identity, r *DataRecord) (*DataRecord, error) {
	if err := validateDataRecord(r); err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, identity, authz.KindPatient, r.PatientID); err != nil {
		return nil, err
	}
	program, err := s.repo.GetProgram(ctx, r.ProgramID)
	if err != nil {
		return nil, err
	}
	if program.PatientID != r.PatientID {
		return nil, ErrProgramMismatch
	}
	if r.TherapistID == nil && identity.Role == authz.RoleTherapist {
		recorder := identity.ActorID
		r.TherapistID = &recorder
	}
	if err := s.repo.CreateDataRecord(ctx, r); err != nil {
		return nil, err
	}
	return s.repo.GetDataRecord(ctx, r.ID)
}

func (s *Service) DeleteDataRecord(ctx context.Context, identity authz.Identity, id uuid.UUID) error {
	rec, err := s.repo.GetDataRecord(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, identity, authz.KindPatient, rec.PatientID); err != nil {
		return err
	}
	return s.repo.DeleteDataRecord(ctx, id)
}

// ListDataRecords returns the trial runs of every patient the caller may
// see, optionally narrowed to one patient or one program.
func (s *Service) ListDataRecords(ctx context.Context, identity authz.Identity, patientID, programID *uuid.UUID) ([]*DataRecord, error) {
	scope := s.engine.ScopeFor(ctx, identity)
	return s.repo.ListDataRecords(ctx, scope, patientID, programID)
}

func (s *Service) CreateCriterionChange(ctx context.Context, identity authz.Identity, c *CriterionChange) (*CriterionChange, error) {
	if c.ProgramID == uuid.Nil {
		return nil, fmt.Errorf("program_id is required")
	}
	if c.PreviousCriteria == "" || c.NewCriteria == "" {
		return nil, fmt.Errorf("previous and new criteria are required")
	}
	if c.Reason == "" {
		return nil, fmt.Errorf("reason is required")
	}
	if err := s.authorize(ctx, identity, authz.KindProgram, c.ProgramID); err != nil {
		return nil, err
	}
	if c.ChangedAt.IsZero() {
		c.ChangedAt = time.Now()
	}
	if err := s.repo.CreateCriterionChange(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) ListCriterionChanges(ctx context.Context, identity authz.Identity, programID, patientID *uuid.UUID) ([]*CriterionChange, error) {
	scope := s.engine.ScopeFor(ctx, identity)
	return s.repo.ListCriterionChanges(ctx, scope, programID, patientID)
}

func (s *Service) CreateFolder(ctx context.Context, identity authz.Identity, patientID uuid.UUID, name string) (*Folder, error) {
	name = strings.TrimSpace(name)
	if patientID == uuid.Nil || name == "" {
		return nil, fmt.Errorf("patient_id and name are required")
	}
	if err := s.authorize(ctx, identity, authz.KindPatient, patientID); err != nil {
		return nil, err
	}
	f := &Folder{PatientID: patientID, Name: name, CreatedBy: identity.ActorID}
	if err := s.repo.CreateFolder(ctx, f); err != nil {
		return nil, err
	}
	return s.repo.GetFolder(ctx, f.ID)
}

func (s *Service) ListFolders(ctx context.Context, identity authz.Identity, patientID *uuid.UUID) ([]*Folder, error) {
	scope := s.engine.ScopeFor(ctx, identity)
	return s.repo.ListFolders(ctx, scope, patientID)
}

// AttachProgram adds a program to a folder. The program must belong to
// the folder's patient.
func (s *Service) AttachProgram(ctx context.Context, identity authz.Identity, folderID, programID uuid.UUID) error {
	if err := s.authorize(ctx, identity, authz.KindFolder, folderID); err != nil {
		return err
	}
	folder, err := s.repo.GetFolder(ctx, folderID)
	if err != nil {
		return err
	}
	program, err := s.repo.GetProgram(ctx, programID)
	if err != nil {
		return err
	}
	if program.PatientID != folder.PatientID {
		return ErrProgramMismatch
	}
	return s.repo.AttachProgram(ctx, folderID, programID)
}

// AttachTarget adds a shared target to a folder, optionally bound to one
// of the folder's programs. The program must already be attached.
func (s *Service) AttachTarget(ctx context.Context, identity authz.Identity, folderID, targetID uuid.UUID, programID *uuid.UUID) error {
	if err := s.authorize(ctx, identity, authz.KindFolder, folderID); err != nil {
		return err
	}
	if _, err := s.repo.GetTarget(ctx, targetID); err != nil {
		return err
	}
	if programID != nil {
		folder, err := s.repo.GetFolder(ctx, folderID)
		if err != nil {
			return err
		}
		program, err := s.repo.GetProgram(ctx, *programID)
		if err != nil {
			return err
		}
		if program.PatientID != folder.PatientID {
			return ErrProgramMismatch
		}
		attached, err := s.repo.ProgramAttached(ctx, folderID, *programID)
		if err != nil {
			return err
		}
		if !attached {
			return ErrProgramNotAttached
		}
	}
	return s.repo.AttachTarget(ctx, folderID, targetID, programID)
}
