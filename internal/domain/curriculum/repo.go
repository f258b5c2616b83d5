package curriculum

import (
	"context"

	"github.com/google/uuid"

	"github.com/psyhead/clinic/internal/platform/authz"
)

// Repository persists the curriculum entities. Every list goes through
// the caller's scope predicate over the owning patient, with optional
// entity filters layered on top.
type Repository interface {
	CreateProgram(ctx context.Context, p *Program) error
	GetProgram(ctx context.Context, id uuid.UUID) (*Program, error)
	UpdateProgram(ctx context.Context, p *Program) error
	DeleteProgram(ctx context.Context, id uuid.UUID) error
	ListPrograms(ctx context.Context, scope authz.ScopePredicate, patientID *uuid.UUID) ([]*Program, error)

	CreateTarget(ctx context.Context, t *Target) error
	GetTarget(ctx context.Context, id uuid.UUID) (*Target, error)
	DeleteTarget(ctx context.Context, id uuid.UUID) error
	ListTargets(ctx context.Context) ([]*Target, error)

	CreatePlan(ctx context.Context, p *Plan) error
	GetPlan(ctx context.Context, id uuid.UUID) (*Plan, error)
	UpdatePlan(ctx context.Context, p *Plan) error
	DeletePlan(ctx context.Context, id uuid.UUID) error
	ReplacePlanGoals(ctx context.Context, planID uuid.UUID, goals []string) error
	ListPlans(ctx context.Context, scope authz.ScopePredicate, patientID *uuid.UUID) ([]*Plan, error)

	CreateDataRecord(ctx context.Context, r *DataRecord) error
	GetDataRecord(ctx context.Context, id uuid.UUID) (*DataRecord, error)
	DeleteDataRecord(ctx context.Context, id uuid.UUID) error
	ListDataRecords(ctx context.Context, scope authz.ScopePredicate, patientID, programID *uuid.UUID) ([]*DataRecord, error)

	CreateCriterionChange(ctx context.Context, c *CriterionChange) error
	ListCriterionChanges(ctx context.Context, scope authz.ScopePredicate, programID, patientID *uuid.UUID) ([]*CriterionChange, error)

	CreateFolder(ctx context.Context, f *Folder) error
	GetFolder(ctx context.Context, id uuid.UUID) (*Folder, error)
	ListFolders(ctx context.Context, scope authz.ScopePredicate, patientID *uuid.UUID) ([]*Folder, error)
	AttachProgram(ctx context.Context, folderID, programID uuid.UUID) error
	AttachTarget(ctx context.Context, folderID, targetID uuid.UUID, programID *uuid.UUID) error
	ProgramAttached(ctx context.Context, folderID, programID uuid.UUID) (bool, error)
}
