package curriculum

import (
	"time"

	"github.com/google/uuid"
)

// Program is one skill-acquisition program on a patient's curriculum.
type Program struct {
	ID              uuid.UUID `db:"id" json:"id"`
	PatientID       uuid.UUID `db:"patient_id" json:"patient_id"`
	Code            *string   `db:"code" json:"code,omitempty"`
	Name            string    `db:"name" json:"name"`
	Category        string    `db:"category" json:"category"`
	Description     *string   `db:"description" json:"description,omitempty"`
	TargetBehavior  *string   `db:"target_behavior" json:"target_behavior,omitempty"`
	CurrentCriteria *string   `db:"current_criteria" json:"current_criteria,omitempty"`
	Status          string    `db:"status" json:"status"`
	PatientName     string    `db:"patient_name" json:"patient_name,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

const (
	DefaultProgramCategory = "communication"
	DefaultProgramStatus   = "active"
)

// Target is a reusable teaching target. Targets are shared across the
// clinic; TherapistID records who created one and who may delete it.
type Target struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	TherapistID *uuid.UUID `db:"therapist_id" json:"-"`
	Label       string     `db:"label" json:"label"`
	CreatedAt   time.Time  `db:"created_at" json:"-"`
}

// Plan is a therapeutic plan with an ordered list of goals. Goals are
// rewritten wholesale on every update.
type Plan struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	PatientID uuid.UUID  `db:"patient_id" json:"patient_id"`
	Title     string     `db:"title" json:"title"`
	StartDate time.Time  `db:"start_date" json:"start_date"`
	EndDate   *time.Time `db:"end_date" json:"end_date,omitempty"`
	Status    string     `db:"status" json:"status"`
	Goals     []string   `db:"goals" json:"goals"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

const DefaultPlanStatus = "draft"

// DataRecord is one data-collection session on a program: how many
// trials were run on a given day and how many succeeded.
type DataRecord struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	ProgramID   uuid.UUID  `db:"program_id" json:"program_id"`
	PatientID   uuid.UUID  `db:"patient_id" json:"patient_id"`
	TherapistID *uuid.UUID `db:"therapist_id" json:"therapist_id,omitempty"`
	RecordedAt  time.Time  `db:"recorded_at" json:"recorded_at"`
	Trials      int        `db:"trials" json:"trials"`
	Successes   int        `db:"successes" json:"successes"`
	Notes       *string    `db:"notes" json:"notes,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

// CriterionChange records one mastery-criterion revision on a program.
type CriterionChange struct {
	ID               uuid.UUID `db:"id" json:"id"`
	ProgramID        uuid.UUID `db:"program_id" json:"program_id"`
	PreviousCriteria string    `db:"previous_criteria" json:"previous_criteria"`
	NewCriteria      string    `db:"new_criteria" json:"new_criteria"`
	Reason           string    `db:"reason" json:"reason"`
	ChangedAt        time.Time `db:"changed_at" json:"changed_at"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

// Folder groups a patient's programs and targets. A target may optionally
// be bound to one of the folder's attached programs.
type Folder struct {
	ID        uuid.UUID      `db:"id" json:"id"`
	PatientID uuid.UUID      `db:"patient_id" json:"patient_id"`
	Name      string         `db:"name" json:"name"`
	CreatedBy uuid.UUID      `db:"created_by" json:"created_by"`
	Programs  []FolderItem   `db:"programs" json:"programs"`
	Targets   []FolderTarget `db:"targets" json:"targets"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}

type FolderItem struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type FolderTarget struct {
	ID        uuid.UUID  `json:"id"`
	Label     string     `json:"label"`
	ProgramID *uuid.UUID `json:"program_id,omitempty"`
}
