package account

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context, limit, offset int) ([]*User, int, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// CreatePatientRecord inserts the patient row a patient login links
	// to. Used inside registration transactions.
	CreatePatientRecord(ctx context.Context, name, email string, loginID uuid.UUID, therapistID *uuid.UUID) error

	ListTherapists(ctx context.Context) ([]*TherapistSummary, error)
	ListOrphanPatientLogins(ctx context.Context) ([]*OrphanLogin, error)

	// Deletion support. UnassignPatients clears the owner of every
	// patient a therapist owns; PatientIDsByLogin finds the records
	// linked to a patient login; PurgePatientData removes a patient
	// record together with its clinical data.
	UnassignPatients(ctx context.Context, therapistID uuid.UUID) error
	PatientIDsByLogin(ctx context.Context, loginID uuid.UUID) ([]uuid.UUID, error)
	PurgePatientData(ctx context.Context, patientID uuid.UUID) error
}
