package medication

import (
	"time"

	"github.com/google/uuid"
)

// Medication is one prescribed medication on a patient's chart.
type Medication struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	PatientID  uuid.UUID  `db:"patient_id" json:"patient_id"`
	Name       string     `db:"name" json:"name"`
	Dosage     *string    `db:"dosage" json:"dosage,omitempty"`
	Frequency  *string    `db:"frequency" json:"frequency,omitempty"`
	StartDate  time.Time  `db:"start_date" json:"start_date"`
	EndDate    *time.Time `db:"end_date" json:"end_date,omitempty"`
	Prescriber *string    `db:"prescriber" json:"prescriber,omitempty"`
	Notes      *string    `db:"notes" json:"notes,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}
