package patient

import (
	"time"

	"github.com/google/uuid"
)

// Patient is a clinical patient record. TherapistID is the owning
// therapist and drives every access decision; LoginID links the record to
// a patient login when the patient uses the portal themselves. Both are
// nullable: records can be unassigned and never claimed.
type Patient struct {
	ID                 uuid.UUID  `db:"id" json:"id"`
	FullName           string     `db:"full_name" json:"full_name"`
	BirthDate          *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	Sex                *string    `db:"sex" json:"sex,omitempty"`
	NationalID         *string    `db:"national_id" json:"national_id,omitempty"`
	DocumentID         *string    `db:"document_id" json:"document_id,omitempty"`
	Nationality        *string    `db:"nationality" json:"nationality,omitempty"`
	Mobile             *string    `db:"mobile" json:"mobile,omitempty"`
	Phone              *string    `db:"phone" json:"phone,omitempty"`
	Email              *string    `db:"email" json:"email,omitempty"`
	PostalCode         *string    `db:"postal_code" json:"postal_code,omitempty"`
	Street             *string    `db:"street" json:"street,omitempty"`
	Number             *string    `db:"number" json:"number,omitempty"`
	Complement         *string    `db:"complement" json:"complement,omitempty"`
	Neighborhood       *string    `db:"neighborhood" json:"neighborhood,omitempty"`
	City               *string    `db:"city" json:"city,omitempty"`
	State              *string    `db:"state" json:"state,omitempty"`
	ConsultationReason *string    `db:"consultation_reason" json:"consultation_reason,omitempty"`
	MedicalHistory     *string    `db:"medical_history" json:"medical_history,omitempty"`
	TherapistID        *uuid.UUID `db:"therapist_id" json:"therapist_id,omitempty"`
	LoginID            *uuid.UUID `db:"login_id" json:"login_id,omitempty"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}

// Assignment attaches a patient record to an owning therapist and,
// optionally, to a patient login. Nil fields are left untouched.
type Assignment struct {
	TherapistID *uuid.UUID `json:"therapist_id"`
	LoginID     *uuid.UUID `json:"login_id"`
}
