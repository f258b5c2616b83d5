package authz

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a resource, or any link in its ownership
// chain, cannot be resolved. Handlers must render it identically to a
// denied decision so that callers cannot probe for the existence of
// records they are not allowed to see.
var ErrNotFound = errors.New("resource not found")

// ResourceKind identifies the type of a clinical resource for ownership
// resolution.
type ResourceKind string

const (
	KindPatient    ResourceKind = "patient"
	KindSession    ResourceKind = "session"
	KindMedication ResourceKind = "medication"
	KindFolder     ResourceKind = "folder"
	KindProgram    ResourceKind = "program"
)

// PatientRef carries the two ownership fields of a patient record that
// access decisions are made from. OwnerTherapistID is nil for unassigned
// records; OwnerActorID is set only when the record is linked to a patient
// login.
type PatientRef struct {
	ID               uuid.UUID
	OwnerTherapistID *uuid.UUID
	OwnerActorID     *uuid.UUID
}

// OwnershipStore resolves resources to the patient record that owns them.
// Implementations must return ErrNotFound both when the resource id does
// not exist and when its patient id no longer resolves to a record.
type OwnershipStore interface {
	// PatientRef fetches the ownership fields of a patient record.
	PatientRef(ctx context.Context, id uuid.UUID) (*PatientRef, error)
	// OwningPatient resolves any resource kind to its owning patient
	// record. For KindPatient the id is the patient record id itself;
	// every other kind takes one indirection through the resource row.
	OwningPatient(ctx context.Context, kind ResourceKind, id uuid.UUID) (*PatientRef, error)
}

// TherapistDirectory looks up therapist logins by email. The sharing
// registry uses it to resolve the origin therapist once per process.
type TherapistDirectory interface {
	TherapistIDByEmail(ctx context.Context, email string) (uuid.UUID, bool, error)
}
