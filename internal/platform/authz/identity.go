package authz

import (
	"strings"

	"github.com/google/uuid"
)

// Role is the login type of an authenticated actor.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleTherapist Role = "therapist"
	RolePatient   Role = "patient"
)

// Valid reports whether r is one of the three known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleTherapist, RolePatient:
		return true
	}
	return false
}

// Identity is the immutable record of the authenticated actor for one
// request. It is produced by the auth middleware from a verified token and
// only ever read by the engine.
type Identity struct {
	ActorID uuid.UUID
	Role    Role
	Email   string
}

// NormalizeEmail canonicalizes an email for comparison: trimmed and
// lowercased. Every email comparison in this package goes through it.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (i Identity) normalizedEmail() string {
	return NormalizeEmail(i.Email)
}
