package account

import (
	"time"

	"github.com/google/uuid"

	"github.com/psyhead/clinic/internal/platform/authz"
)

// User maps to the users table. One row per login, whatever the role;
// patient logins additionally link to a patients row via patients.login_id.
type User struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	Name         string     `db:"name" json:"name"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Role         authz.Role `db:"role" json:"role"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// Identity returns the authorization identity for this login.
func (u *User) Identity() authz.Identity {
	return authz.Identity{ActorID: u.ID, Role: u.Role, Email: u.Email}
}

// TherapistSummary is the short form used by assignment dropdowns.
type TherapistSummary struct {
	ID   uuid.UUID `db:"id" json:"id"`
	Name string    `db:"name" json:"name"`
}

// OrphanLogin is a patient login with no linked patient record.
type OrphanLogin struct {
	ID    uuid.UUID `db:"id" json:"id"`
	Name  string    `db:"name" json:"name"`
	Email string    `db:"email" json:"email"`
}
