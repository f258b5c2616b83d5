package session

import (
	"time"

	"github.com/google/uuid"
)

// Session is one clinical appointment. FeeAmount and PaymentStatus are
// the payment fields the redaction policies act on; their JSON names are
// the field names those policies are configured with.
type Session struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	PatientID       uuid.UUID  `db:"patient_id" json:"patient_id"`
	ScheduledAt     time.Time  `db:"scheduled_at" json:"scheduled_at"`
	DurationMinutes *int       `db:"duration_minutes" json:"duration_minutes,omitempty"`
	SessionType     *string    `db:"session_type" json:"session_type,omitempty"`
	Summary         *string    `db:"summary" json:"summary,omitempty"`
	FeeAmount       *float64   `db:"fee_amount" json:"fee_amount"`
	PaymentStatus   *string    `db:"payment_status" json:"payment_status"`
	PatientName     string     `db:"patient_name" json:"patient_name,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// AgendaEntry is the calendar projection of a session. Title carries the
// patient name so the calendar can label the slot.
type AgendaEntry struct {
	ID              uuid.UUID `db:"id" json:"id"`
	ScheduledAt     time.Time `db:"scheduled_at" json:"scheduled_at"`
	DurationMinutes *int      `db:"duration_minutes" json:"duration_minutes,omitempty"`
	Title           string    `db:"title" json:"title"`
}
