package finance

import (
	"time"

	"github.com/google/uuid"
)

// MonthSummary aggregates the current month's billing for one therapist.
type MonthSummary struct {
	MonthlyRevenue  float64 `db:"monthly_revenue" json:"monthly_revenue"`
	Outstanding     float64 `db:"outstanding" json:"outstanding"`
	PaidSessions    int     `db:"paid_sessions" json:"paid_sessions"`
	PendingSessions int     `db:"pending_sessions" json:"pending_sessions"`
}

// Transaction is one billed session as it appears in the finance screens.
type Transaction struct {
	ID            uuid.UUID `db:"id" json:"id"`
	ScheduledAt   time.Time `db:"scheduled_at" json:"scheduled_at"`
	FeeAmount     *float64  `db:"fee_amount" json:"fee_amount"`
	PaymentStatus *string   `db:"payment_status" json:"payment_status"`
	PatientName   string    `db:"patient_name" json:"patient_name"`
}

// RangeReport is the billing report over an arbitrary date range.
type RangeReport struct {
	Summary      RangeSummary   `json:"summary"`
	Transactions []*Transaction `json:"transactions"`
}

type RangeSummary struct {
	TotalRevenue  float64 `db:"total_revenue" json:"total_revenue"`
	TotalSessions int     `db:"total_sessions" json:"total_sessions"`
}

// DashboardStats feeds the landing dashboard. MonthlyRevenue is subject
// to the dashboard redaction policy.
type DashboardStats struct {
	ActivePatients int     `db:"active_patients" json:"active_patients"`
	SessionsToday  int     `db:"sessions_today" json:"sessions_today"`
	MonthlyRevenue float64 `db:"monthly_revenue" json:"monthly_revenue"`
}

const (
	PaymentStatusPaid    = "paid"
	PaymentStatusPending = "pending"
)
