package finance

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository reads billing aggregates. Every query is scoped to one
// therapist's own patients; the finance screens never cross tenants,
// not even for admins.
type Repository interface {
	MonthSummary(ctx context.Context, therapistID uuid.UUID) (*MonthSummary, error)
	RecentTransactions(ctx context.Context, therapistID uuid.UUID, limit int) ([]*Transaction, error)
	RangeReport(ctx context.Context, therapistID uuid.UUID, from, to time.Time) (*RangeReport, error)
	DashboardStats(ctx context.Context, therapistID uuid.UUID) (*DashboardStats, error)
}
