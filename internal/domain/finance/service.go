package finance

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/psyhead/clinic/internal/platform/authz"
)

const recentTransactionLimit = 10

type Service struct {
	repo     Repository
	redactor *authz.Redactor
}

func NewService(repo Repository, redactor *authz.Redactor) *Service {
	return &Service{repo: repo, redactor: redactor}
}

// MonthSummary returns the caller's own billing for the current month.
// Admins see their own numbers too, not the whole clinic's.
func (s *Service) MonthSummary(ctx context.Context, identity authz.Identity) (*MonthSummary, error) {
	return s.repo.MonthSummary(ctx, identity.ActorID)
}

func (s *Service) RecentTransactions(ctx context.Context, identity authz.Identity) ([]*Transaction, error) {
	return s.repo.RecentTransactions(ctx, identity.ActorID, recentTransactionLimit)
}

func (s *Service) RangeReport(ctx context.Context, identity authz.Identity, from, to time.Time) (*RangeReport, error) {
	if from.IsZero() || to.IsZero() {
		return nil, fmt.Errorf("from and to dates are required")
	}
	return s.repo.RangeReport(ctx, identity.ActorID, from, to)
}

// DashboardStats returns the landing dashboard numbers. Patient logins
// get zeros; they have no caseload. The monthly revenue field is removed
// entirely for callers the dashboard redaction policy blocks.
func (s *Service) DashboardStats(ctx context.Context, identity authz.Identity) (map[string]any, error) {
	stats := &DashboardStats{}
	if identity.Role != authz.RolePatient {
		var err error
		stats, err = s.repo.DashboardStats(ctx, identity.ActorID)
		if err != nil {
			return nil, err
		}
	}

	raw, err := json.Marshal(stats)
	if err != nil {
		return nil, err
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	return s.redactor.RedactPayload(identity, authz.PayloadDashboard, payload), nil
}
