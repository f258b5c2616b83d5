package finance

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/psyhead/clinic/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *repoPG) MonthSummary(ctx context.Context, therapistID uuid.UUID) (*MonthSummary, error) {
	var m MonthSummary
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN s.payment_status = 'paid' THEN s.fee_amount ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN s.payment_status = 'pending' THEN s.fee_amount ELSE 0 END), 0),
			COUNT(CASE WHEN s.payment_status = 'paid' THEN 1 END),
			COUNT(CASE WHEN s.payment_status = 'pending' THEN 1 END)
		FROM sessions s
		JOIN patients p ON p.id = s.patient_id
		WHERE s.scheduled_at >= DATE_TRUNC('month', CURRENT_DATE)
		AND p.therapist_id = $1`, therapistID).
		Scan(&m.MonthlyRevenue, &m.Outstanding, &m.PaidSessions, &m.PendingSessions)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func scanTransactions(rows pgx.Rows) ([]*Transaction, error) {
	defer rows.Close()
	var out []*Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.ScheduledAt, &t.FeeAmount, &t.PaymentStatus, &t.PatientName); err != nil {
			return nil, err
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

func (r *repoPG) RecentTransactions(ctx context.Context, therapistID uuid.UUID, limit int) ([]*Transaction, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT s.id, s.scheduled_at, s.fee_amount, s.payment_status, p.full_name
		FROM sessions s
		JOIN patients p ON p.id = s.patient_id
		WHERE p.therapist_id = $1
		ORDER BY s.scheduled_at DESC
		LIMIT $2`, therapistID, limit)
	if err != nil {
		return nil, err
	}
	return scanTransactions(rows)
}

func (r *repoPG) RangeReport(ctx context.Context, therapistID uuid.UUID, from, to time.Time) (*RangeReport, error) {
	var report RangeReport
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN s.payment_status = 'paid' THEN s.fee_amount ELSE 0 END), 0),
			COUNT(*)
		FROM sessions s
		JOIN patients p ON p.id = s.patient_id
		WHERE s.scheduled_at::date BETWEEN $1 AND $2
		AND p.therapist_id = $3`, from, to, therapistID).
		Scan(&report.Summary.TotalRevenue, &report.Summary.TotalSessions)
	if err != nil {
		return nil, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT s.id, s.scheduled_at, s.fee_amount, s.payment_status, p.full_name
		FROM sessions s
		JOIN patients p ON p.id = s.patient_id
		WHERE s.scheduled_at::date BETWEEN $1 AND $2
		AND p.therapist_id = $3
		ORDER BY s.scheduled_at DESC`, from, to, therapistID)
	if err != nil {
		return nil, err
	}
	report.Transactions, err = scanTransactions(rows)
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func (r *repoPG) DashboardStats(ctx context.Context, therapistID uuid.UUID) (*DashboardStats, error) {
	var s DashboardStats
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM patients WHERE therapist_id = $1),
			(SELECT COUNT(*) FROM sessions s JOIN patients p ON p.id = s.patient_id
				WHERE s.scheduled_at::date = CURRENT_DATE AND p.therapist_id = $1),
			(SELECT COALESCE(SUM(s.fee_amount), 0) FROM sessions s JOIN patients p ON p.id = s.patient_id
				WHERE s.payment_status = 'paid'
				AND s.scheduled_at >= DATE_TRUNC('month', CURRENT_DATE)
				AND p.therapist_id = $1)`, therapistID).
		Scan(&s.ActivePatients, &s.SessionsToday, &s.MonthlyRevenue)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
