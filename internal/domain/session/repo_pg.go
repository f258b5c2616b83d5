package session

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/psyhead/clinic/internal/platform/authz"
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

const sessionCols = `s.id, s.patient_id, s.scheduled_at, s.duration_minutes, s.session_type,
	s.summary, s.fee_amount, s.payment_status, s.created_at, s.updated_at`

func scanSession(row pgx.Row) (*Session, error) {
	var s Session
	err := row.Scan(&s.ID, &s.PatientID, &s.ScheduledAt, &s.DurationMinutes, &s.SessionType,
		&s.Summary, &s.FeeAmount, &s.PaymentStatus, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, authz.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *repoPG) Create(ctx context.Context, s *Session) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO sessions (id, patient_id, scheduled_at, duration_minutes, session_type,
			summary, fee_amount, payment_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		s.ID, s.PatientID, s.ScheduledAt, s.DurationMinutes, s.SessionType,
		s.Summary, s.FeeAmount, s.PaymentStatus)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Session, error) {
	var s Session
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT `+sessionCols+`, p.full_name
		FROM sessions s
		JOIN patients p ON p.id = s.patient_id
		WHERE s.id = $1`, id).
		Scan(&s.ID, &s.PatientID, &s.ScheduledAt, &s.DurationMinutes, &s.SessionType,
			&s.Summary, &s.FeeAmount, &s.PaymentStatus, &s.CreatedAt, &s.UpdatedAt,
			&s.PatientName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, authz.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *repoPG) Update(ctx context.Context, s *Session, includePayment bool) error {
	var tag pgconn.CommandTag
	var err error
	if includePayment {
		tag, err = r.conn(ctx).Exec(ctx, `
			UPDATE sessions SET
				scheduled_at = $2, duration_minutes = $3, session_type = $4,
				summary = $5, fee_amount = $6, payment_status = $7,
				updated_at = now()
			WHERE id = $1`,
			s.ID, s.ScheduledAt, s.DurationMinutes, s.SessionType,
			s.Summary, s.FeeAmount, s.PaymentStatus)
	} else {
		// Payment columns keep their stored values for callers whose
		// payment fields are redacted.
		tag, err = r.conn(ctx).Exec(ctx, `
			UPDATE sessions SET
				scheduled_at = $2, duration_minutes = $3, session_type = $4,
				summary = $5, updated_at = now()
			WHERE id = $1`,
			s.ID, s.ScheduledAt, s.DurationMinutes, s.SessionType, s.Summary)
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return authz.ErrNotFound
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return authz.ErrNotFound
	}
	return nil
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Session, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+sessionCols+`
		FROM sessions s
		WHERE s.patient_id = $1
		ORDER BY s.scheduled_at DESC`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func (r *repoPG) Agenda(ctx context.Context, scope authz.ScopePredicate) ([]*AgendaEntry, error) {
	cond, args := db.ScopeCondition(scope, "p", nil)
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT s.id, s.scheduled_at, s.duration_minutes, p.full_name AS title
		FROM sessions s
		JOIN patients p ON p.id = s.patient_id
		WHERE `+cond+`
		ORDER BY s.scheduled_at`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*AgendaEntry
	for rows.Next() {
		var e AgendaEntry
		if err := rows.Scan(&e.ID, &e.ScheduledAt, &e.DurationMinutes, &e.Title); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
