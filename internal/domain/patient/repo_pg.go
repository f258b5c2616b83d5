package patient

import (
	"context"
	"errors"
	"fmt"
	"strings"

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

const patientCols = `id, full_name, birth_date, sex, national_id, document_id, nationality,
	mobile, phone, email, postal_code, street, number, complement, neighborhood,
	city, state, consultation_reason, medical_history, therapist_id, login_id,
	created_at, updated_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.FullName, &p.BirthDate, &p.Sex, &p.NationalID, &p.DocumentID,
		&p.Nationality, &p.Mobile, &p.Phone, &p.Email, &p.PostalCode, &p.Street,
		&p.Number, &p.Complement, &p.Neighborhood, &p.City, &p.State,
		&p.ConsultationReason, &p.MedicalHistory, &p.TherapistID, &p.LoginID,
		&p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, authz.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patients (id, full_name, birth_date, sex, national_id, document_id,
			nationality, mobile, phone, email, postal_code, street, number, complement,
			neighborhood, city, state, consultation_reason, medical_history, therapist_id, login_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`,
		p.ID, p.FullName, p.BirthDate, p.Sex, p.NationalID, p.DocumentID,
		p.Nationality, p.Mobile, p.Phone, p.Email, p.PostalCode, p.Street, p.Number,
		p.Complement, p.Neighborhood, p.City, p.State, p.ConsultationReason,
		p.MedicalHistory, p.TherapistID, p.LoginID)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patients WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, p *Patient) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE patients SET
			full_name = $2, birth_date = $3, sex = $4, national_id = $5, document_id = $6,
			nationality = $7, mobile = $8, phone = $9, email = $10, postal_code = $11,
			street = $12, number = $13, complement = $14, neighborhood = $15, city = $16,
			state = $17, consultation_reason = $18, medical_history = $19,
			updated_at = now()
		WHERE id = $1`,
		p.ID, p.FullName, p.BirthDate, p.Sex, p.NationalID, p.DocumentID,
		p.Nationality, p.Mobile, p.Phone, p.Email, p.PostalCode, p.Street, p.Number,
		p.Complement, p.Neighborhood, p.City, p.State, p.ConsultationReason,
		p.MedicalHistory)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return authz.ErrNotFound
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM patients WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return authz.ErrNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, scope authz.ScopePredicate, limit, offset int) ([]*Patient, int, error) {
	cond, args := db.ScopeCondition(scope, "", nil)

	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM patients WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx, fmt.Sprintf(
		`SELECT %s FROM patients WHERE %s ORDER BY full_name LIMIT $%d OFFSET $%d`,
		patientCols, cond, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var patients []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		patients = append(patients, p)
	}
	return patients, total, rows.Err()
}

func (r *repoPG) Assign(ctx context.Context, id uuid.UUID, a Assignment) (*Patient, error) {
	sets := make([]string, 0, 2)
	args := []any{id}
	if a.TherapistID != nil {
		args = append(args, *a.TherapistID)
		sets = append(sets, fmt.Sprintf("therapist_id = $%d", len(args)))
	}
	if a.LoginID != nil {
		args = append(args, *a.LoginID)
		sets = append(sets, fmt.Sprintf("login_id = $%d", len(args)))
	}
	if len(sets) == 0 {
		return r.GetByID(ctx, id)
	}
	sets = append(sets, "updated_at = now()")

	return scanPatient(r.conn(ctx).QueryRow(ctx, fmt.Sprintf(
		`UPDATE patients SET %s WHERE id = $1 RETURNING %s`,
		strings.Join(sets, ", "), patientCols), args...))
}
