package account

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

const userCols = `id, name, email, password_hash, role, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, authz.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *repoPG) Create(ctx context.Context, u *User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO users (id, name, email, password_hash, role)
		VALUES ($1, $2, $3, $4, $5)`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.Role)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return scanUser(r.conn(ctx).QueryRow(ctx,
		`SELECT `+userCols+` FROM users WHERE id = $1`, id))
}

func (r *repoPG) GetByEmail(ctx context.Context, email string) (*User, error) {
	return scanUser(r.conn(ctx).QueryRow(ctx,
		`SELECT `+userCols+` FROM users WHERE lower(trim(email)) = $1`,
		authz.NormalizeEmail(email)))
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*User, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+userCols+` FROM users ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return authz.ErrNotFound
	}
	return nil
}

func (r *repoPG) CreatePatientRecord(ctx context.Context, name, email string, loginID uuid.UUID, therapistID *uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patients (id, full_name, email, login_id, therapist_id)
		VALUES ($1, $2, $3, $4, $5)`,
		uuid.New(), name, email, loginID, therapistID)
	return err
}

func (r *repoPG) ListTherapists(ctx context.Context) ([]*TherapistSummary, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT id, name FROM users WHERE role = 'therapist' ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*TherapistSummary
	for rows.Next() {
		var t TherapistSummary
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, err
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

func (r *repoPG) ListOrphanPatientLogins(ctx context.Context) ([]*OrphanLogin, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT u.id, u.name, u.email
		FROM users u
		LEFT JOIN patients p ON p.login_id = u.id
		WHERE u.role = 'patient' AND p.id IS NULL
		ORDER BY u.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*OrphanLogin
	for rows.Next() {
		var o OrphanLogin
		if err := rows.Scan(&o.ID, &o.Name, &o.Email); err != nil {
			return nil, err
		}
		out = append(out, &o)
	}
	return out, rows.Err()
}

func (r *repoPG) UnassignPatients(ctx context.Context, therapistID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE patients SET therapist_id = NULL WHERE therapist_id = $1`, therapistID)
	return err
}

func (r *repoPG) PatientIDsByLogin(ctx context.Context, loginID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT id FROM patients WHERE login_id = $1`, loginID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *repoPG) PurgePatientData(ctx context.Context, patientID uuid.UUID) error {
	q := r.conn(ctx)
	if _, err := q.Exec(ctx, `DELETE FROM sessions WHERE patient_id = $1`, patientID); err != nil {
		return err
	}
	if _, err := q.Exec(ctx, `DELETE FROM medications WHERE patient_id = $1`, patientID); err != nil {
		return err
	}
	_, err := q.Exec(ctx, `DELETE FROM patients WHERE id = $1`, patientID)
	return err
}
