package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ownershipPG resolves ownership against the patients table and the
// per-resource tables. Every non-patient kind is a single indirection:
// fetch the resource row, join to its patient record.
type ownershipPG struct {
	pool *pgxpool.Pool
}

func NewOwnershipStorePG(pool *pgxpool.Pool) OwnershipStore {
	return &ownershipPG{pool: pool}
}

func (s *ownershipPG) PatientRef(ctx context.Context, id uuid.UUID) (*PatientRef, error) {
	return s.scanRef(s.pool.QueryRow(ctx,
		`SELECT id, therapist_id, login_id FROM patients WHERE id = $1`, id))
}

func (s *ownershipPG) OwningPatient(ctx context.Context, kind ResourceKind, id uuid.UUID) (*PatientRef, error) {
	switch kind {
	case KindPatient:
		return s.PatientRef(ctx, id)
	case KindSession:
		return s.scanRef(s.pool.QueryRow(ctx, `
			SELECT p.id, p.therapist_id, p.login_id
			FROM sessions s
			JOIN patients p ON p.id = s.patient_id
			WHERE s.id = $1`, id))
	case KindMedication:
		return s.scanRef(s.pool.QueryRow(ctx, `
			SELECT p.id, p.therapist_id, p.login_id
			FROM medications m
			JOIN patients p ON p.id = m.patient_id
			WHERE m.id = $1`, id))
	case KindFolder:
		return s.scanRef(s.pool.QueryRow(ctx, `
			SELECT p.id, p.therapist_id, p.login_id
			FROM curriculum_folders f
			JOIN patients p ON p.id = f.patient_id
			WHERE f.id = $1`, id))
	case KindProgram:
		return s.scanRef(s.pool.QueryRow(ctx, `
			SELECT p.id, p.therapist_id, p.login_id
			FROM programs pr
			JOIN patients p ON p.id = pr.patient_id
			WHERE pr.id = $1`, id))
	default:
		return nil, fmt.Errorf("unknown resource kind %q", kind)
	}
}

func (s *ownershipPG) scanRef(row pgx.Row) (*PatientRef, error) {
	var ref PatientRef
	err := row.Scan(&ref.ID, &ref.OwnerTherapistID, &ref.OwnerActorID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

// therapistDirectoryPG implements TherapistDirectory over the users table.
type therapistDirectoryPG struct {
	pool *pgxpool.Pool
}

func NewTherapistDirectoryPG(pool *pgxpool.Pool) TherapistDirectory {
	return &therapistDirectoryPG{pool: pool}
}

func (d *therapistDirectoryPG) TherapistIDByEmail(ctx context.Context, email string) (uuid.UUID, bool, error) {
	var id uuid.UUID
	err := d.pool.QueryRow(ctx,
		`SELECT id FROM users WHERE lower(trim(email)) = $1 LIMIT 1`,
		NormalizeEmail(email)).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, err
	}
	return id, true, nil
}
