package account

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/psyhead/clinic/internal/platform/auth"
	"github.com/psyhead/clinic/internal/platform/authz"
	"github.com/psyhead/clinic/internal/platform/db"
)

// ErrInvalidCredentials is returned for unknown emails and wrong passwords
// alike; login never reveals which one failed.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrEmailTaken is returned when a login email is already registered.
var ErrEmailTaken = errors.New("email already in use")

// ErrSelfDelete is returned when an admin tries to delete their own login.
var ErrSelfDelete = errors.New("cannot delete your own user")

const bcryptCost = 10

type Service struct {
	repo   Repository
	pool   *pgxpool.Pool
	tokens *auth.TokenIssuer
}

func NewService(repo Repository, pool *pgxpool.Pool, tokens *auth.TokenIssuer) *Service {
	return &Service{repo: repo, pool: pool, tokens: tokens}
}

func validateRegistration(name, email, password string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("name is required")
	}
	if authz.NormalizeEmail(email) == "" {
		return fmt.Errorf("email is required")
	}
	if password == "" {
		return fmt.Errorf("password is required")
	}
	return nil
}

func (s *Service) newUser(name, email, password string, role authz.Role) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}
	return &User{
		ID:           uuid.New(),
		Name:         strings.TrimSpace(name),
		Email:        authz.NormalizeEmail(email),
		PasswordHash: string(hash),
		Role:         role,
	}, nil
}

// Register creates a therapist login. Open registration only ever creates
// therapists; admin and patient logins go through CreateUser and
// RegisterPatient.
func (s *Service) Register(ctx context.Context, name, email, password string) (*User, error) {
	if err := validateRegistration(name, email, password); err != nil {
		return nil, err
	}
	u, err := s.newUser(name, email, password, authz.RoleTherapist)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, mapUniqueViolation(err)
	}
	return u, nil
}

// RegisterPatient creates a patient login together with its linked patient
// record, atomically. The record starts unassigned; an admin attaches the
// owning therapist later.
func (s *Service) RegisterPatient(ctx context.Context, name, email, password string) error {
	if err := validateRegistration(name, email, password); err != nil {
		return err
	}
	u, err := s.newUser(name, email, password, authz.RolePatient)
	if err != nil {
		return err
	}

	err = db.WithTx(ctx, s.pool, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, u); err != nil {
			return err
		}
		return s.repo.CreatePatientRecord(ctx, u.Name, u.Email, u.ID, nil)
	})
	return mapUniqueViolation(err)
}

// CreateUser is the admin path for creating any login. A patient login
// gets a linked patient record owned by the creating admin, so the new
// patient shows up in the creator's listings immediately.
func (s *Service) CreateUser(ctx context.Context, creator authz.Identity, name, email, password string, role authz.Role) (*User, error) {
	if err := validateRegistration(name, email, password); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, fmt.Errorf("invalid role: %s", role)
	}
	u, err := s.newUser(name, email, password, role)
	if err != nil {
		return nil, err
	}

	err = db.WithTx(ctx, s.pool, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, u); err != nil {
			return err
		}
		if role == authz.RolePatient {
			owner := creator.ActorID
			return s.repo.CreatePatientRecord(ctx, u.Name, u.Email, u.ID, &owner)
		}
		return nil
	})
	if err != nil {
		return nil, mapUniqueViolation(err)
	}
	return u, nil
}

// Login verifies credentials and issues an access token.
func (s *Service) Login(ctx context.Context, email, password string) (string, *User, error) {
	if email == "" || password == "" {
		return "", nil, ErrInvalidCredentials
	}

	u, err := s.repo.GetByEmail(ctx, email)
	if errors.Is(err, authz.ErrNotFound) {
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(u.Identity())
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}

func (s *Service) ListUsers(ctx context.Context, limit, offset int) ([]*User, int, error) {
	return s.repo.List(ctx, limit, offset)
}

// DeleteUser removes a login. Patient logins take their patient records
// and all clinical data with them; therapist and admin logins leave their
// patients behind, unassigned.
func (s *Service) DeleteUser(ctx context.Context, requester authz.Identity, id uuid.UUID) error {
	if requester.ActorID == id {
		return ErrSelfDelete
	}

	return db.WithTx(ctx, s.pool, func(ctx context.Context) error {
		u, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}

		if u.Role == authz.RolePatient {
			patientIDs, err := s.repo.PatientIDsByLogin(ctx, id)
			if err != nil {
				return err
			}
			for _, pid := range patientIDs {
				if err := s.repo.PurgePatientData(ctx, pid); err != nil {
					return err
				}
			}
		} else {
			if err := s.repo.UnassignPatients(ctx, id); err != nil {
				return err
			}
		}

		return s.repo.Delete(ctx, id)
	})
}

func (s *Service) ListTherapists(ctx context.Context) ([]*TherapistSummary, error) {
	return s.repo.ListTherapists(ctx)
}

func (s *Service) ListOrphanPatientLogins(ctx context.Context) ([]*OrphanLogin, error) {
	return s.repo.ListOrphanPatientLogins(ctx)
}

// mapUniqueViolation converts a unique-constraint failure into
// ErrEmailTaken so handlers can answer 409.
func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrEmailTaken
	}
	return err
}
