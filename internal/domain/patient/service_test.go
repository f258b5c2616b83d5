package patient

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/psyhead/clinic/internal/platform/authz"
)

type fakeOwnership struct {
	refs map[uuid.UUID]*authz.PatientRef
}

func (f *fakeOwnership) PatientRef(ctx context.Context, id uuid.UUID) (*authz.PatientRef, error) {
	ref, ok := f.refs[id]
	if !ok {
		return nil, authz.ErrNotFound
	}
	return ref, nil
}

func (f *fakeOwnership) OwningPatient(ctx context.Context, kind authz.ResourceKind, id uuid.UUID) (*authz.PatientRef, error) {
	return f.PatientRef(ctx, id)
}

type noDirectory struct{}

func (noDirectory) TherapistIDByEmail(ctx context.Context, email string) (uuid.UUID, bool, error) {
	return uuid.Nil, false, nil
}

type fakeRepo struct {
	patients  map[uuid.UUID]*Patient
	lastScope authz.ScopePredicate
	assignErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{patients: make(map[uuid.UUID]*Patient)}
}

func (f *fakeRepo) Create(ctx context.Context, p *Patient) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	f.patients[p.ID] = p
	return nil
}

func (f *fakeRepo) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, ok := f.patients[id]
	if !ok {
		return nil, authz.ErrNotFound
	}
	return p, nil
}

func (f *fakeRepo) Update(ctx context.Context, p *Patient) error {
	if _, ok := f.patients[p.ID]; !ok {
		return authz.ErrNotFound
	}
	f.patients[p.ID] = p
	return nil
}

func (f *fakeRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := f.patients[id]; !ok {
		return authz.ErrNotFound
	}
	delete(f.patients, id)
	return nil
}

func (f *fakeRepo) List(ctx context.Context, scope authz.ScopePredicate, limit, offset int) ([]*Patient, int, error) {
	f.lastScope = scope
	var out []*Patient
	for _, p := range f.patients {
		ref := &authz.PatientRef{ID: p.ID, OwnerTherapistID: p.TherapistID, OwnerActorID: p.LoginID}
		if scope.Matches(ref) {
			out = append(out, p)
		}
	}
	return out, len(out), nil
}

func (f *fakeRepo) Assign(ctx context.Context, id uuid.UUID, a Assignment) (*Patient, error) {
	if f.assignErr != nil {
		return nil, f.assignErr
	}
	p, ok := f.patients[id]
	if !ok {
		return nil, authz.ErrNotFound
	}
	if a.TherapistID != nil {
		p.TherapistID = a.TherapistID
	}
	if a.LoginID != nil {
		p.LoginID = a.LoginID
	}
	return p, nil
}

func newTestService(repo *fakeRepo) *Service {
	store := &fakeOwnership{refs: make(map[uuid.UUID]*authz.PatientRef)}
	for id, p := range repo.patients {
		store.refs[id] = &authz.PatientRef{ID: id, OwnerTherapistID: p.TherapistID, OwnerActorID: p.LoginID}
	}
	sharing := authz.NewSharingException(authz.SharingExceptionConfig{}, noDirectory{}, zerolog.Nop())
	return NewService(repo, authz.NewEngine(store, sharing))
}

func seedPatient(repo *fakeRepo, therapistID *uuid.UUID) *Patient {
	p := &Patient{ID: uuid.New(), FullName: "Joao Silva", TherapistID: therapistID}
	repo.patients[p.ID] = p
	return p
}

func TestCreate_TherapistOwnsNewRecord(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	therapist := authz.Identity{ActorID: uuid.New(), Role: authz.RoleTherapist}

	other := uuid.New()
	created, err := svc.Create(context.Background(), therapist, &Patient{
		FullName:    "Joao Silva",
		TherapistID: &other,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.TherapistID == nil || *created.TherapistID != therapist.ActorID {
		t.Errorf("therapist_id = %v, want creator %v", created.TherapistID, therapist.ActorID)
	}
}

func TestCreate_AdminMayLeaveUnassigned(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	admin := authz.Identity{ActorID: uuid.New(), Role: authz.RoleAdmin}

	created, err := svc.Create(context.Background(), admin, &Patient{FullName: "Joao Silva"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.TherapistID != nil {
		t.Errorf("therapist_id = %v, want nil", created.TherapistID)
	}
}

func TestCreate_RequiresFullName(t *testing.T) {
	svc := newTestService(newFakeRepo())
	admin := authz.Identity{ActorID: uuid.New(), Role: authz.RoleAdmin}

	if _, err := svc.Create(context.Background(), admin, &Patient{FullName: "   "}); err == nil {
		t.Fatal("Create() accepted blank full_name")
	}
}

func TestGet_OwnershipDecidesAccess(t *testing.T) {
	repo := newFakeRepo()
	ownerID := uuid.New()
	p := seedPatient(repo, &ownerID)
	svc := newTestService(repo)
	ctx := context.Background()

	owner := authz.Identity{ActorID: ownerID, Role: authz.RoleTherapist}
	if _, err := svc.Get(ctx, owner, p.ID); err != nil {
		t.Errorf("owning therapist Get() error = %v", err)
	}

	stranger := authz.Identity{ActorID: uuid.New(), Role: authz.RoleTherapist}
	if _, err := svc.Get(ctx, stranger, p.ID); !errors.Is(err, authz.ErrNotFound) {
		t.Errorf("stranger Get() error = %v, want ErrNotFound", err)
	}

	admin := authz.Identity{ActorID: uuid.New(), Role: authz.RoleAdmin}
	if _, err := svc.Get(ctx, admin, p.ID); err != nil {
		t.Errorf("admin Get() error = %v", err)
	}
}

func TestGet_UnknownRecordIndistinguishableFromDenied(t *testing.T) {
	repo := newFakeRepo()
	ownerID := uuid.New()
	p := seedPatient(repo, &ownerID)
	svc := newTestService(repo)
	ctx := context.Background()
	stranger := authz.Identity{ActorID: uuid.New(), Role: authz.RoleTherapist}

	_, deniedErr := svc.Get(ctx, stranger, p.ID)
	_, missingErr := svc.Get(ctx, stranger, uuid.New())
	if !errors.Is(deniedErr, authz.ErrNotFound) || !errors.Is(missingErr, authz.ErrNotFound) {
		t.Fatalf("denied = %v, missing = %v, want ErrNotFound for both", deniedErr, missingErr)
	}
}

func TestDelete_DeniedForNonOwner(t *testing.T) {
	repo := newFakeRepo()
	ownerID := uuid.New()
	p := seedPatient(repo, &ownerID)
	svc := newTestService(repo)

	stranger := authz.Identity{ActorID: uuid.New(), Role: authz.RoleTherapist}
	if err := svc.Delete(context.Background(), stranger, p.ID); !errors.Is(err, authz.ErrNotFound) {
		t.Fatalf("Delete() error = %v, want ErrNotFound", err)
	}
	if _, ok := repo.patients[p.ID]; !ok {
		t.Fatal("record was deleted despite denial")
	}
}

func TestList_ScopesByRole(t *testing.T) {
	repo := newFakeRepo()
	ownerID := uuid.New()
	mine := seedPatient(repo, &ownerID)
	seedPatient(repo, nil)
	otherID := uuid.New()
	seedPatient(repo, &otherID)
	svc := newTestService(repo)
	ctx := context.Background()

	owner := authz.Identity{ActorID: ownerID, Role: authz.RoleTherapist}
	got, total, err := svc.List(ctx, owner, 20, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 1 || len(got) != 1 || got[0].ID != mine.ID {
		t.Errorf("therapist list = %d records, want only own patient", len(got))
	}

	admin := authz.Identity{ActorID: uuid.New(), Role: authz.RoleAdmin}
	_, total, err = svc.List(ctx, admin, 20, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 3 {
		t.Errorf("admin list total = %d, want 3", total)
	}
}

func TestAssign_MapsUniqueViolation(t *testing.T) {
	repo := newFakeRepo()
	repo.assignErr = &pgconn.PgError{Code: "23505", ConstraintName: "patients_login_id_key"}
	svc := newTestService(repo)

	login := uuid.New()
	_, err := svc.Assign(context.Background(), uuid.New(), Assignment{LoginID: &login})
	if !errors.Is(err, ErrLoginLinked) {
		t.Fatalf("Assign() error = %v, want ErrLoginLinked", err)
	}
}
