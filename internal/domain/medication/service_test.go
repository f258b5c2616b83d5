package medication

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
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
	meds map[uuid.UUID]*Medication
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{meds: make(map[uuid.UUID]*Medication)}
}

func (f *fakeRepo) Create(ctx context.Context, m *Medication) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	f.meds[m.ID] = m
	return nil
}

func (f *fakeRepo) GetByID(ctx context.Context, id uuid.UUID) (*Medication, error) {
	m, ok := f.meds[id]
	if !ok {
		return nil, authz.ErrNotFound
	}
	return m, nil
}

func (f *fakeRepo) Update(ctx context.Context, m *Medication) error {
	if _, ok := f.meds[m.ID]; !ok {
		return authz.ErrNotFound
	}
	f.meds[m.ID] = m
	return nil
}

func (f *fakeRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := f.meds[id]; !ok {
		return authz.ErrNotFound
	}
	delete(f.meds, id)
	return nil
}

func (f *fakeRepo) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Medication, error) {
	var out []*Medication
	for _, m := range f.meds {
		if m.PatientID == patientID {
			out = append(out, m)
		}
	}
	return out, nil
}

func newTestService(store *fakeOwnership, repo *fakeRepo) *Service {
	sharing := authz.NewSharingException(authz.SharingExceptionConfig{}, noDirectory{}, zerolog.Nop())
	return NewService(repo, authz.NewEngine(store, sharing))
}

func TestCreate_ChecksPatientAccess(t *testing.T) {
	ownerID := uuid.New()
	patientID := uuid.New()
	store := &fakeOwnership{refs: map[uuid.UUID]*authz.PatientRef{
		patientID: {ID: patientID, OwnerTherapistID: &ownerID},
	}}
	svc := newTestService(store, newFakeRepo())
	ctx := context.Background()

	med := Medication{PatientID: patientID, Name: "Sertraline", StartDate: time.Now()}

	stranger := authz.Identity{ActorID: uuid.New(), Role: authz.RoleTherapist}
	m := med
	if _, err := svc.Create(ctx, stranger, &m); !errors.Is(err, authz.ErrNotFound) {
		t.Errorf("stranger Create() error = %v, want ErrNotFound", err)
	}

	owner := authz.Identity{ActorID: ownerID, Role: authz.RoleTherapist}
	m = med
	if _, err := svc.Create(ctx, owner, &m); err != nil {
		t.Errorf("owner Create() error = %v", err)
	}
}

func TestCreate_ValidatesRequiredFields(t *testing.T) {
	svc := newTestService(&fakeOwnership{refs: map[uuid.UUID]*authz.PatientRef{}}, newFakeRepo())
	admin := authz.Identity{ActorID: uuid.New(), Role: authz.RoleAdmin}
	ctx := context.Background()

	if _, err := svc.Create(ctx, admin, &Medication{PatientID: uuid.New(), StartDate: time.Now()}); err == nil {
		t.Error("Create() accepted missing name")
	}
	if _, err := svc.Create(ctx, admin, &Medication{PatientID: uuid.New(), Name: "Sertraline"}); err == nil {
		t.Error("Create() accepted missing start_date")
	}
}

func TestDelete_ResolvesThroughMedication(t *testing.T) {
	ownerID := uuid.New()
	patientID := uuid.New()
	medID := uuid.New()
	ref := &authz.PatientRef{ID: patientID, OwnerTherapistID: &ownerID}
	store := &fakeOwnership{refs: map[uuid.UUID]*authz.PatientRef{patientID: ref, medID: ref}}
	repo := newFakeRepo()
	repo.meds[medID] = &Medication{ID: medID, PatientID: patientID, Name: "Sertraline", StartDate: time.Now()}
	svc := newTestService(store, repo)
	ctx := context.Background()

	stranger := authz.Identity{ActorID: uuid.New(), Role: authz.RoleTherapist}
	if err := svc.Delete(ctx, stranger, medID); !errors.Is(err, authz.ErrNotFound) {
		t.Errorf("stranger Delete() error = %v, want ErrNotFound", err)
	}

	owner := authz.Identity{ActorID: ownerID, Role: authz.RoleTherapist}
	if err := svc.Delete(ctx, owner, medID); err != nil {
		t.Errorf("owner Delete() error = %v", err)
	}
}

func TestListByPatient_PatientSeesOwnChart(t *testing.T) {
	loginID := uuid.New()
	patientID := uuid.New()
	store := &fakeOwnership{refs: map[uuid.UUID]*authz.PatientRef{
		patientID: {ID: patientID, OwnerActorID: &loginID},
	}}
	repo := newFakeRepo()
	repo.meds[uuid.New()] = &Medication{ID: uuid.New(), PatientID: patientID, Name: "Sertraline", StartDate: time.Now()}
	svc := newTestService(store, repo)
	ctx := context.Background()

	self := authz.Identity{ActorID: loginID, Role: authz.RolePatient}
	meds, err := svc.ListByPatient(ctx, self, patientID)
	if err != nil {
		t.Fatalf("ListByPatient() error = %v", err)
	}
	if len(meds) != 1 {
		t.Errorf("got %d medications, want 1", len(meds))
	}

	otherPatient := authz.Identity{ActorID: uuid.New(), Role: authz.RolePatient}
	if _, err := svc.ListByPatient(ctx, otherPatient, patientID); !errors.Is(err, authz.ErrNotFound) {
		t.Errorf("other patient ListByPatient() error = %v, want ErrNotFound", err)
	}
}
