package authz

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// fakeDirectory resolves therapist emails from a fixed map.
type fakeDirectory struct {
	byEmail map[string]uuid.UUID
	err     error
	calls   int
}

func (d *fakeDirectory) TherapistIDByEmail(ctx context.Context, email string) (uuid.UUID, bool, error) {
	d.calls++
	if d.err != nil {
		return uuid.Nil, false, d.err
	}
	id, ok := d.byEmail[email]
	return id, ok, nil
}

// fakeOwnership serves patient refs from a fixed map keyed by resource id.
type fakeOwnership struct {
	refs map[uuid.UUID]*PatientRef
}

func (s *fakeOwnership) PatientRef(ctx context.Context, id uuid.UUID) (*PatientRef, error) {
	ref, ok := s.refs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return ref, nil
}

func (s *fakeOwnership) OwningPatient(ctx context.Context, kind ResourceKind, id uuid.UUID) (*PatientRef, error) {
	return s.PatientRef(ctx, id)
}

const originEmail = "origin@clinic.example"

var (
	adminID      = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	originID     = uuid.MustParse("22222222-2222-2222-2222-222222222222")
	therapistID  = uuid.MustParse("33333333-3333-3333-3333-333333333333")
	viewerID     = uuid.MustParse("44444444-4444-4444-4444-444444444444")
	patientLogin = uuid.MustParse("55555555-5555-5555-5555-555555555555")
)

func newTestEngine(store OwnershipStore, cfg SharingExceptionConfig) *Engine {
	directory := &fakeDirectory{byEmail: map[string]uuid.UUID{
		originEmail: originID,
	}}
	sharing := NewSharingException(cfg, directory, zerolog.Nop())
	return NewEngine(store, sharing)
}

func sharedConfig() SharingExceptionConfig {
	return SharingExceptionConfig{
		OriginTherapistEmail: originEmail,
		AllowedViewerEmails:  []string{"viewer@clinic.example"},
	}
}

func ownedBy(therapist uuid.UUID) *PatientRef {
	id := uuid.New()
	t := therapist
	return &PatientRef{ID: id, OwnerTherapistID: &t}
}

func TestDecide_PatientOwnRecordOnly(t *testing.T) {
	engine := newTestEngine(&fakeOwnership{}, SharingExceptionConfig{})
	login := patientLogin

	own := &PatientRef{ID: uuid.New(), OwnerActorID: &login}
	other := &PatientRef{ID: uuid.New()}

	identity := Identity{ActorID: patientLogin, Role: RolePatient}

	if d := engine.Decide(context.Background(), identity, own); !d.Granted {
		t.Errorf("expected grant on own record, got %q", d.Reason)
	}
	if d := engine.Decide(context.Background(), identity, other); d.Granted {
		t.Error("expected deny on unlinked record")
	}
}

func TestDecide_PatientRoleNeverWidens(t *testing.T) {
	// A patient login allow-listed as viewer still only reaches its own
	// record; the role rule runs first.
	engine := newTestEngine(&fakeOwnership{}, SharingExceptionConfig{
		OriginTherapistEmail: originEmail,
		AllowedViewerEmails:  []string{"blocked.patient@clinic.example"},
	})

	identity := Identity{
		ActorID: patientLogin,
		Role:    RolePatient,
		Email:   "blocked.patient@clinic.example",
	}
	ref := ownedBy(originID)

	if d := engine.Decide(context.Background(), identity, ref); d.Granted {
		t.Error("expected deny: patient role pre-empts the sharing exception")
	}
}

func TestDecide_AdminReachesEverythingWithoutException(t *testing.T) {
	engine := newTestEngine(&fakeOwnership{}, SharingExceptionConfig{})
	identity := Identity{ActorID: adminID, Role: RoleAdmin, Email: "admin@clinic.example"}

	for _, ref := range []*PatientRef{
		ownedBy(therapistID),
		{ID: uuid.New()}, // unassigned
	} {
		if d := engine.Decide(context.Background(), identity, ref); !d.Granted {
			t.Errorf("expected admin grant, got %q", d.Reason)
		}
	}
}

func TestDecide_ExceptionPreemptsAdmin(t *testing.T) {
	engine := newTestEngine(&fakeOwnership{}, sharedConfig())
	admin := Identity{ActorID: adminID, Role: RoleAdmin, Email: "admin@clinic.example"}
	ref := ownedBy(originID)

	if d := engine.Decide(context.Background(), admin, ref); d.Granted {
		t.Error("expected deny: unlisted admin must not see the shared tenant")
	}

	// An allow-listed admin passes via the exception.
	listedAdmin := Identity{ActorID: adminID, Role: RoleAdmin, Email: "Viewer@clinic.example"}
	if d := engine.Decide(context.Background(), listedAdmin, ref); !d.Granted {
		t.Errorf("expected grant for allow-listed admin, got %q", d.Reason)
	}
}

func TestDecide_TherapistOwnPatientsOnly(t *testing.T) {
	engine := newTestEngine(&fakeOwnership{}, SharingExceptionConfig{})
	identity := Identity{ActorID: therapistID, Role: RoleTherapist, Email: "t@clinic.example"}

	if d := engine.Decide(context.Background(), identity, ownedBy(therapistID)); !d.Granted {
		t.Errorf("expected grant on own patient, got %q", d.Reason)
	}
	if d := engine.Decide(context.Background(), identity, ownedBy(uuid.New())); d.Granted {
		t.Error("expected deny on another therapist's patient")
	}
	if d := engine.Decide(context.Background(), identity, &PatientRef{ID: uuid.New()}); d.Granted {
		t.Error("expected deny on unassigned patient")
	}
}

func TestDecide_ViewerReachesSharedTenant(t *testing.T) {
	engine := newTestEngine(&fakeOwnership{}, sharedConfig())
	ref := ownedBy(originID)

	viewer := Identity{ActorID: viewerID, Role: RoleTherapist, Email: "viewer@clinic.example"}
	if d := engine.Decide(context.Background(), viewer, ref); !d.Granted {
		t.Errorf("expected grant for allow-listed viewer, got %q", d.Reason)
	}

	origin := Identity{ActorID: originID, Role: RoleTherapist, Email: originEmail}
	if d := engine.Decide(context.Background(), origin, ref); !d.Granted {
		t.Errorf("expected grant for origin therapist, got %q", d.Reason)
	}

	outsider := Identity{ActorID: therapistID, Role: RoleTherapist, Email: "t@clinic.example"}
	if d := engine.Decide(context.Background(), outsider, ref); d.Granted {
		t.Error("expected deny for unlisted therapist on shared tenant")
	}
}

func TestDecide_ViewerEmailsCaseInsensitive(t *testing.T) {
	engine := newTestEngine(&fakeOwnership{}, sharedConfig())
	ref := ownedBy(originID)

	viewer := Identity{ActorID: viewerID, Role: RoleTherapist, Email: "  VIEWER@Clinic.Example  "}
	if d := engine.Decide(context.Background(), viewer, ref); !d.Granted {
		t.Errorf("expected case-insensitive email match, got %q", d.Reason)
	}
}

func TestDecide_NilRefDenied(t *testing.T) {
	engine := newTestEngine(&fakeOwnership{}, SharingExceptionConfig{})
	identity := Identity{ActorID: adminID, Role: RoleAdmin}
	if d := engine.Decide(context.Background(), identity, nil); d.Granted {
		t.Error("expected deny for missing record")
	}
}

func TestAuthorize_UnresolvableIsNotFound(t *testing.T) {
	engine := newTestEngine(&fakeOwnership{refs: map[uuid.UUID]*PatientRef{}}, SharingExceptionConfig{})
	identity := Identity{ActorID: adminID, Role: RoleAdmin}

	_, err := engine.Authorize(context.Background(), identity, KindSession, uuid.New())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAuthorize_ResolvesThroughStore(t *testing.T) {
	sessionID := uuid.New()
	store := &fakeOwnership{refs: map[uuid.UUID]*PatientRef{
		sessionID: ownedBy(therapistID),
	}}
	engine := newTestEngine(store, SharingExceptionConfig{})

	owner := Identity{ActorID: therapistID, Role: RoleTherapist}
	d, err := engine.Authorize(context.Background(), owner, KindSession, sessionID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.Granted {
		t.Errorf("expected grant for owning therapist, got %q", d.Reason)
	}

	other := Identity{ActorID: uuid.New(), Role: RoleTherapist}
	d, err = engine.Authorize(context.Background(), other, KindSession, sessionID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Granted {
		t.Error("expected deny for non-owning therapist")
	}
}
