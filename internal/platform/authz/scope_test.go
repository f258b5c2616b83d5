package authz

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func TestScopeFor_Patient(t *testing.T) {
	engine := newTestEngine(&fakeOwnership{}, SharingExceptionConfig{})
	identity := Identity{ActorID: patientLogin, Role: RolePatient}

	p := engine.ScopeFor(context.Background(), identity)
	if p.Kind != ScopeOwnerActor || p.ActorID != patientLogin {
		t.Fatalf("expected owner-actor scope for patient, got %+v", p)
	}
}

func TestScopeFor_TherapistWithoutException(t *testing.T) {
	engine := newTestEngine(&fakeOwnership{}, SharingExceptionConfig{})
	identity := Identity{ActorID: therapistID, Role: RoleTherapist, Email: "t@clinic.example"}

	p := engine.ScopeFor(context.Background(), identity)
	if p.Kind != ScopeOwnerTherapist {
		t.Fatalf("expected owner-therapist scope, got %+v", p)
	}
	if len(p.TherapistIDs) != 1 || p.TherapistIDs[0] != therapistID {
		t.Errorf("expected scope over own id only, got %v", p.TherapistIDs)
	}
}

func TestScopeFor_ViewerTherapistWidened(t *testing.T) {
	engine := newTestEngine(&fakeOwnership{}, sharedConfig())
	viewer := Identity{ActorID: viewerID, Role: RoleTherapist, Email: "viewer@clinic.example"}

	p := engine.ScopeFor(context.Background(), viewer)
	if p.Kind != ScopeOwnerTherapists {
		t.Fatalf("expected widened scope for viewer, got %+v", p)
	}
	if len(p.TherapistIDs) != 2 {
		t.Fatalf("expected scope over {self, origin}, got %v", p.TherapistIDs)
	}
}

func TestScopeFor_OriginTherapistNotWidened(t *testing.T) {
	engine := newTestEngine(&fakeOwnership{}, sharedConfig())
	origin := Identity{ActorID: originID, Role: RoleTherapist, Email: originEmail}

	p := engine.ScopeFor(context.Background(), origin)
	if p.Kind != ScopeOwnerTherapist {
		t.Fatalf("expected plain owner scope for origin therapist, got %+v", p)
	}
	if len(p.TherapistIDs) != 1 || p.TherapistIDs[0] != originID {
		t.Errorf("expected scope over origin id only, got %v", p.TherapistIDs)
	}
}

func TestScopeFor_AdminExcludesSharedTenant(t *testing.T) {
	engine := newTestEngine(&fakeOwnership{}, sharedConfig())
	admin := Identity{ActorID: adminID, Role: RoleAdmin, Email: "admin@clinic.example"}

	p := engine.ScopeFor(context.Background(), admin)
	if p.Kind != ScopeExcludeOwnerTherapist {
		t.Fatalf("expected exclusion scope for unlisted admin, got %+v", p)
	}
	if len(p.TherapistIDs) != 1 || p.TherapistIDs[0] != originID {
		t.Errorf("expected exclusion of origin id, got %v", p.TherapistIDs)
	}

	// An allow-listed admin sees everything.
	listed := Identity{ActorID: adminID, Role: RoleAdmin, Email: "viewer@clinic.example"}
	if p := engine.ScopeFor(context.Background(), listed); p.Kind != ScopeAll {
		t.Errorf("expected full scope for allow-listed admin, got %+v", p)
	}
}

func TestScopeFor_AdminFullWhenExceptionUnresolved(t *testing.T) {
	// Configured origin email with no matching login: the exception is
	// inert and admins see everything.
	directory := &fakeDirectory{byEmail: map[string]uuid.UUID{}}
	sharing := NewSharingException(sharedConfig(), directory, zerolog.Nop())
	engine := NewEngine(&fakeOwnership{}, sharing)

	admin := Identity{ActorID: adminID, Role: RoleAdmin}
	if p := engine.ScopeFor(context.Background(), admin); p.Kind != ScopeAll {
		t.Errorf("expected full scope when origin unresolved, got %+v", p)
	}
}

func TestScopeMatches_ExcludeAdmitsUnassigned(t *testing.T) {
	p := ScopePredicate{Kind: ScopeExcludeOwnerTherapist, TherapistIDs: []uuid.UUID{originID}}

	if !p.Matches(&PatientRef{ID: uuid.New()}) {
		t.Error("expected exclusion scope to admit unassigned records")
	}
	if p.Matches(ownedBy(originID)) {
		t.Error("expected exclusion scope to reject excluded owner")
	}
	if !p.Matches(ownedBy(therapistID)) {
		t.Error("expected exclusion scope to admit other owners")
	}
}

func TestScopeFor_UnknownRoleListsNothing(t *testing.T) {
	engine := newTestEngine(&fakeOwnership{}, SharingExceptionConfig{})
	identity := Identity{ActorID: patientLogin, Role: Role("receptionist")}

	p := engine.ScopeFor(context.Background(), identity)
	if p.Kind != ScopeNone {
		t.Fatalf("expected empty scope for unknown role, got %+v", p)
	}

	// Even a record linked to the same actor id stays invisible.
	login := patientLogin
	if p.Matches(&PatientRef{ID: uuid.New(), OwnerActorID: &login}) {
		t.Error("expected empty scope to reject the actor's own record")
	}
}

func TestScopeMatches_NilRef(t *testing.T) {
	p := ScopePredicate{Kind: ScopeAll}
	if p.Matches(nil) {
		t.Error("expected nil record to never match")
	}
}

// TestScopeDecideEquivalence checks the contract that makes listings safe:
// for every identity and every record, the listing predicate admits a
// record exactly when a record-level check would grant access.
func TestScopeDecideEquivalence(t *testing.T) {
	configs := map[string]SharingExceptionConfig{
		"no exception":   {},
		"with exception": sharedConfig(),
	}

	login := patientLogin
	records := map[string]*PatientRef{
		"unassigned":       {ID: uuid.New()},
		"owned by origin":  ownedBy(originID),
		"owned by t":       ownedBy(therapistID),
		"owned by viewer":  ownedBy(viewerID),
		"own login record": {ID: uuid.New(), OwnerActorID: &login},
	}

	identities := map[string]Identity{
		"admin":     {ActorID: adminID, Role: RoleAdmin, Email: "admin@clinic.example"},
		"origin":    {ActorID: originID, Role: RoleTherapist, Email: originEmail},
		"therapist": {ActorID: therapistID, Role: RoleTherapist, Email: "t@clinic.example"},
		"viewer":    {ActorID: viewerID, Role: RoleTherapist, Email: "viewer@clinic.example"},
		"patient":   {ActorID: patientLogin, Role: RolePatient, Email: "p@clinic.example"},
		"unknown":   {ActorID: patientLogin, Role: Role("receptionist"), Email: "r@clinic.example"},
	}

	for cfgName, cfg := range configs {
		engine := newTestEngine(&fakeOwnership{}, cfg)
		for idName, identity := range identities {
			scope := engine.ScopeFor(context.Background(), identity)
			for recName, ref := range records {
				decided := engine.Decide(context.Background(), identity, ref).Granted
				listed := scope.Matches(ref)
				if decided != listed {
					t.Errorf("%s / %s / %s: Decide=%v but Matches=%v",
						cfgName, idName, recName, decided, listed)
				}
			}
		}
	}
}
