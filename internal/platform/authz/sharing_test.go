package authz

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func TestSharingException_DisabledWhenUnconfigured(t *testing.T) {
	directory := &fakeDirectory{byEmail: map[string]uuid.UUID{}}
	s := NewSharingException(SharingExceptionConfig{}, directory, zerolog.Nop())

	if id := s.OriginTherapistID(context.Background()); id != uuid.Nil {
		t.Errorf("expected nil origin when unconfigured, got %s", id)
	}
	if directory.calls != 0 {
		t.Errorf("expected no directory lookups, got %d", directory.calls)
	}
}

func TestSharingException_ResolvesOnceAndCaches(t *testing.T) {
	directory := &fakeDirectory{byEmail: map[string]uuid.UUID{
		originEmail: originID,
	}}
	s := NewSharingException(sharedConfig(), directory, zerolog.Nop())

	for i := 0; i < 3; i++ {
		if id := s.OriginTherapistID(context.Background()); id != originID {
			t.Fatalf("lookup %d: expected %s, got %s", i, originID, id)
		}
	}
	if directory.calls != 1 {
		t.Errorf("expected exactly one directory lookup, got %d", directory.calls)
	}
}

func TestSharingException_UnresolvedNotCached(t *testing.T) {
	directory := &fakeDirectory{byEmail: map[string]uuid.UUID{}}
	s := NewSharingException(sharedConfig(), directory, zerolog.Nop())

	if id := s.OriginTherapistID(context.Background()); id != uuid.Nil {
		t.Fatalf("expected nil while origin login missing, got %s", id)
	}

	// The login is created later; the next call must pick it up.
	directory.byEmail[originEmail] = originID
	if id := s.OriginTherapistID(context.Background()); id != originID {
		t.Errorf("expected origin resolved after login creation, got %s", id)
	}
}

func TestSharingException_LookupErrorLeavesInert(t *testing.T) {
	directory := &fakeDirectory{err: errors.New("connection refused")}
	s := NewSharingException(sharedConfig(), directory, zerolog.Nop())

	if id := s.OriginTherapistID(context.Background()); id != uuid.Nil {
		t.Errorf("expected nil origin on lookup error, got %s", id)
	}
}

func TestSharingException_ConfigEmailNormalized(t *testing.T) {
	directory := &fakeDirectory{byEmail: map[string]uuid.UUID{
		originEmail: originID,
	}}
	cfg := SharingExceptionConfig{
		OriginTherapistEmail: "  Origin@Clinic.Example ",
		AllowedViewerEmails:  []string{" VIEWER@clinic.example "},
	}
	s := NewSharingException(cfg, directory, zerolog.Nop())

	if id := s.OriginTherapistID(context.Background()); id != originID {
		t.Errorf("expected origin resolved via normalized email, got %s", id)
	}
	if !s.IsAllowedViewer(Identity{Email: "viewer@clinic.example"}) {
		t.Error("expected normalized allow-list entry to match")
	}
}

func TestSharingException_OriginAlwaysViewer(t *testing.T) {
	s := NewSharingException(SharingExceptionConfig{
		OriginTherapistEmail: originEmail,
	}, &fakeDirectory{}, zerolog.Nop())

	if !s.IsAllowedViewer(Identity{Email: originEmail}) {
		t.Error("expected the origin therapist to always be an allowed viewer")
	}
	if s.IsAllowedViewer(Identity{Email: "someone@clinic.example"}) {
		t.Error("expected unlisted email to be rejected")
	}
	if s.IsAllowedViewer(Identity{}) {
		t.Error("expected empty email to be rejected")
	}
}
