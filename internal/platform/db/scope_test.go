package db

import (
	"testing"

	"github.com/google/uuid"

	"github.com/psyhead/clinic/internal/platform/authz"
)

var (
	tA = uuid.MustParse("aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa")
	tB = uuid.MustParse("bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb")
)

func TestScopeCondition_All(t *testing.T) {
	cond, args := ScopeCondition(authz.ScopePredicate{Kind: authz.ScopeAll}, "p", nil)
	if cond != "TRUE" || len(args) != 0 {
		t.Errorf("got %q with %d args", cond, len(args))
	}
}

func TestScopeCondition_SingleOwner(t *testing.T) {
	p := authz.ScopePredicate{Kind: authz.ScopeOwnerTherapist, TherapistIDs: []uuid.UUID{tA}}
	cond, args := ScopeCondition(p, "p", nil)
	if cond != "p.therapist_id = $1" {
		t.Errorf("got %q", cond)
	}
	if len(args) != 1 || args[0] != tA {
		t.Errorf("got args %v", args)
	}
}

func TestScopeCondition_OwnerSet(t *testing.T) {
	p := authz.ScopePredicate{Kind: authz.ScopeOwnerTherapists, TherapistIDs: []uuid.UUID{tA, tB}}
	cond, args := ScopeCondition(p, "", nil)
	if cond != "therapist_id IN ($1, $2)" {
		t.Errorf("got %q", cond)
	}
	if len(args) != 2 {
		t.Errorf("got args %v", args)
	}
}

func TestScopeCondition_OwnerActor(t *testing.T) {
	login := uuid.New()
	p := authz.ScopePredicate{Kind: authz.ScopeOwnerActor, ActorID: login}
	cond, args := ScopeCondition(p, "p", nil)
	if cond != "p.login_id = $1" {
		t.Errorf("got %q", cond)
	}
	if len(args) != 1 || args[0] != login {
		t.Errorf("got args %v", args)
	}
}

func TestScopeCondition_ExcludeOwner(t *testing.T) {
	p := authz.ScopePredicate{Kind: authz.ScopeExcludeOwnerTherapist, TherapistIDs: []uuid.UUID{tA}}
	cond, args := ScopeCondition(p, "p", nil)
	if cond != "(p.therapist_id IS NULL OR p.therapist_id <> $1)" {
		t.Errorf("got %q", cond)
	}
	if len(args) != 1 {
		t.Errorf("got args %v", args)
	}
}

func TestScopeCondition_PlaceholdersContinueNumbering(t *testing.T) {
	p := authz.ScopePredicate{Kind: authz.ScopeOwnerTherapist, TherapistIDs: []uuid.UUID{tA}}
	cond, args := ScopeCondition(p, "p", []any{"existing"})
	if cond != "p.therapist_id = $2" {
		t.Errorf("got %q", cond)
	}
	if len(args) != 2 {
		t.Errorf("got args %v", args)
	}
}

func TestScopeCondition_EmptyOwnerSetFailsClosed(t *testing.T) {
	p := authz.ScopePredicate{Kind: authz.ScopeOwnerTherapists}
	cond, _ := ScopeCondition(p, "", nil)
	if cond != "FALSE" {
		t.Errorf("got %q", cond)
	}
}

func TestScopeCondition_None(t *testing.T) {
	cond, args := ScopeCondition(authz.ScopePredicate{Kind: authz.ScopeNone}, "p", nil)
	if cond != "FALSE" || len(args) != 0 {
		t.Errorf("got %q with %d args", cond, len(args))
	}
}
