package authz

import (
	"context"

	"github.com/google/uuid"
)

// ScopeKind tags the variants of a listing predicate.
type ScopeKind int

const (
	// ScopeAll matches every patient record.
	ScopeAll ScopeKind = iota
	// ScopeOwnerTherapist matches records owned by one therapist.
	ScopeOwnerTherapist
	// ScopeOwnerTherapists matches records owned by any of a small set of
	// therapists (a viewer's own patients plus the shared tenant's).
	ScopeOwnerTherapists
	// ScopeOwnerActor matches the single record linked to a patient login.
	ScopeOwnerActor
	// ScopeExcludeOwnerTherapist matches every record except those owned
	// by one therapist. Unassigned records (no owner) are included.
	ScopeExcludeOwnerTherapist
	// ScopeNone matches nothing. Used for identities whose every
	// per-record decision is a deny.
	ScopeNone
)

// ScopePredicate is a declarative filter over patient records. List
// queries translate it to SQL; Matches gives the same answer in memory so
// the predicate can be checked against per-record decisions.
type ScopePredicate struct {
	Kind         ScopeKind
	TherapistIDs []uuid.UUID
	ActorID      uuid.UUID
}

// Matches reports whether the predicate admits the given patient record.
// For every identity I and record P, Matches must agree with Decide(I, P):
// a listing may never show more, or less, than record-level access grants.
func (p ScopePredicate) Matches(ref *PatientRef) bool {
	if ref == nil {
		return false
	}
	switch p.Kind {
	case ScopeAll:
		return true
	case ScopeOwnerTherapist, ScopeOwnerTherapists:
		if ref.OwnerTherapistID == nil {
			return false
		}
		for _, id := range p.TherapistIDs {
			if *ref.OwnerTherapistID == id {
				return true
			}
		}
		return false
	case ScopeOwnerActor:
		return ref.OwnerActorID != nil && *ref.OwnerActorID == p.ActorID
	case ScopeExcludeOwnerTherapist:
		if ref.OwnerTherapistID == nil {
			return true
		}
		for _, id := range p.TherapistIDs {
			if *ref.OwnerTherapistID == id {
				return false
			}
		}
		return true
	case ScopeNone:
		return false
	}
	return false
}

// ScopeFor builds the listing predicate equivalent to per-record Decide
// for the identity:
//
//   - patient logins see their own record;
//   - therapists see their own patients, widened to the shared tenant when
//     they are allow-listed viewers;
//   - admins see everything except the shared tenant unless they are
//     allow-listed, in which case they see everything.
func (e *Engine) ScopeFor(ctx context.Context, identity Identity) ScopePredicate {
	switch identity.Role {
	case RolePatient:
		return ScopePredicate{Kind: ScopeOwnerActor, ActorID: identity.ActorID}

	case RoleTherapist:
		origin := e.sharing.OriginTherapistID(ctx)
		if origin != uuid.Nil && e.sharing.IsAllowedViewer(identity) && origin != identity.ActorID {
			return ScopePredicate{
				Kind:         ScopeOwnerTherapists,
				TherapistIDs: []uuid.UUID{identity.ActorID, origin},
			}
		}
		return ScopePredicate{
			Kind:         ScopeOwnerTherapist,
			TherapistIDs: []uuid.UUID{identity.ActorID},
		}

	case RoleAdmin:
		origin := e.sharing.OriginTherapistID(ctx)
		if origin != uuid.Nil && !e.sharing.IsAllowedViewer(identity) {
			return ScopePredicate{
				Kind:         ScopeExcludeOwnerTherapist,
				TherapistIDs: []uuid.UUID{origin},
			}
		}
		return ScopePredicate{Kind: ScopeAll}
	}

	// Unknown roles list nothing, mirroring the default deny.
	return ScopePredicate{Kind: ScopeNone}
}
