package authz

import (
	"context"

	"github.com/google/uuid"
)

// Decision is the ephemeral result of one access check. It is never
// persisted or cached between requests: ownership can change at any time
// and a stale grant is a security defect.
type Decision struct {
	Granted bool
	Reason  string
}

func grant(reason string) Decision { return Decision{Granted: true, Reason: reason} }
func deny(reason string) Decision  { return Decision{Granted: false, Reason: reason} }

// Engine decides, for every clinical resource, whether an actor may touch
// it. It is the single entry point handlers call before reading or
// mutating anything patient-scoped.
type Engine struct {
	store   OwnershipStore
	sharing *SharingException
}

func NewEngine(store OwnershipStore, sharing *SharingException) *Engine {
	return &Engine{store: store, sharing: sharing}
}

// Decide applies the access rules to an already-resolved patient record.
// Evaluation order matters and the first matching rule wins:
//
//  1. A patient login only ever reaches its own record.
//  2. The sharing exception walls off the origin therapist's patients to
//     the allow-listed viewers. This runs before the admin rule on
//     purpose: unlisted admins do not see that tenant.
//  3. Admins reach everything else.
//  4. Therapists reach their own patients.
//  5. Everything else is denied.
func (e *Engine) Decide(ctx context.Context, identity Identity, ref *PatientRef) Decision {
	if ref == nil {
		return deny("no patient record")
	}

	if identity.Role == RolePatient {
		if ref.OwnerActorID != nil && *ref.OwnerActorID == identity.ActorID {
			return grant("own record")
		}
		return deny("patient may only access own record")
	}

	if origin := e.sharing.OriginTherapistID(ctx); origin != uuid.Nil &&
		ref.OwnerTherapistID != nil && *ref.OwnerTherapistID == origin {
		if e.sharing.IsAllowedViewer(identity) {
			return grant("sharing exception viewer")
		}
		return deny("patient belongs to restricted therapist")
	}

	switch identity.Role {
	case RoleAdmin:
		return grant("admin")
	case RoleTherapist:
		if ref.OwnerTherapistID != nil && *ref.OwnerTherapistID == identity.ActorID {
			return grant("owning therapist")
		}
		return deny("patient belongs to another therapist")
	}

	return deny("unknown role")
}

// Authorize resolves the owning patient of a resource and decides access.
// It returns ErrNotFound when the ownership chain cannot be resolved;
// callers must surface that exactly like a denied decision.
func (e *Engine) Authorize(ctx context.Context, identity Identity, kind ResourceKind, id uuid.UUID) (Decision, error) {
	ref, err := e.store.OwningPatient(ctx, kind, id)
	if err != nil {
		return Decision{}, err
	}
	return e.Decide(ctx, identity, ref), nil
}
