package authz

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SharingExceptionConfig is the configuration shape of the one named
// cross-tenant exception: patients owned by the origin therapist are also
// visible to the allow-listed viewer emails. Loaded from configuration so
// no identity literal lives in the rules themselves.
type SharingExceptionConfig struct {
	OriginTherapistEmail string
	AllowedViewerEmails  []string
}

// Enabled reports whether an origin therapist email is configured at all.
func (c SharingExceptionConfig) Enabled() bool {
	return NormalizeEmail(c.OriginTherapistEmail) != ""
}

// SharingException resolves the exception at runtime. The origin therapist
// id is environment-dependent, so it is looked up by email on first use and
// cached for the process lifetime. The cache is single-assignment:
// concurrent first-time lookups may each hit the directory, which is
// harmless because the result is the same, but once a value is published
// every later call observes it.
type SharingException struct {
	originEmail string
	viewers     map[string]struct{}
	directory   TherapistDirectory
	logger      zerolog.Logger

	origin atomic.Pointer[uuid.UUID]
}

func NewSharingException(cfg SharingExceptionConfig, directory TherapistDirectory, logger zerolog.Logger) *SharingException {
	viewers := make(map[string]struct{}, len(cfg.AllowedViewerEmails))
	for _, email := range cfg.AllowedViewerEmails {
		if normalized := NormalizeEmail(email); normalized != "" {
			viewers[normalized] = struct{}{}
		}
	}
	return &SharingException{
		originEmail: NormalizeEmail(cfg.OriginTherapistEmail),
		viewers:     viewers,
		directory:   directory,
		logger:      logger,
	}
}

// OriginTherapistID returns the id of the origin therapist, or uuid.Nil
// when no exception is configured or the configured email does not resolve.
// A failed lookup is logged and leaves the exception inert; the exception
// only ever adds access, so its absence must not change any other rule.
func (s *SharingException) OriginTherapistID(ctx context.Context) uuid.UUID {
	if s == nil || s.originEmail == "" {
		return uuid.Nil
	}
	if cached := s.origin.Load(); cached != nil {
		return *cached
	}

	id, found, err := s.directory.TherapistIDByEmail(ctx, s.originEmail)
	if err != nil {
		s.logger.Error().Err(err).
			Str("origin_email", s.originEmail).
			Msg("sharing exception: origin therapist lookup failed, exception inert")
		return uuid.Nil
	}
	if !found {
		// Not cached: the login may be created later in the process
		// lifetime, and an unresolved origin must stay inert meanwhile.
		return uuid.Nil
	}

	resolved := id
	s.origin.CompareAndSwap(nil, &resolved)
	return *s.origin.Load()
}

// IsAllowedViewer reports whether the identity may see the origin
// therapist's patients. The origin therapist's own email is always
// allowed; the exception never restricts its own tenant.
func (s *SharingException) IsAllowedViewer(identity Identity) bool {
	if s == nil {
		return false
	}
	email := identity.normalizedEmail()
	if email == "" {
		return false
	}
	if email == s.originEmail {
		return true
	}
	_, ok := s.viewers[email]
	return ok
}
