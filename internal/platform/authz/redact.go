package authz

// PayloadKind names the payload shapes redaction policies can target.
type PayloadKind string

const (
	PayloadSession   PayloadKind = "session"
	PayloadDashboard PayloadKind = "dashboard"
)

// FieldRule names one field a policy removes from reads and the safe value
// it forces on writes. A nil WriteDefault forces the field to NULL.
type FieldRule struct {
	Name         string
	WriteDefault any
}

// FieldPolicy removes a fixed set of fields from payloads of the listed
// kinds for the blocked actors. Policies are independent; overlapping
// policies compose as the union of their fields.
type FieldPolicy struct {
	Name          string
	Kinds         []PayloadKind
	BlockedEmails []string
	Fields        []FieldRule
}

// ModulePolicy blocks a set of actors from a whole module (the finance
// screens and reports). Admins are always exempt, as with field policies.
type ModulePolicy struct {
	Name          string
	BlockedEmails []string
}

// Allows reports whether the identity may enter the module.
func (p ModulePolicy) Allows(identity Identity) bool {
	if identity.Role == RoleAdmin {
		return true
	}
	email := identity.normalizedEmail()
	if email == "" {
		return true
	}
	for _, blocked := range p.BlockedEmails {
		if NormalizeEmail(blocked) == email {
			return false
		}
	}
	return true
}

// Redactor applies every configured field policy to payloads crossing the
// request/response boundary.
type Redactor struct {
	policies []fieldPolicy
}

type fieldPolicy struct {
	kinds   map[PayloadKind]struct{}
	blocked map[string]struct{}
	fields  []FieldRule
}

func NewRedactor(policies ...FieldPolicy) *Redactor {
	r := &Redactor{policies: make([]fieldPolicy, 0, len(policies))}
	for _, p := range policies {
		compiled := fieldPolicy{
			kinds:   make(map[PayloadKind]struct{}, len(p.Kinds)),
			blocked: make(map[string]struct{}, len(p.BlockedEmails)),
			fields:  p.Fields,
		}
		for _, k := range p.Kinds {
			compiled.kinds[k] = struct{}{}
		}
		for _, email := range p.BlockedEmails {
			if normalized := NormalizeEmail(email); normalized != "" {
				compiled.blocked[normalized] = struct{}{}
			}
		}
		r.policies = append(r.policies, compiled)
	}
	return r
}

func (p fieldPolicy) applies(identity Identity, kind PayloadKind) bool {
	if identity.Role == RoleAdmin {
		return false
	}
	if _, ok := p.kinds[kind]; !ok {
		return false
	}
	_, ok := p.blocked[identity.normalizedEmail()]
	return ok
}

// BlockedFields returns the union of field names every applicable policy
// removes for this identity and payload kind. Empty for admins.
func (r *Redactor) BlockedFields(identity Identity, kind PayloadKind) []string {
	var fields []string
	seen := make(map[string]struct{})
	for _, p := range r.policies {
		if !p.applies(identity, kind) {
			continue
		}
		for _, f := range p.fields {
			if _, ok := seen[f.Name]; ok {
				continue
			}
			seen[f.Name] = struct{}{}
			fields = append(fields, f.Name)
		}
	}
	return fields
}

// FieldBlocked reports whether one named field is redacted for the
// identity on the given payload kind.
func (r *Redactor) FieldBlocked(identity Identity, kind PayloadKind, field string) bool {
	for _, p := range r.policies {
		if !p.applies(identity, kind) {
			continue
		}
		for _, f := range p.fields {
			if f.Name == field {
				return true
			}
		}
	}
	return false
}

// WriteDefault returns the safe value a blocked field must be forced to on
// writes, and whether the field is blocked at all for this identity.
func (r *Redactor) WriteDefault(identity Identity, kind PayloadKind, field string) (any, bool) {
	for _, p := range r.policies {
		if !p.applies(identity, kind) {
			continue
		}
		for _, f := range p.fields {
			if f.Name == field {
				return f.WriteDefault, true
			}
		}
	}
	return nil, false
}

// RedactPayload removes every blocked field from the payload. Fields are
// deleted, not nulled: a redacted response does not mention them. The
// input map is not modified. Removal is idempotent and commutative, so
// overlapping policies need no precedence.
func (r *Redactor) RedactPayload(identity Identity, kind PayloadKind, payload map[string]any) map[string]any {
	if payload == nil {
		return nil
	}
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		out[k] = v
	}
	for _, field := range r.BlockedFields(identity, kind) {
		delete(out, field)
	}
	return out
}
