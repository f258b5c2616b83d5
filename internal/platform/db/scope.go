package db

import (
	"fmt"
	"strings"

	"github.com/psyhead/clinic/internal/platform/authz"
)

// ScopeCondition translates a listing predicate into a SQL condition over
// a patients table (or alias). Positional placeholders start at
// len(args)+1 and the matching values are appended to args. The returned
// condition never widens the predicate: it must admit exactly the records
// authz.ScopePredicate.Matches admits.
func ScopeCondition(p authz.ScopePredicate, alias string, args []any) (string, []any) {
	prefix := ""
	if alias != "" {
		prefix = alias + "."
	}

	switch p.Kind {
	case authz.ScopeAll:
		return "TRUE", args

	case authz.ScopeOwnerTherapist, authz.ScopeOwnerTherapists:
		placeholders := make([]string, 0, len(p.TherapistIDs))
		for _, id := range p.TherapistIDs {
			args = append(args, id)
			placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
		}
		if len(placeholders) == 0 {
			return "FALSE", args
		}
		if len(placeholders) == 1 {
			return fmt.Sprintf("%stherapist_id = %s", prefix, placeholders[0]), args
		}
		return fmt.Sprintf("%stherapist_id IN (%s)", prefix, strings.Join(placeholders, ", ")), args

	case authz.ScopeOwnerActor:
		args = append(args, p.ActorID)
		return fmt.Sprintf("%slogin_id = $%d", prefix, len(args)), args

	case authz.ScopeExcludeOwnerTherapist:
		conds := make([]string, 0, len(p.TherapistIDs))
		for _, id := range p.TherapistIDs {
			args = append(args, id)
			conds = append(conds, fmt.Sprintf("%stherapist_id <> $%d", prefix, len(args)))
		}
		if len(conds) == 0 {
			return "TRUE", args
		}
		// Unassigned records stay visible: only the named tenant is
		// excluded.
		return fmt.Sprintf("(%stherapist_id IS NULL OR %s)", prefix, strings.Join(conds, " AND ")), args

	case authz.ScopeNone:
		return "FALSE", args
	}

	// Unknown predicate kinds match nothing; listing must fail closed.
	return "FALSE", args
}
