package graph

import (
	"errors"
	"fmt"
	"strings"
)

// RoleSeparator splits a combined role label into atomic roles.
const RoleSeparator = "/"

// Counters holds the last id allocated for each relation table.
type Counters struct {
	Profession       int `json:"profession"`
	PersonProfession int `json:"person_profession"`
	Role             int `json:"role"`
}

// relationTables is the scheduler-owned state the aggregator mutates.
type relationTables struct {
	professions map[string]int
	counters    Counters
}

func newRelationTables() *relationTables {
	return &relationTables{professions: make(map[string]int)}
}

// aggregateRelations builds the Profession, PersonProfession and Role
// records of one visited person. Movies referenced by roles are resolved
// through the frontier, which reserves and enqueues unseen ones.
//
// The returned error joins the per-profession structure failures; the
// records are valid even when it is non-nil.
func aggregateRelations(person NodeRef, page PersonPage, tables *relationTables, frontier *Frontier) ([]Record, error) {
	professions, err := page.Professions()
	if err != nil {
		return nil, fmt.Errorf("professions of %s: %w", person.URL, err)
	}

	var (
		records []Record
		ordered []string
		ppIDs   = make(map[string]int, len(professions))
	)
	for _, name := range professions {
		if _, dup := ppIDs[name]; dup {
			continue
		}
		professionID, ok := tables.professions[name]
		if !ok {
			tables.counters.Profession++
			professionID = tables.counters.Profession
			tables.professions[name] = professionID
			records = append(records, Profession{ID: professionID, Name: name})
		}
		tables.counters.PersonProfession++
		ppIDs[name] = tables.counters.PersonProfession
		ordered = append(ordered, name)
		records = append(records, PersonProfession{
			ID:           tables.counters.PersonProfession,
			PersonID:     person.ID,
			ProfessionID: professionID,
			Rating:       Opt(page.ProfessionRating(name)),
		})
	}

	var roleErrs []error
	for _, name := range ordered {
		roles, err := page.ProfessionRoles(name)
		if err != nil {
			roleErrs = append(roleErrs, fmt.Errorf("roles of %s as %q: %w", person.URL, name, err))
			continue
		}
		for _, role := range roles {
			movie := frontier.Discover(KindMovie, role.MovieURL)
			for _, roleName := range SplitRoleName(role.Name) {
				tables.counters.Role++
				records = append(records, Role{
					ID:                 tables.counters.Role,
					PersonProfessionID: ppIDs[name],
					MovieID:            movie.ID,
					Name:               roleName,
				})
			}
		}
	}
	return records, errors.Join(roleErrs...)
}

// SplitRoleName splits a combined role label on RoleSeparator into trimmed
// parts. A nil or separator-free name yields a single element.
func SplitRoleName(name *string) []*string {
	if name == nil || !strings.Contains(*name, RoleSeparator) {
		return []*string{name}
	}
	parts := strings.Split(*name, RoleSeparator)
	out := make([]*string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		out = append(out, &p)
	}
	return out
}
