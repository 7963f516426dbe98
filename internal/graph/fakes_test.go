package graph

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

type fakeMovie struct {
	title   string
	year    int
	rating  float64
	cast    []string
	castErr error
}

func (m fakeMovie) Title() (string, bool)     { return m.title, m.title != "" }
func (m fakeMovie) Year() (int, bool)         { return m.year, m.year != 0 }
func (m fakeMovie) PosterURL() (string, bool) { return "", false }
func (m fakeMovie) Plot() (string, bool)      { return "", false }
func (m fakeMovie) Rating() (float64, bool)   { return m.rating, m.rating != 0 }
func (m fakeMovie) CastLinks() ([]string, error) {
	return m.cast, m.castErr
}

type fakeProfession struct {
	name   string
	rating float64
	roles  []RoleRef
}

type fakePerson struct {
	name        string
	born        time.Time
	professions []fakeProfession
	structErr   error
}

func (p fakePerson) FullName() (string, bool)     { return p.name, p.name != "" }
func (p fakePerson) BirthDate() (time.Time, bool) { return p.born, !p.born.IsZero() }
func (p fakePerson) DeathDate() (time.Time, bool) { return time.Time{}, false }
func (p fakePerson) ImageURL() (string, bool)     { return "", false }

func (p fakePerson) Professions() ([]string, error) {
	if p.structErr != nil {
		return nil, p.structErr
	}
	out := make([]string, 0, len(p.professions))
	for _, prof := range p.professions {
		out = append(out, prof.name)
	}
	return out, nil
}

func (p fakePerson) ProfessionRating(name string) (float64, bool) {
	for _, prof := range p.professions {
		if prof.name == name && prof.rating != 0 {
			return prof.rating, true
		}
	}
	return 0, false
}

func (p fakePerson) ProfessionRoles(name string) ([]RoleRef, error) {
	for _, prof := range p.professions {
		if prof.name == name {
			return prof.roles, nil
		}
	}
	return nil, fmt.Errorf("%w: no table for %s", ErrStructureUnrecognized, name)
}

func (p fakePerson) MoviesInvolvedIn() ([]string, error) {
	if p.structErr != nil {
		return nil, p.structErr
	}
	seen := map[string]bool{}
	var out []string
	for _, prof := range p.professions {
		for _, role := range prof.roles {
			if !seen[role.MovieURL] {
				seen[role.MovieURL] = true
				out = append(out, role.MovieURL)
			}
		}
	}
	return out, nil
}

// fakeSite serves canned pages and records every fetch.
type fakeSite struct {
	movies  map[string]fakeMovie
	people  map[string]fakePerson
	broken  map[string]bool
	fetched []string
}

func (f *fakeSite) Movie(_ context.Context, url string) (MoviePage, error) {
	f.fetched = append(f.fetched, "movie:"+url)
	if f.broken[url] {
		return nil, fmt.Errorf("%s: %w", url, ErrFetchFatal)
	}
	return f.movies[url], nil
}

func (f *fakeSite) Person(_ context.Context, url string) (PersonPage, error) {
	f.fetched = append(f.fetched, "person:"+url)
	if f.broken[url] {
		return nil, fmt.Errorf("%s: %w", url, ErrFetchFatal)
	}
	return f.people[url], nil
}

type memorySink struct {
	mu      sync.Mutex
	records []Record
	batches int
	failAt  int
}

func (m *memorySink) Write(_ context.Context, batch []Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches++
	if m.failAt > 0 && m.batches == m.failAt {
		return errors.New("disk full")
	}
	m.records = append(m.records, batch...)
	return nil
}

func (m *memorySink) table(t Table) []Record {
	var out []Record
	for _, r := range m.records {
		if r.Table() == t {
			out = append(out, r)
		}
	}
	return out
}

type memoryCheckpointer struct {
	saved []State
	err   error
}

func (m *memoryCheckpointer) Save(_ context.Context, state State) error {
	if m.err != nil {
		return m.err
	}
	m.saved = append(m.saved, state)
	return nil
}

func (m *memoryCheckpointer) last() State {
	return m.saved[len(m.saved)-1]
}

type countingReporter struct {
	discovered map[Kind]int
	visited    map[Kind]int
}

func newCountingReporter() *countingReporter {
	return &countingReporter{discovered: map[Kind]int{}, visited: map[Kind]int{}}
}

func (r *countingReporter) Discovered(ref NodeRef, n int) { r.discovered[ref.Kind] = n }
func (r *countingReporter) Visited(ref NodeRef, n int, _ time.Duration) {
	r.visited[ref.Kind] = n
}

func strPtr(s string) *string { return &s }

// sampleSite is a small connected graph with a role-only movie (M4),
// a combined role label and a person reachable from two movies.
func sampleSite() *fakeSite {
	return &fakeSite{
		movies: map[string]fakeMovie{
			"M1": {title: "First", year: 1999, rating: 7.5, cast: []string{"P1", "P2"}},
			"M2": {title: "Second", cast: []string{"P2", "P3"}},
			"M3": {title: "Third", cast: []string{"P1"}},
			"M4": {title: "Role only"},
		},
		people: map[string]fakePerson{
			"P1": {name: "One", professions: []fakeProfession{
				{name: "actor", rating: 8.1, roles: []RoleRef{
					{MovieURL: "M1", Name: strPtr("Hero")},
					{MovieURL: "M2", Name: strPtr("Hero/Villain")},
				}},
				{name: "director", roles: []RoleRef{{MovieURL: "M3"}}},
			}},
			"P2": {name: "Two", professions: []fakeProfession{
				{name: "actor", roles: []RoleRef{
					{MovieURL: "M1", Name: strPtr("Sidekick")},
					{MovieURL: "M4", Name: strPtr("Cameo")},
				}},
			}},
			"P3": {name: "Three", professions: []fakeProfession{
				{name: "writer", roles: []RoleRef{{MovieURL: "M2"}}},
			}},
		},
	}
}
