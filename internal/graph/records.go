package graph

import "time"

// Table names a persisted relation.
type Table string

// Persisted tables.
const (
	TableMovies            Table = "Movies"
	TablePeople            Table = "People"
	TableProfessions       Table = "Professions"
	TablePersonProfessions Table = "PersonProfessions"
	TableRoles             Table = "Roles"
)

// Tables lists every table in a stable order.
var Tables = []Table{
	TableMovies,
	TablePeople,
	TableProfessions,
	TablePersonProfessions,
	TableRoles,
}

var tableColumns = map[Table][]string{
	TableMovies:            {"MovieId", "Url", "Title", "Year", "PosterUrl", "Plot", "Rating"},
	TablePeople:            {"PersonId", "Url", "FullName", "BirthDate", "DeathDate", "ImageUrl"},
	TableProfessions:       {"ProfessionId", "ProfessionName"},
	TablePersonProfessions: {"PersonProfessionId", "PersonId", "ProfessionId", "Rating"},
	TableRoles:             {"RoleId", "PersonProfessionId", "MovieId", "RoleName"},
}

// Columns returns the ordered column names of the table.
func (t Table) Columns() []string {
	return append([]string(nil), tableColumns[t]...)
}

// Record is a single append-only row. Values are ordered like
// Table().Columns(); absent fields are nil and dates are time.Time.
type Record interface {
	Table() Table
	Values() []any
}

// Movie is the persisted attribute record of a visited movie.
type Movie struct {
	ID        int
	URL       string
	Title     *string
	Year      *int
	PosterURL *string
	Plot      *string
	Rating    *float64
}

// Table implements Record.
func (Movie) Table() Table { return TableMovies }

// Values implements Record.
func (m Movie) Values() []any {
	return []any{m.ID, m.URL, deref(m.Title), deref(m.Year), deref(m.PosterURL), deref(m.Plot), deref(m.Rating)}
}

// Person is the persisted attribute record of a visited person.
type Person struct {
	ID        int
	URL       string
	FullName  *string
	BirthDate *time.Time
	DeathDate *time.Time
	ImageURL  *string
}

// Table implements Record.
func (Person) Table() Table { return TablePeople }

// Values implements Record.
func (p Person) Values() []any {
	return []any{p.ID, p.URL, deref(p.FullName), deref(p.BirthDate), deref(p.DeathDate), deref(p.ImageURL)}
}

// Profession is emitted the first time a profession label is seen.
type Profession struct {
	ID   int
	Name string
}

// Table implements Record.
func (Profession) Table() Table { return TableProfessions }

// Values implements Record.
func (p Profession) Values() []any { return []any{p.ID, p.Name} }

// PersonProfession links a person to one of their professions.
type PersonProfession struct {
	ID           int
	PersonID     int
	ProfessionID int
	Rating       *float64
}

// Table implements Record.
func (PersonProfession) Table() Table { return TablePersonProfessions }

// Values implements Record.
func (p PersonProfession) Values() []any {
	return []any{p.ID, p.PersonID, p.ProfessionID, deref(p.Rating)}
}

// Role is one atomic role a person played in a movie under a profession.
type Role struct {
	ID                 int
	PersonProfessionID int
	MovieID            int
	Name               *string
}

// Table implements Record.
func (Role) Table() Table { return TableRoles }

// Values implements Record.
func (r Role) Values() []any {
	return []any{r.ID, r.PersonProfessionID, r.MovieID, deref(r.Name)}
}

// deref returns nil for a nil pointer so sinks see an untyped NULL.
func deref[T any](v *T) any {
	if v == nil {
		return nil
	}
	return *v
}

// Opt converts an accessor's (value, ok) pair into a nullable field.
func Opt[T any](v T, ok bool) *T {
	if !ok {
		return nil
	}
	return &v
}
