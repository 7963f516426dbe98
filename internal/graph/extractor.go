package graph

import (
	"context"
	"time"
)

// RoleRef is one row of a person's filmography under a profession.
// Name is nil when the page carries no role text.
type RoleRef struct {
	MovieURL string
	Name     *string
}

// MoviePage exposes the fields of a fetched movie page. Every scalar
// accessor reports ok=false when the field is missing.
type MoviePage interface {
	Title() (string, bool)
	Year() (int, bool)
	PosterURL() (string, bool)
	Plot() (string, bool)
	Rating() (float64, bool)
	// CastLinks returns person URLs of the cast and crew in page order,
	// or ErrStructureUnrecognized.
	CastLinks() ([]string, error)
}

// PersonPage exposes the fields of a fetched person page.
type PersonPage interface {
	FullName() (string, bool)
	BirthDate() (time.Time, bool)
	DeathDate() (time.Time, bool)
	ImageURL() (string, bool)
	// Professions returns profession labels in page order, or
	// ErrStructureUnrecognized when the filmography is missing.
	Professions() ([]string, error)
	ProfessionRating(profession string) (float64, bool)
	// ProfessionRoles returns the unsplit role rows of one profession.
	ProfessionRoles(profession string) ([]RoleRef, error)
	// MoviesInvolvedIn returns the distinct movie URLs of all roles.
	MoviesInvolvedIn() ([]string, error)
}

// Extractor retrieves and parses pages. Transient failures are retried
// by the implementation; a node that cannot be fetched at all yields an
// error wrapping ErrFetchFatal.
type Extractor interface {
	Movie(ctx context.Context, url string) (MoviePage, error)
	Person(ctx context.Context, url string) (PersonPage, error)
}

// RecordSink durably accepts the records produced by one step. Sinks are
// append-only; the scheduler never hands over a record twice.
type RecordSink interface {
	Write(ctx context.Context, batch []Record) error
}

// Reporter observes discovery and visit counts. Calls must not block.
type Reporter interface {
	Discovered(ref NodeRef, discovered int)
	Visited(ref NodeRef, finished int, took time.Duration)
}

// Checkpointer persists the scheduler state after each completed step.
type Checkpointer interface {
	Save(ctx context.Context, state State) error
}
