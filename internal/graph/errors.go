package graph

import "errors"

var (
	// ErrStructureUnrecognized marks a page whose neighbour list or role
	// table could not be located. The node is persisted with whatever
	// scalar fields are available and contributes no new discoveries.
	ErrStructureUnrecognized = errors.New("page structure unrecognized")

	// ErrFetchFatal marks a node whose page could not be retrieved after
	// the fetcher exhausted its retry policy.
	ErrFetchFatal = errors.New("fetch failed permanently")

	// ErrAlreadyStarted is returned by Start on a scheduler that already
	// holds discovered nodes.
	ErrAlreadyStarted = errors.New("crawl already started")

	// ErrInvalidState is returned when restoring a scheduler from a state
	// that violates the registry or queue invariants.
	ErrInvalidState = errors.New("invalid scheduler state")

	// ErrStepLimit is returned by Run when the configured step budget is
	// spent before the frontier drained.
	ErrStepLimit = errors.New("step limit reached")
)
