package graph

import (
	"fmt"
	"sort"
)

// RegistryEntry is one url→id mapping of a registry.
type RegistryEntry struct {
	URL string `json:"url"`
	ID  int    `json:"id"`
}

// ProfessionEntry is one profession label→id mapping.
type ProfessionEntry struct {
	Name string `json:"name"`
	ID   int    `json:"id"`
}

// KindState captures the registry, queue and finished count of one kind.
type KindState struct {
	Registry []RegistryEntry `json:"registry"`
	Queue    []RegistryEntry `json:"queue"`
	Finished int             `json:"finished"`
}

// State is everything needed to resume a crawl with identical future
// behavior. It is plain data so it can be serialized by any encoder.
type State struct {
	CrawlID     string            `json:"crawl_id"`
	SeedURL     string            `json:"seed_url"`
	Turn        Kind              `json:"turn"`
	Steps       int               `json:"steps"`
	People      KindState         `json:"people"`
	Movies      KindState         `json:"movies"`
	Professions []ProfessionEntry `json:"professions"`
	Counters    Counters          `json:"counters"`
}

// ForKind returns the per-kind section of the state.
func (s *State) ForKind(kind Kind) *KindState {
	if kind == KindPerson {
		return &s.People
	}
	return &s.Movies
}

// Validate checks the registry and queue invariants of a state.
func (s State) Validate() error {
	if !s.Turn.Valid() {
		return fmt.Errorf("%w: turn %d", ErrInvalidState, int(s.Turn))
	}
	if s.Steps < 0 {
		return fmt.Errorf("%w: negative step count", ErrInvalidState)
	}
	for _, kind := range kinds {
		if err := s.ForKind(kind).validate(); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidState, kind, err)
		}
	}
	names := make([]RegistryEntry, len(s.Professions))
	for i, p := range s.Professions {
		names[i] = RegistryEntry{URL: p.Name, ID: p.ID}
	}
	if err := validateDense(names); err != nil {
		return fmt.Errorf("%w: professions: %v", ErrInvalidState, err)
	}
	if len(s.Professions) != s.Counters.Profession {
		return fmt.Errorf("%w: profession counter %d does not match %d entries",
			ErrInvalidState, s.Counters.Profession, len(s.Professions))
	}
	if s.Counters.PersonProfession < 0 || s.Counters.Role < 0 {
		return fmt.Errorf("%w: negative relation counter", ErrInvalidState)
	}
	return nil
}

func (k KindState) validate() error {
	if err := validateDense(k.Registry); err != nil {
		return fmt.Errorf("registry: %w", err)
	}
	if k.Finished < 0 || k.Finished > len(k.Registry) {
		return fmt.Errorf("finished count %d out of range", k.Finished)
	}
	// Nodes are enqueued at registration and visited in FIFO order, so the
	// queue is always the registry suffix after the finished prefix.
	pending := k.Registry[k.Finished:]
	if len(k.Queue) != len(pending) {
		return fmt.Errorf("queue holds %d entries, expected %d", len(k.Queue), len(pending))
	}
	for i, entry := range k.Queue {
		if entry != pending[i] {
			return fmt.Errorf("queue entry %d (%s#%d) does not match registry", i, entry.URL, entry.ID)
		}
	}
	return nil
}

// validateDense checks that entries are sorted by id, ids are 1..N and keys
// are unique and non-empty.
func validateDense(entries []RegistryEntry) error {
	seen := make(map[string]struct{}, len(entries))
	for i, entry := range entries {
		if entry.ID != i+1 {
			return fmt.Errorf("entry %d has id %d", i, entry.ID)
		}
		if entry.URL == "" {
			return fmt.Errorf("entry %d has empty key", i)
		}
		if _, dup := seen[entry.URL]; dup {
			return fmt.Errorf("duplicate key %q", entry.URL)
		}
		seen[entry.URL] = struct{}{}
	}
	return nil
}

func toEntries(refs []NodeRef) []RegistryEntry {
	out := make([]RegistryEntry, len(refs))
	for i, ref := range refs {
		out[i] = RegistryEntry{URL: ref.URL, ID: ref.ID}
	}
	return out
}

func professionEntries(professions map[string]int) []ProfessionEntry {
	out := make([]ProfessionEntry, 0, len(professions))
	for name, id := range professions {
		out = append(out, ProfessionEntry{Name: name, ID: id})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
