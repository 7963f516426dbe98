package graph

import "fmt"

// Kind selects one of the two node colors of the bipartite graph.
type Kind int

// Supported node kinds.
const (
	KindPerson Kind = iota
	KindMovie
)

// kinds lists every Kind in index order.
var kinds = [...]Kind{KindPerson, KindMovie}

// String returns the lowercase kind label.
func (k Kind) String() string {
	switch k {
	case KindPerson:
		return "person"
	case KindMovie:
		return "movie"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Opposite returns the other color.
func (k Kind) Opposite() Kind {
	if k == KindPerson {
		return KindMovie
	}
	return KindPerson
}

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool {
	return k == KindPerson || k == KindMovie
}

// MarshalText encodes the kind as its label.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind label.
func (k *Kind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "person":
		*k = KindPerson
	case "movie":
		*k = KindMovie
	default:
		return fmt.Errorf("unknown kind %q", string(text))
	}
	return nil
}

// NodeRef identifies a discovered node. It never changes once created.
type NodeRef struct {
	Kind Kind   `json:"kind"`
	URL  string `json:"url"`
	ID   int    `json:"id"`
}
