// Package checkpoint persists and restores crawl scheduler state.
//
// A checkpoint is a JSON envelope carrying a schema version, the crawl
// metadata and a SHA-256 checksum of the embedded scheduler state. Any
// mismatch on restore is reported as ErrCheckpointCorrupt; a crawl is
// never silently restarted from a damaged snapshot.
package checkpoint

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/JakeFAU/moviegraph-crawler/internal/graph"
)

// SchemaVersion is the envelope version written by Encode.
const SchemaVersion = 1

var (
	// ErrCheckpointCorrupt is returned when a snapshot cannot be decoded,
	// fails its checksum or holds an inconsistent state.
	ErrCheckpointCorrupt = errors.New("checkpoint corrupt")
	// ErrCheckpointNotFound is returned when no snapshot exists at the
	// configured location.
	ErrCheckpointNotFound = errors.New("checkpoint not found")
)

// Meta describes the crawl a checkpoint belongs to.
type Meta struct {
	CrawlID    string `json:"crawl_id"`
	SeedURL    string `json:"seed_url"`
	StorageDir string `json:"storage_dir,omitempty"`
	SinkDriver string `json:"sink_driver,omitempty"`
}

// Checkpoint is a decoded snapshot.
type Checkpoint struct {
	Version   int
	CreatedAt time.Time
	Meta      Meta
	State     graph.State
}

type envelope struct {
	Version   int             `json:"version"`
	CreatedAt time.Time       `json:"created_at"`
	Checksum  string          `json:"checksum"`
	Meta      Meta            `json:"meta"`
	State     json.RawMessage `json:"state"`
}

// Encode serializes state into a versioned, checksummed envelope.
func Encode(meta Meta, state graph.State, createdAt time.Time) ([]byte, error) {
	payload, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("marshal state: %w", err)
	}
	env := envelope{
		Version:   SchemaVersion,
		CreatedAt: createdAt.UTC(),
		Checksum:  checksum(payload),
		Meta:      meta,
		State:     payload,
	}
	blob, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}
	return blob, nil
}

// Decode parses and verifies a snapshot produced by Encode.
func Decode(blob []byte) (Checkpoint, error) {
	if len(bytes.TrimSpace(blob)) == 0 {
		return Checkpoint{}, fmt.Errorf("%w: empty snapshot", ErrCheckpointCorrupt)
	}
	var env envelope
	if err := json.Unmarshal(blob, &env); err != nil {
		return Checkpoint{}, fmt.Errorf("%w: %v", ErrCheckpointCorrupt, err)
	}
	if env.Version != SchemaVersion {
		return Checkpoint{}, fmt.Errorf("%w: unsupported schema version %d", ErrCheckpointCorrupt, env.Version)
	}
	if got := checksum(env.State); got != env.Checksum {
		return Checkpoint{}, fmt.Errorf("%w: checksum mismatch", ErrCheckpointCorrupt)
	}
	var state graph.State
	if err := json.Unmarshal(env.State, &state); err != nil {
		return Checkpoint{}, fmt.Errorf("%w: state: %v", ErrCheckpointCorrupt, err)
	}
	if err := state.Validate(); err != nil {
		return Checkpoint{}, fmt.Errorf("%w: %w", ErrCheckpointCorrupt, err)
	}
	return Checkpoint{
		Version:   env.Version,
		CreatedAt: env.CreatedAt,
		Meta:      env.Meta,
		State:     state,
	}, nil
}

func checksum(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
