package checkpoint

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/moviegraph-crawler/internal/graph"
)

// Store persists a single snapshot blob. Save replaces the previous
// snapshot atomically; Load returns ErrCheckpointNotFound when nothing
// was saved yet.
type Store interface {
	Save(ctx context.Context, blob []byte) error
	Load(ctx context.Context) ([]byte, error)
	Location() string
}

// Manager encodes scheduler states and writes them to a Store. It
// implements graph.Checkpointer.
type Manager struct {
	store  Store
	meta   Meta
	now    func() time.Time
	logger *zap.Logger
}

// NewManager returns a manager writing snapshots tagged with meta.
func NewManager(store Store, meta Meta, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		store:  store,
		meta:   meta,
		now:    time.Now,
		logger: logger.Named("checkpoint"),
	}
}

var _ graph.Checkpointer = (*Manager)(nil)

// Save snapshots state. It is called after the step's records were
// accepted by the sink.
func (m *Manager) Save(ctx context.Context, state graph.State) error {
	meta := m.meta
	meta.CrawlID = state.CrawlID
	meta.SeedURL = state.SeedURL
	blob, err := Encode(meta, state, m.now())
	if err != nil {
		return err
	}
	if err := m.store.Save(ctx, blob); err != nil {
		return fmt.Errorf("save checkpoint to %s: %w", m.store.Location(), err)
	}
	m.logger.Debug("checkpoint saved",
		zap.String("location", m.store.Location()),
		zap.Int("steps", state.Steps),
		zap.Int("bytes", len(blob)),
	)
	return nil
}

// Load reads and verifies the latest snapshot.
func (m *Manager) Load(ctx context.Context) (Checkpoint, error) {
	return Load(ctx, m.store)
}

// Load reads and verifies the snapshot held by store.
func Load(ctx context.Context, store Store) (Checkpoint, error) {
	blob, err := store.Load(ctx)
	if err != nil {
		return Checkpoint{}, fmt.Errorf("load checkpoint from %s: %w", store.Location(), err)
	}
	cp, err := Decode(blob)
	if err != nil {
		return Checkpoint{}, fmt.Errorf("load checkpoint from %s: %w", store.Location(), err)
	}
	return cp, nil
}
