package sinks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/JakeFAU/moviegraph-crawler/internal/graph"
	"github.com/JakeFAU/moviegraph-crawler/internal/progress"
)

// Run states reported by Snapshot.
const (
	StateRunning = "running"
	StateDone    = "done"
	StateFailed  = "failed"
)

// KindCounts holds the progress of one node kind.
type KindCounts struct {
	Discovered int `json:"discovered"`
	Finished   int `json:"finished"`
}

// Snapshot is the observable progress of one crawl.
type Snapshot struct {
	CrawlID   string     `json:"crawl_id"`
	State     string     `json:"state"`
	Movies    KindCounts `json:"movies"`
	People    KindCounts `json:"people"`
	LastURL   string     `json:"last_url,omitempty"`
	Note      string     `json:"note,omitempty"`
	StartedAt time.Time  `json:"started_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (s *Snapshot) counts(kind graph.Kind) *KindCounts {
	if kind == graph.KindPerson {
		return &s.People
	}
	return &s.Movies
}

// Tracker keeps the latest Snapshot of every crawl seen by this process.
type Tracker struct {
	mu     sync.RWMutex
	crawls map[[16]byte]*Snapshot
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{crawls: make(map[[16]byte]*Snapshot)}
}

// Consume folds batch into the snapshots.
func (t *Tracker) Consume(_ context.Context, batch []progress.Event) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, evt := range batch {
		snap, ok := t.crawls[evt.CrawlID]
		if !ok {
			snap = &Snapshot{CrawlID: evt.CrawlUUID().String(), State: StateRunning, StartedAt: evt.TS}
			t.crawls[evt.CrawlID] = snap
		}
		snap.UpdatedAt = evt.TS
		switch evt.Stage {
		case progress.StageCrawlStart:
			if snap.State != StateRunning {
				snap.State, snap.Note, snap.StartedAt = StateRunning, "", evt.TS
			}
			*snap.counts(evt.Kind) = KindCounts{Discovered: evt.Discovered, Finished: evt.Finished}
		case progress.StageDiscovered:
			snap.counts(evt.Kind).Discovered = evt.Discovered
		case progress.StageVisited:
			snap.counts(evt.Kind).Finished = evt.Finished
			snap.LastURL = evt.URL
		case progress.StageCrawlDone:
			snap.State, snap.Note = StateDone, evt.Note
		case progress.StageCrawlError:
			snap.State, snap.Note = StateFailed, evt.Note
		}
	}
	return nil
}

// Snapshots returns copies of all snapshots, oldest crawl first.
func (t *Tracker) Snapshots() []Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Snapshot, 0, len(t.crawls))
	for _, snap := range t.crawls {
		out = append(out, *snap)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].CrawlID < out[j].CrawlID
		}
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out
}

// Snapshot returns the snapshot of one crawl.
func (t *Tracker) Snapshot(crawlID string) (Snapshot, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	snap, ok := t.crawls[progress.CrawlIDBytes(crawlID)]
	if !ok {
		return Snapshot{}, false
	}
	return *snap, true
}

// Close implements the Sink interface; it performs no action.
func (t *Tracker) Close(context.Context) error {
	return nil
}
