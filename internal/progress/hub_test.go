package progress

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/moviegraph-crawler/internal/graph"
)

func TestHubBatchBySize(t *testing.T) {
	t.Parallel()

	sink := newStubSink()
	hub := NewHub(Config{BufferSize: 8, MaxBatchEvents: 2, FlushInterval: time.Minute}, sink)
	defer func() {
		require.NoError(t, hub.Close(context.Background()))
	}()

	hub.Emit(sampleEvent(StageDiscovered))
	hub.Emit(sampleEvent(StageVisited))
	require.Eventually(t, func() bool {
		batches := sink.Batches()
		return len(batches) == 1 && len(batches[0]) == 2
	}, time.Second, 10*time.Millisecond)
}

func TestHubFlushesOnInterval(t *testing.T) {
	t.Parallel()

	sink := newStubSink()
	hub := NewHub(Config{BufferSize: 4, MaxBatchEvents: 10, FlushInterval: 20 * time.Millisecond}, sink)
	defer func() {
		require.NoError(t, hub.Close(context.Background()))
	}()

	hub.Emit(sampleEvent(StageVisited))
	require.Eventually(t, func() bool {
		return len(sink.Batches()) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestHubEmitNeverBlocks(t *testing.T) {
	t.Parallel()

	hub := &Hub{events: make(chan Event), logger: zap.NewNop()}
	start := time.Now()
	hub.Emit(sampleEvent(StageVisited))
	hub.Emit(sampleEvent(StageVisited))
	assert.Less(t, time.Since(start), 50*time.Millisecond)
	assert.GreaterOrEqual(t, hub.Dropped(), int64(1))
}

func TestHubCloseDrainsAndClosesSinks(t *testing.T) {
	t.Parallel()

	sink := newStubSink()
	hub := NewHub(Config{BufferSize: 4, MaxBatchEvents: 100, FlushInterval: time.Minute}, sink)

	hub.Emit(sampleEvent(StageDiscovered))
	require.NoError(t, hub.Close(context.Background()))
	require.NoError(t, hub.Close(context.Background()))

	require.Len(t, sink.Batches(), 1)
	assert.True(t, sink.closed)

	hub.Emit(sampleEvent(StageVisited))
	assert.Len(t, sink.Batches(), 1)
}

func TestHubDropsInvalidEvents(t *testing.T) {
	t.Parallel()

	sink := newStubSink()
	hub := NewHub(Config{}, sink)
	hub.Emit(Event{Stage: StageVisited})
	bad := sampleEvent(StageVisited)
	bad.NodeID = 0
	hub.Emit(bad)
	require.NoError(t, hub.Close(context.Background()))
	assert.Empty(t, sink.Batches())
}

func TestReporterEmitsCrawlEvents(t *testing.T) {
	t.Parallel()

	sink := newStubSink()
	hub := NewHub(Config{}, sink)
	r := NewReporter(hub, "crawl-1")

	r.Started(graph.Stats{Discovered: [2]int{1, 3}, Finished: [2]int{0, 2}})
	ref := graph.NodeRef{Kind: graph.KindPerson, URL: "p", ID: 1}
	r.Discovered(ref, 1)
	r.Visited(ref, 1, 10*time.Millisecond)
	r.Finished(graph.ErrStepLimit)
	require.NoError(t, hub.Close(context.Background()))

	var events []Event
	for _, b := range sink.Batches() {
		events = append(events, b...)
	}
	require.Len(t, events, 5)
	stages := make([]Stage, 0, len(events))
	for _, evt := range events {
		assert.Equal(t, CrawlIDBytes("crawl-1"), evt.CrawlID)
		stages = append(stages, evt.Stage)
	}
	assert.Equal(t, []Stage{StageCrawlStart, StageCrawlStart, StageDiscovered, StageVisited, StageCrawlDone}, stages)
	assert.Equal(t, 3, events[0].Discovered)
	assert.Equal(t, 2, events[0].Finished)
	assert.Contains(t, events[4].Note, "paused")
}

func TestReporterFailure(t *testing.T) {
	t.Parallel()

	sink := newStubSink()
	hub := NewHub(Config{}, sink)
	NewReporter(hub, "crawl-2").Finished(errors.New("sink gone"))
	require.NoError(t, hub.Close(context.Background()))

	batches := sink.Batches()
	require.Len(t, batches, 1)
	assert.Equal(t, StageCrawlError, batches[0][0].Stage)
	assert.Equal(t, "sink gone", batches[0][0].Note)
}

func TestCrawlIDBytesIsStable(t *testing.T) {
	t.Parallel()

	const id = "5f1d7a52-8c1e-4a8b-9a57-3f0e7c2b9d10"
	assert.Equal(t, id, Event{CrawlID: CrawlIDBytes(id)}.CrawlUUID().String())
	assert.Equal(t, CrawlIDBytes("test"), CrawlIDBytes("test"))
	assert.NotEqual(t, CrawlIDBytes("test"), CrawlIDBytes("other"))
}

type stubSink struct {
	mu      sync.Mutex
	batches [][]Event
	closed  bool
}

func newStubSink() *stubSink {
	return &stubSink{}
}

func (s *stubSink) Consume(_ context.Context, batch []Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, append([]Event(nil), batch...))
	return nil
}

func (s *stubSink) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *stubSink) Batches() [][]Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]Event(nil), s.batches...)
}

func sampleEvent(stage Stage) Event {
	return Event{
		CrawlID: CrawlIDBytes("sample"),
		TS:      time.Now(),
		Stage:   stage,
		Kind:    graph.KindMovie,
		NodeID:  1,
		URL:     "https://www.filmweb.pl/film/Rejs-1970-1",
	}
}
