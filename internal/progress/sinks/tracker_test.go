package sinks

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JakeFAU/moviegraph-crawler/internal/progress"
)

func TestTrackerFoldsEvents(t *testing.T) {
	t.Parallel()

	const crawlID = "5f1d7a52-8c1e-4a8b-9a57-3f0e7c2b9d10"
	id := progress.CrawlIDBytes(crawlID)
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	tracker := NewTracker()
	require.NoError(t, tracker.Consume(context.Background(), sampleBatch(id, ts)))

	snap, ok := tracker.Snapshot(crawlID)
	require.True(t, ok)
	assert.Equal(t, StateRunning, snap.State)
	assert.Equal(t, KindCounts{Discovered: 2, Finished: 1}, snap.Movies)
	assert.Equal(t, KindCounts{Discovered: 2, Finished: 1}, snap.People)
	assert.Equal(t, "p1", snap.LastURL)
	assert.Equal(t, ts, snap.StartedAt)
	assert.Equal(t, ts.Add(time.Second), snap.UpdatedAt)

	require.NoError(t, tracker.Consume(context.Background(), []progress.Event{
		{CrawlID: id, TS: ts.Add(2 * time.Second), Stage: progress.StageCrawlDone, Note: "paused: step limit"},
	}))
	snap, _ = tracker.Snapshot(crawlID)
	assert.Equal(t, StateDone, snap.State)
	assert.Equal(t, "paused: step limit", snap.Note)
	assert.Len(t, tracker.Snapshots(), 1)

	_, ok = tracker.Snapshot("other")
	assert.False(t, ok)
}

func TestLogSinkWritesScrapedLines(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.InfoLevel)
	sink := NewLogSink(zap.New(core))
	id := progress.CrawlIDBytes("log-test")

	require.NoError(t, sink.Consume(context.Background(), sampleBatch(id, time.Now())))

	scraped := logs.FilterMessage("scraped people").All()
	require.Len(t, scraped, 1)
	fields := scraped[0].ContextMap()
	assert.EqualValues(t, 1, fields["finished"])
	assert.EqualValues(t, 2, fields["discovered"])
	assert.Equal(t, "p1", fields["url"])
}
