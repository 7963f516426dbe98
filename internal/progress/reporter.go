package progress

import (
	"context"
	"errors"
	"time"

	"github.com/JakeFAU/moviegraph-crawler/internal/graph"
)

// Reporter turns scheduler callbacks into events. It implements
// graph.Reporter.
type Reporter struct {
	emitter Emitter
	crawlID [16]byte
	now     func() time.Time
	started time.Time
}

// NewReporter binds an emitter to one crawl.
func NewReporter(emitter Emitter, crawlID string) *Reporter {
	return &Reporter{
		emitter: emitter,
		crawlID: CrawlIDBytes(crawlID),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Started emits one start event per kind carrying the counts the crawl
// begins with, which are non-zero after a resume.
func (r *Reporter) Started(stats graph.Stats) {
	r.started = r.now()
	for _, kind := range []graph.Kind{graph.KindMovie, graph.KindPerson} {
		r.emit(Event{
			Stage:      StageCrawlStart,
			Kind:       kind,
			Discovered: stats.Discovered[kind],
			Finished:   stats.Finished[kind],
		})
	}
}

// Discovered implements graph.Reporter.
func (r *Reporter) Discovered(ref graph.NodeRef, discovered int) {
	r.emit(Event{Stage: StageDiscovered, Kind: ref.Kind, NodeID: ref.ID, URL: ref.URL, Discovered: discovered})
}

// Visited implements graph.Reporter.
func (r *Reporter) Visited(ref graph.NodeRef, finished int, took time.Duration) {
	r.emit(Event{Stage: StageVisited, Kind: ref.Kind, NodeID: ref.ID, URL: ref.URL, Finished: finished, Dur: took})
}

// Finished emits the terminal event of this run. Cancellation and the
// step limit are pauses and end the run as done.
func (r *Reporter) Finished(err error) {
	evt := Event{Stage: StageCrawlDone}
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled), errors.Is(err, graph.ErrStepLimit):
		evt.Note = "paused: " + err.Error()
	default:
		evt.Stage = StageCrawlError
		evt.Note = err.Error()
	}
	if !r.started.IsZero() {
		evt.Dur = r.now().Sub(r.started)
	}
	r.emit(evt)
}

func (r *Reporter) emit(evt Event) {
	if r == nil || r.emitter == nil {
		return
	}
	evt.CrawlID = r.crawlID
	evt.TS = r.now()
	r.emitter.Emit(evt)
}
