package sinks

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/JakeFAU/moviegraph-crawler/internal/graph"
	"github.com/JakeFAU/moviegraph-crawler/internal/progress"
)

// LogSink writes a "scraped" line per visited node with the running
// finished/discovered totals of its kind.
type LogSink struct {
	logger *zap.Logger

	mu         sync.Mutex
	discovered [2]int
}

// NewLogSink wires a Zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs the batch.
func (s *LogSink) Consume(_ context.Context, batch []progress.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, evt := range batch {
		switch evt.Stage {
		case progress.StageCrawlStart:
			s.discovered[evt.Kind] = evt.Discovered
			s.logger.Info("crawl progress restored",
				zap.Stringer("crawl_id", evt.CrawlUUID()),
				zap.String("kind", scrapedLabel(evt.Kind)),
				zap.Int("finished", evt.Finished),
				zap.Int("discovered", evt.Discovered))
		case progress.StageDiscovered:
			s.discovered[evt.Kind] = evt.Discovered
		case progress.StageVisited:
			s.logger.Info("scraped "+scrapedLabel(evt.Kind),
				zap.Int("finished", evt.Finished),
				zap.Int("discovered", s.discovered[evt.Kind]),
				zap.Int("id", evt.NodeID),
				zap.String("url", evt.URL),
				zap.Duration("dur", evt.Dur))
		case progress.StageCrawlDone:
			s.logger.Info("crawl run ended", zap.Stringer("crawl_id", evt.CrawlUUID()),
				zap.Duration("dur", evt.Dur), zap.String("note", evt.Note))
		case progress.StageCrawlError:
			s.logger.Error("crawl run failed", zap.Stringer("crawl_id", evt.CrawlUUID()),
				zap.Duration("dur", evt.Dur), zap.String("note", evt.Note))
		}
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}

func scrapedLabel(kind graph.Kind) string {
	if kind == graph.KindPerson {
		return "people"
	}
	return "movies"
}
