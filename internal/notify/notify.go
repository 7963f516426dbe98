// Package notify announces the end of a crawl run on Google Cloud Pub/Sub.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"

	"github.com/JakeFAU/moviegraph-crawler/internal/graph"
)

// Run outcomes.
const (
	OutcomeCompleted = "completed"
	OutcomePaused    = "paused"
	OutcomeFailed    = "failed"
)

// KindSummary holds the totals of one node kind.
type KindSummary struct {
	Discovered int `json:"discovered"`
	Finished   int `json:"finished"`
}

// Summary is the message body published when a run ends.
type Summary struct {
	CrawlID    string      `json:"crawl_id"`
	SeedURL    string      `json:"seed_url"`
	Outcome    string      `json:"outcome"`
	Error      string      `json:"error,omitempty"`
	Steps      int         `json:"steps"`
	Movies     KindSummary `json:"movies"`
	People     KindSummary `json:"people"`
	Checkpoint string      `json:"checkpoint,omitempty"`
	EndedAt    time.Time   `json:"ended_at"`
}

// NewSummary classifies runErr and copies the scheduler totals.
func NewSummary(crawlID, seedURL string, stats graph.Stats, runErr error, endedAt time.Time) Summary {
	s := Summary{
		CrawlID: crawlID,
		SeedURL: seedURL,
		Outcome: OutcomeCompleted,
		Steps:   stats.Steps,
		Movies: KindSummary{
			Discovered: stats.Discovered[graph.KindMovie],
			Finished:   stats.Finished[graph.KindMovie],
		},
		People: KindSummary{
			Discovered: stats.Discovered[graph.KindPerson],
			Finished:   stats.Finished[graph.KindPerson],
		},
		EndedAt: endedAt.UTC(),
	}
	switch {
	case runErr == nil:
	case errors.Is(runErr, context.Canceled), errors.Is(runErr, graph.ErrStepLimit):
		s.Outcome = OutcomePaused
	default:
		s.Outcome = OutcomeFailed
		s.Error = runErr.Error()
	}
	return s
}

// PubSubNotifier publishes summaries to one topic.
type PubSubNotifier struct {
	topic  *pubsub.Topic
	logger *zap.Logger
}

// NewPubSubNotifier wraps topic. Call Stop to flush outstanding messages.
func NewPubSubNotifier(topic *pubsub.Topic, logger *zap.Logger) *PubSubNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PubSubNotifier{topic: topic, logger: logger.Named("notify")}
}

// Notify publishes summary and waits for the server id.
func (n *PubSubNotifier) Notify(ctx context.Context, summary Summary) (string, error) {
	if n == nil || n.topic == nil {
		return "", errors.New("pubsub topic is not configured")
	}
	data, err := json.Marshal(summary)
	if err != nil {
		return "", fmt.Errorf("marshal summary: %w", err)
	}
	msg := &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"crawl_id": summary.CrawlID,
			"outcome":  summary.Outcome,
		},
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.MapCarrier(msg.Attributes))

	id, err := n.topic.Publish(ctx, msg).Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish crawl summary: %w", err)
	}
	n.logger.Info("crawl summary published",
		zap.String("crawl_id", summary.CrawlID),
		zap.String("outcome", summary.Outcome),
		zap.String("message_id", id))
	return id, nil
}

// Stop flushes and stops the topic's publisher goroutines.
func (n *PubSubNotifier) Stop() {
	if n != nil && n.topic != nil {
		n.topic.Stop()
	}
}
