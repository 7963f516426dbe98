// Command moviegraph crawls the bipartite movie/person graph of a film
// site and writes it as relational tables.
//
// Architecture overview:
//   - Scheduling: internal/graph alternates between a movie queue and a
//     person queue, assigns dense per-kind ids on first discovery and
//     aggregates professions and roles of every visited person.
//   - Extraction: internal/extract fetches pages with colly (optionally
//     Chrome for cast sub-pages), retries transient failures and parses
//     them with goquery.
//   - Persistence: internal/sink writes the five tables to CSV, SQLite,
//     Postgres or Kafka; internal/checkpoint snapshots the scheduler after
//     every step to a file, GCS object or Redis key.
//   - Observability: zap logs, a progress hub feeding Prometheus and the
//     status API, an OpenTelemetry span per run and an optional Pub/Sub
//     summary when a run ends.
//
// Run "moviegraph start --seed <movie url>" and later "moviegraph resume".
package main

import (
	"os"

	"github.com/JakeFAU/moviegraph-crawler/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
