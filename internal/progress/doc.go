// Package progress carries crawl progress from the scheduler to observers.
// Events are batched on a background goroutine and fanned out to sinks
// such as structured logs, Prometheus collectors or the status tracker.
package progress
