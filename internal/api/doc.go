// Package api exposes the read-only status endpoints of a running crawl:
// liveness, Prometheus metrics and crawl progress snapshots.
package api
