// Package sinks implements progress consumers: structured logs, Prometheus
// collectors and an in-memory tracker backing the status API.
package sinks
