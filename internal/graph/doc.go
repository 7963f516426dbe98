// Package graph implements the two-colored breadth-first traversal over
// person and movie pages: the identity registry, the alternating frontier
// scheduler, the relation aggregator that turns filmographies into
// relational records, and the resumable scheduler state.
package graph
