package graph

// queue is a FIFO of refs awaiting a visit.
type queue struct {
	items []NodeRef
	head  int
}

func (q *queue) push(ref NodeRef) {
	q.items = append(q.items, ref)
}

func (q *queue) pop() (NodeRef, bool) {
	if q.head >= len(q.items) {
		return NodeRef{}, false
	}
	ref := q.items[q.head]
	q.items[q.head] = NodeRef{}
	q.head++
	// Compact once the consumed prefix dominates the backing array.
	if q.head > 64 && q.head*2 >= len(q.items) {
		q.items = append([]NodeRef(nil), q.items[q.head:]...)
		q.head = 0
	}
	return ref, true
}

func (q *queue) len() int {
	return len(q.items) - q.head
}

func (q *queue) snapshot() []NodeRef {
	return append([]NodeRef(nil), q.items[q.head:]...)
}

// Frontier couples the identity registry with the two visit queues so that
// reserving a new id and enqueueing its node happen in one operation.
type Frontier struct {
	registry *Registry
	queues   [len(kinds)]queue
	onNew    func(NodeRef)
}

// NewFrontier returns an empty frontier over a fresh registry.
func NewFrontier() *Frontier {
	return &Frontier{registry: NewRegistry()}
}

// Registry exposes the underlying registry for lookups.
func (f *Frontier) Registry() *Registry {
	return f.registry
}

// Discover returns the ref for url, reserving an id and enqueueing the
// node when the url was never seen for kind. A url is enqueued at most
// once over the lifetime of the frontier.
func (f *Frontier) Discover(kind Kind, url string) NodeRef {
	ref, created := f.registry.Reserve(kind, url)
	if created {
		f.queues[kind].push(ref)
		if f.onNew != nil {
			f.onNew(ref)
		}
	}
	return ref
}

// Next pops the head of the kind's queue.
func (f *Frontier) Next(kind Kind) (NodeRef, bool) {
	return f.queues[kind].pop()
}

// Pending returns the number of queued nodes of kind.
func (f *Frontier) Pending(kind Kind) int {
	return f.queues[kind].len()
}

// Empty reports whether both queues are drained.
func (f *Frontier) Empty() bool {
	for _, k := range kinds {
		if f.queues[k].len() > 0 {
			return false
		}
	}
	return true
}

// Queued returns the queued refs of kind in visit order.
func (f *Frontier) Queued(kind Kind) []NodeRef {
	return f.queues[kind].snapshot()
}
