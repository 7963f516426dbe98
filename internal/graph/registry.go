package graph

// Registry maps discovered URLs to dense per-kind ids. Ids start at 1 and
// grow by one per newly reserved URL; entries are never removed.
type Registry struct {
	ids [len(kinds)]map[string]int
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	r := &Registry{}
	for _, k := range kinds {
		r.ids[k] = make(map[string]int)
	}
	return r
}

// Exists reports whether url was already reserved for kind.
func (r *Registry) Exists(kind Kind, url string) bool {
	_, ok := r.ids[kind][url]
	return ok
}

// ID returns the id reserved for url, if any.
func (r *Registry) ID(kind Kind, url string) (int, bool) {
	id, ok := r.ids[kind][url]
	return id, ok
}

// Reserve returns the id of url, allocating the next one when url is new.
// created reports whether this call performed the allocation.
func (r *Registry) Reserve(kind Kind, url string) (ref NodeRef, created bool) {
	if id, ok := r.ids[kind][url]; ok {
		return NodeRef{Kind: kind, URL: url, ID: id}, false
	}
	id := len(r.ids[kind]) + 1
	r.ids[kind][url] = id
	return NodeRef{Kind: kind, URL: url, ID: id}, true
}

// Len returns the number of ids allocated for kind.
func (r *Registry) Len(kind Kind) int {
	return len(r.ids[kind])
}

// Entries returns the refs of kind ordered by id.
func (r *Registry) Entries(kind Kind) []NodeRef {
	out := make([]NodeRef, len(r.ids[kind]))
	for url, id := range r.ids[kind] {
		out[id-1] = NodeRef{Kind: kind, URL: url, ID: id}
	}
	return out
}
