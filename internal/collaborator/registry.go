package collaborator

// Registry looks up collaborator handles by name. The supervisor
// constructs one Handle per managed collaborator at startup and shares the
// Registry with the Control API so operator-triggered start/stop calls and
// the supervisor's own fallback routing act on the same handles.
type Registry struct {
	handles map[Name]*Handle
}

// NewRegistry builds a Registry from the given handles.
func NewRegistry(handles ...*Handle) *Registry {
	r := &Registry{handles: make(map[Name]*Handle, len(handles))}
	for _, h := range handles {
		r.handles[h.Name()] = h
	}
	return r
}

// Get returns the handle for name, or false if name is not managed.
func (r *Registry) Get(name Name) (*Handle, bool) {
	h, ok := r.handles[name]
	return h, ok
}

// All returns every registered handle.
func (r *Registry) All() []*Handle {
	out := make([]*Handle, 0, len(r.handles))
	for _, h := range r.handles {
		out = append(out, h)
	}
	return out
}
