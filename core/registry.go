package core

import "sync"

// ── Registry ──────────────────────────────────────────────────────────────────

// DefaultRegistry is a thread-safe implementation of Registry.
type DefaultRegistry struct {
	mu       sync.RWMutex
	resizers map[Backend]Resizer
	decoders map[Format]Decoder
}

// NewRegistry returns an empty DefaultRegistry.
func NewRegistry() *DefaultRegistry {
	return &DefaultRegistry{
		resizers: make(map[Backend]Resizer),
		decoders: make(map[Format]Decoder),
	}
}

// RegisterResizer registers r under its own backend, replacing any previous one.
func (r *DefaultRegistry) RegisterResizer(rs Resizer) {
	r.mu.Lock()
	r.resizers[rs.Backend()] = rs
	r.mu.Unlock()
}

func (r *DefaultRegistry) RegisterDecoder(f Format, d Decoder) {
	r.mu.Lock()
	r.decoders[f] = d
	r.mu.Unlock()
}

func (r *DefaultRegistry) ResizerFor(b Backend) (Resizer, bool) {
	r.mu.RLock()
	rs, ok := r.resizers[b]
	r.mu.RUnlock()
	return rs, ok
}

func (r *DefaultRegistry) DecoderFor(f Format) (Decoder, bool) {
	r.mu.RLock()
	d, ok := r.decoders[f]
	r.mu.RUnlock()
	return d, ok
}
