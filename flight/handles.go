package flight

import (
	"sync"

	"github.com/google/uuid"
)

// handleTable keeps runtime objects that cannot travel over the wire
// (closures, environments, trained models) and hands out opaque IDs for them.
type handleTable struct {
	mu      sync.Mutex
	objects map[string]any
}

func newHandleTable() *handleTable {
	return &handleTable{objects: make(map[string]any)}
}

// export returns the wire ID for object. Objects that already carry an issued
// ID keep it; values without an in-process object keep their own ID.
func (h *handleTable) export(id string, object any) string {
	if object == nil {
		return id
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if id != "" {
		if _, ok := h.objects[id]; ok {
			return id
		}
	}
	id = uuid.NewString()
	h.objects[id] = object
	return id
}

// resolve returns the object issued under id, or nil.
func (h *handleTable) resolve(id string) any {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.objects[id]
}

// release drops the given IDs and returns how many were known.
func (h *handleTable) release(ids ...string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, id := range ids {
		if _, ok := h.objects[id]; ok {
			delete(h.objects, id)
			n++
		}
	}
	return n
}

// clear drops every handle and returns how many there were.
func (h *handleTable) clear() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := len(h.objects)
	clear(h.objects)
	return n
}

func (h *handleTable) len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.objects)
}
