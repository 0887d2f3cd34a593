package preload

import (
	"errors"
	"os"
	"sync"
)

// Registry tracks the processes of in-flight probe invocations so an
// out-of-band cancel can terminate them. Entries are added on spawn and
// removed on completion regardless of outcome.
type Registry struct {
	mu    sync.Mutex
	next  int64
	procs map[int64]*os.Process
}

// NewRegistry creates an empty process registry.
func NewRegistry() *Registry {
	return &Registry{procs: make(map[int64]*os.Process)}
}

// Add registers a running process and returns its registry handle.
func (r *Registry) Add(p *os.Process) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	r.procs[r.next] = p
	return r.next
}

// Remove deregisters a process by handle.
func (r *Registry) Remove(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.procs, id)
}

// Len reports the number of currently registered processes.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.procs)
}

// TerminateAll kills every registered process and returns the number
// signalled. Termination is best effort: the external process may outlive
// the signal briefly, and invocations deregister themselves on completion.
func (r *Registry) TerminateAll() int {
	r.mu.Lock()
	procs := make([]*os.Process, 0, len(r.procs))
	for _, p := range r.procs {
		procs = append(procs, p)
	}
	r.mu.Unlock()

	signalled := 0
	for _, p := range procs {
		if err := p.Kill(); err == nil || errors.Is(err, os.ErrProcessDone) {
			signalled++
		}
	}
	return signalled
}
