package check

import (
	"os"
	"sync"

	"github.com/VeduStorm/NovaCore/nova/common"
)

// Handler is called with a human readable reason when a check must stop the process.
type Handler func(reason string)

// ExitHandler logs the reason and exits with the mismatch status.
func ExitHandler(reason string) {
	log.Errorf("license check failed: %s", reason)
	os.Exit(common.MismatchExit)
}

// Terminator holds the termination policy shared by the exiting modes.
type Terminator struct {
	mu      sync.RWMutex
	handler Handler
}

func NewTerminator() *Terminator {
	return &Terminator{handler: ExitHandler}
}

// SetHandler replaces the handler; nil is ignored.
func (t *Terminator) SetHandler(h Handler) {
	if h == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handler = h
}

func (t *Terminator) Terminate(reason string) {
	t.mu.RLock()
	h := t.handler
	t.mu.RUnlock()
	if h == nil {
		h = ExitHandler
	}
	h(reason)
}
