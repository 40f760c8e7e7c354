// Package writeguard makes Blue Crab's single-writer contract observable
// rather than silent: a weighted semaphore of weight 1 grants exactly
// one writer a ticket at a time, and a second concurrent mutator gets
// bcerr.ErrConflict instead of racing undetected. Readers never take a
// ticket. The guard tries to acquire immediately and fails fast rather
// than blocking, using an in-process golang.org/x/sync/semaphore since
// Blue Crab is single-process.
package writeguard

import (
	"golang.org/x/sync/semaphore"

	"github.com/bluecrabdb/bluecrab/internal/bcerr"
)

// Guard enforces single-writer access for one Database handle.
type Guard struct {
	sem *semaphore.Weighted
}

// New returns a Guard with a single write ticket available.
func New() *Guard {
	return &Guard{sem: semaphore.NewWeighted(1)}
}

// TryAcquire claims the single write ticket without blocking. It fails
// with bcerr.ErrConflict if another writer currently holds it.
func (g *Guard) TryAcquire() error {
	if !g.sem.TryAcquire(1) {
		return bcerr.Wrap("writeguard.TryAcquire", bcerr.ErrConflict, nil)
	}
	return nil
}

// Release returns the write ticket.
func (g *Guard) Release() {
	g.sem.Release(1)
}

// WithWrite runs fn while holding the write ticket, releasing it
// afterward regardless of how fn returns.
func (g *Guard) WithWrite(fn func() error) error {
	if err := g.TryAcquire(); err != nil {
		return err
	}
	defer g.Release()
	return fn()
}
