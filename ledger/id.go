package ledger

import (
	"fmt"
	"sync"
	"time"
)

// =============================================================================
// ID GENERATION - Time-derived, monotonically ordered
// =============================================================================

// idGenerator issues transaction IDs that sort by creation order.
// IDs are nanosecond timestamps; if the clock has not advanced since the
// previous ID (or moved backwards), the generator bumps past the last value
// so concurrent appends can never collide.
type idGenerator struct {
	mu   sync.Mutex
	last int64
}

// next returns a fresh ID strictly greater than every ID issued before it.
func (g *idGenerator) next(now time.Time) TransactionID {
	g.mu.Lock()
	defer g.mu.Unlock()

	ns := now.UnixNano()
	if ns <= g.last {
		ns = g.last + 1
	}
	g.last = ns

	// Fixed width keeps lexicographic order equal to numeric order.
	return TransactionID(fmt.Sprintf("txn-%019d", ns))
}
