package class

import (
	"sync"

	objerrors "github.com/zeusync/objgraph/internal/core/errors"
)

// DestroyQueue defers destruction of objects to an explicit Flush, usually at the
// end of a frame, so references stay valid for the rest of the current pass.
type DestroyQueue struct {
	mu      sync.Mutex
	pending []*Object
}

func NewDestroyQueue() *DestroyQueue {
	return &DestroyQueue{}
}

// Destroy marks o for destruction. Marking an object twice is a no-op.
func (q *DestroyQueue) Destroy(o *Object) error {
	if o.flags&Destroyed != 0 {
		return objerrors.Wrap(objerrors.KindUnknown, objerrors.ErrAlreadyDestroyed, "%s", o.class.name)
	}
	if o.flags&ToDestroy != 0 {
		return nil
	}
	o.flags |= ToDestroy
	q.mu.Lock()
	q.pending = append(q.pending, o)
	q.mu.Unlock()
	return nil
}

// Pending returns the number of objects waiting for Flush.
func (q *DestroyQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Flush destroys every pending object and returns how many were destroyed.
func (q *DestroyQueue) Flush() int {
	q.mu.Lock()
	pending := q.pending
	q.pending = nil
	q.mu.Unlock()

	for _, o := range pending {
		o.destroyImmediate()
	}
	return len(pending)
}

// DestroyImmediate destroys o without going through a queue.
func (o *Object) DestroyImmediate() error {
	if o.flags&Destroyed != 0 {
		return objerrors.Wrap(objerrors.KindUnknown, objerrors.ErrAlreadyDestroyed, "%s", o.class.name)
	}
	o.destroyImmediate()
	return nil
}

// destroyImmediate sets the destroyed bits and drops every reference the object
// holds so destroyed graphs can be collected. Scalars are kept for diagnostics.
func (o *Object) destroyImmediate() {
	o.flags = (o.flags | Destroyed | RealDestroyed) &^ ToDestroy
	for k, v := range o.fields {
		switch v.(type) {
		case nil, bool, float64, float32, int, int64, int32, uint32, uint64, string:
		default:
			o.fields[k] = nil
		}
	}
}
