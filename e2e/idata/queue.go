// Package idata holds the end-to-end harness's per-interface expectation
// queues (§4.7, §3's "Expected-Message Queue"): the shell thread pushes
// expectations, the poll thread's verifier pops and compares them against
// live inbound deliveries.
//
// Grounded on x/shmring's byte ring: same atomic head/tail plus
// edge-triggered-channel technique, generalized from raw bytes to typed
// *Expected values and narrowed to the fixed two-slot capacity spec.md §3
// requires ("holds at most two items"), since the harness only ever needs
// to run one command ahead of the verifier.
package idata

import "sync/atomic"

// Queue is a fixed two-slot single-producer/single-consumer ring of
// *Expected. Producer is the shell/command thread; consumer is the poll
// thread's verifier. Capacity is exactly 2 per spec.md §3.
type Queue struct {
	slots    [2]atomic.Pointer[Expected]
	rd       atomic.Uint32
	wr       atomic.Uint32
	readable chan struct{}
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{readable: make(chan struct{}, 1)}
}

// TryPush appends e if the queue has room, reporting whether it fit.
func (q *Queue) TryPush(e *Expected) bool {
	rd := q.rd.Load()
	wr := q.wr.Load()
	if wr-rd >= 2 {
		return false
	}
	q.slots[wr&1].Store(e)
	q.wr.Store(wr + 1)

	if wr == rd {
		select {
		case q.readable <- struct{}{}:
		default:
		}
	}
	return true
}

// TryPop removes and returns the oldest pending expectation, if any.
func (q *Queue) TryPop() (*Expected, bool) {
	rd := q.rd.Load()
	wr := q.wr.Load()
	if rd == wr {
		return nil, false
	}
	e := q.slots[rd&1].Load()
	q.slots[rd&1].Store(nil)
	q.rd.Store(rd + 1)
	return e, true
}

// Len reports the number of pending, unmatched expectations.
func (q *Queue) Len() int {
	return int(q.wr.Load() - q.rd.Load())
}

// Readable fires once whenever the queue transitions from empty to
// non-empty, mirroring x/shmring.Ring's edge-triggered signal.
func (q *Queue) Readable() <-chan struct{} { return q.readable }
