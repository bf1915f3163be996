package radiolink

import "fmt"

// ErrQueueFull is returned by Queue.Enqueue when the queue has no room for
// an ordinary data byte. Control bytes (XON/XOFF) never fail this way; they
// are delivered through a reserved one-slot head even at capacity.
var ErrQueueFull = fmt.Errorf("%w: queue full", ErrPkg)

// Queue is a bounded, single-producer/single-consumer byte queue with
// built-in software flow control. Two thresholds derived from its capacity
// govern XON/XOFF: HIGH = capacity/2, LOW = capacity/4.
type Queue struct {
	buf   []byte
	head  int
	tail  int
	count int

	control      byte
	hasControl   bool
	xoffRequested bool
}

// NewQueue creates a queue with the given byte capacity.
func NewQueue(capacity int) *Queue {
	return &Queue{buf: make([]byte, capacity)}
}

// Len returns the number of bytes currently queued, including a pending
// control byte if any.
func (q *Queue) Len() int {
	n := q.count
	if q.hasControl {
		n++
	}
	return n
}

// Cap returns the queue's byte capacity.
func (q *Queue) Cap() int { return len(q.buf) }

// IsEmpty reports whether the queue (including any pending control byte)
// has nothing left to dequeue.
func (q *Queue) IsEmpty() bool { return q.Len() == 0 }

// IsFull reports whether the ordinary data ring is at capacity. A full
// queue can still accept a control byte via the reserved head slot.
func (q *Queue) IsFull() bool { return q.count == len(q.buf) }

// Enqueue appends an ordinary data byte. It returns ErrQueueFull if the
// data ring has no room; the caller is expected to drop the byte and log,
// per the protocol's queue-full error handling.
func (q *Queue) Enqueue(b byte) error {
	if q.IsFull() {
		return ErrQueueFull
	}
	q.buf[q.tail] = b
	q.tail = (q.tail + 1) % len(q.buf)
	q.count++
	return nil
}

// Dequeue removes and returns the next byte: a pending control byte first,
// otherwise the oldest data byte.
func (q *Queue) Dequeue() (byte, bool) {
	if q.hasControl {
		q.hasControl = false
		return q.control, true
	}
	if q.count == 0 {
		return 0, false
	}
	b := q.buf[q.head]
	q.head = (q.head + 1) % len(q.buf)
	q.count--
	return b, true
}

// DrainUpTo pops up to n bytes in FIFO order, returning as many as are
// currently available without blocking. It never returns a control byte;
// callers that want flow-control bytes delivered in order must Dequeue
// them explicitly (the protocol engine only ever drains ordinary payload
// bytes this way).
func (q *Queue) DrainUpTo(n int) []byte {
	if n > q.count {
		n = q.count
	}
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		out[i] = q.buf[q.head]
		q.head = (q.head + 1) % len(q.buf)
	}
	q.count -= n
	return out
}

// injectControl sets the pending control byte on this queue, bypassing the
// normal enqueue path and overwriting any previously pending control byte.
// This is how a peer's FlowControl call requests XON/XOFF on this queue.
func (q *Queue) injectControl(b byte) {
	q.control = b
	q.hasControl = true
}

// FlowControl checks this queue's fill level against the HIGH/LOW
// thresholds (capacity/2, capacity/4) and, if a threshold is newly
// crossed, injects XOFF or XON into peerDirection — the queue feeding
// bytes in the opposite direction, whose sender's UART should pause or
// resume. It is a no-op otherwise. Call it opportunistically on every
// tick.
func (q *Queue) FlowControl(peerDirection *Queue) {
	high := q.Cap() / 2
	low := q.Cap() / 4
	if q.count > high && !q.xoffRequested {
		q.xoffRequested = true
		peerDirection.injectControl(XOFF)
	} else if q.count < low && q.xoffRequested {
		q.xoffRequested = false
		peerDirection.injectControl(XON)
	}
}
