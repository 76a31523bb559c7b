package stream

import "sync"

// Queue is a fixed-capacity FIFO of change records. Append assigns the next
// global sequence number; at capacity the oldest record is evicted and the
// dropped counter incremented. Append and Drain take the same short lock,
// so the sampler and a consumer never block each other beyond one copy.
type Queue struct {
	mu      sync.Mutex
	buf     []Record
	head    int
	count   int
	nextSeq uint64
	dropped uint64
}

func NewQueue(capacity int) *Queue {
	return &Queue{
		buf:     make([]Record, capacity),
		nextSeq: 1,
	}
}

// Append stores r with the next sequence number assigned and returns the
// stored record. Evicts the oldest record when full.
func (q *Queue) Append(r Record) Record {
	q.mu.Lock()
	defer q.mu.Unlock()

	r.Seq = q.nextSeq
	q.nextSeq++

	if q.count == len(q.buf) {
		q.head = (q.head + 1) % len(q.buf)
		q.count--
		q.dropped++
	}
	q.buf[(q.head+q.count)%len(q.buf)] = r
	q.count++
	return r
}

// Drain removes and returns up to max records from the front, oldest first.
// A partial drain leaves the remainder for the next pull.
func (q *Queue) Drain(max int) []Record {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := q.count
	if max >= 0 && n > max {
		n = max
	}
	if n == 0 {
		return nil
	}
	out := make([]Record, n)
	for i := 0; i < n; i++ {
		out[i] = q.buf[(q.head+i)%len(q.buf)]
	}
	q.head = (q.head + n) % len(q.buf)
	q.count -= n
	return out
}

// Len reports the number of buffered records.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Dropped reports the total records evicted by overflow.
func (q *Queue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// Reset discards buffered contents and the dropped counter. The sequence
// counter is retained so numbers stay strictly increasing across stream
// restarts.
func (q *Queue) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.head = 0
	q.count = 0
	q.dropped = 0
}
