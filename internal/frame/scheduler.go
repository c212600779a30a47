// Package frame schedules per-frame callbacks and fans host events out to
// subscribers.
package frame

import (
	"sync"
	"time"
)

// Handle identifies a pending frame request. The zero Handle is never issued.
type Handle uint64

// Callback runs once per requested frame.
type Callback func(now time.Time)

// Scheduler requests and cancels single animation frames.
type Scheduler interface {
	RequestFrame(cb Callback) Handle
	CancelFrame(h Handle)
}

// Queue is a Scheduler pumped by its host: each Fire runs the callbacks
// requested before it. Callbacks requested during a Fire wait for the next.
type Queue struct {
	mu      sync.Mutex
	next    Handle
	pending map[Handle]Callback
	order   []Handle
	firing  map[Handle]Callback
}

func NewQueue() *Queue {
	return &Queue{pending: map[Handle]Callback{}}
}

func (q *Queue) RequestFrame(cb Callback) Handle {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.next++
	q.pending[q.next] = cb
	q.order = append(q.order, q.next)
	return q.next
}

// CancelFrame drops h, including when it belongs to the batch currently
// firing. Unknown handles are ignored.
func (q *Queue) CancelFrame(h Handle) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.pending, h)
	delete(q.firing, h)
}

// Fire runs the pending callbacks in request order and reports how many ran.
func (q *Queue) Fire(now time.Time) int {
	q.mu.Lock()
	batch, order := q.pending, q.order
	q.pending, q.order = map[Handle]Callback{}, nil
	q.firing = batch
	q.mu.Unlock()

	ran := 0
	for _, h := range order {
		q.mu.Lock()
		cb, ok := batch[h]
		delete(batch, h)
		q.mu.Unlock()
		if ok {
			cb(now)
			ran++
		}
	}

	q.mu.Lock()
	q.firing = nil
	q.mu.Unlock()
	return ran
}

// Pending is the number of callbacks waiting for the next Fire.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Ticker fires a Queue from its own goroutine at a fixed rate, for hosts
// without a display loop.
type Ticker struct {
	*Queue
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// NewTicker starts firing at fps frames per second (60 when fps <= 0).
func NewTicker(fps int) *Ticker {
	if fps <= 0 {
		fps = 60
	}
	t := &Ticker{Queue: NewQueue(), stop: make(chan struct{}), done: make(chan struct{})}
	go t.run(time.Second / time.Duration(fps))
	return t
}

func (t *Ticker) run(dt time.Duration) {
	defer close(t.done)
	tick := time.NewTicker(dt)
	defer tick.Stop()
	for {
		select {
		case <-t.stop:
			return
		case now := <-tick.C:
			t.Fire(now)
		}
	}
}

// Close stops the goroutine and waits for it to exit. Safe to call twice.
func (t *Ticker) Close() {
	t.once.Do(func() { close(t.stop) })
	<-t.done
}
