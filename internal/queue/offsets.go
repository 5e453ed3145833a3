package queue

import (
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

type delivery struct {
	msg  kafka.Message
	done bool
	once sync.Once
}

// offsets tracks fetched messages per partition in fetch order. A message
// becomes committable once it and everything fetched before it on the same
// partition has been handled.
type offsets struct {
	mu      sync.Mutex
	pending map[int][]*delivery
	open    sync.WaitGroup
}

func newOffsets() *offsets {
	return &offsets{pending: make(map[int][]*delivery)}
}

func (o *offsets) track(msg kafka.Message) *delivery {
	o.mu.Lock()
	defer o.mu.Unlock()

	d := &delivery{msg: msg}
	o.pending[msg.Partition] = append(o.pending[msg.Partition], d)
	o.open.Add(1)
	return d
}

// resolve records the outcome of d and returns the highest message that may
// now be committed on its partition. An unhandled message stays at the head
// of its partition, which holds back every later commit until it is
// redelivered.
func (o *offsets) resolve(d *delivery, handled bool) (kafka.Message, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !handled {
		return kafka.Message{}, false
	}
	d.done = true

	queue := o.pending[d.msg.Partition]
	n := 0
	for n < len(queue) && queue[n].done {
		n++
	}
	if n == 0 {
		return kafka.Message{}, false
	}
	last := queue[n-1].msg
	o.pending[d.msg.Partition] = queue[n:]
	return last, true
}

// release marks d as no longer outstanding. Every tracked delivery is released
// exactly once.
func (o *offsets) release() {
	o.open.Done()
}

// wait blocks until every tracked delivery is released or timeout passes, and
// reports whether everything was released.
func (o *offsets) wait(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		o.open.Wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}
