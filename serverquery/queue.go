package serverquery

import (
	"context"
	"sync"
	"time"
)

// Pending is the completion handle of one command in flight. It is
// completed exactly once, either with a response or with an error.
type Pending struct {
	command string
	sent    time.Time

	once sync.Once
	done chan struct{}
	resp *Response
	err  error
}

func newPending(command string) *Pending {
	return &Pending{
		command: command,
		sent:    time.Now(),
		done:    make(chan struct{}),
	}
}

// Command returns the command line the handle was created for.
func (p *Pending) Command() string {
	return p.command
}

// Done returns a channel that is closed once the command has completed.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Result returns the outcome of a completed command. Before completion it
// returns nil and nil.
func (p *Pending) Result() (*Response, error) {
	select {
	case <-p.done:
		return p.resp, p.err
	default:
		return nil, nil
	}
}

// Wait blocks until the command completes or ctx is done. Giving up on
// the wait does not remove the command from the queue: its response is
// still consumed when it arrives.
func (p *Pending) Wait(ctx context.Context) (*Response, error) {
	select {
	case <-p.done:
		return p.resp, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// complete resolves or fails the handle depending on the response status.
// It reports false if the handle had already been completed.
func (p *Pending) complete(resp *Response) bool {
	if resp.OK() {
		return p.finish(resp, nil)
	}
	return p.finish(resp, &StatusError{Response: resp})
}

func (p *Pending) fail(err error) bool {
	return p.finish(nil, err)
}

func (p *Pending) finish(resp *Response, err error) bool {
	completed := false
	p.once.Do(func() {
		p.resp = resp
		p.err = err
		close(p.done)
		completed = true
	})
	return completed
}

// RequestQueue correlates responses with commands. The protocol carries no
// request ID, so the oldest pending command owns the next response.
type RequestQueue struct {
	mu      sync.Mutex
	pending []*Pending
	closed  bool
}

// NewRequestQueue creates an empty, open queue.
func NewRequestQueue() *RequestQueue {
	return &RequestQueue{}
}

// Enqueue appends a new handle for command. It fails with ErrClosed once
// the queue has been drained.
func (q *RequestQueue) Enqueue(command string) (*Pending, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil, ErrClosed
	}
	p := newPending(command)
	q.pending = append(q.pending, p)
	return p, nil
}

// PopOldest removes and returns the head of the queue.
func (q *RequestQueue) PopOldest() (*Pending, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 {
		return nil, ErrQueueUnderflow
	}
	p := q.pending[0]
	q.pending[0] = nil
	q.pending = q.pending[1:]
	return p, nil
}

// Len returns the number of pending commands.
func (q *RequestQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Snapshot returns the pending commands in queue order.
func (q *RequestQueue) Snapshot() []*Pending {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*Pending, len(q.pending))
	copy(out, q.pending)
	return out
}

// Drain fails every pending command with err (ErrClosed if nil), empties
// the queue and rejects further Enqueue calls.
func (q *RequestQueue) Drain(err error) int {
	if err == nil {
		err = ErrClosed
	}

	q.mu.Lock()
	pending := q.pending
	q.pending = nil
	q.closed = true
	q.mu.Unlock()

	for _, p := range pending {
		p.fail(err)
	}
	return len(pending)
}
