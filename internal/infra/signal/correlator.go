package signal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

const defaultCallTimeout = 10 * time.Second

// ErrTimeout is returned when an idempotent call receives no response
var ErrTimeout = errors.New("rpc: call timed out")

// CallPolicy selects how a call timeout is surfaced to the caller
type CallPolicy int

const (
	// Idempotent calls are safe to retry; a timeout rejects the caller.
	Idempotent CallPolicy = iota
	// BestEffort calls have side effects the daemon often completes
	// without acknowledging (send, updateGroup). A timeout resolves as
	// success with Result.Unconfirmed set, because rejecting would push
	// the caller into retrying an operation that likely already happened.
	BestEffort
)

// Result is the outcome of a correlated call
type Result struct {
	Raw json.RawMessage
	// Unconfirmed marks a BestEffort call that timed out: the daemon
	// probably performed the operation but never replied.
	Unconfirmed bool
}

// pendingRequest tracks one outstanding call. Owned exclusively by the
// Correlator; resolved exactly once, by response or by timeout.
type pendingRequest struct {
	id      string
	policy  CallPolicy
	done    chan callOutcome
	created time.Time
}

type callOutcome struct {
	result json.RawMessage
	err    error
}

// writer is the outbound half the correlator needs from the transport
type writer interface {
	WriteRequest(*Request) error
}

// Correlator turns the multiplexed socket into call/response pairs. Any
// number of calls may be in flight; responses may arrive in any order.
type Correlator struct {
	w       writer
	timeout time.Duration

	mu      sync.Mutex
	pending map[string]*pendingRequest
}

// NewCorrelator creates a correlator writing through w
func NewCorrelator(w writer, timeout time.Duration) *Correlator {
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	return &Correlator{
		w:       w,
		timeout: timeout,
		pending: make(map[string]*pendingRequest),
	}
}

// Call issues one request and blocks until a matching response arrives,
// the timeout elapses, or ctx is cancelled.
func (c *Correlator) Call(ctx context.Context, method string, params interface{}, policy CallPolicy) (*Result, error) {
	id := uuid.NewString()
	p := &pendingRequest{
		id:      id,
		policy:  policy,
		done:    make(chan callOutcome, 1),
		created: time.Now(),
	}

	c.mu.Lock()
	c.pending[id] = p
	c.mu.Unlock()

	req := &Request{Method: method, Params: params, ID: id}
	if err := c.w.WriteRequest(req); err != nil {
		c.remove(id)
		return nil, fmt.Errorf("write %s: %w", method, err)
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case out := <-p.done:
		if out.err != nil {
			return nil, out.err
		}
		return &Result{Raw: out.result}, nil

	case <-timer.C:
		if !c.remove(id) {
			// Response won the race; it is already in the channel
			out := <-p.done
			if out.err != nil {
				return nil, out.err
			}
			return &Result{Raw: out.result}, nil
		}
		if policy == BestEffort {
			return &Result{Unconfirmed: true}, nil
		}
		return nil, fmt.Errorf("%s: %w", method, ErrTimeout)

	case <-ctx.Done():
		c.remove(id)
		return nil, ctx.Err()
	}
}

// Resolve delivers a response frame to its caller. It reports whether the
// frame matched a pending request.
func (c *Correlator) Resolve(frame *Frame) bool {
	if frame.ID == "" {
		return false
	}

	c.mu.Lock()
	p, ok := c.pending[frame.ID]
	if ok {
		delete(c.pending, frame.ID)
	}
	c.mu.Unlock()
	if !ok {
		return false
	}

	if frame.Error != nil {
		p.done <- callOutcome{err: fmt.Errorf("rpc error: %w", frame.Error)}
	} else {
		p.done <- callOutcome{result: frame.Result}
	}
	return true
}

// Pending returns the number of outstanding calls
func (c *Correlator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// remove deletes a pending entry, reporting whether it was still present.
// Removal under the lock is what guarantees exactly-once resolution.
func (c *Correlator) remove(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.pending[id]; !ok {
		return false
	}
	delete(c.pending, id)
	return true
}
