package crud

import (
	"context"
	"sync"
)

// Call is the handle of a dispatched operation. The store never reports
// failures through its state; Call is how a caller that cares learns the
// outcome.
type Call struct {
	op   Op
	done chan struct{}
	once sync.Once
	err  error
}

func newCall(op Op) *Call {
	return &Call{op: op, done: make(chan struct{})}
}

func rejectedCall(op Op, err error) *Call {
	c := newCall(op)
	c.complete(err)
	return c
}

func (c *Call) complete(err error) {
	c.once.Do(func() {
		c.err = err
		close(c.done)
	})
}

// Op returns the operation the call belongs to.
func (c *Call) Op() Op {
	return c.op
}

// Done is closed once the call has completed.
func (c *Call) Done() <-chan struct{} {
	return c.done
}

// Err returns the outcome of a completed call, nil while it is pending.
func (c *Call) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

// Wait blocks until the call completes or ctx is done.
func (c *Call) Wait(ctx context.Context) error {
	select {
	case <-c.done:
		return c.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
