package watch

import (
	"context"
	"sync"
	"time"
)

// Delivery is the outcome of one AppMessage send: acked when Err is nil.
type Delivery struct {
	TransactionID uint8     `json:"transaction_id"`
	Transport     string    `json:"transport,omitempty"`
	Err           error     `json:"-"`
	At            time.Time `json:"at"`
}

// OK reports whether the watch acknowledged the message.
func (d Delivery) OK() bool {
	return d.Err == nil
}

// Pending resolves exactly once to a Delivery.
type Pending struct {
	once   sync.Once
	done   chan struct{}
	result Delivery
}

func newPending() *Pending {
	return &Pending{done: make(chan struct{})}
}

// Resolved returns a Pending that already holds d.
func Resolved(d Delivery) *Pending {
	p := newPending()
	p.resolve(d)
	return p
}

// Failed returns an already resolved, failed Pending.
func Failed(err error) *Pending {
	return Resolved(Delivery{Err: err})
}

// Done is closed once the outcome is known.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Result returns the outcome. It is only meaningful after Done is closed.
func (p *Pending) Result() Delivery {
	<-p.done
	return p.result
}

// Wait blocks until the outcome is known or ctx ends.
func (p *Pending) Wait(ctx context.Context) (Delivery, error) {
	select {
	case <-p.done:
		return p.result, nil
	case <-ctx.Done():
		return Delivery{}, ctx.Err()
	}
}

func (p *Pending) resolve(d Delivery) bool {
	resolved := false
	p.once.Do(func() {
		if d.At.IsZero() {
			d.At = time.Now()
		}
		p.result = d
		close(p.done)
		resolved = true
	})
	return resolved
}
