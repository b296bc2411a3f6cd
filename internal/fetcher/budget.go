package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// ErrBudgetExhausted is returned once the request cap of a run has been used up.
var ErrBudgetExhausted = errors.New("request budget exhausted")

// MaxCooldown caps how long a Retry-After header may pause the run.
const MaxCooldown = time.Minute

// RequestBudget caps the number of requests of one run and pauses all requests
// while a server asked us to back off via Retry-After.
type RequestBudget struct {
	mu        sync.Mutex
	limit     int
	remaining int
	cooldown  time.Time
	now       func() time.Time
}

// NewRequestBudget returns a budget allowing limit requests. A limit <= 0 is unlimited.
func NewRequestBudget(limit int) *RequestBudget {
	return &RequestBudget{
		limit:     limit,
		remaining: limit,
		now:       time.Now,
	}
}

// Remaining returns the requests left, or -1 when unlimited.
func (b *RequestBudget) Remaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.limit <= 0 {
		return -1
	}
	return b.remaining
}

// Acquire takes one request from the budget, waiting out any active cooldown.
func (b *RequestBudget) Acquire(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("Acquire: nil context")
	}
	if b == nil {
		return fmt.Errorf("Acquire: nil RequestBudget")
	}
	if b.now == nil {
		return fmt.Errorf("Acquire: RequestBudget.now is nil (use NewRequestBudget)")
	}

	b.mu.Lock()
	wait := b.cooldown.Sub(b.now())
	b.mu.Unlock()

	if wait > 0 {
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.limit <= 0 {
		return nil
	}
	if b.remaining <= 0 {
		return ErrBudgetExhausted
	}
	b.remaining--
	return nil
}

// UpdateFromResponse starts a cooldown when the server answered with Retry-After seconds.
func (b *RequestBudget) UpdateFromResponse(resp *http.Response) {
	if resp == nil || b == nil || b.now == nil {
		return
	}
	retryAfter := resp.Header.Get("Retry-After")
	if retryAfter == "" {
		return
	}
	seconds, err := strconv.Atoi(retryAfter)
	if err != nil || seconds <= 0 {
		return
	}
	d := time.Duration(seconds) * time.Second
	if d > MaxCooldown {
		d = MaxCooldown
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	until := b.now().Add(d)
	if until.After(b.cooldown) {
		b.cooldown = until
	}
}
