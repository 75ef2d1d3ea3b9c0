package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"mosync/breaker"
)

const (
	DefaultRequestTimeout = 30 * time.Second
	maxErrorBody          = 100
	openLogInterval       = time.Minute
)

type SkipReason string

const (
	SkipNotConfigured SkipReason = "not configured"
	SkipCircuitOpen   SkipReason = "circuit open"
)

// Outcome describes a send that did not fail: either delivered or skipped.
type Outcome struct {
	Delivered  bool       `json:"delivered"`
	Skipped    bool       `json:"skipped"`
	Reason     SkipReason `json:"reason,omitempty"`
	StatusCode int        `json:"status_code,omitempty"`
}

// BatchSummary aggregates the results of one SendBatched call.
type BatchSummary struct {
	SuccessCount     int                      `json:"success_count"`
	SkippedCount     int                      `json:"skipped_count"`
	ErrorsByCategory map[breaker.Category]int `json:"errors_by_category"`
	Batches          int                      `json:"batches"`
}

func (s BatchSummary) ErrorCount() int {
	n := 0
	for _, c := range s.ErrorsByCategory {
		n += c
	}
	return n
}

// Total is success + errors + skipped; it equals the number of items sent.
func (s BatchSummary) Total() int {
	return s.SuccessCount + s.ErrorCount() + s.SkippedCount
}

func (s BatchSummary) String() string {
	return fmt.Sprintf("%d delivered, %d failed %v, %d skipped in %d batches",
		s.SuccessCount, s.ErrorCount(), s.ErrorsByCategory, s.SkippedCount, s.Batches)
}

type Option func(*Dispatcher)

func WithHTTPClient(c *http.Client) Option {
	return func(d *Dispatcher) { d.client = c }
}

// WithRequestTimeout bounds every POST; the request is aborted when it expires.
func WithRequestTimeout(t time.Duration) Option {
	return func(d *Dispatcher) {
		if t > 0 {
			d.timeout = t
		}
	}
}

func WithEmitter(e Emitter) Option {
	return func(d *Dispatcher) { d.emitter = e }
}

// WithSleep replaces the inter-batch wait.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(d *Dispatcher) { d.sleep = fn }
}

// Dispatcher posts JSON payloads to delivery endpoints behind a circuit breaker.
type Dispatcher struct {
	client  *http.Client
	breaker *breaker.Breaker
	timeout time.Duration
	emitter Emitter
	sleep   func(ctx context.Context, d time.Duration) error

	logMu       sync.Mutex
	lastOpenLog time.Time
}

func NewDispatcher(b *breaker.Breaker, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		client:  &http.Client{},
		breaker: b,
		timeout: DefaultRequestTimeout,
		emitter: nopEmitter{},
		sleep:   sleepContext,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dispatcher) Breaker() *breaker.Breaker { return d.breaker }

// Send performs at most one POST of payload to endpoint. An empty endpoint
// or an open circuit yields a skipped Outcome and no network I/O. A failed
// attempt returns a *DeliveryError.
func (d *Dispatcher) Send(ctx context.Context, payload any, endpoint string) (Outcome, error) {
	if blank(endpoint) {
		return Outcome{Skipped: true, Reason: SkipNotConfigured}, nil
	}
	if !d.breaker.Allow() {
		d.logCircuitOpen()
		return Outcome{Skipped: true, Reason: SkipCircuitOpen}, nil
	}
	return d.attempt(ctx, payload, endpoint)
}

// SendBatched sends items in consecutive slices of batchSize. Items of one
// slice are sent concurrently; the breaker is consulted before each item, so
// a circuit that opens mid-slice stops further attempts. Individual failures
// are counted, never returned.
func (d *Dispatcher) SendBatched(ctx context.Context, items []any, endpoint string, batchSize int, delay time.Duration) BatchSummary {
	sum := BatchSummary{ErrorsByCategory: make(map[breaker.Category]int)}
	if len(items) == 0 {
		return sum
	}
	if blank(endpoint) {
		sum.SkippedCount = len(items)
		return sum
	}
	if batchSize <= 0 {
		batchSize = len(items)
	}

	var mu sync.Mutex
	for start := 0; start < len(items); start += batchSize {
		if start > 0 {
			if err := d.sleep(ctx, delay); err != nil {
				sum.SkippedCount += len(items) - start
				break
			}
		}
		end := min(start+batchSize, len(items))
		sum.Batches++

		var g errgroup.Group
		for _, item := range items[start:end] {
			if ctx.Err() != nil || !d.breaker.Allow() {
				mu.Lock()
				sum.SkippedCount++
				mu.Unlock()
				continue
			}
			g.Go(func() error {
				_, err := d.attempt(ctx, item, endpoint)
				mu.Lock()
				defer mu.Unlock()
				var derr *DeliveryError
				switch {
				case errors.As(err, &derr):
					sum.ErrorsByCategory[derr.Category]++
				case err != nil:
					sum.ErrorsByCategory[breaker.CategoryOther]++
				default:
					sum.SuccessCount++
				}
				return nil
			})
		}
		_ = g.Wait()
	}

	if sum.SkippedCount > 0 && d.breaker.State() != breaker.StateClosed {
		d.logCircuitOpen()
	}
	d.emitter.EmitBatchCompleted(endpoint, sum)
	return sum
}

func (d *Dispatcher) attempt(parent context.Context, payload any, endpoint string) (Outcome, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Outcome{}, fmt.Errorf("encode payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(parent, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Outcome{}, d.fail(endpoint, &DeliveryError{Category: breaker.CategoryOther, Message: err.Error(), Err: err})
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		derr := &DeliveryError{Category: breaker.CategoryNetwork, Message: err.Error(), Err: err}
		if parent.Err() != nil {
			// cancelled by the caller, not the downstream's fault
			return Outcome{}, derr
		}
		return Outcome{}, d.fail(endpoint, derr)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		recovering := d.breaker.State() == breaker.StateHalfOpen
		d.breaker.RecordSuccess()
		if recovering {
			log.Printf("dispatch: delivered to %s (circuit recovering)", endpoint)
		}
		return Outcome{Delivered: true, StatusCode: resp.StatusCode}, nil
	}

	msg := string(data)
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody]
	}
	return Outcome{}, d.fail(endpoint, &DeliveryError{
		Category:   classifyStatus(resp.StatusCode),
		StatusCode: resp.StatusCode,
		Message:    msg,
	})
}

func (d *Dispatcher) fail(endpoint string, derr *DeliveryError) error {
	d.breaker.RecordFailure(derr.Category)
	if derr.StatusCode != 405 {
		log.Printf("dispatch: %s: %v", endpoint, derr)
	}
	d.emitter.EmitDeliveryFailed(endpoint, string(derr.Category), derr.StatusCode, derr.Message)
	return derr
}

// logCircuitOpen logs at most once per minute while the circuit refuses calls.
func (d *Dispatcher) logCircuitOpen() {
	d.logMu.Lock()
	defer d.logMu.Unlock()
	if time.Since(d.lastOpenLog) < openLogInterval {
		return
	}
	d.lastOpenLog = time.Now()
	snap := d.breaker.Snapshot()
	log.Printf("dispatch: circuit %s, skipping requests (errors %v, retry in %s)",
		snap.State, snap.ErrorTally, snap.RetryAfter.Round(time.Second))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
