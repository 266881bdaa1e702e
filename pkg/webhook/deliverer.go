package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/pitabwire/frame/workerpool"

	"github.com/cleanscribe/cleanscribe/pkg/events"
	"github.com/cleanscribe/cleanscribe/pkg/urlvalidation"
)

const maxBreakers = 10000

// DelivererConfig holds delivery-related settings.
type DelivererConfig struct {
	MaxRetries        int
	TimeoutSec        int
	BackoffInitialSec int
	BackoffMaxSec     int
	CBFailThreshold   int
	CBResetTimeoutSec int
}

// Deliverer posts signed event envelopes to registered consumer endpoints,
// retrying with backoff and dead lettering what never gets through.
type Deliverer struct {
	repo         *Repository
	httpClient   *http.Client
	cfg          DelivererConfig
	pool         workerpool.WorkerPool
	validateOpts []urlvalidation.Option

	breakerMu sync.Mutex
	breakers  map[string]*CircuitBreaker
}

// NewDeliverer creates a new webhook deliverer.
func NewDeliverer(repo *Repository, cfg DelivererConfig, pool workerpool.WorkerPool, validateOpts ...urlvalidation.Option) *Deliverer {
	return &Deliverer{
		repo: repo,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSec) * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		cfg:          cfg,
		pool:         pool,
		validateOpts: validateOpts,
		breakers:     make(map[string]*CircuitBreaker),
	}
}

func (d *Deliverer) breakerFor(consumerID string) *CircuitBreaker {
	d.breakerMu.Lock()
	defer d.breakerMu.Unlock()

	if cb, ok := d.breakers[consumerID]; ok {
		return cb
	}

	// Evict an arbitrary entry at capacity.
	if len(d.breakers) >= maxBreakers {
		for k := range d.breakers {
			delete(d.breakers, k)
			break
		}
	}

	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold:    d.cfg.CBFailThreshold,
		ResetTimeout:        time.Duration(d.cfg.CBResetTimeoutSec) * time.Second,
		HalfOpenMaxAttempts: 1,
	})
	d.breakers[consumerID] = cb
	return cb
}

// Deliver posts an event envelope to a consumer endpoint, starting the retry
// chain at attempt 1.
func (d *Deliverer) Deliver(ctx context.Context, ep ConsumerEndpoint, env events.Envelope) {
	d.deliver(ctx, ep, env, 1)
}

func (d *Deliverer) deliver(ctx context.Context, ep ConsumerEndpoint, env events.Envelope, attempt int) {
	if err := urlvalidation.CheckEndpoint(ep.URL, d.validateOpts...); err != nil {
		slog.ErrorContext(ctx, "consumer endpoint rejected",
			slog.String("consumer_id", ep.ID),
			slog.String("url", ep.URL),
			slog.String("error", err.Error()))
		return
	}

	cb := d.breakerFor(ep.ID)
	if !cb.AllowRequest() {
		d.retryOrBury(ctx, ep, env, attempt, "circuit open")
		return
	}

	body, err := json.Marshal(env)
	if err != nil {
		d.retryOrBury(ctx, ep, env, attempt, fmt.Sprintf("marshal envelope: %v", err))
		return
	}

	da, err := d.post(ctx, ep, env, body, attempt)
	if da != nil {
		if rerr := d.repo.RecordDelivery(ctx, da); rerr != nil {
			slog.ErrorContext(ctx, "record delivery attempt failed", slog.String("error", rerr.Error()))
		}
	}
	if err == nil {
		cb.RecordSuccess()
		return
	}
	cb.RecordFailure()
	d.retryOrBury(ctx, ep, env, attempt, err.Error())
}

// post sends one signed delivery. The returned attempt record is always
// populated once a request went out; err is non-nil when the consumer did
// not acknowledge with a 2xx.
func (d *Deliverer) post(ctx context.Context, ep ConsumerEndpoint, env events.Envelope, body []byte, attempt int) (*DeliveryAttempt, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SignatureHeader, Sign(ep.Secret, body))
	req.Header.Set("X-Cleanscribe-Event", string(env.Type))
	req.Header.Set("X-Cleanscribe-Delivery", env.ID)

	da := &DeliveryAttempt{
		ConsumerID:    ep.ID,
		EventID:       env.ID,
		EventType:     string(env.Type),
		RequestBody:   string(body),
		AttemptNumber: attempt,
	}

	start := time.Now()
	resp, err := d.httpClient.Do(req)
	da.DurationMs = time.Since(start).Milliseconds()
	if err != nil {
		da.Status = "failed"
		da.Error = err.Error()
		return da, err
	}
	defer resp.Body.Close()

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	// Drain remainder for connection reuse.
	io.Copy(io.Discard, resp.Body)

	da.ResponseCode = resp.StatusCode
	da.ResponseBody = string(snippet)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		da.Status = "failed"
		da.Error = fmt.Sprintf("HTTP %d", resp.StatusCode)
		return da, fmt.Errorf("consumer returned HTTP %d", resp.StatusCode)
	}
	da.Status = "success"
	return da, nil
}

// retryOrBury schedules the next attempt with exponential backoff, or dead
// letters the envelope once retries are spent.
func (d *Deliverer) retryOrBury(ctx context.Context, ep ConsumerEndpoint, env events.Envelope, attempt int, lastErr string) {
	if attempt >= d.cfg.MaxRetries {
		d.bury(ctx, ep, env, attempt, lastErr)
		return
	}

	delay := d.backoff(attempt)
	if d.pool == nil {
		time.AfterFunc(delay, func() {
			d.deliver(ctx, ep, env, attempt+1)
		})
		return
	}

	run := func() {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
		case <-timer.C:
			d.deliver(ctx, ep, env, attempt+1)
		}
	}
	if err := d.pool.Submit(ctx, run); err != nil {
		slog.WarnContext(ctx, "delivery retry dropped, worker pool full",
			slog.String("consumer_id", ep.ID),
			slog.Int("attempt", attempt))
	}
}

func (d *Deliverer) backoff(attempt int) time.Duration {
	sec := d.cfg.BackoffInitialSec << (attempt - 1)
	if sec > d.cfg.BackoffMaxSec {
		sec = d.cfg.BackoffMaxSec
	}
	return time.Duration(sec) * time.Second
}

func (d *Deliverer) bury(ctx context.Context, ep ConsumerEndpoint, env events.Envelope, attempts int, lastErr string) {
	payload, _ := json.Marshal(env)
	dl := &DeadLetter{
		ConsumerID: ep.ID,
		EventID:    env.ID,
		EventType:  string(env.Type),
		Payload:    string(payload),
		LastError:  lastErr,
		Attempts:   attempts,
		Replayable: true,
	}
	if err := d.repo.CreateDeadLetter(ctx, dl); err != nil {
		slog.ErrorContext(ctx, "create dead letter failed",
			slog.String("consumer_id", ep.ID),
			slog.String("error", err.Error()))
	}
}
