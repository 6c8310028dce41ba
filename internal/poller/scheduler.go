package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const resultsBuffer = 16

// OverlapPolicy decides what a tick does while an earlier request is still
// in flight.
type OverlapPolicy string

const (
	// OverlapCancel cancels the in-flight request and issues a new one.
	// Results older than the newest delivered result are dropped.
	OverlapCancel OverlapPolicy = "cancel"

	// OverlapSkip skips the tick while a request is in flight.
	OverlapSkip OverlapPolicy = "skip"

	// OverlapAllow issues a new request regardless. Results are delivered
	// in arrival order, so a slow stale response can overwrite a newer one.
	OverlapAllow OverlapPolicy = "allow"
)

// ParseOverlapPolicy converts a string into an [OverlapPolicy].
// The empty string yields [OverlapCancel].
func ParseOverlapPolicy(s string) (OverlapPolicy, error) {
	switch OverlapPolicy(s) {
	case "":
		return OverlapCancel, nil
	case OverlapCancel, OverlapSkip, OverlapAllow:
		return OverlapPolicy(s), nil
	default:
		return "", fmt.Errorf("unknown overlap policy %q (expected cancel, skip, or allow)", s)
	}
}

// Target is the request a tick should issue.
type Target struct {
	BuildID string
	URL     string
	Headers map[string]string
	Timeout time.Duration
}

// Resolver returns the current [Target], or false when there is nothing to
// poll (no build id on the page). It is called once per tick.
type Resolver func() (Target, bool)

// Result is the outcome of one status request.
type Result struct {
	// Seq increases by one for every issued request.
	Seq uint64

	BuildID    string
	URL        string
	RequestID  string
	Body       []byte
	StatusCode int
	Latency    time.Duration
	CheckedAt  time.Time

	// Error is set for transport failures. Non-2xx responses carry no
	// error here; the consumer classifies them.
	Error error
}

// Config tunes a [Scheduler].
type Config struct {
	// Interval between ticks. Must be positive.
	Interval time.Duration

	// Policy defaults to [OverlapCancel].
	Policy OverlapPolicy

	// Immediate polls once right after Start instead of waiting a full
	// interval for the first tick.
	Immediate bool

	// Client defaults to [NewClient].
	Client *Client
}

// Scheduler polls the resolved [Target] every interval.
//
// Each tick either issues a request on its own goroutine or is a no-op (no
// target, or skipped under [OverlapSkip]). Completed requests are emitted on
// [Scheduler.Results]. All lifecycle methods are safe for concurrent use.
type Scheduler struct {
	resolve   Resolver
	interval  time.Duration
	policy    OverlapPolicy
	immediate bool
	client    *Client
	results   chan Result
	logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	started   bool
	stopped   bool
	closeOnce sync.Once

	// request bookkeeping, guarded by mu
	seq            uint64
	inflight       int
	cancelInflight context.CancelFunc
	requests       sync.WaitGroup

	// sendMu orders the staleness check with the channel send
	sendMu        sync.Mutex
	lastDelivered uint64
}

// NewScheduler creates a [Scheduler]. It must be started with
// [Scheduler.Start] and stopped with [Scheduler.Stop].
func NewScheduler(resolve Resolver, cfg Config, logger *slog.Logger) *Scheduler {
	policy := cfg.Policy
	if policy == "" {
		policy = OverlapCancel
	}
	client := cfg.Client
	if client == nil {
		client = NewClient()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		resolve:   resolve,
		interval:  cfg.Interval,
		policy:    policy,
		immediate: cfg.Immediate,
		client:    client,
		results:   make(chan Result, resultsBuffer),
		logger:    logger,
	}
}

// Results returns the channel of completed requests. It is closed once the
// scheduler has stopped and every in-flight request has finished.
func (s *Scheduler) Results() <-chan Result {
	return s.results
}

// Policy returns the scheduler's overlap policy.
func (s *Scheduler) Policy() OverlapPolicy {
	return s.policy
}

// Start begins ticking in a background goroutine.
//
// If ctx is nil, context.Background() is used. Start is idempotent; calls
// after the first, or after Stop, are no-ops.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.started = true

	if ctx == nil {
		ctx = context.Background()
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	loopCtx := s.ctx
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer s.closeOnce.Do(func() { close(s.results) })
		// in-flight requests must finish before results is closed
		defer s.requests.Wait()

		if s.immediate {
			s.tick(loopCtx)
		}

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				s.tick(loopCtx)
			}
		}
	}()
}

// Stop cancels the scheduler and blocks until the loop and all in-flight
// requests are done and the results channel is closed.
//
// Stop is idempotent. Calling Stop before Start is a safe no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.stopped {
		s.stopped = true
		if s.cancel != nil {
			s.cancel()
		}
	}
	s.mu.Unlock()

	s.wg.Wait()
	s.client.Close()
	s.closeOnce.Do(func() { close(s.results) })
}

// tick resolves the target and, policy permitting, issues one request.
func (s *Scheduler) tick(ctx context.Context) {
	target, ok := s.resolve()
	if !ok {
		s.logger.Debug("no build id resolvable, skipping poll")
		return
	}

	s.mu.Lock()
	switch s.policy {
	case OverlapSkip:
		if s.inflight > 0 {
			s.mu.Unlock()
			s.logger.Debug("previous status request still in flight, skipping tick",
				"build_id", target.BuildID,
			)
			return
		}
	case OverlapCancel:
		if s.cancelInflight != nil {
			s.cancelInflight()
		}
	}

	s.seq++
	seq := s.seq
	reqCtx, cancel := context.WithCancel(ctx)
	if s.policy == OverlapCancel {
		s.cancelInflight = cancel
	}
	s.inflight++
	s.requests.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.requests.Done()
		defer cancel()

		result := s.fetch(reqCtx, target, seq)

		s.mu.Lock()
		s.inflight--
		s.mu.Unlock()

		// a request cancelled by a newer tick has nothing worth reporting
		if result.Error != nil && errors.Is(reqCtx.Err(), context.Canceled) && ctx.Err() == nil {
			s.logger.Debug("status request superseded",
				"build_id", target.BuildID,
				"seq", seq,
			)
			return
		}

		s.deliver(ctx, result)
	}()
}

// deliver emits result unless the policy marks it stale.
func (s *Scheduler) deliver(ctx context.Context, result Result) {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	if s.policy != OverlapAllow && result.Seq < s.lastDelivered {
		s.logger.Debug("dropping stale status response",
			"build_id", result.BuildID,
			"seq", result.Seq,
			"last_delivered", s.lastDelivered,
		)
		return
	}
	if result.Seq > s.lastDelivered {
		s.lastDelivered = result.Seq
	}

	select {
	case s.results <- result:
	case <-ctx.Done():
	}
}

// Poll resolves the target and performs one synchronous request outside the
// ticking loop. It returns false when no target is resolvable.
func (s *Scheduler) Poll(ctx context.Context) (Result, bool) {
	target, ok := s.resolve()
	if !ok {
		return Result{}, false
	}

	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	return s.fetch(ctx, target, seq), true
}

func (s *Scheduler) fetch(ctx context.Context, target Target, seq uint64) Result {
	resp := s.client.Fetch(ctx, target.URL, target.Headers, target.Timeout)
	return Result{
		Seq:        seq,
		BuildID:    target.BuildID,
		URL:        target.URL,
		RequestID:  resp.RequestID,
		Body:       resp.Body,
		StatusCode: resp.StatusCode,
		Latency:    resp.Latency,
		CheckedAt:  time.Now(),
		Error:      resp.Error,
	}
}
