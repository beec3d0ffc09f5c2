// Package warmup hosts the readiness gate that blocks the UI until the
// gateway's dependent services have left their cold state.
package warmup

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/procurehub/portal/internal/domain/warmup"
)

// Fixed user-facing messages for the gate overlay.
const (
	StartFailedMessage = "Could not start warm-up. Retrying shortly."
	StillColdMessage   = "Some services are still cold. Retrying shortly."
)

// Feed abstracts the warm-up transport: start a session, then follow it
// to completion. Implemented by the gateway client plus tracker.
type Feed interface {
	Start(ctx context.Context) (warmup.Session, error)
	Track(ctx context.Context, session warmup.Session, observe func(warmup.Job)) (*warmup.Job, error)
}

// Snapshot is the gate state as rendered by the overlay. The job always
// carries one entry per expected service, so the list is never empty.
type Snapshot struct {
	Dismissed bool       `json:"dismissed"`
	Job       warmup.Job `json:"job"`
	Progress  int        `json:"progress"`
	Message   string     `json:"message,omitempty"`
}

// Config holds the gate's timing knobs.
type Config struct {
	// ExpectedServices are the service names that must all report ready.
	ExpectedServices []string
	// RetryDelay is the fixed wait before a failed attempt is retried.
	RetryDelay time.Duration
	// MinVisible is the minimum time the overlay stays visible from gate
	// start, to avoid flicker on warm starts.
	MinVisible time.Duration
}

// DefaultConfig returns the production gate timings.
func DefaultConfig(services []string) Config {
	return Config{
		ExpectedServices: services,
		RetryDelay:       10 * time.Second,
		MinVisible:       1200 * time.Millisecond,
	}
}

// Gate runs the warm-up readiness state machine. One session is tracked
// at a time; each new attempt starts only after the previous transport
// has been torn down. Once dismissed the gate stays dismissed.
type Gate struct {
	feed   Feed
	cfg    Config
	logger *zap.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	mu    sync.RWMutex
	state Snapshot
	subs  map[chan Snapshot]struct{}
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithGateLogger sets the gate logger.
func WithGateLogger(logger *zap.Logger) GateOption {
	return func(g *Gate) { g.logger = logger }
}

// WithClock overrides the gate's time source, for tests.
func WithClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) GateOption {
	return func(g *Gate) {
		g.now = now
		g.sleep = sleep
	}
}

// NewGate creates a gate over the given feed.
func NewGate(feed Feed, cfg Config, opts ...GateOption) *Gate {
	g := &Gate{
		feed:   feed,
		cfg:    cfg,
		logger: zap.NewNop(),
		now:    time.Now,
		sleep:  sleepCtx,
		subs:   make(map[chan Snapshot]struct{}),
		state: Snapshot{
			Job: warmup.PlaceholderJob(cfg.ExpectedServices),
		},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// State returns the current gate snapshot.
func (g *Gate) State() Snapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state
}

// Subscribe registers a listener for gate snapshots. The returned
// channel receives the current state immediately and every change
// afterwards; slow listeners miss intermediate states rather than
// blocking the gate.
func (g *Gate) Subscribe() chan Snapshot {
	ch := make(chan Snapshot, 16)
	g.mu.Lock()
	g.subs[ch] = struct{}{}
	ch <- g.state
	g.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener and closes its channel.
func (g *Gate) Unsubscribe(ch chan Snapshot) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.subs[ch]; ok {
		delete(g.subs, ch)
		close(ch)
	}
}

// Run drives warm-up attempts until every expected service is ready,
// then dismisses the gate permanently. Attempts retry on a fixed delay
// for as long as ctx is alive; cancelling ctx tears down any in-flight
// stream, poll or timer immediately.
func (g *Gate) Run(ctx context.Context) error {
	started := g.now()

	for {
		session, err := g.feed.Start(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			g.logger.Warn("warm-up start failed", zap.Error(err))
			g.update(func(s *Snapshot) {
				s.Message = StartFailedMessage
			})
			if err := g.sleep(ctx, g.cfg.RetryDelay); err != nil {
				return err
			}
			continue
		}

		g.update(func(s *Snapshot) {
			s.Message = ""
			s.Job = warmup.PlaceholderJob(g.cfg.ExpectedServices)
			s.Progress = 0
		})

		final, err := g.feed.Track(ctx, session, func(job warmup.Job) {
			g.update(func(s *Snapshot) {
				s.Job = job
				s.Progress = warmup.Progress(job, g.cfg.ExpectedServices)
			})
		})
		if err != nil {
			return err
		}

		if final == nil || !final.AllReady(g.cfg.ExpectedServices) {
			g.logger.Info("warm-up attempt incomplete, retrying",
				zap.String("job_id", session.ID))
			g.update(func(s *Snapshot) {
				s.Message = StillColdMessage
			})
			if err := g.sleep(ctx, g.cfg.RetryDelay); err != nil {
				return err
			}
			continue
		}

		// Keep the overlay up for the remainder of the minimum visible
		// window, measured from Run start.
		if remaining := g.cfg.MinVisible - g.now().Sub(started); remaining > 0 {
			if err := g.sleep(ctx, remaining); err != nil {
				return err
			}
		}

		g.update(func(s *Snapshot) {
			s.Dismissed = true
			s.Message = ""
		})
		g.logger.Info("warm-up gate dismissed",
			zap.String("job_id", session.ID),
			zap.Duration("elapsed", g.now().Sub(started)))
		return nil
	}
}

// update mutates the state under lock and fans the new snapshot out to
// subscribers.
func (g *Gate) update(mutate func(*Snapshot)) {
	g.mu.Lock()
	mutate(&g.state)
	state := g.state
	for ch := range g.subs {
		select {
		case ch <- state:
		default:
		}
	}
	g.mu.Unlock()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
