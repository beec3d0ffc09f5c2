package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/procurehub/portal/internal/domain/warmup"
)

// DefaultWarmupPollInterval is the fixed polling cadence used when the
// event stream is unavailable.
const DefaultWarmupPollInterval = 1200 * time.Millisecond

// StartWarmup asks the gateway to begin warming its dependent services
// and returns the session handle.
func (c *Client) StartWarmup(ctx context.Context, token string) (warmup.Session, error) {
	var out warmup.Session
	err := c.Post(ctx, "/warm-up", token, struct{}{}, &out)
	return out, err
}

// WarmupStatus fetches one job snapshot from the session's status URL.
func (c *Client) WarmupStatus(ctx context.Context, token, statusURL string) (warmup.Job, error) {
	var out warmup.Job
	err := c.Get(ctx, statusURL, token, &out)
	return out, err
}

// WarmupTracker follows one warm-up session until its job completes.
// The preferred transport is the gateway's event stream; on stream
// open or read failure it falls back to polling the status endpoint on
// a fixed interval. The transport choice is internal: callers only see
// a sequence of job snapshots.
type WarmupTracker struct {
	client       *Client
	token        string
	pollInterval time.Duration
	logger       *zap.Logger
}

// TrackerOption configures a WarmupTracker.
type TrackerOption func(*WarmupTracker)

// WithPollInterval overrides the fallback polling cadence.
func WithPollInterval(d time.Duration) TrackerOption {
	return func(t *WarmupTracker) { t.pollInterval = d }
}

// WithTrackerLogger sets the tracker logger.
func WithTrackerLogger(logger *zap.Logger) TrackerOption {
	return func(t *WarmupTracker) { t.logger = logger }
}

// NewWarmupTracker creates a tracker bound to a gateway client and an
// access token.
func NewWarmupTracker(client *Client, token string, opts ...TrackerOption) *WarmupTracker {
	t := &WarmupTracker{
		client:       client,
		token:        token,
		pollInterval: DefaultWarmupPollInterval,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start begins a new warm-up session.
func (t *WarmupTracker) Start(ctx context.Context) (warmup.Session, error) {
	return t.client.StartWarmup(ctx, t.token)
}

// Track follows the session, invoking observe for every job snapshot,
// and returns the final snapshot once the job completes. It returns
// (nil, nil) when the session could not be tracked to completion and
// ctx.Err() when the caller tore the tracker down.
func (t *WarmupTracker) Track(ctx context.Context, session warmup.Session, observe func(warmup.Job)) (*warmup.Job, error) {
	final, err := t.trackStream(ctx, session, observe)
	if err == nil && final != nil {
		return final, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err != nil {
		t.logger.Warn("warm-up stream unavailable, falling back to polling",
			zap.String("job_id", session.ID),
			zap.Error(err))
	}
	return t.trackPoll(ctx, session, observe)
}

// trackStream consumes the session's event stream. Events: snapshot
// (full job state, replaces local state), update (single-service delta,
// merged only when the job id matches), done (final snapshot).
func (t *WarmupTracker) trackStream(ctx context.Context, session warmup.Session, observe func(warmup.Job)) (*warmup.Job, error) {
	url := session.StreamURL
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = t.client.baseURL + url
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	if t.token != "" {
		req.Header.Set("Authorization", "Bearer "+t.token)
	}

	// No client timeout here: the stream stays open for the duration of
	// the job. Lifetime is bound to ctx instead.
	streamClient := &http.Client{Transport: t.client.httpc.Transport}
	resp, err := streamClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: resp.StatusCode, Message: FallbackErrorMessage}
	}

	var current warmup.Job
	var final *warmup.Job
	err = readSSE(resp.Body, func(ev sseEvent) error {
		switch ev.Name {
		case "snapshot":
			var job warmup.Job
			if err := json.Unmarshal(ev.Data, &job); err != nil {
				return err
			}
			current = job
			observe(current)
		case "update":
			var u warmup.Update
			if err := json.Unmarshal(ev.Data, &u); err != nil {
				return err
			}
			if u.JobID != session.ID {
				return nil
			}
			current = current.Merge(u)
			observe(current)
		case "done":
			var job warmup.Job
			if err := json.Unmarshal(ev.Data, &job); err != nil {
				return err
			}
			current = job
			observe(current)
			final = &current
			return errStopSSE
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if final == nil {
		// Stream ended without a done event.
		return nil, errors.New("warm-up stream ended early")
	}
	return final, nil
}

// trackPoll polls the status endpoint until the job reports completed.
func (t *WarmupTracker) trackPoll(ctx context.Context, session warmup.Session, observe func(warmup.Job)) (*warmup.Job, error) {
	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()

	for {
		job, err := t.client.WarmupStatus(ctx, t.token, session.StatusURL)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			t.logger.Warn("warm-up status poll failed",
				zap.String("job_id", session.ID),
				zap.Error(err))
			return nil, nil
		}
		observe(job)
		if job.Status == warmup.JobStatusCompleted {
			return &job, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
