package warmup

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/procurehub/portal/internal/domain/warmup"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var testServices = []string{"auth-service", "catalog-service"}

// fakeFeed scripts start/track outcomes per attempt.
type fakeFeed struct {
	mu       sync.Mutex
	startErr []error
	jobs     []*warmup.Job
	attempt  int
	observed []warmup.Job
}

func (f *fakeFeed) Start(ctx context.Context) (warmup.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := f.attempt
	if idx < len(f.startErr) && f.startErr[idx] != nil {
		f.attempt++
		return warmup.Session{}, f.startErr[idx]
	}
	return warmup.Session{ID: "job-1", Status: warmup.JobStatusRunning}, nil
}

func (f *fakeFeed) Track(ctx context.Context, session warmup.Session, observe func(warmup.Job)) (*warmup.Job, error) {
	f.mu.Lock()
	idx := f.attempt
	f.attempt++
	var job *warmup.Job
	if idx < len(f.jobs) {
		job = f.jobs[idx]
	}
	f.mu.Unlock()

	if job != nil {
		observe(*job)
		f.mu.Lock()
		f.observed = append(f.observed, *job)
		f.mu.Unlock()
	}
	return job, nil
}

func readyJob(services ...string) *warmup.Job {
	job := warmup.Job{ID: "job-1", Status: warmup.JobStatusCompleted}
	for _, name := range services {
		job.Services = append(job.Services, warmup.ServiceState{
			ServiceName: name,
			Status:      warmup.ServiceStatusReady,
		})
	}
	return &job
}

// testClock advances instantly through sleeps and records them.
type testClock struct {
	mu     sync.Mutex
	base   time.Time
	slept  []time.Duration
	cancel bool
}

func newTestClock() *testClock {
	return &testClock{base: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.base
}

func (c *testClock) sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.slept = append(c.slept, d)
	c.base = c.base.Add(d)
	cancel := c.cancel
	c.mu.Unlock()
	if cancel {
		return context.Canceled
	}
	return ctx.Err()
}

func (c *testClock) sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := append([]time.Duration{}, c.slept...)
	return out
}

func newTestGate(feed Feed, clock *testClock) *Gate {
	cfg := Config{
		ExpectedServices: testServices,
		RetryDelay:       10 * time.Second,
		MinVisible:       1200 * time.Millisecond,
	}
	return NewGate(feed, cfg, WithClock(clock.now, clock.sleep))
}

func TestGate_InitialState(t *testing.T) {
	g := newTestGate(&fakeFeed{}, newTestClock())

	s := g.State()

	assert.False(t, s.Dismissed)
	assert.Equal(t, 0, s.Progress)
	require.Len(t, s.Job.Services, 2)
	assert.Equal(t, warmup.ServiceStatusPending, s.Job.Services[0].Status)
}

func TestGate_Run_DismissesWhenAllReady(t *testing.T) {
	feed := &fakeFeed{jobs: []*warmup.Job{readyJob(testServices...)}}
	clock := newTestClock()
	g := newTestGate(feed, clock)

	err := g.Run(context.Background())

	require.NoError(t, err)
	s := g.State()
	assert.True(t, s.Dismissed)
	assert.Equal(t, 100, s.Progress)
	assert.Empty(t, s.Message)

	// The gate waits out the minimum visible window before dismissing.
	sleeps := clock.sleeps()
	require.Len(t, sleeps, 1)
	assert.Equal(t, 1200*time.Millisecond, sleeps[0])
}

func TestGate_Run_SkipsMinVisibleWhenElapsed(t *testing.T) {
	feed := &fakeFeed{
		// First attempt comes back cold so a retry delay elapses first.
		jobs: []*warmup.Job{
			{ID: "job-1", Status: warmup.JobStatusCompleted},
			readyJob(testServices...),
		},
	}
	clock := newTestClock()
	g := newTestGate(feed, clock)

	err := g.Run(context.Background())

	require.NoError(t, err)
	assert.True(t, g.State().Dismissed)

	// 10s retry already exceeds the 1200ms window, so only the retry
	// sleep happens.
	sleeps := clock.sleeps()
	require.Len(t, sleeps, 1)
	assert.Equal(t, 10*time.Second, sleeps[0])
}

func TestGate_Run_RetriesOnStartFailure(t *testing.T) {
	feed := &fakeFeed{
		startErr: []error{errors.New("gateway unreachable")},
		jobs:     []*warmup.Job{nil, readyJob(testServices...)},
	}
	clock := newTestClock()
	g := newTestGate(feed, clock)

	sub := g.Subscribe()
	defer g.Unsubscribe(sub)

	err := g.Run(context.Background())

	require.NoError(t, err)
	assert.True(t, g.State().Dismissed)

	var sawStartFailed bool
	for {
		select {
		case s := <-sub:
			if s.Message == StartFailedMessage {
				sawStartFailed = true
			}
		default:
			assert.True(t, sawStartFailed)
			return
		}
	}
}

func TestGate_Run_RetriesWhenStillCold(t *testing.T) {
	cold := &warmup.Job{
		ID:     "job-1",
		Status: warmup.JobStatusCompleted,
		Services: []warmup.ServiceState{
			{ServiceName: "auth-service", Status: warmup.ServiceStatusReady},
			{ServiceName: "catalog-service", Status: warmup.ServiceStatusFailed},
		},
	}
	feed := &fakeFeed{jobs: []*warmup.Job{cold, readyJob(testServices...)}}
	clock := newTestClock()
	g := newTestGate(feed, clock)

	err := g.Run(context.Background())

	require.NoError(t, err)
	assert.True(t, g.State().Dismissed)
	require.NotEmpty(t, clock.sleeps())
	assert.Equal(t, 10*time.Second, clock.sleeps()[0])
}

func TestGate_Run_StopsOnCancel(t *testing.T) {
	feed := &fakeFeed{startErr: []error{errors.New("down"), errors.New("down")}}
	clock := newTestClock()
	clock.cancel = true
	g := newTestGate(feed, clock)

	err := g.Run(context.Background())

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, g.State().Dismissed)
}

func TestGate_Subscribe(t *testing.T) {
	feed := &fakeFeed{jobs: []*warmup.Job{readyJob(testServices...)}}
	g := newTestGate(feed, newTestClock())

	sub := g.Subscribe()

	// The current state arrives immediately.
	first := <-sub
	assert.False(t, first.Dismissed)

	require.NoError(t, g.Run(context.Background()))

	var last Snapshot
	for {
		select {
		case s := <-sub:
			last = s
			continue
		default:
		}
		break
	}
	assert.True(t, last.Dismissed)

	g.Unsubscribe(sub)
	_, open := <-sub
	assert.False(t, open)

	// Double unsubscribe must not panic.
	g.Unsubscribe(sub)
}

func TestGate_SlowSubscriberDoesNotBlock(t *testing.T) {
	feed := &fakeFeed{jobs: []*warmup.Job{readyJob(testServices...)}}
	g := newTestGate(feed, newTestClock())

	sub := g.Subscribe()
	defer g.Unsubscribe(sub)

	// Run fans out more snapshots than the subscriber drains; the gate
	// must still finish.
	done := make(chan error, 1)
	go func() { done <- g.Run(context.Background()) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("gate blocked on a slow subscriber")
	}
}
