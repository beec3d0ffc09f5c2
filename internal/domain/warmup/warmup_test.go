package warmup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var expected = []string{
	"auth-service",
	"catalog-service",
	"supplier-service",
	"purchase-service",
	"user-service",
	"notification-service",
}

func readyState(name string) ServiceState {
	return ServiceState{ServiceName: name, Status: ServiceStatusReady}
}

func TestPlaceholderJob(t *testing.T) {
	job := PlaceholderJob(expected)

	assert.Equal(t, JobStatusRunning, job.Status)
	require.Len(t, job.Services, len(expected))
	for i, svc := range job.Services {
		assert.Equal(t, expected[i], svc.ServiceName)
		assert.Equal(t, ServiceStatusPending, svc.Status)
	}
}

func TestJobMerge(t *testing.T) {
	t.Run("replaces the matching service", func(t *testing.T) {
		job := PlaceholderJob(expected)

		next := job.Merge(Update{
			JobID:     "job-1",
			JobStatus: JobStatusRunning,
			Service:   readyState("catalog-service"),
		})

		svc, ok := next.ServiceByName("catalog-service")
		require.True(t, ok)
		assert.Equal(t, ServiceStatusReady, svc.Status)
		assert.Len(t, next.Services, len(expected))
	})

	t.Run("appends an unknown service", func(t *testing.T) {
		job := PlaceholderJob(expected[:2])

		next := job.Merge(Update{Service: readyState("extra-service")})

		assert.Len(t, next.Services, 3)
	})

	t.Run("carries the job status forward when the delta omits it", func(t *testing.T) {
		job := Job{ID: "job-1", Status: JobStatusCompleted}

		next := job.Merge(Update{Service: readyState("auth-service")})

		assert.Equal(t, JobStatusCompleted, next.Status)
	})

	t.Run("does not mutate the receiver", func(t *testing.T) {
		job := PlaceholderJob(expected)

		_ = job.Merge(Update{Service: readyState("auth-service")})

		svc, _ := job.ServiceByName("auth-service")
		assert.Equal(t, ServiceStatusPending, svc.Status)
	})
}

func TestJobAllReady(t *testing.T) {
	job := PlaceholderJob(expected)
	assert.False(t, job.AllReady(expected))

	for _, name := range expected {
		job = job.Merge(Update{Service: readyState(name)})
	}
	assert.True(t, job.AllReady(expected))

	t.Run("failed service keeps the job not-ready", func(t *testing.T) {
		j := job.Merge(Update{Service: ServiceState{
			ServiceName: "auth-service",
			Status:      ServiceStatusFailed,
			Message:     "timeout",
		}})
		assert.False(t, j.AllReady(expected))
	})

	t.Run("empty expected list is never ready", func(t *testing.T) {
		assert.False(t, Job{}.AllReady(nil))
	})
}

func TestProgress(t *testing.T) {
	job := PlaceholderJob(expected)
	assert.Equal(t, 0, Progress(job, expected))

	job = job.Merge(Update{Service: readyState("auth-service")})
	job = job.Merge(Update{Service: readyState("catalog-service")})
	assert.Equal(t, 33, Progress(job, expected))

	job = job.Merge(Update{Service: readyState("supplier-service")})
	assert.Equal(t, 50, Progress(job, expected))

	for _, name := range expected {
		job = job.Merge(Update{Service: readyState(name)})
	}
	assert.Equal(t, 100, Progress(job, expected))

	assert.Equal(t, 0, Progress(job, nil))
}

func TestStatusValidity(t *testing.T) {
	for _, s := range []ServiceStatus{
		ServiceStatusPending, ServiceStatusWarming, ServiceStatusReady,
		ServiceStatusFailed, ServiceStatusSkipped,
	} {
		assert.True(t, s.IsValid(), string(s))
	}
	assert.False(t, ServiceStatus("unknown").IsValid())
}
