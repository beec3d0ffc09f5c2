package warmup

import (
	"math"
	"slices"
	"time"
)

// ServiceStatus represents the warm-up state of one backend service.
type ServiceStatus string

const (
	ServiceStatusPending ServiceStatus = "pending"
	ServiceStatusWarming ServiceStatus = "warming"
	ServiceStatusReady   ServiceStatus = "ready"
	ServiceStatusFailed  ServiceStatus = "failed"
	ServiceStatusSkipped ServiceStatus = "skipped"
)

// IsValid checks if the status is a known ServiceStatus.
func (s ServiceStatus) IsValid() bool {
	switch s {
	case ServiceStatusPending, ServiceStatusWarming, ServiceStatusReady,
		ServiceStatusFailed, ServiceStatusSkipped:
		return true
	}
	return false
}

// JobStatus represents the overall warm-up job state.
type JobStatus string

const (
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
)

// Session is the handle returned when a warm-up job is started.
type Session struct {
	ID        string    `json:"id"`
	Status    JobStatus `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	StatusURL string    `json:"statusUrl"`
	StreamURL string    `json:"streamUrl"`
}

// ServiceState is the per-service warm-up progress as reported by the
// gateway.
type ServiceState struct {
	ServiceName string        `json:"serviceName"`
	Target      string        `json:"target"`
	Status      ServiceStatus `json:"status"`
	HTTPStatus  int           `json:"httpStatus,omitempty"`
	DurationMs  int64         `json:"durationMs,omitempty"`
	Message     string        `json:"message,omitempty"`
	StartedAt   *time.Time    `json:"startedAt,omitempty"`
	CompletedAt *time.Time    `json:"completedAt,omitempty"`
}

// Job is a full warm-up job snapshot.
type Job struct {
	ID       string         `json:"id"`
	Status   JobStatus      `json:"status"`
	Services []ServiceState `json:"services"`
}

// Update is a single-service delta pushed over the stream.
type Update struct {
	JobID       string       `json:"jobId"`
	JobStatus   JobStatus    `json:"jobStatus"`
	Service     ServiceState `json:"service"`
	UpdatedAt   *time.Time   `json:"updatedAt,omitempty"`
	CompletedAt *time.Time   `json:"completedAt,omitempty"`
}

// PlaceholderJob builds a synthetic job with one pending entry per
// expected service, so a progress view never renders an empty list while
// waiting for the first snapshot.
func PlaceholderJob(expected []string) Job {
	services := make([]ServiceState, 0, len(expected))
	for _, name := range expected {
		services = append(services, ServiceState{
			ServiceName: name,
			Status:      ServiceStatusPending,
		})
	}
	return Job{Status: JobStatusRunning, Services: services}
}

// Merge applies a single-service delta and returns the updated job.
// Callers must only merge updates whose JobID matches the tracked job.
func (j Job) Merge(u Update) Job {
	out := j
	out.Services = slices.Clone(j.Services)
	if u.JobStatus != "" {
		out.Status = u.JobStatus
	}
	for idx := range out.Services {
		if out.Services[idx].ServiceName == u.Service.ServiceName {
			out.Services[idx] = u.Service
			return out
		}
	}
	out.Services = append(out.Services, u.Service)
	return out
}

// ServiceByName returns the state for the named service, if present.
func (j Job) ServiceByName(name string) (ServiceState, bool) {
	for _, svc := range j.Services {
		if svc.ServiceName == name {
			return svc, true
		}
	}
	return ServiceState{}, false
}

// AllReady reports whether every expected service has reached ready.
func (j Job) AllReady(expected []string) bool {
	if len(expected) == 0 {
		return false
	}
	for _, name := range expected {
		svc, ok := j.ServiceByName(name)
		if !ok || svc.Status != ServiceStatusReady {
			return false
		}
	}
	return true
}

// ReadyCount returns how many of the expected services are ready.
func (j Job) ReadyCount(expected []string) int {
	count := 0
	for _, name := range expected {
		if svc, ok := j.ServiceByName(name); ok && svc.Status == ServiceStatusReady {
			count++
		}
	}
	return count
}

// Progress returns the warm-up progress as a rounded percentage of
// expected services that are ready (2 of 6 -> 33).
func Progress(j Job, expected []string) int {
	if len(expected) == 0 {
		return 0
	}
	ratio := float64(j.ReadyCount(expected)) / float64(len(expected))
	return int(math.Round(ratio * 100))
}
