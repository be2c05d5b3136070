package handler

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/ragtune/ragtune/internal/service"
)

// Sweep job states.
const (
	JobRunning  = "running"
	JobComplete = "complete"
	JobError    = "error"
)

// JobStatus represents the current state of a sweep job.
type JobStatus struct {
	ID          string    `json:"id"`
	Status      string    `json:"status"` // running, complete, error
	Progress    int       `json:"progress"`
	Total       int       `json:"total"`
	Current     string    `json:"current_config"`
	Completed   []string  `json:"completed_configs"`
	Error       string    `json:"error,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at,omitempty"`
}

// JobTracker manages sweep jobs in memory.
type JobTracker struct {
	mu      sync.RWMutex
	jobs    map[string]*JobStatus
	results map[string]*service.Results
	subs    map[string][]chan JobStatus // subscribers per job
}

// NewJobTracker creates a new job tracker.
func NewJobTracker() *JobTracker {
	return &JobTracker{
		jobs:    make(map[string]*JobStatus),
		results: make(map[string]*service.Results),
		subs:    make(map[string][]chan JobStatus),
	}
}

// CreateJob creates a new job entry.
func (t *JobTracker) CreateJob(id string, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.jobs[id] = &JobStatus{
		ID:        id,
		Status:    JobRunning,
		Total:     total,
		Completed: []string{},
		StartedAt: time.Now(),
	}
}

// UpdateJob updates a job and notifies subscribers. Sends happen under the
// tracker lock, the same lock Unsubscribe closes channels under, so an
// update can never hit a channel mid-close. Sends are non-blocking.
func (t *JobTracker) UpdateJob(id, configLabel string, progress int, status string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	job, ok := t.jobs[id]
	if !ok {
		return
	}
	job.Progress = progress
	job.Current = configLabel
	job.Status = status
	if configLabel != "" && status != JobError {
		job.Completed = append(job.Completed, configLabel)
	}
	if status == JobComplete || status == JobError {
		job.CompletedAt = time.Now()
	}
	snapshot := *job

	for _, ch := range t.subs[id] {
		select {
		case ch <- snapshot:
		default:
		}
	}
}

// FailJob marks a job as failed with the given error message.
func (t *JobTracker) FailJob(id, msg string) {
	t.mu.Lock()
	if job, ok := t.jobs[id]; ok {
		job.Error = msg
	}
	t.mu.Unlock()
	t.UpdateJob(id, "", 0, JobError)
}

// SetResults attaches the finished collection to a job.
func (t *JobTracker) SetResults(id string, results *service.Results) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.results[id] = results
}

// GetResults returns the finished collection for a job, if any.
func (t *JobTracker) GetResults(id string) (*service.Results, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	results, ok := t.results[id]
	return results, ok
}

// GetJob returns a job status.
func (t *JobTracker) GetJob(id string) (*JobStatus, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	job, ok := t.jobs[id]
	if !ok {
		return nil, false
	}
	snapshot := *job
	return &snapshot, true
}

// Subscribe returns a channel that receives job updates.
func (t *JobTracker) Subscribe(id string) chan JobStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	ch := make(chan JobStatus, 10)
	t.subs[id] = append(t.subs[id], ch)
	return ch
}

// Unsubscribe removes a channel from subscribers.
func (t *JobTracker) Unsubscribe(id string, ch chan JobStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	subs := t.subs[id]
	for i, s := range subs {
		if s == ch {
			t.subs[id] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	close(ch)
}

// JobsHandler handles job-status endpoints.
type JobsHandler struct {
	tracker *JobTracker
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(tracker *JobTracker) *JobsHandler {
	return &JobsHandler{tracker: tracker}
}

// Register sets up job routes.
func (h *JobsHandler) Register(router fiber.Router) {
	jobs := router.Group("/sweeps")
	jobs.Get("/:id", h.GetStatus)
	jobs.Get("/:id/stream", h.StreamSSE)
}

// GetStatus returns the current job status.
func (h *JobsHandler) GetStatus(c fiber.Ctx) error {
	id := c.Params("id")
	job, ok := h.tracker.GetJob(id)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "sweep not found"})
	}
	return c.JSON(job)
}

// StreamSSE streams job updates via Server-Sent Events.
func (h *JobsHandler) StreamSSE(c fiber.Ctx) error {
	id := c.Params("id")

	job, ok := h.tracker.GetJob(id)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "sweep not found"})
	}

	// If already complete, just return the final status
	if job.Status == JobComplete || job.Status == JobError {
		c.Set("Content-Type", "text/event-stream")
		c.Set("Cache-Control", "no-cache")
		c.Set("Connection", "keep-alive")
		data, _ := json.Marshal(job)
		return c.SendString(fmt.Sprintf("event: %s\ndata: %s\n\n", job.Status, string(data)))
	}

	ch := h.tracker.Subscribe(id)

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")

	return c.SendStreamWriter(func(w *bufio.Writer) {
		defer h.tracker.Unsubscribe(id, ch)

		// Send initial status
		data, _ := json.Marshal(job)
		fmt.Fprintf(w, "event: progress\ndata: %s\n\n", string(data))
		w.Flush()

		timeout := time.After(30 * time.Minute)
		for {
			select {
			case update, ok := <-ch:
				if !ok {
					return
				}
				data, _ := json.Marshal(update)
				eventType := "progress"
				if update.Status == JobComplete || update.Status == JobError {
					eventType = update.Status
				}
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, string(data))
				w.Flush()

				if update.Status == JobComplete || update.Status == JobError {
					return
				}
			case <-timeout:
				slog.Warn("SSE timeout", "sweep_id", id)
				return
			}
		}
	})
}
