package models

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the status of an async lookup
type TaskStatus string

const (
	TaskStatusQueued     TaskStatus = "queued"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// LookupKind says which entry point a task runs.
type LookupKind string

const (
	LookupByQuery      LookupKind = "query"
	LookupByRegionalID LookupKind = "regional_id"
)

// LookupTask is an async search submitted by the front end and polled by id.
type LookupTask struct {
	mu sync.RWMutex

	ID          string
	Kind        LookupKind
	Input       string
	Status      TaskStatus
	Progress    int
	Message     string
	Result      *SearchResult
	Error       string
	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// TaskView is a point-in-time copy of a task, safe to serialize.
type TaskView struct {
	ID          string        `json:"id"`
	Kind        LookupKind    `json:"kind"`
	Input       string        `json:"input"`
	Status      TaskStatus    `json:"status"`
	Progress    int           `json:"progress"`
	Message     string        `json:"message"`
	Result      *SearchResult `json:"result,omitempty"`
	Error       string        `json:"error,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	StartedAt   *time.Time    `json:"started_at,omitempty"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
}

// NewLookupTask creates a queued task
func NewLookupTask(kind LookupKind, input string) *LookupTask {
	return &LookupTask{
		ID:        "lookup_" + uuid.NewString(),
		Kind:      kind,
		Input:     input,
		Status:    TaskStatusQueued,
		Message:   "Lookup queued",
		CreatedAt: time.Now(),
	}
}

// UpdateProgress updates the task progress
func (t *LookupTask) UpdateProgress(progress int, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Progress = progress
	t.Message = message
}

// Start marks the task as processing
func (t *LookupTask) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Status = TaskStatusProcessing
	t.Progress = 0
	t.Message = "Searching catalogs..."
	now := time.Now()
	t.StartedAt = &now
}

// Complete marks the task as completed with result
func (t *LookupTask) Complete(result *SearchResult) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Status = TaskStatusCompleted
	t.Progress = 100
	t.Message = "Lookup completed"
	t.Result = result
	now := time.Now()
	t.CompletedAt = &now
}

// Fail marks the task as failed
func (t *LookupTask) Fail(reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Status = TaskStatusFailed
	t.Progress = 0
	t.Message = "Lookup failed"
	t.Error = reason
	now := time.Now()
	t.CompletedAt = &now
}

// IsCompleted returns true if the task is in a final state
func (t *LookupTask) IsCompleted() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.Status == TaskStatusCompleted || t.Status == TaskStatusFailed
}

// IsActive returns true if the task is still queued or running
func (t *LookupTask) IsActive() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.Status == TaskStatusQueued || t.Status == TaskStatusProcessing
}

// Duration returns how long the task has been (or was) running
func (t *LookupTask) Duration() time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.StartedAt == nil {
		return 0
	}
	end := time.Now()
	if t.CompletedAt != nil {
		end = *t.CompletedAt
	}
	return end.Sub(*t.StartedAt)
}

// View returns a copy of the task state.
func (t *LookupTask) View() TaskView {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return TaskView{
		ID:          t.ID,
		Kind:        t.Kind,
		Input:       t.Input,
		Status:      t.Status,
		Progress:    t.Progress,
		Message:     t.Message,
		Result:      t.Result,
		Error:       t.Error,
		CreatedAt:   t.CreatedAt,
		StartedAt:   t.StartedAt,
		CompletedAt: t.CompletedAt,
	}
}
