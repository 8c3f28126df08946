package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"eshopscout/errs"
	"eshopscout/models"
	"eshopscout/services"
)

// LookupFunc runs one lookup. The context carries a progress reporter.
type LookupFunc func(ctx context.Context, input string) (*models.SearchResult, error)

// QueueObserver receives the queue length after every change.
type QueueObserver interface {
	Set(float64)
}

// TaskStats is a snapshot of the task manager.
type TaskStats struct {
	TotalTasks    int                       `json:"total_tasks"`
	ActiveWorkers int                       `json:"active_workers"`
	MaxWorkers    int                       `json:"max_workers"`
	QueueSize     int                       `json:"queue_size"`
	QueueCapacity int                       `json:"queue_capacity"`
	ByStatus      map[models.TaskStatus]int `json:"tasks_by_status"`
}

// TaskManager runs async lookups on a fixed worker pool.
type TaskManager struct {
	lookups   map[models.LookupKind]LookupFunc
	tasks     map[string]*models.LookupTask
	taskQueue chan *models.LookupTask
	workers   int
	active    int
	timeout   time.Duration
	retention time.Duration
	observer  QueueObserver
	logger    *slog.Logger

	mutex    sync.RWMutex
	wg       sync.WaitGroup
	stopOnce sync.Once
	stopChan chan struct{}
}

type TaskManagerOptions struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration
	Retention time.Duration
	Observer  QueueObserver
}

// NewTaskManager creates a new task manager. Call Start to begin processing.
func NewTaskManager(searchFn, idFn LookupFunc, opts TaskManagerOptions, logger *slog.Logger) *TaskManager {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 100
	}
	if opts.Retention <= 0 {
		opts.Retention = time.Hour
	}
	return &TaskManager{
		lookups: map[models.LookupKind]LookupFunc{
			models.LookupByQuery:      searchFn,
			models.LookupByRegionalID: idFn,
		},
		tasks:     make(map[string]*models.LookupTask),
		taskQueue: make(chan *models.LookupTask, opts.QueueSize),
		workers:   opts.Workers,
		timeout:   opts.Timeout,
		retention: opts.Retention,
		observer:  opts.Observer,
		logger:    logger,
		stopChan:  make(chan struct{}),
	}
}

// Start launches the workers and the cleanup loop.
func (tm *TaskManager) Start() {
	for i := 0; i < tm.workers; i++ {
		tm.wg.Add(1)
		go tm.worker()
	}
	tm.wg.Add(1)
	go tm.janitor()
	tm.logger.Info("🚀 Task manager started", "workers", tm.workers, "queue", cap(tm.taskQueue))
}

// SubmitTask enqueues a lookup. A full queue fails the task immediately.
func (tm *TaskManager) SubmitTask(kind models.LookupKind, input string) (*models.LookupTask, error) {
	if _, ok := tm.lookups[kind]; !ok {
		return nil, errs.Mark(errs.Newf("unknown lookup kind %q", kind), errs.ErrInvalidInput)
	}
	task := models.NewLookupTask(kind, input)

	tm.mutex.Lock()
	tm.tasks[task.ID] = task
	tm.mutex.Unlock()

	select {
	case tm.taskQueue <- task:
		tm.logger.Debug("📝 Task submitted", "task", task.ID, "kind", kind)
	default:
		task.Fail("Task queue is full")
		tm.logger.Warn("❌ Failed to submit task, queue full", "task", task.ID)
	}
	tm.observeQueue()
	return task, nil
}

// GetTask returns a task by ID
func (tm *TaskManager) GetTask(taskID string) (*models.LookupTask, bool) {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()
	task, exists := tm.tasks[taskID]
	return task, exists
}

// CleanupOldTasks removes completed tasks older than maxAge.
func (tm *TaskManager) CleanupOldTasks(maxAge time.Duration) int {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for taskID, task := range tm.tasks {
		if task.IsCompleted() && task.CreatedAt.Before(cutoff) {
			delete(tm.tasks, taskID)
			removed++
		}
	}
	if removed > 0 {
		tm.logger.Debug("🧹 Cleaned up old tasks", "removed", removed)
	}
	return removed
}

func (tm *TaskManager) janitor() {
	defer tm.wg.Done()
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			tm.CleanupOldTasks(tm.retention)
		case <-tm.stopChan:
			return
		}
	}
}

func (tm *TaskManager) worker() {
	defer tm.wg.Done()
	for {
		select {
		case task := <-tm.taskQueue:
			tm.observeQueue()
			tm.run(task)
		case <-tm.stopChan:
			return
		}
	}
}

func (tm *TaskManager) run(task *models.LookupTask) {
	tm.setActive(1)
	defer tm.setActive(-1)

	task.Start()
	ctx, cancel := tm.taskContext()
	defer cancel()

	go func() {
		select {
		case <-tm.stopChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	ctx = services.WithProgress(ctx, task.UpdateProgress)
	res, err := tm.lookups[task.Kind](ctx, task.Input)
	if res == nil {
		reason := "lookup returned no result"
		if err != nil {
			reason = err.Error()
		}
		task.Fail(reason)
		tm.logger.Warn("❌ Task failed", "task", task.ID, "reason", reason)
		return
	}
	// error results are delivered as results; the status tells the caller
	task.Complete(res)
	tm.logger.Info("✅ Task completed", "task", task.ID, "status", res.Status, "duration", task.Duration())
}

func (tm *TaskManager) taskContext() (context.Context, context.CancelFunc) {
	if tm.timeout > 0 {
		return context.WithTimeout(context.Background(), tm.timeout)
	}
	return context.WithCancel(context.Background())
}

func (tm *TaskManager) setActive(delta int) {
	tm.mutex.Lock()
	tm.active += delta
	tm.mutex.Unlock()
}

func (tm *TaskManager) observeQueue() {
	if tm.observer != nil {
		tm.observer.Set(float64(len(tm.taskQueue)))
	}
}

// Stop stops the workers and waits for them to return.
func (tm *TaskManager) Stop() {
	tm.stopOnce.Do(func() {
		close(tm.stopChan)
		tm.wg.Wait()
		tm.logger.Info("🛑 Task manager stopped")
	})
}

// GetStats returns task manager statistics
func (tm *TaskManager) GetStats() TaskStats {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()

	stats := TaskStats{
		TotalTasks:    len(tm.tasks),
		ActiveWorkers: tm.active,
		MaxWorkers:    tm.workers,
		QueueSize:     len(tm.taskQueue),
		QueueCapacity: cap(tm.taskQueue),
		ByStatus:      make(map[models.TaskStatus]int),
	}
	for _, task := range tm.tasks {
		stats.ByStatus[task.View().Status]++
	}
	return stats
}
