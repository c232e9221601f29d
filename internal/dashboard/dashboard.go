// Package dashboard aggregates ledger statistics for display and tracks
// long-running engine operations in a cancellable task registry.
package dashboard

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"cardcounter/internal/ledger"
)

// Stats is the dashboard view of the ledger.
type Stats struct {
	TotalAccounts  int64
	TotalPacks     int64
	TotalCards     int64
	UniqueCards    int64
	TotalShinedust int64
	LastProcessed  *time.Time
	RecentActivity []ledger.Activity
}

// Aggregator reads dashboard data from the ledger.
type Aggregator struct {
	store *ledger.Store
}

// NewAggregator builds an aggregator over an open store.
func NewAggregator(store *ledger.Store) *Aggregator {
	return &Aggregator{store: store}
}

// Stats collects the current totals plus the recent-activity feed.
func (a *Aggregator) Stats(ctx context.Context, recent int) (Stats, error) {
	summary, err := a.store.Summary(ctx)
	if err != nil {
		return Stats{}, err
	}
	activity, err := a.store.RecentActivity(ctx, recent)
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		TotalAccounts:  summary.TotalAccounts,
		TotalPacks:     summary.TotalPacks,
		TotalCards:     summary.TotalCards,
		UniqueCards:    summary.UniqueCards,
		TotalShinedust: summary.TotalShinedust,
		LastProcessed:  summary.LastProcessed,
		RecentActivity: activity,
	}, nil
}

// TaskStatus is the lifecycle state of a registered task.
type TaskStatus string

const (
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskCancelled TaskStatus = "cancelled"
	TaskFailed    TaskStatus = "failed"
)

// Task is one tracked operation.
type Task struct {
	ID        uuid.UUID
	Kind      string
	Status    TaskStatus
	Processed int
	Total     int
	Message   string
	StartedAt time.Time
	EndedAt   *time.Time
}

// Registry tracks running tasks and lets callers cancel them by id.
type Registry struct {
	mu      sync.Mutex
	tasks   map[uuid.UUID]*Task
	cancels map[uuid.UUID]context.CancelFunc
}

// NewRegistry builds an empty task registry.
func NewRegistry() *Registry {
	return &Registry{
		tasks:   make(map[uuid.UUID]*Task),
		cancels: make(map[uuid.UUID]context.CancelFunc),
	}
}

// Begin registers a task of the given kind and returns its id plus a task
// context derived from parent. Cancelling through the registry cancels the
// context.
func (r *Registry) Begin(parent context.Context, kind string) (uuid.UUID, context.Context) {
	ctx, cancel := context.WithCancel(parent)
	id := uuid.New()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[id] = &Task{
		ID:        id,
		Kind:      kind,
		Status:    TaskRunning,
		StartedAt: time.Now().UTC(),
	}
	r.cancels[id] = cancel
	return id, ctx
}

// Progress updates a running task's counters.
func (r *Registry) Progress(id uuid.UUID, processed, total int, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok || task.Status != TaskRunning {
		return
	}
	task.Processed = processed
	task.Total = total
	task.Message = message
}

// Finish moves a task to a terminal status and releases its cancel func.
func (r *Registry) Finish(id uuid.UUID, status TaskStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok {
		return
	}
	if cancel, ok := r.cancels[id]; ok {
		cancel()
		delete(r.cancels, id)
	}
	if task.Status == TaskRunning {
		task.Status = status
		now := time.Now().UTC()
		task.EndedAt = &now
	}
}

// Cancel requests cancellation of a running task. Reports whether the task
// existed and was still running.
func (r *Registry) Cancel(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	cancel, ok := r.cancels[id]
	if !ok {
		return false
	}
	cancel()
	delete(r.cancels, id)
	if task, ok := r.tasks[id]; ok && task.Status == TaskRunning {
		task.Status = TaskCancelled
		now := time.Now().UTC()
		task.EndedAt = &now
	}
	return true
}

// Get returns a snapshot of one task.
func (r *Registry) Get(id uuid.UUID) (Task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok {
		return Task{}, false
	}
	return *task, true
}

// List returns snapshots of every task, newest first.
func (r *Registry) List() []Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Task, 0, len(r.tasks))
	for _, task := range r.tasks {
		out = append(out, *task)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out
}
