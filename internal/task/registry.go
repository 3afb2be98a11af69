package task

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/newslens/internal/domain"
	"github.com/phrazzld/newslens/internal/events"
)

// Outcome is the result of claiming a request key.
type Outcome int

const (
	// OutcomeStarted means a new pending task was created for the key.
	OutcomeStarted Outcome = iota + 1
	// OutcomeInFlight means a pending or running task already serves the key.
	OutcomeInFlight
	// OutcomeCompleted means a completed task already holds a result for the key.
	OutcomeCompleted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeStarted:
		return "started"
	case OutcomeInFlight:
		return "in_flight"
	case OutcomeCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Acquisition is returned by Registry.Acquire.
type Acquisition struct {
	Outcome  Outcome
	Snapshot Snapshot
}

// Payload carries the terminal data of a transition. Completed transitions
// need a Result, failed transitions need an Err, all others need neither.
type Payload struct {
	Result *domain.AnalysisResult
	Err    *TaskError
}

// KnownEntity is a key with a completed result.
type KnownEntity struct {
	Key    domain.RequestKey
	Entity string
}

type record struct {
	id         uuid.UUID
	key        domain.RequestKey
	entity     string
	state      State
	createdAt  time.Time
	startedAt  time.Time
	finishedAt time.Time
	progress   Progress
	result     *domain.AnalysisResult
	err        *TaskError
}

func (r *record) snapshot() Snapshot {
	s := Snapshot{
		ID:         r.id,
		Key:        r.key,
		Entity:     r.entity,
		State:      r.state,
		CreatedAt:  r.createdAt,
		StartedAt:  r.startedAt,
		FinishedAt: r.finishedAt,
		Progress:   r.progress,
		Result:     r.result,
	}
	if r.err != nil {
		e := *r.err
		s.Error = &e
	}
	return s
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithEmitter publishes a TaskEvent for every state change.
func WithEmitter(emitter events.EventEmitter) RegistryOption {
	return func(r *Registry) {
		r.emitter = emitter
	}
}

// WithMaxCompleted bounds the number of completed records kept. When the bound
// is exceeded the record that finished first is dropped along with its key.
// Zero or less means unbounded.
func WithMaxCompleted(n int) RegistryOption {
	return func(r *Registry) {
		r.maxCompleted = n
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) RegistryOption {
	return func(r *Registry) {
		r.now = now
	}
}

// Registry owns every task record and the key index used for deduplication.
// A single mutex guards both, so check-then-create and snapshot reads are
// atomic. No collaborator or event handler is ever called with mu held.
type Registry struct {
	mu         sync.Mutex
	records    map[uuid.UUID]*record
	byKey      map[domain.RequestKey]uuid.UUID
	lastFailed map[domain.RequestKey]uuid.UUID
	completed  []uuid.UUID

	maxCompleted int
	emitter      events.EventEmitter
	now          func() time.Time
	logger       *slog.Logger
}

// NewRegistry creates an empty Registry.
func NewRegistry(logger *slog.Logger, opts ...RegistryOption) *Registry {
	r := &Registry{
		records:    make(map[uuid.UUID]*record),
		byKey:      make(map[domain.RequestKey]uuid.UUID),
		lastFailed: make(map[domain.RequestKey]uuid.UUID),
		emitter:    events.NopEmitter{},
		now:        time.Now,
		logger:     logger.With("component", "task_registry"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Acquire returns the completed result for key, the task already working on
// it, or a freshly created pending task. For any number of concurrent calls
// with the same key at most one of them observes OutcomeStarted until that
// task fails. Failed tasks never satisfy Acquire.
func (r *Registry) Acquire(ctx context.Context, key domain.RequestKey, entity string) (Acquisition, error) {
	if key == "" {
		return Acquisition{}, fmt.Errorf("%w: %w", domain.ErrValidation, domain.ErrEmptyEntityName)
	}

	acq, event := r.acquire(key, entity)
	if event != nil {
		r.emit(ctx, event)
	}
	return acq, nil
}

func (r *Registry) acquire(key domain.RequestKey, entity string) (Acquisition, *events.TaskEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byKey[key]; ok {
		if rec, ok := r.records[id]; ok {
			switch rec.state {
			case StateCompleted:
				return Acquisition{Outcome: OutcomeCompleted, Snapshot: rec.snapshot()}, nil
			case StatePending, StateRunning:
				return Acquisition{Outcome: OutcomeInFlight, Snapshot: rec.snapshot()}, nil
			}
		}
		delete(r.byKey, key)
	}

	// A new attempt supersedes the last failure for this key.
	if failedID, ok := r.lastFailed[key]; ok {
		delete(r.records, failedID)
		delete(r.lastFailed, key)
	}

	rec := r.create(key, entity)
	r.byKey[key] = rec.id
	return Acquisition{Outcome: OutcomeStarted, Snapshot: rec.snapshot()},
		events.NewTaskEvent(rec.id, string(key), "", string(StatePending))
}

// Create adds a pending record without claiming its key in the index.
// Acquire is the deduplicating entry point; Create exists for callers that
// manage keys themselves.
func (r *Registry) Create(ctx context.Context, key domain.RequestKey, entity string) (Snapshot, error) {
	if key == "" {
		return Snapshot{}, fmt.Errorf("%w: %w", domain.ErrValidation, domain.ErrEmptyEntityName)
	}

	r.mu.Lock()
	snap := r.create(key, entity).snapshot()
	r.mu.Unlock()

	r.emit(ctx, events.NewTaskEvent(snap.ID, string(key), "", string(StatePending)))
	return snap, nil
}

// create must be called with mu held.
func (r *Registry) create(key domain.RequestKey, entity string) *record {
	rec := &record{
		id:        uuid.New(),
		key:       key,
		entity:    entity,
		state:     StatePending,
		createdAt: r.now(),
		progress:  Progress{Stage: string(StatePending)},
	}
	r.records[rec.id] = rec
	return rec
}

// Get returns a snapshot of the task, or ErrTaskNotFound.
func (r *Registry) Get(_ context.Context, id uuid.UUID) (Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return rec.snapshot(), nil
}

// Transition moves a task along pending -> running -> {completed | failed}.
// Any other move returns ErrInvalidTransition and leaves the record untouched.
// A failed task releases its key so the next Acquire starts a fresh attempt.
func (r *Registry) Transition(ctx context.Context, id uuid.UUID, to State, payload Payload) (Snapshot, error) {
	if err := validatePayload(to, payload); err != nil {
		return Snapshot{}, err
	}

	snap, event, err := r.transition(id, to, payload)
	if err != nil {
		return Snapshot{}, err
	}
	r.emit(ctx, event)
	return snap, nil
}

func (r *Registry) transition(id uuid.UUID, to State, payload Payload) (Snapshot, *events.TaskEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return Snapshot{}, nil, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	if !rec.state.canTransition(to) {
		return Snapshot{}, nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, rec.state, to)
	}

	from := rec.state
	now := r.now()
	rec.state = to

	switch to {
	case StateRunning:
		rec.startedAt = now
		rec.progress = Progress{Stage: string(StateRunning)}
	case StateCompleted:
		rec.finishedAt = now
		rec.result = payload.Result
		rec.progress = Progress{Stage: string(StateCompleted), Fraction: 1}
		r.completed = append(r.completed, id)
		r.evict()
	case StateFailed:
		rec.finishedAt = now
		e := *payload.Err
		rec.err = &e
		// Only the attempt that owns the key is pruned by the next Acquire.
		if r.byKey[rec.key] == id {
			delete(r.byKey, rec.key)
			r.lastFailed[rec.key] = id
		}
	}

	event := events.NewTaskEvent(id, string(rec.key), string(from), string(to))
	event.At = now
	event.Elapsed = now.Sub(rec.createdAt)
	if payload.Err != nil {
		event.ErrorKind = string(payload.Err.Kind)
	}
	if payload.Result != nil {
		event.Warnings = slices.Clone(payload.Result.Warnings)
	}

	return rec.snapshot(), event, nil
}

// evict drops the oldest completed records beyond the bound. mu must be held.
func (r *Registry) evict() {
	if r.maxCompleted <= 0 {
		return
	}
	for len(r.completed) > r.maxCompleted {
		oldest := r.completed[0]
		r.completed = r.completed[1:]
		rec, ok := r.records[oldest]
		if !ok {
			continue
		}
		delete(r.records, oldest)
		if r.byKey[rec.key] == oldest {
			delete(r.byKey, rec.key)
		}
		r.logger.Debug("evicted completed task",
			"task_id", oldest,
			"request_key", rec.key)
	}
}

func validatePayload(to State, p Payload) error {
	switch to {
	case StateCompleted:
		if p.Result == nil || p.Err != nil {
			return fmt.Errorf("%w: completed task needs a result and no error", ErrInvalidPayload)
		}
	case StateFailed:
		if p.Err == nil || p.Result != nil {
			return fmt.Errorf("%w: failed task needs an error and no result", ErrInvalidPayload)
		}
	default:
		if p.Result != nil || p.Err != nil {
			return fmt.Errorf("%w: %s task cannot carry a result or error", ErrInvalidPayload, to)
		}
	}
	return nil
}

// UpdateProgress records a coarse progress indicator on a running task.
func (r *Registry) UpdateProgress(_ context.Context, id uuid.UUID, progress Progress) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	if rec.state != StateRunning {
		return fmt.Errorf("%w: progress update on %s task", ErrInvalidTransition, rec.state)
	}

	progress.Fraction = min(max(progress.Fraction, 0), 1)
	rec.progress = progress
	return nil
}

// KnownEntities lists every key that currently maps to a completed task,
// sorted by key.
func (r *Registry) KnownEntities(_ context.Context) []KnownEntity {
	r.mu.Lock()
	known := make([]KnownEntity, 0, len(r.byKey))
	for key, id := range r.byKey {
		if rec, ok := r.records[id]; ok && rec.state == StateCompleted {
			known = append(known, KnownEntity{Key: key, Entity: rec.entity})
		}
	}
	r.mu.Unlock()

	sort.Slice(known, func(i, j int) bool { return known[i].Key < known[j].Key })
	return known
}

// RunningLongerThan returns tasks that have been running for more than age.
func (r *Registry) RunningLongerThan(age time.Duration) []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	var stuck []Snapshot
	for _, rec := range r.records {
		if rec.state == StateRunning && now.Sub(rec.startedAt) > age {
			stuck = append(stuck, rec.snapshot())
		}
	}
	return stuck
}

func (r *Registry) emit(ctx context.Context, event *events.TaskEvent) {
	if err := r.emitter.EmitEvent(ctx, event); err != nil {
		r.logger.Warn("task event handler failed",
			"error", err,
			"task_id", event.TaskID,
			"to", event.To)
	}
}
