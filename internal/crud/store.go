// Package crud provides an opt-in CRUD state store: a collection of
// entities, an optional selected entity and a loading flag, mutated only by
// the create, read, update and delete operations the store was built with.
//
// Each operation dispatches its request asynchronously and follows a
// latest-call-wins policy: a new call of an operation cancels the pending
// call of that same operation. Calls of different operations run
// concurrently; their reconciliations are serialised on the state.
package crud

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/zoobzio/capitan"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/todo-crud/internal/model"
)

// DefaultName is the store name used in logs, events and metric labels.
const DefaultName = "default"

const tracerName = "github.com/vyrodovalexey/todo-crud/internal/crud"

// Creator is a store exposing the create operation.
type Creator[T any] interface {
	Create(entity T) *Call
}

// AllReader is a store exposing the read-all operation.
type AllReader interface {
	ReadAll(query any) *Call
}

// OneReader is a store exposing the read-one operation.
type OneReader[K comparable] interface {
	ReadOne(id K) *Call
}

// Updater is a store exposing the update operation.
type Updater[T any] interface {
	Update(entity T) *Call
}

// Deleter is a store exposing the delete operation.
type Deleter[T any] interface {
	Delete(entity T) *Call
}

// Option configures a Store.
type Option func(*settings)

type settings struct {
	name       string
	logger     *zap.Logger
	registerer prometheus.Registerer
	parent     context.Context
}

// WithName sets the store name used in logs, events and metrics.
func WithName(name string) Option {
	return func(s *settings) {
		if name != "" {
			s.name = name
		}
	}
}

// WithLogger sets the logger failed operations are reported to.
func WithLogger(logger *zap.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRegisterer registers the store metrics on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(s *settings) {
		s.registerer = reg
	}
}

// WithContext sets the parent context of every request. Cancelling it has
// the same effect as closing the store.
func WithContext(ctx context.Context) Option {
	return func(s *settings) {
		if ctx != nil {
			s.parent = ctx
		}
	}
}

// subscriber is a registered state observer.
type subscriber[T any] struct {
	id int
	fn func(model.State[T])
}

// Store owns the state of one entity collection and the operations that
// mutate it.
type Store[K comparable, T model.Entity[K]] struct {
	name    string
	ops     Operations[K, T]
	logger  *zap.Logger
	metrics *metrics
	tracer  trace.Tracer

	ctx    context.Context
	cancel context.CancelFunc
	closed atomic.Bool

	slots [opCount]slot

	mu       sync.RWMutex
	state    model.State[T]
	inFlight int
	idle     chan struct{}

	subMu    sync.Mutex
	subs     []subscriber[T]
	nextSub  int
	pending  []model.State[T]
	draining bool
}

// New creates a store with the initial state: no items, no selection, not
// loading. Only the operations with a function in ops are exposed.
func New[K comparable, T model.Entity[K]](ops Operations[K, T], opts ...Option) *Store[K, T] {
	return NewWithState(ops, model.NewState[T](), opts...)
}

// NewWithState creates a store seeded with the given state. The loading
// flag of the seed is ignored.
func NewWithState[K comparable, T model.Entity[K]](
	ops Operations[K, T],
	initial model.State[T],
	opts ...Option,
) *Store[K, T] {
	cfg := settings{
		name:   DefaultName,
		logger: zap.NewNop(),
		parent: context.Background(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	state := initial.Clone()
	state.Loading = false

	idle := make(chan struct{})
	close(idle)

	ctx, cancel := context.WithCancel(cfg.parent)

	return &Store[K, T]{
		name:    cfg.name,
		ops:     ops,
		logger:  cfg.logger.With(zap.String("store", cfg.name)),
		metrics: newMetrics(cfg.registerer),
		tracer:  otel.Tracer(tracerName),
		ctx:     ctx,
		cancel:  cancel,
		state:   state,
		idle:    idle,
	}
}

// Name returns the store name.
func (s *Store[K, T]) Name() string {
	return s.name
}

// Capabilities returns the set of exposed operations.
func (s *Store[K, T]) Capabilities() Config {
	return s.ops.Config()
}

// Enabled reports whether op is exposed by the store.
func (s *Store[K, T]) Enabled(op Op) bool {
	return s.ops.Config().Enabled(op)
}

// AsCreator returns the store as a Creator if create is enabled.
func (s *Store[K, T]) AsCreator() (Creator[T], bool) {
	return s, s.ops.Create != nil
}

// AsAllReader returns the store as an AllReader if read-all is enabled.
func (s *Store[K, T]) AsAllReader() (AllReader, bool) {
	return s, s.ops.ReadAll != nil
}

// AsOneReader returns the store as a OneReader if read-one is enabled.
func (s *Store[K, T]) AsOneReader() (OneReader[K], bool) {
	return s, s.ops.ReadOne != nil
}

// AsUpdater returns the store as an Updater if update is enabled.
func (s *Store[K, T]) AsUpdater() (Updater[T], bool) {
	return s, s.ops.Update != nil
}

// AsDeleter returns the store as a Deleter if delete is enabled.
func (s *Store[K, T]) AsDeleter() (Deleter[T], bool) {
	return s, s.ops.Delete != nil
}

// State returns a snapshot of the current state.
func (s *Store[K, T]) State() model.State[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Items returns a copy of the item list.
func (s *Store[K, T]) Items() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.state.Items)
}

// Selected returns the selected item, if any.
func (s *Store[K, T]) Selected() (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.SelectedItem == nil {
		var zero T
		return zero, false
	}
	return *s.state.SelectedItem, true
}

// Loading reports whether any call is in flight.
func (s *Store[K, T]) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Loading
}

// Subscribe registers fn to receive a snapshot after every state change and
// returns a function removing it. Snapshots are delivered asynchronously,
// in change order and one at a time; fn may call back into the store.
func (s *Store[K, T]) Subscribe(fn func(model.State[T])) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	s.nextSub++
	id := s.nextSub
	s.subs = append(s.subs, subscriber[T]{id: id, fn: fn})

	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		s.subs = slices.DeleteFunc(s.subs, func(sub subscriber[T]) bool {
			return sub.id == id
		})
	}
}

// Wait blocks until no call is in flight or ctx is done.
func (s *Store[K, T]) Wait(ctx context.Context) error {
	s.mu.RLock()
	idle := s.idle
	s.mu.RUnlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close cancels every pending call and waits for them to finish. Operations
// invoked after Close are rejected with ErrClosed.
func (s *Store[K, T]) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.cancel()
	return s.Wait(context.Background())
}

// Create appends the entity returned by the create request to the items.
func (s *Store[K, T]) Create(entity T) *Call {
	if s.ops.Create == nil {
		return s.reject(OpCreate)
	}
	return dispatch(s, OpCreate,
		func(ctx context.Context) (T, error) {
			return s.ops.Create(ctx, entity)
		},
		func(st *model.State[T], created T) error {
			st.Items = append(st.Items, created)
			return nil
		},
	)
}

// ReadAll replaces the items with the list returned by the read-all
// request. query is passed through to the data-access function.
func (s *Store[K, T]) ReadAll(query any) *Call {
	if s.ops.ReadAll == nil {
		return s.reject(OpReadAll)
	}
	return dispatch(s, OpReadAll,
		func(ctx context.Context) ([]T, error) {
			return s.ops.ReadAll(ctx, query)
		},
		func(st *model.State[T], items []T) error {
			st.Items = append(make([]T, 0, len(items)), items...)
			return nil
		},
	)
}

// ReadOne replaces the selected item with the entity returned by the
// read-one request.
func (s *Store[K, T]) ReadOne(id K) *Call {
	if s.ops.ReadOne == nil {
		return s.reject(OpReadOne)
	}
	return dispatch(s, OpReadOne,
		func(ctx context.Context) (T, error) {
			return s.ops.ReadOne(ctx, id)
		},
		func(st *model.State[T], item T) error {
			st.SelectedItem = &item
			return nil
		},
	)
}

// Update replaces, in place, the first item with the entity's identifier by
// the entity returned by the update request. If no item matches, the items
// are left untouched and the call completes with ErrEntityNotFound.
func (s *Store[K, T]) Update(entity T) *Call {
	if s.ops.Update == nil {
		return s.reject(OpUpdate)
	}
	id := entity.EntityID()
	return dispatch(s, OpUpdate,
		func(ctx context.Context) (T, error) {
			return s.ops.Update(ctx, entity)
		},
		func(st *model.State[T], updated T) error {
			idx := slices.IndexFunc(st.Items, func(item T) bool {
				return item.EntityID() == id
			})
			if idx < 0 {
				return fmt.Errorf("update %v: %w", id, ErrEntityNotFound)
			}
			st.Items[idx] = updated
			return nil
		},
	)
}

// Delete removes every item with the entity's identifier once the delete
// request succeeds. Remaining items keep their relative order.
func (s *Store[K, T]) Delete(entity T) *Call {
	if s.ops.Delete == nil {
		return s.reject(OpDelete)
	}
	id := entity.EntityID()
	return dispatch(s, OpDelete,
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.ops.Delete(ctx, entity)
		},
		func(st *model.State[T], _ struct{}) error {
			st.Items = slices.DeleteFunc(st.Items, func(item T) bool {
				return item.EntityID() == id
			})
			return nil
		},
	)
}

// dispatch starts a call of op: it supersedes the pending call of the same
// operation, raises the loading flag and runs the request in the
// background. apply runs under the state lock only if the call is still
// current when the request returns.
func dispatch[K comparable, T model.Entity[K], R any](
	s *Store[K, T],
	op Op,
	do func(ctx context.Context) (R, error),
	apply func(st *model.State[T], result R) error,
) *Call {
	if s.closed.Load() || s.ctx.Err() != nil {
		return s.rejectWith(op, ErrClosed)
	}

	sl := &s.slots[op]
	ctx, gen := sl.begin(s.ctx)
	call := newCall(op)
	start := time.Now()

	s.addInFlight(1)
	capitan.Emit(ctx, OperationDispatched,
		KeyStore.Field(s.name),
		KeyOp.Field(op.String()),
	)

	go func() {
		ctx, span := s.tracer.Start(ctx, "crud."+op.String(),
			trace.WithAttributes(
				attribute.String("crud.store", s.name),
				attribute.String("crud.op", op.String()),
			),
		)

		result, err := do(ctx)

		current := sl.settle(gen, func() {
			if s.ctx.Err() != nil {
				err = ErrClosed
				return
			}
			if err == nil {
				s.patch(func(st *model.State[T]) {
					err = apply(st, result)
				})
			}
		})
		if !current {
			err = ErrSuperseded
		}

		s.report(ctx, op, err, time.Since(start))
		if err != nil && !errors.Is(err, ErrSuperseded) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()

		s.addInFlight(-1)
		call.complete(err)
	}()

	return call
}

// reject completes a call of a disabled operation immediately.
func (s *Store[K, T]) reject(op Op) *Call {
	return s.rejectWith(op, fmt.Errorf("%s: %w", op, ErrNotEnabled))
}

func (s *Store[K, T]) rejectWith(op Op, err error) *Call {
	s.logger.Warn("operation rejected",
		zap.String("op", op.String()),
		zap.Error(err),
	)
	capitan.Emit(context.Background(), OperationRejected,
		KeyStore.Field(s.name),
		KeyOp.Field(op.String()),
		KeyError.Field(err.Error()),
	)
	s.metrics.observe(s.name, op, outcomeRejected, 0)
	return rejectedCall(op, err)
}

// report logs, emits and records the outcome of a call.
func (s *Store[K, T]) report(ctx context.Context, op Op, err error, d time.Duration) {
	fields := []zap.Field{
		zap.String("op", op.String()),
		zap.Duration("duration", d),
	}

	switch {
	case err == nil:
		s.logger.Debug("operation succeeded", fields...)
		capitan.Emit(ctx, OperationSucceeded,
			KeyStore.Field(s.name),
			KeyOp.Field(op.String()),
			KeyDuration.Field(d),
		)
		s.metrics.observe(s.name, op, outcomeSuccess, d)
	case errors.Is(err, ErrSuperseded):
		s.logger.Debug("operation superseded", fields...)
		capitan.Emit(ctx, OperationSuperseded,
			KeyStore.Field(s.name),
			KeyOp.Field(op.String()),
		)
		s.metrics.observe(s.name, op, outcomeSuperseded, d)
	default:
		if errors.Is(err, ErrEntityNotFound) {
			s.logger.Warn("operation result not applied", append(fields, zap.Error(err))...)
		} else {
			s.logger.Error("operation failed", append(fields, zap.Error(err))...)
		}
		capitan.Emit(ctx, OperationFailed,
			KeyStore.Field(s.name),
			KeyOp.Field(op.String()),
			KeyError.Field(err.Error()),
			KeyDuration.Field(d),
		)
		s.metrics.observe(s.name, op, outcomeError, d)
	}
}

// addInFlight adjusts the in-flight counter; loading is true while it is
// positive. The gauge is written under the state lock so it never lags the
// counter.
func (s *Store[K, T]) addInFlight(delta int) {
	s.patch(func(st *model.State[T]) {
		if s.inFlight == 0 && delta > 0 {
			s.idle = make(chan struct{})
		}
		s.inFlight += delta
		if s.inFlight == 0 {
			close(s.idle)
		}
		st.Loading = s.inFlight > 0
		s.metrics.setInFlight(s.name, s.inFlight)
	})
}

// patch mutates the state under the lock, queues a snapshot for the
// subscribers and delivers queued snapshots.
func (s *Store[K, T]) patch(fn func(st *model.State[T])) {
	s.mu.Lock()
	fn(&s.state)
	s.subMu.Lock()
	queued := len(s.subs) > 0
	if queued {
		s.pending = append(s.pending, s.state.Clone())
	}
	s.subMu.Unlock()
	s.mu.Unlock()

	if queued {
		go s.flush()
	}
}

// flush delivers queued snapshots. Only one goroutine delivers at a time;
// snapshots queued meanwhile are picked up by the active deliverer.
func (s *Store[K, T]) flush() {
	s.subMu.Lock()
	if s.draining {
		s.subMu.Unlock()
		return
	}
	s.draining = true
	for len(s.pending) > 0 {
		snap := s.pending[0]
		s.pending = s.pending[1:]
		subs := slices.Clone(s.subs)
		s.subMu.Unlock()

		for _, sub := range subs {
			sub.fn(snap)
		}

		s.subMu.Lock()
	}
	s.draining = false
	s.subMu.Unlock()
}
