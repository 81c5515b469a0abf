package workspace

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/todmy/stoneweight/internal/calculator"
	"github.com/todmy/stoneweight/internal/client"
	"github.com/todmy/stoneweight/internal/history"
	"github.com/todmy/stoneweight/internal/localcache"
	"github.com/todmy/stoneweight/internal/logger"
	"github.com/todmy/stoneweight/internal/metrics"
	"github.com/todmy/stoneweight/pkg/models"
)

var (
	// ErrValidation marks input rejected before any network call
	ErrValidation = errors.New("validation failed")
	// ErrNotFound is returned when an id is not in the local cache
	ErrNotFound = errors.New("not found")
	// ErrOffline is the cause recorded when no remote is configured
	ErrOffline = errors.New("no remote configured")
)

func validationError(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

// SyncError describes a registry operation the remote did not accept.
// Unless Auth is set the operation was applied to the local cache instead.
type SyncError struct {
	Op     string
	Entity string
	Err    error
	Auth   bool
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Entity, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// Result carries the value of a registry operation and, when the remote
// could not be reached, the reason it was served locally
type Result[T any] struct {
	Value T
	Err   *SyncError
}

// Degraded reports whether the value only exists in the local cache
func (r Result[T]) Degraded() bool {
	return r.Err != nil && !r.Err.Auth
}

// Remote is the server side of the registries
type Remote interface {
	ListStones(ctx context.Context) ([]models.Stone, error)
	CreateStone(ctx context.Context, stone models.Stone) (*models.Stone, error)
	UpdateStone(ctx context.Context, stone models.Stone) (*models.Stone, error)
	DeleteStone(ctx context.Context, id string) error

	ListModels(ctx context.Context) ([]models.Model, error)
	CreateModel(ctx context.Context, model models.Model) (*models.Model, error)
	UpdateModel(ctx context.Context, model models.Model) (*models.Model, error)
	DeleteModel(ctx context.Context, id string) error

	ListStoneSets(ctx context.Context) ([]models.StoneSet, error)
	CreateStoneSet(ctx context.Context, set models.StoneSet) (*models.StoneSet, error)
	UpdateStoneSet(ctx context.Context, set models.StoneSet) (*models.StoneSet, error)
	DeleteStoneSet(ctx context.Context, id string) error
}

// Option configures a Workspace
type Option func(*Workspace)

// WithRemote sets the server the registries write through to
func WithRemote(r Remote) Option {
	return func(w *Workspace) {
		w.remote = r
	}
}

// WithStore sets where the state document is persisted
func WithStore(s localcache.Store) Option {
	return func(w *Workspace) {
		w.store = s
	}
}

// WithLogger sets the logger
func WithLogger(l *logger.Logger) Option {
	return func(w *Workspace) {
		w.log = l
	}
}

// WithOnUnauthorized sets the hook run when the remote rejects the session
func WithOnUnauthorized(fn func()) Option {
	return func(w *Workspace) {
		w.onUnauthorized = fn
	}
}

// WithIDGenerator sets the source of locally assigned ids
func WithIDGenerator(fn func() string) Option {
	return func(w *Workspace) {
		w.newID = fn
	}
}

// WithHistory replaces the history log
func WithHistory(h *history.History) Option {
	return func(w *Workspace) {
		w.history = h
	}
}

// Workspace is the client-side cache of stones, models, stone sets and
// calculation history
type Workspace struct {
	mu        sync.Mutex
	stones    []models.Stone
	models    []models.Model
	stoneSets []models.StoneSet

	history        *history.History
	remote         Remote
	store          localcache.Store
	log            *logger.Logger
	onUnauthorized func()
	newID          func() string
}

// New creates an empty Workspace
func New(opts ...Option) *Workspace {
	w := &Workspace{
		stones:    []models.Stone{},
		models:    []models.Model{},
		stoneSets: []models.StoneSet{},
		store:     localcache.NoOpStore{},
		log:       logger.Nop(),
		newID:     func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.history == nil {
		w.history = history.New()
	}
	return w
}

// Load restores the persisted state document
func (w *Workspace) Load(ctx context.Context) error {
	st, err := localcache.LoadState(ctx, w.store)
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.stones = finiteStones(st.Stones)
	w.models = st.Models
	w.stoneSets = st.StoneSets
	w.mu.Unlock()

	w.history.Restore(st.History)
	return nil
}

// persist writes the current state. Failures are logged; the in-memory
// state stays authoritative.
func (w *Workspace) persist(ctx context.Context) {
	w.mu.Lock()
	st := localcache.State{
		Stones:    append([]models.Stone(nil), w.stones...),
		Models:    append([]models.Model(nil), w.models...),
		StoneSets: append([]models.StoneSet(nil), w.stoneSets...),
	}
	w.mu.Unlock()
	st.History = w.history.Items()

	if err := localcache.SaveState(ctx, w.store, st); err != nil {
		w.log.Warn("persist workspace failed", "error", err)
	}
}

// call runs fn against the remote and classifies its failure
func (w *Workspace) call(ctx context.Context, entity, op string, fn func(Remote) error) *SyncError {
	if w.remote == nil {
		metrics.IncSyncFallback(entity, op)
		return &SyncError{Op: op, Entity: entity, Err: ErrOffline}
	}

	err := fn(w.remote)
	if err == nil {
		return nil
	}

	se := &SyncError{Op: op, Entity: entity, Err: err}
	if errors.Is(err, client.ErrUnauthorized) {
		se.Auth = true
		w.log.Warn("session rejected by server", "entity", entity, "op", op)
		if w.onUnauthorized != nil {
			w.onUnauthorized()
		}
		return se
	}

	metrics.IncSyncFallback(entity, op)
	w.log.Warn("remote unavailable, using local cache", "entity", entity, "op", op, "error", err)
	return se
}

// Sync refreshes every registry from the remote. A list that fails keeps
// its cached contents. The returned errors are informational.
func (w *Workspace) Sync(ctx context.Context) []*SyncError {
	var errs []*SyncError

	var stones []models.Stone
	if se := w.call(ctx, "stone", "list", func(r Remote) (err error) {
		stones, err = r.ListStones(ctx)
		return err
	}); se != nil {
		errs = append(errs, se)
		if se.Auth {
			return errs
		}
	} else {
		w.mu.Lock()
		w.stones = finiteStones(nonNil(stones))
		w.mu.Unlock()
	}

	var list []models.Model
	if se := w.call(ctx, "model", "list", func(r Remote) (err error) {
		list, err = r.ListModels(ctx)
		return err
	}); se != nil {
		errs = append(errs, se)
		if se.Auth {
			return errs
		}
	} else {
		w.mu.Lock()
		w.models = nonNil(list)
		w.mu.Unlock()
	}

	var sets []models.StoneSet
	if se := w.call(ctx, "stone_set", "list", func(r Remote) (err error) {
		sets, err = r.ListStoneSets(ctx)
		return err
	}); se != nil {
		errs = append(errs, se)
	} else {
		w.mu.Lock()
		w.stoneSets = nonNil(sets)
		w.mu.Unlock()
	}

	w.persist(ctx)
	return errs
}

// Calculate runs the weight calculation for a cached model. It returns nil
// when the model is unknown or productionCount is not positive.
func (w *Workspace) Calculate(modelID string, productionCount int) *models.CalculationResult {
	w.mu.Lock()
	var model *models.Model
	for i := range w.models {
		if w.models[i].ID == modelID {
			m := w.models[i]
			model = &m
			break
		}
	}
	index := calculator.NewStoneIndex(w.stones)
	w.mu.Unlock()

	result := calculator.Calculate(model, index, productionCount)
	if result != nil {
		metrics.ObserveCalculation(true, result.TotalWeight)
	} else {
		metrics.ObserveCalculation(false, 0)
	}
	return result
}

// Commit appends result to the history log
func (w *Workspace) Commit(ctx context.Context, result *models.CalculationResult) (models.HistoryItem, bool) {
	item, ok := w.history.Append(result)
	if ok {
		w.persist(ctx)
	}
	return item, ok
}

// History returns the history items in insertion order
func (w *Workspace) History() []models.HistoryItem {
	return w.history.Items()
}

// RemoveHistory deletes one history item; unknown ids are ignored
func (w *Workspace) RemoveHistory(ctx context.Context, id string) {
	if w.history.Remove(id) {
		w.persist(ctx)
	}
}

// ClearHistory empties the history log
func (w *Workspace) ClearHistory(ctx context.Context) {
	w.history.Clear()
	w.persist(ctx)
}

// Summary totals the whole history log
func (w *Workspace) Summary() history.Summary {
	return w.history.Aggregate()
}

// LastHistory returns the item receipts are printed from
func (w *Workspace) LastHistory() (models.HistoryItem, bool) {
	return w.history.Last()
}

// Export returns the registries as a snapshot
func (w *Workspace) Export() models.Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	return models.Snapshot{
		Stones:    append([]models.Stone{}, w.stones...),
		Models:    append([]models.Model{}, w.models...),
		StoneSets: append([]models.StoneSet{}, w.stoneSets...),
	}
}

// Import replaces the registries wholesale with snap. History is kept.
func (w *Workspace) Import(ctx context.Context, snap models.Snapshot) {
	w.mu.Lock()
	w.stones = finiteStones(nonNil(snap.Stones))
	w.models = nonNil(snap.Models)
	w.stoneSets = nonNil(snap.StoneSets)
	w.mu.Unlock()

	w.persist(ctx)
}

// finiteStones zeroes factors that cannot be stored as JSON
func finiteStones(stones []models.Stone) []models.Stone {
	out := make([]models.Stone, len(stones))
	for i, s := range stones {
		s.CountPerGram = calculator.Finite(s.CountPerGram)
		out[i] = s
	}
	return out
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func sortedByName[T any](items []T, name func(T) string) []T {
	out := append([]T{}, items...)
	sort.SliceStable(out, func(i, j int) bool {
		return name(out[i]) < name(out[j])
	})
	return out
}

func indexOf[T any](items []T, id string, idOf func(T) string) int {
	for i := range items {
		if idOf(items[i]) == id {
			return i
		}
	}
	return -1
}

func upsert[T any](items []T, item T, idOf func(T) string) []T {
	if i := indexOf(items, idOf(item), idOf); i >= 0 {
		items[i] = item
		return items
	}
	return append(items, item)
}

func remove[T any](items []T, id string, idOf func(T) string) []T {
	if i := indexOf(items, id, idOf); i >= 0 {
		return append(items[:i:i], items[i+1:]...)
	}
	return items
}

func validateLines(lines []models.StoneQuantity) error {
	for _, l := range lines {
		if l.StoneID == "" {
			return validationError("stone id is required")
		}
		if l.Quantity <= 0 {
			return validationError("quantity must be positive")
		}
	}
	return nil
}
