package history

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/todmy/stoneweight/internal/calculator"
	"github.com/todmy/stoneweight/pkg/models"
)

// Summary is the combined total shown next to the history list
type Summary struct {
	TotalWeight float64 `json:"totalWeight"`
	TotalCount  int     `json:"totalCount"`
}

// Option configures a History
type Option func(*History)

// WithClock sets the timestamp source
func WithClock(now func() time.Time) Option {
	return func(h *History) {
		h.now = now
	}
}

// WithIDGenerator sets the id source
func WithIDGenerator(newID func() string) Option {
	return func(h *History) {
		h.newID = newID
	}
}

// History is an ordered log of committed calculations. Items are frozen
// snapshots and never reference live models or stones.
type History struct {
	mu    sync.Mutex
	items []models.HistoryItem
	now   func() time.Time
	newID func() string
}

// New creates an empty History
func New(opts ...Option) *History {
	h := &History{
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Append snapshots result to the end of the list. A nil result is ignored.
func (h *History) Append(result *models.CalculationResult) (models.HistoryItem, bool) {
	if result == nil {
		return models.HistoryItem{}, false
	}

	item := models.HistoryItem{
		ID:              h.newID(),
		ModelName:       result.ModelName,
		ProductionCount: result.ProductionCount,
		TotalWeight:     calculator.Finite(result.TotalWeight),
		Timestamp:       h.now().UTC(),
	}

	h.mu.Lock()
	h.items = append(h.items, item)
	h.mu.Unlock()

	return item, true
}

// Remove deletes the item with id. It reports whether anything was removed.
func (h *History) Remove(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i, item := range h.items {
		if item.ID == id {
			h.items = append(h.items[:i:i], h.items[i+1:]...)
			return true
		}
	}
	return false
}

// Clear empties the list
func (h *History) Clear() {
	h.mu.Lock()
	h.items = nil
	h.mu.Unlock()
}

// Len returns the number of items
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.items)
}

// Items returns a copy of the list in insertion order
func (h *History) Items() []models.HistoryItem {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]models.HistoryItem, len(h.items))
	copy(out, h.items)
	return out
}

// Restore replaces the list with previously persisted items
func (h *History) Restore(items []models.HistoryItem) {
	restored := make([]models.HistoryItem, len(items))
	copy(restored, items)

	h.mu.Lock()
	h.items = restored
	h.mu.Unlock()
}

// Aggregate sums the weight of every item
func (h *History) Aggregate() Summary {
	h.mu.Lock()
	defer h.mu.Unlock()

	weights := make([]float64, len(h.items))
	for i, item := range h.items {
		weights[i] = item.TotalWeight
	}
	return Summary{
		TotalWeight: calculator.SafeSum(weights),
		TotalCount:  len(h.items),
	}
}

// Last returns the most recently appended item. Receipts are always printed
// from this item, while Aggregate covers the whole list.
func (h *History) Last() (models.HistoryItem, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.items) == 0 {
		return models.HistoryItem{}, false
	}
	return h.items[len(h.items)-1], true
}
