package workspace

import (
	"context"
	"strings"

	"github.com/todmy/stoneweight/internal/calculator"
	"github.com/todmy/stoneweight/pkg/models"
)

func stoneID(s models.Stone) string   { return s.ID }
func stoneName(s models.Stone) string { return s.Name }

// StonePatch lists the fields of a stone update; nil fields are kept
type StonePatch struct {
	Name         *string
	CountPerGram *float64
}

func (p StonePatch) apply(s models.Stone) models.Stone {
	if p.Name != nil {
		s.Name = strings.TrimSpace(*p.Name)
	}
	if p.CountPerGram != nil {
		s.CountPerGram = *p.CountPerGram
	}
	return s
}

// StoneRegistry is the stone view of a Workspace
type StoneRegistry struct {
	w *Workspace
}

// Stones returns the stone registry
func (w *Workspace) Stones() StoneRegistry {
	return StoneRegistry{w: w}
}

// List returns the cached stones ordered by name
func (r StoneRegistry) List() []models.Stone {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	return sortedByName(r.w.stones, stoneName)
}

// Get returns a cached stone
func (r StoneRegistry) Get(id string) (models.Stone, bool) {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	if i := indexOf(r.w.stones, id, stoneID); i >= 0 {
		return r.w.stones[i], true
	}
	return models.Stone{}, false
}

// Create adds a stone. When the remote fails the stone gets a local id and
// lives only in the cache.
func (r StoneRegistry) Create(ctx context.Context, stone models.Stone) (Result[models.Stone], error) {
	stone.ID = ""
	stone.Name = strings.TrimSpace(stone.Name)
	if stone.Name == "" {
		return Result[models.Stone]{}, validationError("name is required")
	}
	if !calculator.ValidFactor(stone.CountPerGram) {
		return Result[models.Stone]{}, validationError("count per gram must be positive")
	}

	var created *models.Stone
	se := r.w.call(ctx, "stone", "create", func(rem Remote) (err error) {
		created, err = rem.CreateStone(ctx, stone)
		return err
	})
	if se != nil && se.Auth {
		return Result[models.Stone]{Err: se}, nil
	}
	if se != nil {
		stone.ID = r.w.newID()
		created = &stone
	}

	r.w.mu.Lock()
	r.w.stones = upsert(r.w.stones, *created, stoneID)
	r.w.mu.Unlock()
	r.w.persist(ctx)

	return Result[models.Stone]{Value: *created, Err: se}, nil
}

// Update applies patch to a cached stone and writes it through
func (r StoneRegistry) Update(ctx context.Context, id string, patch StonePatch) (Result[models.Stone], error) {
	current, ok := r.Get(id)
	if !ok {
		return Result[models.Stone]{}, ErrNotFound
	}

	next := patch.apply(current)
	if next.Name == "" {
		return Result[models.Stone]{}, validationError("name is required")
	}
	if patch.CountPerGram != nil && !calculator.ValidFactor(next.CountPerGram) {
		return Result[models.Stone]{}, validationError("count per gram must be positive")
	}

	var updated *models.Stone
	se := r.w.call(ctx, "stone", "update", func(rem Remote) (err error) {
		updated, err = rem.UpdateStone(ctx, next)
		return err
	})
	if se != nil && se.Auth {
		return Result[models.Stone]{Err: se}, nil
	}
	if se != nil {
		updated = &next
	}

	r.w.mu.Lock()
	r.w.stones = upsert(r.w.stones, *updated, stoneID)
	r.w.mu.Unlock()
	r.w.persist(ctx)

	return Result[models.Stone]{Value: *updated, Err: se}, nil
}

// Delete removes a stone from the remote and the cache. Model and set
// lines referencing it are left alone.
func (r StoneRegistry) Delete(ctx context.Context, id string) Result[struct{}] {
	se := r.w.call(ctx, "stone", "delete", func(rem Remote) error {
		return rem.DeleteStone(ctx, id)
	})
	if se != nil && se.Auth {
		return Result[struct{}]{Err: se}
	}

	r.w.mu.Lock()
	r.w.stones = remove(r.w.stones, id, stoneID)
	r.w.mu.Unlock()
	r.w.persist(ctx)

	return Result[struct{}]{Err: se}
}
