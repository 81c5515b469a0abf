package workspace

import (
	"context"
	"strings"

	"github.com/todmy/stoneweight/internal/calculator"
	"github.com/todmy/stoneweight/pkg/models"
)

func stoneSetID(s models.StoneSet) string   { return s.ID }
func stoneSetName(s models.StoneSet) string { return s.Name }

// StoneSetPatch lists the fields of a stone set update; nil fields are kept
type StoneSetPatch struct {
	Name        *string
	Description *string
	Stones      *[]models.StoneQuantity
}

func (p StoneSetPatch) apply(s models.StoneSet) models.StoneSet {
	if p.Name != nil {
		s.Name = strings.TrimSpace(*p.Name)
	}
	if p.Description != nil {
		s.Description = *p.Description
	}
	if p.Stones != nil {
		s.Stones = calculator.MergeStones(*p.Stones)
	}
	return s
}

// StoneSetRegistry is the stone set view of a Workspace
type StoneSetRegistry struct {
	w *Workspace
}

// StoneSets returns the stone set registry
func (w *Workspace) StoneSets() StoneSetRegistry {
	return StoneSetRegistry{w: w}
}

// List returns the cached sets ordered by name
func (r StoneSetRegistry) List() []models.StoneSet {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	return sortedByName(r.w.stoneSets, stoneSetName)
}

// Get returns a cached set
func (r StoneSetRegistry) Get(id string) (models.StoneSet, bool) {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	if i := indexOf(r.w.stoneSets, id, stoneSetID); i >= 0 {
		return r.w.stoneSets[i], true
	}
	return models.StoneSet{}, false
}

// Create adds a stone set
func (r StoneSetRegistry) Create(ctx context.Context, set models.StoneSet) (Result[models.StoneSet], error) {
	set.ID = ""
	set.Name = strings.TrimSpace(set.Name)
	if set.Name == "" {
		return Result[models.StoneSet]{}, validationError("name is required")
	}
	if err := validateLines(set.Stones); err != nil {
		return Result[models.StoneSet]{}, err
	}
	set.Stones = calculator.MergeStones(set.Stones)

	var created *models.StoneSet
	se := r.w.call(ctx, "stone_set", "create", func(rem Remote) (err error) {
		created, err = rem.CreateStoneSet(ctx, set)
		return err
	})
	if se != nil && se.Auth {
		return Result[models.StoneSet]{Err: se}, nil
	}
	if se != nil {
		set.ID = r.w.newID()
		created = &set
	}

	r.w.mu.Lock()
	r.w.stoneSets = upsert(r.w.stoneSets, *created, stoneSetID)
	r.w.mu.Unlock()
	r.w.persist(ctx)

	return Result[models.StoneSet]{Value: *created, Err: se}, nil
}

// Update applies patch to a cached set and writes it through
func (r StoneSetRegistry) Update(ctx context.Context, id string, patch StoneSetPatch) (Result[models.StoneSet], error) {
	current, ok := r.Get(id)
	if !ok {
		return Result[models.StoneSet]{}, ErrNotFound
	}
	if patch.Stones != nil {
		if err := validateLines(*patch.Stones); err != nil {
			return Result[models.StoneSet]{}, err
		}
	}

	next := patch.apply(current)
	if next.Name == "" {
		return Result[models.StoneSet]{}, validationError("name is required")
	}

	var updated *models.StoneSet
	se := r.w.call(ctx, "stone_set", "update", func(rem Remote) (err error) {
		updated, err = rem.UpdateStoneSet(ctx, next)
		return err
	})
	if se != nil && se.Auth {
		return Result[models.StoneSet]{Err: se}, nil
	}
	if se != nil {
		updated = &next
	}

	r.w.mu.Lock()
	r.w.stoneSets = upsert(r.w.stoneSets, *updated, stoneSetID)
	r.w.mu.Unlock()
	r.w.persist(ctx)

	return Result[models.StoneSet]{Value: *updated, Err: se}, nil
}

// Delete removes a set from the remote and the cache
func (r StoneSetRegistry) Delete(ctx context.Context, id string) Result[struct{}] {
	se := r.w.call(ctx, "stone_set", "delete", func(rem Remote) error {
		return rem.DeleteStoneSet(ctx, id)
	})
	if se != nil && se.Auth {
		return Result[struct{}]{Err: se}
	}

	r.w.mu.Lock()
	r.w.stoneSets = remove(r.w.stoneSets, id, stoneSetID)
	r.w.mu.Unlock()
	r.w.persist(ctx)

	return Result[struct{}]{Err: se}
}
