package workspace

import (
	"context"
	"strings"

	"github.com/todmy/stoneweight/internal/calculator"
	"github.com/todmy/stoneweight/pkg/models"
)

func modelID(m models.Model) string   { return m.ID }
func modelName(m models.Model) string { return m.Name }

// ModelPatch lists the fields of a model update; nil fields are kept.
// Stones, when set, replaces the whole list.
type ModelPatch struct {
	Name      *string
	StockCode *string
	Category  *string
	Image     *string
	Stones    *[]models.StoneQuantity
}

func (p ModelPatch) apply(m models.Model) models.Model {
	if p.Name != nil {
		m.Name = strings.TrimSpace(*p.Name)
	}
	if p.StockCode != nil {
		m.StockCode = *p.StockCode
	}
	if p.Category != nil {
		m.Category = *p.Category
	}
	if p.Image != nil {
		m.Image = *p.Image
	}
	if p.Stones != nil {
		m.Stones = calculator.MergeStones(*p.Stones)
	}
	return m
}

// ModelRegistry is the model view of a Workspace
type ModelRegistry struct {
	w *Workspace
}

// Models returns the model registry
func (w *Workspace) Models() ModelRegistry {
	return ModelRegistry{w: w}
}

// List returns the cached models ordered by name
func (r ModelRegistry) List() []models.Model {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	return sortedByName(r.w.models, modelName)
}

// Get returns a cached model
func (r ModelRegistry) Get(id string) (models.Model, bool) {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	if i := indexOf(r.w.models, id, modelID); i >= 0 {
		return r.w.models[i], true
	}
	return models.Model{}, false
}

// Create adds a model. Repeated stone lines are merged first.
func (r ModelRegistry) Create(ctx context.Context, model models.Model) (Result[models.Model], error) {
	model.ID = ""
	model.Name = strings.TrimSpace(model.Name)
	if model.Name == "" {
		return Result[models.Model]{}, validationError("name is required")
	}
	if err := validateLines(model.Stones); err != nil {
		return Result[models.Model]{}, err
	}
	model.Stones = calculator.MergeStones(model.Stones)

	var created *models.Model
	se := r.w.call(ctx, "model", "create", func(rem Remote) (err error) {
		created, err = rem.CreateModel(ctx, model)
		return err
	})
	if se != nil && se.Auth {
		return Result[models.Model]{Err: se}, nil
	}
	if se != nil {
		model.ID = r.w.newID()
		created = &model
	}

	r.w.mu.Lock()
	r.w.models = upsert(r.w.models, *created, modelID)
	r.w.mu.Unlock()
	r.w.persist(ctx)

	return Result[models.Model]{Value: *created, Err: se}, nil
}

// Update applies patch to a cached model and writes it through
func (r ModelRegistry) Update(ctx context.Context, id string, patch ModelPatch) (Result[models.Model], error) {
	current, ok := r.Get(id)
	if !ok {
		return Result[models.Model]{}, ErrNotFound
	}
	if patch.Stones != nil {
		if err := validateLines(*patch.Stones); err != nil {
			return Result[models.Model]{}, err
		}
	}

	next := patch.apply(current)
	if next.Name == "" {
		return Result[models.Model]{}, validationError("name is required")
	}

	var updated *models.Model
	se := r.w.call(ctx, "model", "update", func(rem Remote) (err error) {
		updated, err = rem.UpdateModel(ctx, next)
		return err
	})
	if se != nil && se.Auth {
		return Result[models.Model]{Err: se}, nil
	}
	if se != nil {
		updated = &next
	}

	r.w.mu.Lock()
	r.w.models = upsert(r.w.models, *updated, modelID)
	r.w.mu.Unlock()
	r.w.persist(ctx)

	return Result[models.Model]{Value: *updated, Err: se}, nil
}

// ApplySet merges the lines of a cached stone set into a cached model
func (r ModelRegistry) ApplySet(ctx context.Context, modelID, setID string) (Result[models.Model], error) {
	model, ok := r.Get(modelID)
	if !ok {
		return Result[models.Model]{}, ErrNotFound
	}
	set, ok := r.w.StoneSets().Get(setID)
	if !ok {
		return Result[models.Model]{}, ErrNotFound
	}

	lines := calculator.ApplySet(model.Stones, set.Stones)
	return r.Update(ctx, modelID, ModelPatch{Stones: &lines})
}

// Delete removes a model from the remote and the cache
func (r ModelRegistry) Delete(ctx context.Context, id string) Result[struct{}] {
	se := r.w.call(ctx, "model", "delete", func(rem Remote) error {
		return rem.DeleteModel(ctx, id)
	})
	if se != nil && se.Auth {
		return Result[struct{}]{Err: se}
	}

	r.w.mu.Lock()
	r.w.models = remove(r.w.models, id, modelID)
	r.w.mu.Unlock()
	r.w.persist(ctx)

	return Result[struct{}]{Err: se}
}
