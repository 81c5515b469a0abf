package localcache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/todmy/stoneweight/pkg/models"
)

// StateKey is the key the client state document is stored under
const StateKey = "stoneweight-storage"

// State is the persisted client document
type State struct {
	Stones    []models.Stone       `json:"stones"`
	Models    []models.Model       `json:"models"`
	StoneSets []models.StoneSet    `json:"stoneSets"`
	History   []models.HistoryItem `json:"calculationHistory"`
}

// LoadState reads the state document. A missing document is an empty state.
// Stones written with count_per_gram are read into CountPerGram.
func LoadState(ctx context.Context, store Store) (State, error) {
	var st State

	data, ok, err := store.Load(ctx, StateKey)
	if err != nil {
		return emptyState(st), err
	}
	if !ok || len(data) == 0 {
		return emptyState(st), nil
	}

	if err := json.Unmarshal(data, &st); err != nil {
		return emptyState(State{}), fmt.Errorf("decode state: %w", err)
	}
	return emptyState(st), nil
}

// SaveState writes the state document
func SaveState(ctx context.Context, store Store, st State) error {
	data, err := json.Marshal(emptyState(st))
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	return store.Save(ctx, StateKey, data)
}

func emptyState(st State) State {
	if st.Stones == nil {
		st.Stones = []models.Stone{}
	}
	if st.Models == nil {
		st.Models = []models.Model{}
	}
	if st.StoneSets == nil {
		st.StoneSets = []models.StoneSet{}
	}
	if st.History == nil {
		st.History = []models.HistoryItem{}
	}
	return st
}
