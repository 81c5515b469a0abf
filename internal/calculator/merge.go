package calculator

import (
	"github.com/todmy/stoneweight/pkg/models"
)

// MergeStones collapses repeated stone ids into one line whose quantity is
// the sum of the repeats. Lines keep the order in which each id first
// appears. Lines with an empty stone id are dropped.
func MergeStones(lines []models.StoneQuantity) []models.StoneQuantity {
	merged := make([]models.StoneQuantity, 0, len(lines))
	pos := make(map[string]int, len(lines))

	for _, line := range lines {
		if line.StoneID == "" {
			continue
		}
		if i, ok := pos[line.StoneID]; ok {
			merged[i].Quantity += line.Quantity
			continue
		}
		pos[line.StoneID] = len(merged)
		merged = append(merged, line)
	}

	return merged
}

// ApplySet adds the lines of a stone set to a model's lines, merging stones
// that appear in both.
func ApplySet(modelStones, setStones []models.StoneQuantity) []models.StoneQuantity {
	combined := make([]models.StoneQuantity, 0, len(modelStones)+len(setStones))
	combined = append(combined, modelStones...)
	combined = append(combined, setStones...)
	return MergeStones(combined)
}
