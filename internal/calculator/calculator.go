package calculator

import (
	"github.com/todmy/stoneweight/pkg/models"
)

// UnknownStoneName labels lines whose stone is missing from the lookup.
const UnknownStoneName = "Unknown"

// StoneLookup resolves stones by id.
type StoneLookup interface {
	Stone(id string) (models.Stone, bool)
}

// StoneIndex is a map-backed StoneLookup.
type StoneIndex map[string]models.Stone

// NewStoneIndex indexes stones by id. Later duplicates win.
func NewStoneIndex(stones []models.Stone) StoneIndex {
	idx := make(StoneIndex, len(stones))
	for _, s := range stones {
		idx[s.ID] = s
	}
	return idx
}

// Stone implements StoneLookup.
func (idx StoneIndex) Stone(id string) (models.Stone, bool) {
	s, ok := idx[id]
	return s, ok
}

// mulQuantity multiplies a line quantity by the production count and
// reports false when the product does not fit in an int.
func mulQuantity(quantity, count int) (int, bool) {
	if quantity == 0 {
		return 0, true
	}
	product := quantity * count
	if product/count != quantity {
		return 0, false
	}
	return product, true
}

// Calculate computes the stone weight needed to produce productionCount
// pieces of model. It returns nil when there is no model, the count is not
// positive, or a line quantity times the count overflows. Lines whose stone
// is unknown, or has no usable countPerGram, contribute zero weight.
// Duplicate stone lines are kept as separate details.
func Calculate(model *models.Model, lookup StoneLookup, productionCount int) *models.CalculationResult {
	if model == nil || productionCount <= 0 {
		return nil
	}

	details := make([]models.StoneDetail, 0, len(model.Stones))
	weights := make([]float64, 0, len(model.Stones))

	for _, line := range model.Stones {
		var (
			stone models.Stone
			found bool
		)
		if lookup != nil {
			stone, found = lookup.Stone(line.StoneID)
		}

		quantity, ok := mulQuantity(line.Quantity, productionCount)
		if !ok {
			return nil
		}

		unit := 0.0
		name := UnknownStoneName
		if found {
			unit = UnitWeight(stone.CountPerGram)
			name = stone.Name
		}

		lineWeight := Finite(unit * float64(quantity))
		weights = append(weights, lineWeight)

		details = append(details, models.StoneDetail{
			StoneID:     line.StoneID,
			StoneName:   name,
			Quantity:    quantity,
			TotalWeight: lineWeight,
		})
	}

	return &models.CalculationResult{
		ModelID:         model.ID,
		ModelName:       model.Name,
		ProductionCount: productionCount,
		TotalWeight:     SafeSum(weights),
		StoneDetails:    details,
	}
}
