package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/todmy/stoneweight/pkg/models"
)

func sampleSnapshot() models.Snapshot {
	return models.Snapshot{
		Stones: []models.Stone{
			{ID: "s1", Name: "Zircon", CountPerGram: 10},
			{ID: "s2", Name: "Marcasite", CountPerGram: 120.5},
		},
		Models: []models.Model{
			{ID: "m1", Name: "Ring", StockCode: "RG-1", Stones: []models.StoneQuantity{{StoneID: "s1", Quantity: 2}, {StoneID: "s2", Quantity: 3}}},
		},
		StoneSets: []models.StoneSet{
			{ID: "ss1", Name: "Halo", Stones: []models.StoneQuantity{{StoneID: "s2", Quantity: 12}}},
		},
	}
}

func TestJSONRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeJSON(&buf, sampleSnapshot()))

	got, err := DecodeJSON(&buf)
	require.NoError(t, err)
	assert.Equal(t, sampleSnapshot(), got)
}

func TestDecodeJSON_MissingArrays(t *testing.T) {
	got, err := DecodeJSON(strings.NewReader(`{"stones":[{"id":"s1","name":"Ruby","count_per_gram":"40"}],"models":[{"id":"m1","name":"Pin"}]}`))
	require.NoError(t, err)

	assert.Equal(t, 40.0, got.Stones[0].CountPerGram)
	assert.NotNil(t, got.Models[0].Stones)
	assert.Empty(t, got.Models[0].Stones)
	assert.NotNil(t, got.StoneSets)
	assert.Empty(t, got.StoneSets)
}

func TestDecodeJSON_Invalid(t *testing.T) {
	_, err := DecodeJSON(strings.NewReader(`{"stones":`))
	assert.Error(t, err)
}

func TestWriteWorkbook(t *testing.T) {
	history := []models.HistoryItem{
		{ID: "h1", ModelName: "Ring", ProductionCount: 10, TotalWeight: 2.25, Timestamp: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(&buf, sampleSnapshot(), history))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetStones, SheetModels, SheetModelStones, SheetStoneSets, SheetHistory}, f.GetSheetList())

	stones, err := f.GetRows(SheetStones)
	require.NoError(t, err)
	require.Len(t, stones, 3)
	assert.Equal(t, []string{"s2", "Marcasite", "120.5"}, stones[2])

	lines, err := f.GetRows(SheetModelStones)
	require.NoError(t, err)
	require.Len(t, lines, 4)
	assert.Equal(t, []string{"model", "m1", "s2", "Marcasite", "3"}, lines[2])
	assert.Equal(t, []string{"stone_set", "ss1", "s2", "Marcasite", "12"}, lines[3])

	hist, err := f.GetRows(SheetHistory)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, "2024-05-01T10:00:00Z", hist[1][4])
}
