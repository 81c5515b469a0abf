package export

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/todmy/stoneweight/pkg/models"
)

// Sheet names of the workbook export
const (
	SheetStones      = "stones"
	SheetModels      = "models"
	SheetModelStones = "model_stones"
	SheetStoneSets   = "stone_sets"
	SheetHistory     = "history"
)

// EncodeJSON writes the snapshot as an indented document
func EncodeJSON(w io.Writer, snap models.Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(normalize(snap))
}

// DecodeJSON reads a snapshot. Missing arrays come back empty.
func DecodeJSON(r io.Reader) (models.Snapshot, error) {
	var snap models.Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return models.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return normalize(snap), nil
}

func normalize(snap models.Snapshot) models.Snapshot {
	if snap.Stones == nil {
		snap.Stones = []models.Stone{}
	}
	if snap.Models == nil {
		snap.Models = []models.Model{}
	}
	if snap.StoneSets == nil {
		snap.StoneSets = []models.StoneSet{}
	}
	for i := range snap.Models {
		if snap.Models[i].Stones == nil {
			snap.Models[i].Stones = []models.StoneQuantity{}
		}
	}
	for i := range snap.StoneSets {
		if snap.StoneSets[i].Stones == nil {
			snap.StoneSets[i].Stones = []models.StoneQuantity{}
		}
	}
	return snap
}

// WriteWorkbook renders the snapshot and history as an XLSX workbook with
// one sheet per table
func WriteWorkbook(w io.Writer, snap models.Snapshot, history []models.HistoryItem) error {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", SheetStones)
	for _, name := range []string{SheetModels, SheetModelStones, SheetStoneSets, SheetHistory} {
		if _, err := f.NewSheet(name); err != nil {
			return err
		}
	}

	stoneNames := make(map[string]string, len(snap.Stones))

	rows := [][]interface{}{{"id", "name", "countPerGram"}}
	for _, s := range snap.Stones {
		stoneNames[s.ID] = s.Name
		rows = append(rows, []interface{}{s.ID, s.Name, s.CountPerGram})
	}
	if err := writeRows(f, SheetStones, rows); err != nil {
		return err
	}

	rows = [][]interface{}{{"id", "name", "stockCode", "category", "image"}}
	lines := [][]interface{}{{"owner", "ownerId", "stoneId", "stoneName", "quantity"}}
	for _, m := range snap.Models {
		rows = append(rows, []interface{}{m.ID, m.Name, m.StockCode, m.Category, m.Image})
		for _, l := range m.Stones {
			lines = append(lines, []interface{}{"model", m.ID, l.StoneID, stoneNames[l.StoneID], l.Quantity})
		}
	}
	if err := writeRows(f, SheetModels, rows); err != nil {
		return err
	}

	rows = [][]interface{}{{"id", "name", "description"}}
	for _, s := range snap.StoneSets {
		rows = append(rows, []interface{}{s.ID, s.Name, s.Description})
		for _, l := range s.Stones {
			lines = append(lines, []interface{}{"stone_set", s.ID, l.StoneID, stoneNames[l.StoneID], l.Quantity})
		}
	}
	if err := writeRows(f, SheetStoneSets, rows); err != nil {
		return err
	}
	if err := writeRows(f, SheetModelStones, lines); err != nil {
		return err
	}

	rows = [][]interface{}{{"id", "modelName", "productionCount", "totalWeight", "timestamp"}}
	for _, h := range history {
		rows = append(rows, []interface{}{h.ID, h.ModelName, h.ProductionCount, h.TotalWeight, h.Timestamp.UTC().Format(time.RFC3339)})
	}
	if err := writeRows(f, SheetHistory, rows); err != nil {
		return err
	}

	return f.Write(w)
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
