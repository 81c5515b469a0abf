package receipt

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/todmy/stoneweight/pkg/models"
)

func kinds(blocks []Block) []string {
	out := make([]string, len(blocks))
	for i, b := range blocks {
		out[i] = b.Kind
	}
	return out
}

func TestLayout_Defaults(t *testing.T) {
	ticket := Ticket{ModelName: "Ring", ProductionCount: 10, TotalWeight: 1.005}

	blocks := Layout(ticket, DefaultSettings())

	assert.Equal(t, []string{BlockTitle, BlockModel, BlockValue, BlockLabel, BlockValue, BlockLabel, BlockFooter}, kinds(blocks))
	assert.Equal(t, "TAŞTAŞ TAŞ HESABI", blocks[0].Text)
	assert.Equal(t, "Ring", blocks[1].Text)
	assert.Equal(t, "10", blocks[2].Text)
	assert.Equal(t, QuantityLabel, blocks[3].Text)
	assert.Equal(t, WeightLabel, blocks[5].Text)
	assert.Equal(t, "Teşekkür Ederiz", blocks[6].Text)
}

func TestLayout_WeightHasTwoDecimals(t *testing.T) {
	blocks := Layout(Ticket{ModelName: "x", ProductionCount: 1, TotalWeight: 6}, DefaultSettings())

	assert.Equal(t, "6.00", blocks[4].Text)
}

func TestLayout_ModelNameOverride(t *testing.T) {
	s := DefaultSettings()
	s.ModelName = "Bridal Set"
	blocks := Layout(Ticket{ModelName: "Ring"}, s)
	assert.Equal(t, "Bridal Set", blocks[1].Text)

	s.ModelName = "   "
	blocks = Layout(Ticket{ModelName: "Ring"}, s)
	assert.Equal(t, "Ring", blocks[1].Text, "blank override falls back to the ticket name")
}

func TestLayout_HiddenSections(t *testing.T) {
	s := DefaultSettings()
	s.ShowTitle = false
	s.ShowModel = false
	s.ShowQuantity = false
	s.ShowFooter = false

	blocks := Layout(Ticket{ModelName: "Ring", TotalWeight: 2}, s)

	assert.Equal(t, []string{BlockValue, BlockLabel}, kinds(blocks))
}

func TestLayout_Date(t *testing.T) {
	s := DefaultSettings()
	s.ShowDate = true
	ts := time.Date(2024, 3, 9, 14, 5, 0, 0, time.Local)

	blocks := Layout(Ticket{ModelName: "Ring", Timestamp: ts}, s)

	var date string
	for _, b := range blocks {
		if b.Kind == BlockDate {
			date = b.Text
		}
	}
	assert.Equal(t, "09.03.2024 14:05", date)
}

func TestRender_PageSize(t *testing.T) {
	var buf bytes.Buffer
	err := Render(&buf, Ticket{ModelName: "Yüzük Şahane", ProductionCount: 3, TotalWeight: 0.75}, DefaultSettings())
	require.NoError(t, err)

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "%PDF-"))
	assert.Contains(t, out, "/MediaBox [0 0 226.77 425.20]")
}

func TestRender_CustomSize(t *testing.T) {
	s := DefaultSettings()
	s.WidthMM = 58
	s.HeightMM = 100
	s.FontFamily = "Arial, sans-serif"

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, Ticket{ModelName: "Pin", ProductionCount: 1, TotalWeight: 0.1}, s))
	assert.Contains(t, buf.String(), "/MediaBox [0 0 164.41 283.46]")
}

func TestRender_FontFamilies(t *testing.T) {
	tests := []struct {
		family string
		want   string
	}{
		{"Arial", "Arial"},
		{"Helvetica", "Helvetica"},
		{"Times New Roman", "Times"},
		{"Courier New", "Courier"},
		{"'Times New Roman', serif", "Times"},
		{"Comic Sans MS", "Arial"},
		{"", "Arial"},
	}

	for _, tt := range tests {
		t.Run(tt.family, func(t *testing.T) {
			s := DefaultSettings()
			s.FontFamily = tt.family
			assert.Equal(t, tt.want, s.Normalize().FontFamily)

			var buf bytes.Buffer
			require.NoError(t, Render(&buf, Ticket{ModelName: "Ring", ProductionCount: 2, TotalWeight: 0.4}, s))
			assert.True(t, strings.HasPrefix(buf.String(), "%PDF-"))
		})
	}
}

func TestTicketAdapters(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	fromHistory := TicketFromHistory(models.HistoryItem{ID: "h1", ModelName: "Ring", ProductionCount: 2, TotalWeight: 1.5, Timestamp: ts})
	assert.Equal(t, Ticket{ModelName: "Ring", ProductionCount: 2, TotalWeight: 1.5, Timestamp: ts}, fromHistory)

	fromResult := TicketFromResult(&models.CalculationResult{ModelName: "Pin", ProductionCount: 4, TotalWeight: 0.4}, ts)
	assert.Equal(t, Ticket{ModelName: "Pin", ProductionCount: 4, TotalWeight: 0.4, Timestamp: ts}, fromResult)
}

func TestLoadSettings(t *testing.T) {
	s, err := LoadSettings("")
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), s)

	s, err = LoadSettings(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 80.0, s.WidthMM)

	path := filepath.Join(t.TempDir(), "receipt.yaml")
	require.NoError(t, os.WriteFile(path, []byte("title: ATOLYE\nwidth_mm: 58\nheight_mm: -1\nshow_footer: false\n"), 0o644))

	s, err = LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, "ATOLYE", s.Title)
	assert.Equal(t, 58.0, s.WidthMM)
	assert.Equal(t, 150.0, s.HeightMM)
	assert.False(t, s.ShowFooter)
	assert.True(t, s.ShowModel)
}
