package receipt

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/todmy/stoneweight/pkg/models"
)

const (
	QuantityLabel = "ADET"
	WeightLabel   = "TAŞ GRAMI"
)

// Ticket is the data printed on one receipt
type Ticket struct {
	ModelName       string
	ProductionCount int
	TotalWeight     float64
	Timestamp       time.Time
}

// TicketFromHistory builds a ticket from a committed history entry
func TicketFromHistory(item models.HistoryItem) Ticket {
	return Ticket{
		ModelName:       item.ModelName,
		ProductionCount: item.ProductionCount,
		TotalWeight:     item.TotalWeight,
		Timestamp:       item.Timestamp,
	}
}

// TicketFromResult builds a ticket from a calculation that has not been
// committed to history yet
func TicketFromResult(result *models.CalculationResult, now time.Time) Ticket {
	return Ticket{
		ModelName:       result.ModelName,
		ProductionCount: result.ProductionCount,
		TotalWeight:     result.TotalWeight,
		Timestamp:       now,
	}
}

// Block is one laid-out piece of receipt text
type Block struct {
	Kind string
	Text string
	Size float64
	Bold bool
}

const (
	BlockTitle  = "title"
	BlockModel  = "model"
	BlockValue  = "value"
	BlockLabel  = "label"
	BlockDate   = "date"
	BlockFooter = "footer"
)

// Layout decides which blocks a receipt carries, top to bottom. Value and
// label blocks come in pairs.
func Layout(t Ticket, s Settings) []Block {
	s = s.Normalize()
	var blocks []Block

	if s.ShowTitle && s.Title != "" {
		blocks = append(blocks, Block{Kind: BlockTitle, Text: s.Title, Size: s.TitleSize, Bold: s.TitleBold})
	}

	if s.ShowModel {
		name := t.ModelName
		if strings.TrimSpace(s.ModelName) != "" {
			name = s.ModelName
		}
		blocks = append(blocks, Block{Kind: BlockModel, Text: name, Size: s.FontSize + 2})
	}

	if s.ShowQuantity {
		blocks = append(blocks,
			Block{Kind: BlockValue, Text: fmt.Sprintf("%d", t.ProductionCount), Size: s.FontSize + 4, Bold: true},
			Block{Kind: BlockLabel, Text: QuantityLabel, Size: s.FontSize - 2},
		)
	}
	blocks = append(blocks,
		Block{Kind: BlockValue, Text: fmt.Sprintf("%.2f", t.TotalWeight), Size: s.FontSize + 4, Bold: true},
		Block{Kind: BlockLabel, Text: WeightLabel, Size: s.FontSize - 2},
	)

	if s.ShowDate && !t.Timestamp.IsZero() {
		blocks = append(blocks, Block{Kind: BlockDate, Text: t.Timestamp.Local().Format("02.01.2006 15:04"), Size: s.FontSize - 2})
	}

	if s.ShowFooter && s.FooterText != "" {
		blocks = append(blocks, Block{Kind: BlockFooter, Text: s.FooterText, Size: s.FooterFontSize})
	}

	return blocks
}

// core fonts are cp1252; these letters have no glyph there
var cp1252Fallback = strings.NewReplacer(
	"Ş", "S", "ş", "s",
	"Ğ", "G", "ğ", "g",
	"İ", "I", "ı", "i",
)

const ptToMM = 25.4 / 72

// Render writes a single-page PDF of exactly WidthMM x HeightMM
func Render(w io.Writer, t Ticket, s Settings) error {
	s = s.Normalize()

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           gofpdf.SizeType{Wd: s.WidthMM, Ht: s.HeightMM},
	})
	pdf.SetMargins(s.MarginMM, s.MarginMM, s.MarginMM)
	pdf.SetAutoPageBreak(false, 0)

	family := s.FontFamily
	translate := func(text string) string { return text }
	if s.FontFile != "" {
		family = "receipt"
		pdf.AddUTF8Font(family, "", s.FontFile)
		pdf.AddUTF8Font(family, "B", s.FontFile)
	} else {
		tr := pdf.UnicodeTranslatorFromDescriptor("")
		translate = func(text string) string { return tr(cp1252Fallback.Replace(text)) }
	}

	pdf.AddPage()

	blocks := Layout(t, s)
	contentW := s.WidthMM - 2*s.MarginMM

	var values, labels []Block
	flush := func() {
		if len(values) > 0 {
			drawDetails(pdf, values, labels, contentW, family, translate)
			values, labels = nil, nil
		}
	}
	for _, b := range blocks {
		switch b.Kind {
		case BlockValue:
			values = append(values, b)
		case BlockLabel:
			labels = append(labels, b)
		case BlockFooter:
			// pinned to the bottom edge below
		default:
			flush()
			drawBlock(pdf, b, contentW, family, translate)
			if b.Kind == BlockTitle {
				dashedRule(pdf, s, pdf.GetY()+1)
				pdf.SetY(pdf.GetY() + 4)
			}
		}
	}
	flush()

	for _, b := range blocks {
		if b.Kind != BlockFooter {
			continue
		}
		h := b.Size * ptToMM * 1.5
		y := s.HeightMM - s.MarginMM - h
		dashedRule(pdf, s, y-1)
		pdf.SetY(y)
		drawBlock(pdf, b, contentW, family, translate)
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render receipt: %w", err)
	}
	return pdf.Output(w)
}

func drawBlock(pdf *gofpdf.Fpdf, b Block, width float64, family string, translate func(string) string) {
	style := ""
	if b.Bold {
		style = "B"
	}
	pdf.SetFont(family, style, b.Size)
	h := b.Size * ptToMM * 1.5
	pdf.CellFormat(width, h, translate(b.Text), "", 1, "C", false, 0, "")
}

func dashedRule(pdf *gofpdf.Fpdf, s Settings, y float64) {
	pdf.SetDashPattern([]float64{1, 1}, 0)
	pdf.Line(s.MarginMM, y, s.WidthMM-s.MarginMM, y)
	pdf.SetDashPattern([]float64{}, 0)
}

// drawDetails places value/label pairs side by side in equal columns
func drawDetails(pdf *gofpdf.Fpdf, values, labels []Block, width float64, family string, translate func(string) string) {
	col := width / float64(len(values))
	left, _, _, _ := pdf.GetMargins()

	pdf.Ln(2)
	top := pdf.GetY()
	bottom := top
	for i, v := range values {
		x := left + col*float64(i)
		pdf.SetXY(x, top)
		pdf.SetFont(family, "B", v.Size)
		vh := v.Size * ptToMM * 1.5
		pdf.CellFormat(col, vh, translate(v.Text), "", 2, "C", false, 0, "")
		if i < len(labels) {
			l := labels[i]
			pdf.SetX(x)
			pdf.SetFont(family, "", l.Size)
			pdf.CellFormat(col, l.Size*ptToMM*1.5, translate(l.Text), "", 2, "C", false, 0, "")
		}
		if y := pdf.GetY(); y > bottom {
			bottom = y
		}
	}
	pdf.SetXY(left, bottom+2)
}
