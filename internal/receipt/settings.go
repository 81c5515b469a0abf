package receipt

import (
	"errors"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Settings describes the layout of a printed receipt. Sizes are in
// millimetres, font sizes in points.
type Settings struct {
	Title          string  `yaml:"title" json:"title"`
	ShowTitle      bool    `yaml:"show_title" json:"showTitle"`
	TitleSize      float64 `yaml:"title_size" json:"titleSize"`
	TitleBold      bool    `yaml:"title_bold" json:"titleBold"`
	FontFamily     string  `yaml:"font_family" json:"fontFamily"`
	FontFile       string  `yaml:"font_file" json:"fontFile,omitempty"`
	FontSize       float64 `yaml:"font_size" json:"fontSize"`
	FooterFontSize float64 `yaml:"footer_font_size" json:"footerFontSize"`
	ShowModel      bool    `yaml:"show_model" json:"showModel"`
	ModelName      string  `yaml:"model_name" json:"modelName"`
	ShowQuantity   bool    `yaml:"show_quantity" json:"showQuantity"`
	ShowFooter     bool    `yaml:"show_footer" json:"showFooter"`
	FooterText     string  `yaml:"footer_text" json:"footerText"`
	ShowDate       bool    `yaml:"show_date" json:"showDate"`
	WidthMM        float64 `yaml:"width_mm" json:"widthMM"`
	HeightMM       float64 `yaml:"height_mm" json:"heightMM"`
	MarginMM       float64 `yaml:"margin_mm" json:"marginMM"`
}

// DefaultSettings returns the stock receipt layout
func DefaultSettings() Settings {
	return Settings{
		Title:          "TAŞTAŞ TAŞ HESABI",
		ShowTitle:      true,
		TitleSize:      16,
		TitleBold:      true,
		FontFamily:     "Arial",
		FontSize:       12,
		FooterFontSize: 10,
		ShowModel:      true,
		ShowQuantity:   true,
		ShowFooter:     true,
		FooterText:     "Teşekkür Ederiz",
		WidthMM:        80,
		HeightMM:       150,
		MarginMM:       5,
	}
}

// Normalize replaces unusable sizes with defaults
func (s Settings) Normalize() Settings {
	d := DefaultSettings()
	if s.WidthMM <= 0 {
		s.WidthMM = d.WidthMM
	}
	if s.HeightMM <= 0 {
		s.HeightMM = d.HeightMM
	}
	if s.MarginMM < 0 || s.MarginMM*2 >= s.WidthMM || s.MarginMM*2 >= s.HeightMM {
		s.MarginMM = d.MarginMM
	}
	if s.FontSize <= 0 {
		s.FontSize = d.FontSize
	}
	if s.TitleSize <= 0 {
		s.TitleSize = d.TitleSize
	}
	if s.FooterFontSize <= 0 {
		s.FooterFontSize = d.FooterFontSize
	}
	s.FontFamily = coreFont(s.FontFamily)
	return s
}

// coreFont maps a CSS-style font family list onto one of the PDF core
// fonts. Unknown families print in Arial.
func coreFont(family string) string {
	if i := strings.Index(family, ","); i >= 0 {
		family = family[:i]
	}
	name := strings.ToLower(strings.Trim(strings.TrimSpace(family), `"'`))

	switch {
	case strings.HasPrefix(name, "times"):
		return "Times"
	case strings.HasPrefix(name, "courier"):
		return "Courier"
	case strings.HasPrefix(name, "helvetica"):
		return "Helvetica"
	default:
		return "Arial"
	}
}

// LoadSettings reads a YAML layout file over the defaults. An empty path or
// a missing file yields the defaults.
func LoadSettings(path string) (Settings, error) {
	s := DefaultSettings()
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return s, err
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, err
	}
	return s.Normalize(), nil
}
