package models

import (
	"encoding/json"
	"math"
	"strconv"
	"time"
)

// Stone is a unit of setting material defined by how many pieces weigh one gram
type Stone struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	CountPerGram float64 `json:"countPerGram"`
}

// UnmarshalJSON accepts both the camelCase field and the snake_case column
// name, since older cache files and raw database rows carry count_per_gram.
// Postgres DECIMAL values may also arrive as strings.
func (s *Stone) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID            string          `json:"id"`
		Name          string          `json:"name"`
		CountPerGram  json.RawMessage `json:"countPerGram"`
		CountPerGramS json.RawMessage `json:"count_per_gram"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	s.ID = raw.ID
	s.Name = raw.Name
	s.CountPerGram = 0

	factor := raw.CountPerGram
	if len(factor) == 0 || string(factor) == "null" {
		factor = raw.CountPerGramS
	}
	s.CountPerGram = parseLooseFloat(factor)
	return nil
}

func parseLooseFloat(raw json.RawMessage) float64 {
	if len(raw) == 0 || string(raw) == "null" {
		return 0
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// StoneQuantity is one line of a model or stone set recipe
type StoneQuantity struct {
	StoneID  string `json:"stoneId"`
	Quantity int    `json:"quantity"`
}

// Model is a jewelry design: a fixed recipe of stone quantities
type Model struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	StockCode string          `json:"stockCode,omitempty"`
	Category  string          `json:"category,omitempty"`
	Image     string          `json:"image,omitempty"`
	Stones    []StoneQuantity `json:"stones"`
}

// UnmarshalJSON accepts stock_code alongside stockCode.
func (m *Model) UnmarshalJSON(data []byte) error {
	type plain Model
	var raw struct {
		plain
		StockCodeS *string `json:"stock_code"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = Model(raw.plain)
	if m.StockCode == "" && raw.StockCodeS != nil {
		m.StockCode = *raw.StockCodeS
	}
	if m.Stones == nil {
		m.Stones = []StoneQuantity{}
	}
	return nil
}

// StoneSet is a reusable named bag of stone quantities
type StoneSet struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Stones      []StoneQuantity `json:"stones"`
}

// StoneDetail is the per-stone line of a calculation
type StoneDetail struct {
	StoneID     string  `json:"stoneId"`
	StoneName   string  `json:"stoneName"`
	Quantity    int     `json:"quantity"`
	TotalWeight float64 `json:"totalWeight"`
}

// CalculationResult is the weight breakdown for one model and production count
type CalculationResult struct {
	ModelID         string        `json:"modelId"`
	ModelName       string        `json:"modelName"`
	ProductionCount int           `json:"productionCount"`
	TotalWeight     float64       `json:"totalWeight"`
	StoneDetails    []StoneDetail `json:"stoneDetails"`
}

// HistoryItem is a frozen snapshot of a committed calculation
type HistoryItem struct {
	ID              string    `json:"id"`
	ModelName       string    `json:"modelName"`
	ProductionCount int       `json:"productionCount"`
	TotalWeight     float64   `json:"totalWeight"`
	Timestamp       time.Time `json:"timestamp"`
}

// Snapshot is the full-state bulk export document
type Snapshot struct {
	Stones    []Stone    `json:"stones"`
	Models    []Model    `json:"models"`
	StoneSets []StoneSet `json:"stoneSets"`
}

// User is an operator account
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// CompanySettingsID is the fixed key of the singleton settings row
const CompanySettingsID = "00000000-0000-0000-0000-000000000000"

// DefaultCompanyName is used when no company name has been configured
const DefaultCompanyName = "MercanSoft"

// CompanySettings holds the shop identity printed on receipts
type CompanySettings struct {
	ID          string `json:"id"`
	CompanyName string `json:"companyName"`
	LegalName   string `json:"legalName"`
	TaxOffice   string `json:"taxOffice"`
	TaxNumber   string `json:"taxNumber"`
	Address     string `json:"address"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	Website     string `json:"website"`
	Logo        string `json:"logo,omitempty"`
}

// DefaultCompanySettings returns the settings served before anything is saved
func DefaultCompanySettings() CompanySettings {
	return CompanySettings{
		ID:          CompanySettingsID,
		CompanyName: DefaultCompanyName,
	}
}
