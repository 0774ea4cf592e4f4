package data

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Instrument represents a tradable symbol in the research universe.
type Instrument struct {
	Ticker   string `json:"ticker"`
	Name     string `json:"name"`
	Exchange string `json:"exchange"` // e.g., "IST"
	Currency string `json:"currency"` // e.g., "TRY"
	Type     string `json:"type"`     // e.g., "EQUITY", "INDEX"
	BIST100  bool   `json:"bist100"`
}

// Universe represents a collection of instruments.
type Universe struct {
	Benchmark   string       `json:"benchmark,omitempty"`
	UpdatedAt   string       `json:"updated_at"` // ISO 8601 timestamp
	Instruments []Instrument `json:"instruments"`
}

// Tickers lists the instrument tickers in file order.
func (u *Universe) Tickers() []string {
	out := make([]string, len(u.Instruments))
	for i, in := range u.Instruments {
		out[i] = in.Ticker
	}
	return out
}

// LoadUniverse loads a universe from a JSON file.
func LoadUniverse(filePath string) (*Universe, error) {
	raw, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read universe file: %w", err)
	}

	var u Universe
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, fmt.Errorf("failed to parse universe file: %w", err)
	}

	return &u, nil
}

// SaveUniverse saves a universe to a JSON file.
func SaveUniverse(u *Universe, filePath string) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	raw, err := json.MarshalIndent(u, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal universe: %w", err)
	}

	if err := os.WriteFile(filePath, raw, 0644); err != nil {
		return fmt.Errorf("failed to write universe file: %w", err)
	}

	return nil
}

// DefaultUniversePath returns UNIVERSE_FILE or ./data/universe.json.
func DefaultUniversePath() string {
	if path := os.Getenv("UNIVERSE_FILE"); path != "" {
		return path
	}
	return "./data/universe.json"
}
