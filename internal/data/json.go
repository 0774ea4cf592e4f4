package data

import (
	"encoding/json"
	"os"

	"quant-backtest/internal/model"
)

// BarsFile is the on-disk JSON layout for cached bars.
type BarsFile struct {
	Source    string      `json:"source,omitempty"`
	UpdatedAt string      `json:"updated_at,omitempty"` // ISO 8601 timestamp
	Data      []model.Bar `json:"data"`
}

func LoadBarsJSON(path string) ([]model.Bar, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file BarsFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, err
	}
	model.SortBars(file.Data)
	return file.Data, nil
}

func SaveBarsJSON(path string, file *BarsFile) error {
	raw, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0644)
}

// GroupByTicker splits bars into ticker-keyed slices.
func GroupByTicker(bars []model.Bar) map[string][]model.Bar {
	out := map[string][]model.Bar{}
	for _, b := range bars {
		out[b.Ticker] = append(out[b.Ticker], b)
	}
	return out
}
