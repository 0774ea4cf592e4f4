package handlers

import (
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"quant-backtest/internal/api/models"
	"quant-backtest/internal/config"
)

// PresetHandler lists the run configuration presets usable as costs_file.
type PresetHandler struct {
	presetDir string
	logger    *slog.Logger
}

// NewPresetHandler creates a handler reading presets from dir.
func NewPresetHandler(dir string, logger *slog.Logger) *PresetHandler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	logger.Info("preset directory", "dir", dir)
	return &PresetHandler{presetDir: dir, logger: logger}
}

// Dir returns the absolute preset directory.
func (h *PresetHandler) Dir() string { return h.presetDir }

// ListPresets handles GET /api/v1/presets
func (h *PresetHandler) ListPresets(c *gin.Context) {
	presets := []models.PresetInfo{}

	entries, err := os.ReadDir(h.presetDir)
	if err != nil {
		h.logger.Warn("failed to read preset directory", "dir", h.presetDir, "err", err)
		c.JSON(http.StatusOK, gin.H{"presets": presets})
		return
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(h.presetDir, entry.Name())
		info, err := loadPresetInfo(path, entry.Name())
		if err != nil {
			h.logger.Warn("skipping invalid preset", "path", path, "err", err)
			continue
		}
		presets = append(presets, *info)
	}

	h.logger.Debug("listed presets", "count", len(presets))
	c.JSON(http.StatusOK, gin.H{"presets": presets})
}

func loadPresetInfo(path, filename string) (*models.PresetInfo, error) {
	cfg, err := config.LoadUnchecked(path)
	if err != nil {
		return nil, err
	}
	// "retail.yaml" -> "retail"
	id := strings.TrimSuffix(filename, ".yaml")
	name := cfg.Name
	if name == "" {
		name = id
	}
	return &models.PresetInfo{
		ID:        id,
		Name:      name,
		File:      path,
		Frequency: cfg.Backtest.Frequency,
		Costs: models.PresetCosts{
			InitialCapital: cfg.Backtest.InitialCapital,
			CommissionBps:  cfg.Backtest.CommissionBps,
			SlippageBps:    cfg.Backtest.SlippageBps,
		},
	}, nil
}
