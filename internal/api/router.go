package api

import (
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"quant-backtest/internal/api/handlers"
	"quant-backtest/internal/api/middleware"
	"quant-backtest/internal/data"
	"quant-backtest/internal/model"
)

// Options configures NewRouter.
type Options struct {
	PresetDir    string
	StaticDir    string // empty disables static file serving
	UniverseFile string // empty uses data.DefaultUniversePath
	CORSOrigins  []string
	RunTTL       time.Duration

	Yahoo  *data.YahooClient
	Remote *data.RemoteClient
	Runs   *handlers.RunStore // created from RunTTL when nil
}

// NewRouter wires every handler and middleware.
func NewRouter(opts Options, logger *slog.Logger) *gin.Engine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Yahoo == nil {
		opts.Yahoo = data.NewYahooClient("", 2, logger)
		opts.Yahoo.Cache = data.CacheFromEnv[[]model.Bar]()
	}
	if opts.Remote == nil {
		opts.Remote = data.NewRemoteClient(logger)
	}
	if opts.Runs == nil {
		ttl := opts.RunTTL
		if ttl <= 0 {
			ttl = time.Hour
		}
		opts.Runs = handlers.NewRunStore(ttl)
	}

	router := gin.New()
	router.Use(middleware.CORS(opts.CORSOrigins))
	router.Use(middleware.Logger(logger))
	router.Use(middleware.ErrorHandler(logger))

	prices := handlers.NewPriceLoader(opts.Yahoo, opts.Remote)
	backtestHandler := handlers.NewBacktestHandler(prices, opts.Runs, opts.PresetDir, logger)
	presetHandler := handlers.NewPresetHandler(opts.PresetDir, logger)
	strategyHandler := handlers.NewStrategyHandler()
	rankHandler := handlers.NewRankHandler(prices)
	riskHandler := handlers.NewRiskHandler(prices, logger)
	universeHandler := handlers.NewUniverseHandler(opts.UniverseFile)
	dashboardHandler := handlers.NewDashboardHandler(opts.Runs)

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "runs": opts.Runs.Len()})
	})

	// API routes
	v1 := router.Group("/api/v1")
	{
		v1.POST("/backtest", backtestHandler.RunBacktest)
		v1.GET("/backtest/:id/equity", backtestHandler.GetEquity)
		v1.GET("/backtest/:id/ledger", backtestHandler.GetLedger)
		v1.POST("/backtest/compare", backtestHandler.CompareBacktests)

		v1.GET("/presets", presetHandler.ListPresets)
		v1.GET("/strategies", strategyHandler.ListStrategies)

		v1.POST("/rank", rankHandler.RankInstruments)

		v1.POST("/optimize", riskHandler.Optimize)
		v1.POST("/stress", riskHandler.Stress)
		v1.GET("/scenarios", riskHandler.ListScenarios)

		v1.GET("/universe", universeHandler.ListUniverse)
	}

	// Dashboard
	router.GET("/api/kpis", dashboardHandler.KPIs)
	router.GET("/api/equity-curve", dashboardHandler.EquityCurve)

	serveStatic(router, opts.StaticDir, logger)
	return router
}

// serveStatic serves a built single page app, falling back to index.html
// for every non-API route.
func serveStatic(router *gin.Engine, staticDir string, logger *slog.Logger) {
	notFound := func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": "NOT_FOUND", "message": "Not found"}})
	}
	if staticDir == "" {
		router.NoRoute(notFound)
		return
	}
	if _, err := os.Stat(staticDir); err != nil {
		logger.Info("static directory not found, skipping static file serving", "dir", staticDir)
		router.NoRoute(notFound)
		return
	}

	router.Static("/assets", filepath.Join(staticDir, "assets"))
	router.StaticFile("/favicon.ico", filepath.Join(staticDir, "favicon.ico"))
	router.NoRoute(func(c *gin.Context) {
		// Don't serve index.html for API routes
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			notFound(c)
			return
		}
		c.File(filepath.Join(staticDir, "index.html"))
	})
	logger.Info("serving static files", "dir", staticDir)
}
