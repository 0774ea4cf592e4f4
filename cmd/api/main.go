package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/gin-gonic/gin"

	"quant-backtest/internal/api"
	"quant-backtest/internal/config"
	"quant-backtest/internal/logging"
)

func main() {
	cfgPath := flag.String("config", "", "Optional server config file (yaml, json or toml)")
	flag.Parse()

	// Settings come from the environment (API_PORT, API_ENV, ...) and the optional file
	cfg, err := config.LoadServer(*cfgPath)
	if err != nil {
		log.Fatalf("Failed to load server config: %v", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	if wd, err := os.Getwd(); err == nil {
		logger.Info("working directory", "dir", wd)
	}
	if info, err := os.Stat(cfg.PresetDir); err != nil || !info.IsDir() {
		logger.Warn("preset directory not found", "dir", cfg.PresetDir)
	}

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(api.Options{
		PresetDir:   cfg.PresetDir,
		StaticDir:   cfg.StaticDir,
		CORSOrigins: cfg.CORSOrigins,
		RunTTL:      cfg.RunTTL,
	}, logger)

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	logger.Info("starting API server", "addr", addr, "env", cfg.Env)
	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
