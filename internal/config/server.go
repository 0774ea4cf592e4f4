package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Server holds API server settings read from the environment and an
// optional config file.
type Server struct {
	Port        string        `mapstructure:"port"`
	Env         string        `mapstructure:"env"`
	StaticDir   string        `mapstructure:"static_dir"`
	PresetDir   string        `mapstructure:"preset_dir"`
	CORSOrigins []string      `mapstructure:"cors_origins"`
	RunTTL      time.Duration `mapstructure:"run_ttl"`
	LogLevel    string        `mapstructure:"log_level"`
	LogFormat   string        `mapstructure:"log_format"`
}

// Production reports whether the server runs with API_ENV=production.
func (s *Server) Production() bool { return s.Env == "production" }

var serverEnv = map[string]string{
	"port":         "API_PORT",
	"env":          "API_ENV",
	"static_dir":   "STATIC_DIR",
	"preset_dir":   "PRESET_DIR",
	"cors_origins": "CORS_ORIGINS",
	"run_ttl":      "RUN_TTL",
	"log_level":    "LOG_LEVEL",
	"log_format":   "LOG_FORMAT",
}

// LoadServer reads server settings. Environment variables override the file;
// path may be empty.
func LoadServer(path string) (*Server, error) {
	v := viper.New()
	v.SetDefault("port", "8080")
	v.SetDefault("env", "development")
	v.SetDefault("static_dir", "./web/dist")
	v.SetDefault("preset_dir", "./examples/configs")
	v.SetDefault("cors_origins", []string{"*"})
	v.SetDefault("run_ttl", "1h")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	for key, env := range serverEnv {
		if err := v.BindEnv(key, env); err != nil {
			return nil, err
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read server config: %w", err)
		}
	}

	var s Server
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("decode server config: %w", err)
	}
	// CORS_ORIGINS arrives as one comma-separated string
	s.CORSOrigins = splitList(strings.Join(s.CORSOrigins, ","))
	if s.RunTTL <= 0 {
		return nil, fmt.Errorf("run_ttl must be positive, got %s", s.RunTTL)
	}
	return &s, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
