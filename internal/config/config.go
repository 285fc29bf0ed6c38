package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DataDir     string
	CatalogPath string
	SheetName   string
	DBPath      string
	OutputDir   string

	SentinelCategories []string

	RecordRuns       bool
	WatchIntervalSec int
	MetricsAddr      string
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DataDir:     getEnv("DATA_DIR", filepath.Join(cwd, "data")),
		CatalogPath: getEnv("OUTLET_CATALOG", ""),
		SheetName:   getEnv("SHEET_NAME", ""),
		DBPath:      getEnv("DB_PATH", filepath.Join(cwd, "data", "aging.db")),
		OutputDir:   getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),

		SentinelCategories: getEnvList("SENTINEL_CATEGORIES", []string{"TOTAL", "GRAND TOTAL"}),

		RecordRuns:       getEnvBool("RECORD_RUNS", true),
		WatchIntervalSec: getEnvInt("WATCH_INTERVAL_SEC", 30),
		MetricsAddr:      getEnv("METRICS_ADDR", ""),
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	out := []string{}
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
