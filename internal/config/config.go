package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

// Output modes for the workbook writer.
const (
	OutputInPlace = "inplace"
	OutputDerived = "derived"
)

// Extractor modes.
const (
	ExtractorAI    = "ai"
	ExtractorRegex = "regex"
)

// Config holds all the settings for a scrape run.
type Config struct {
	InputFile  string
	OutputMode string
	Extractor  string

	AIEndpoint string
	AIKey      string
	AIModel    string

	Headless    bool
	UserAgent   string
	PageTimeout time.Duration
	RowDelay    time.Duration
	TextLimit   int
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; missing files are not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		InputFile:   envString("INPUT_FILE", "test.xlsm"),
		OutputMode:  envString("OUTPUT_MODE", OutputInPlace),
		Extractor:   envString("EXTRACTOR", ExtractorAI),
		AIEndpoint:  os.Getenv("AI_API_URL"),
		AIKey:       os.Getenv("AI_API_KEY"),
		AIModel:     envString("AI_MODEL", "gemini-2.5-flash"),
		Headless:    envBool("HEADLESS", true),
		UserAgent:   envString("USER_AGENT", defaultUserAgent),
		PageTimeout: envDuration("PAGE_TIMEOUT", 30*time.Second),
		RowDelay:    envDuration("ROW_DELAY", 3*time.Second),
		TextLimit:   envInt("TEXT_LIMIT", 8000),
	}

	switch cfg.OutputMode {
	case OutputInPlace, OutputDerived:
	default:
		return nil, fmt.Errorf("invalid OUTPUT_MODE %q (want %q or %q)",
			cfg.OutputMode, OutputInPlace, OutputDerived)
	}

	switch cfg.Extractor {
	case ExtractorRegex:
	case ExtractorAI:
		if cfg.AIEndpoint == "" {
			log.Warn("AI_API_URL not set, continuing with regex extraction")
			cfg.Extractor = ExtractorRegex
		}
	default:
		return nil, fmt.Errorf("invalid EXTRACTOR %q (want %q or %q)",
			cfg.Extractor, ExtractorAI, ExtractorRegex)
	}

	return cfg, nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Warn("invalid boolean in environment, using default", "key", key, "value", v)
		return fallback
	}
	return b
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warn("invalid integer in environment, using default", "key", key, "value", v)
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Warn("invalid duration in environment, using default", "key", key, "value", v)
		return fallback
	}
	return d
}
