// Package config загружает конфигурацию инструментов реестра из
// JSON-файла с перекрытием переменными окружения.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config конфигурация инструментов импорта и обновления.
type Config struct {
	// База данных
	DatabasePath string `json:"database_path"`

	// Импорт
	BatchSize  int  `json:"batch_size"`
	SkipByDate bool `json:"skip_by_date"`

	// Обновление по страницам реестра
	Scraper ScraperConfig `json:"scraper"`
}

// ScraperConfig параметры обхода реестра.
type ScraperConfig struct {
	BaseURL     string        `json:"base_url"`
	Delay       time.Duration `json:"-"`
	DelayMS     int           `json:"delay_ms"`
	JitterMS    int           `json:"jitter_ms"`
	TimeoutMS   int           `json:"timeout_ms"`
	MaxRequests int           `json:"max_requests"`
	UserAgent   string        `json:"user_agent"`
}

// DefaultConfig конфигурация по умолчанию.
func DefaultConfig() *Config {
	return &Config{
		DatabasePath: "./data/registry.db",
		BatchSize:    500,
		SkipByDate:   true,
		Scraper: ScraperConfig{
			DelayMS:   3000,
			JitterMS:  2000,
			TimeoutMS: 30000,
			UserAgent: "Mozilla/5.0 (X11; Linux x86_64) ipregistry-updater",
		},
	}
}

// Load читает конфигурацию: файл (если путь непустой), затем переменные
// окружения поверх. Отсутствующий файл при пустом пути не ошибка.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("IPREGISTRY_DB_PATH"); v != "" {
		cfg.DatabasePath = v
	}
	if v := os.Getenv("IPREGISTRY_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.BatchSize = n
		}
	}
	if v := os.Getenv("IPREGISTRY_SKIP_BY_DATE"); v != "" {
		cfg.SkipByDate = v == "1" || v == "true"
	}
	if v := os.Getenv("IPREGISTRY_SCRAPER_BASE_URL"); v != "" {
		cfg.Scraper.BaseURL = v
	}
	if v := os.Getenv("IPREGISTRY_SCRAPER_DELAY_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Scraper.DelayMS = n
		}
	}
}
