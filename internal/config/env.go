package config

import (
	"os"
	"strconv"
	"time"
)

// LoadFromEnv overrides configuration from environment variables
func LoadFromEnv(cfg *Config) {
	if level := os.Getenv("ARRAYLIST_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if dev := os.Getenv("ARRAYLIST_LOG_DEVELOPMENT"); dev != "" {
		if b, err := strconv.ParseBool(dev); err == nil {
			cfg.Log.Development = b
		}
	}

	if port := os.Getenv("ARRAYLIST_METRICS_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.MetricsPort = p
		}
	}
	if timeout := os.Getenv("ARRAYLIST_SHUTDOWN_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			cfg.Server.ShutdownTimeout = d
		}
	}

	// Soak settings
	if lists := os.Getenv("ARRAYLIST_SOAK_LISTS"); lists != "" {
		if n, err := strconv.Atoi(lists); err == nil {
			cfg.Soak.Lists = n
		}
	}
	if ops := os.Getenv("ARRAYLIST_SOAK_OPERATIONS"); ops != "" {
		if n, err := strconv.Atoi(ops); err == nil {
			cfg.Soak.Operations = n
		}
	}
	if r := os.Getenv("ARRAYLIST_SOAK_RATE"); r != "" {
		if f, err := strconv.ParseFloat(r, 64); err == nil {
			cfg.Soak.RatePerSecond = f
		}
	}
	if slots := os.Getenv("ARRAYLIST_SOAK_BUDGET_SLOTS"); slots != "" {
		if n, err := strconv.Atoi(slots); err == nil {
			cfg.Soak.BudgetSlots = n
		}
	}
	if idle := os.Getenv("ARRAYLIST_SOAK_POOL_IDLE"); idle != "" {
		if n, err := strconv.Atoi(idle); err == nil {
			cfg.Soak.PoolIdle = n
		}
	}
	if seed := os.Getenv("ARRAYLIST_SOAK_SEED"); seed != "" {
		if n, err := strconv.ParseUint(seed, 10, 64); err == nil {
			cfg.Soak.Seed = n
		}
	}

	if path := os.Getenv("ARRAYLIST_SOAK_REPORT_PATH"); path != "" {
		cfg.Soak.ReportPath = path
	}

	if minCap := os.Getenv("ARRAYLIST_MIN_CAPACITY"); minCap != "" {
		if n, err := strconv.Atoi(minCap); err == nil {
			cfg.Policy.MinCapacity = n
		}
	}
	if maxCap := os.Getenv("ARRAYLIST_MAX_CAPACITY"); maxCap != "" {
		if n, err := strconv.Atoi(maxCap); err == nil {
			cfg.Policy.MaxCapacity = n
		}
	}
}

// GetEnvOrDefault returns environment variable or default value
func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
