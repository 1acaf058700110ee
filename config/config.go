package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port         string
	AllowOrigins string
	DBPath       string
	DatasetPath  string
	PrintTarget  int
	FetchTimeout time.Duration

	// Upper bounds for a single HTTP request.
	MaxPrintTarget int
	MaxBodyBytes   int64
	FetchMaxBytes  int64
}

// Load reads the configuration from the environment. Values from envFiles
// (default ".env") never override variables that are already set.
func Load(envFiles ...string) *Config {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, path := range envFiles {
		if err := godotenv.Load(path); err != nil && !os.IsNotExist(err) {
			log.Printf("[config] could not read %s: %v", path, err)
		}
	}

	return &Config{
		Port:         getEnv("PORT", "8080"),
		AllowOrigins: getEnv("ALLOW_ORIGINS", "*"),
		DBPath:       getEnv("DB_PATH", "./data/analysis_cache.db"),
		DatasetPath:  getEnv("DATASET_PATH", "./data/countries.yaml"),
		PrintTarget:  getEnvInt("PRINT_TARGET", 100),
		FetchTimeout: getEnvDuration("FETCH_TIMEOUT", 15*time.Second),

		MaxPrintTarget: getEnvInt("MAX_PRINT_TARGET", 100000),
		MaxBodyBytes:   int64(getEnvInt("MAX_BODY_BYTES", 1<<20)),
		FetchMaxBytes:  int64(getEnvInt("FETCH_MAX_BYTES", 5<<20)),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %d", key, value, fallback)
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %s", key, value, fallback)
		return fallback
	}
	return d
}
