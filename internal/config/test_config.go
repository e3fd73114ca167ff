package config

import (
	"os"

	"github.com/joho/godotenv"
)

// LoadTestConfig reads the TEST_DB_* variables used by database integration tests.
// The second value is false when no test database is configured; callers skip in that case.
func LoadTestConfig() (*Config, bool, error) {
	_ = godotenv.Load("../../.env")
	_ = godotenv.Load()

	if os.Getenv("TEST_DB_HOST") == "" {
		return nil, false, nil
	}

	port, err := intFromEnv("TEST_DB_PORT", "3306")
	if err != nil {
		return nil, false, err
	}

	cfg := &Config{Database: DatabaseConfig{
		Host:     os.Getenv("TEST_DB_HOST"),
		Port:     port,
		User:     stringFromEnv("TEST_DB_USER", "root"),
		Password: os.Getenv("TEST_DB_PASSWORD"),
		DBName:   stringFromEnv("TEST_DB_NAME", "library_test"),
	}}

	return cfg, true, nil
}
