package config

import "github.com/joho/godotenv"

// LoadDotEnv loads KEY=VALUE pairs from the given files (default ".env")
// into the environment. Variables already set are never overridden.
func LoadDotEnv(paths ...string) error {
	return godotenv.Load(paths...)
}
