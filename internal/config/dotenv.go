package config

import (
	"os"
	"sync"

	"github.com/joho/godotenv"
)

var dotenvOnce sync.Once

// LoadDotenv loads a .env file once per process. ENV_FILE names the file
// (default ./.env), NO_DOTENV=1 disables loading, and DOTENV_OVERLOAD=1 lets
// the file override variables already set.
func LoadDotenv() {
	dotenvOnce.Do(loadDotenv)
}

func loadDotenv() {
	if os.Getenv("NO_DOTENV") == "1" {
		return
	}
	path := os.Getenv("ENV_FILE")
	if path == "" {
		path = ".env"
	}
	if os.Getenv("DOTENV_OVERLOAD") == "1" {
		_ = godotenv.Overload(path)
		return
	}
	_ = godotenv.Load(path)
}
