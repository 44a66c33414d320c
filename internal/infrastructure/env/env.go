package env

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"removal-agent/internal/application/port/output"

	"github.com/joho/godotenv"
)

var _ output.ConfigPort = (*EnvService)(nil)

type EnvService struct{}

// NewEnvService loads .env, then overlays .env.$APP_ENV (default dev).
// Variables already set in the process keep precedence over .env.
func NewEnvService() *EnvService {
	appEnv := os.Getenv("APP_ENV")
	if appEnv == "" {
		appEnv = "dev"
	}
	return LoadFiles(".env", fmt.Sprintf(".env.%s", appEnv))
}

// LoadFiles loads base with Load and every overlay with Overload. Missing files
// are skipped.
func LoadFiles(base string, overlays ...string) *EnvService {
	if err := godotenv.Load(base); err != nil {
		log.Printf("Info: no %s file with secrets found (this is OK for CI/CD)", base)
	}

	for _, f := range overlays {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Overload(f); err != nil {
			log.Printf("Warning: could not load %s: %v", f, err)
		}
	}

	return &EnvService{}
}

func (e *EnvService) Get(key string) string {
	return os.Getenv(key)
}

func (e *EnvService) MustGet(key string) string {
	val := os.Getenv(key)
	if val == "" {
		log.Fatalf("ENV %s is missing", key)
	}
	return val
}

func (e *EnvService) GetWithDefault(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}

func (e *EnvService) GetBool(key string, defaultValue bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func (e *EnvService) GetInt(key string, defaultValue int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return parsed
}
