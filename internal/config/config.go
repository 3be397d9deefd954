package config

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr string
	DataDir  string
	DBPath   string
	WebDir   string

	JWTSecret      string
	TokenTTL       time.Duration
	BootstrapToken string

	OpenAIAPIKey    string
	OpenAIModel     string
	AnthropicAPIKey string
	AnthropicModel  string
	MaxTokens       int
}

func Load() Config {
	loadDotEnv(".env")
	dataDir := getEnv("TASKFLOW_DATA_DIR", "data")
	return Config{
		HTTPAddr: getEnv("TASKFLOW_HTTP_ADDR", ":8080"),
		DataDir:  dataDir,
		DBPath:   getEnv("TASKFLOW_DB_PATH", filepath.Join(dataDir, "taskflow.db")),
		WebDir:   getEnv("TASKFLOW_WEB_DIR", "web"),

		JWTSecret:      getEnv("TASKFLOW_JWT_SECRET", ""),
		TokenTTL:       getDuration("TASKFLOW_TOKEN_TTL", 30*time.Minute),
		BootstrapToken: getEnv("TASKFLOW_BOOTSTRAP_TOKEN", ""),

		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:     getEnv("TASKFLOW_OPENAI_MODEL", "gpt-4-turbo-preview"),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicModel:  getEnv("TASKFLOW_ANTHROPIC_MODEL", "claude-3-5-sonnet-latest"),
		MaxTokens:       getInt("TASKFLOW_MAX_TOKENS", 1024),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func loadDotEnv(path string) {
	file, err := os.Open(path)
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "export ") {
			line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		value = strings.TrimSpace(value)
		value = strings.Trim(value, `"'`)
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		_ = os.Setenv(key, value)
	}
}
