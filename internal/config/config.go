package config

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

type Config struct {
	HTTPAddr     string
	DataDir      string
	DBPath       string
	HistoryPath  string
	ImagesPath   string
	WorkspaceDir string
	ImageOutDir  string

	AgentName    string
	UserID       string
	Instructions string

	OpenAIAPIKey  string
	OpenAIBaseURL string
	Model         string

	Temperature      float64
	ReasoningEffort  string
	ReasoningSummary string
	Verbosity        string
	MaxTurns         int
	ImageGeneration  bool
	TimestampInput   bool
}

func Load() Config {
	loadDotEnv(".env")
	dataDir := getEnv("ASSISTANT_DATA_DIR", "data")
	return Config{
		HTTPAddr:     getEnv("ASSISTANT_HTTP_ADDR", ":8080"),
		DataDir:      dataDir,
		DBPath:       getEnv("ASSISTANT_DB_PATH", filepath.Join(dataDir, "assistant.db")),
		HistoryPath:  getEnv("ASSISTANT_HISTORY_PATH", filepath.Join(dataDir, "chat_history.json")),
		ImagesPath:   getEnv("ASSISTANT_IMAGES_PATH", filepath.Join(dataDir, "generated_images.json")),
		WorkspaceDir: getEnv("ASSISTANT_WORKSPACE_DIR", filepath.Join(dataDir, "workspace")),
		ImageOutDir:  getEnv("ASSISTANT_IMAGE_OUT_DIR", filepath.Join(dataDir, "images")),

		AgentName:    getEnv("ASSISTANT_AGENT_NAME", "Assistant"),
		UserID:       getEnv("ASSISTANT_USER_ID", "default"),
		Instructions: getEnv("ASSISTANT_INSTRUCTIONS", ""),

		OpenAIAPIKey:  getEnv("ASSISTANT_OPENAI_API_KEY", os.Getenv("OPENAI_API_KEY")),
		OpenAIBaseURL: getEnv("ASSISTANT_OPENAI_BASE_URL", ""),
		Model:         getEnv("ASSISTANT_MODEL", "gpt-5"),

		Temperature:      getEnvFloat("ASSISTANT_TEMPERATURE", 0),
		ReasoningEffort:  getEnv("ASSISTANT_REASONING_EFFORT", "medium"),
		ReasoningSummary: getEnv("ASSISTANT_REASONING_SUMMARY", "auto"),
		Verbosity:        getEnv("ASSISTANT_VERBOSITY", ""),
		MaxTurns:         getEnvInt("ASSISTANT_MAX_TURNS", 10),
		ImageGeneration:  getEnvBool("ASSISTANT_IMAGE_GENERATION", true),
		TimestampInput:   getEnvBool("ASSISTANT_TIMESTAMP_INPUT", true),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
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
