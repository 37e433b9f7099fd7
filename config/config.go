package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// OpenAISettings groups everything needed to reach the completion API.
// APIKey and AssistantID come from the environment in any real
// deployment; config.yaml values are placeholders for local runs.
type OpenAISettings struct {
	APIKey      string `mapstructure:"api_key"`
	AssistantID string `mapstructure:"assistant_id"`
	Model       string `mapstructure:"model"`
	BaseURL     string `mapstructure:"base_url"`
}

// Config holds the application's configuration.
type Config struct {
	Server struct {
		Port string
	}
	Database struct {
		// DSN selects the quota store backend: "memory" (default) keeps
		// everything in process memory, anything else is a SQLite path.
		DSN string
	}
	OpenAI OpenAISettings `mapstructure:"openai"`

	SystemPrompt string `mapstructure:"system_prompt"`

	DailyLimit   int `mapstructure:"daily_limit"`
	TZOffsetMin  int `mapstructure:"tz_offset_min"`
	IdleResetMin int `mapstructure:"idle_reset_min"`

	// ResetPhrases are extra substring triggers appended to the built-in
	// French list in services.
	ResetPhrases []string `mapstructure:"reset_phrases"`

	HistoryLimit    int           `mapstructure:"history_limit"`
	RunPollInterval time.Duration `mapstructure:"run_poll_interval"`
	RunPollMax      int           `mapstructure:"run_poll_max"`
}

// AppConfig is the global configuration instance.
var AppConfig Config

// LoadConfig loads configuration from .env, config.yaml and environment
// variables, in increasing order of precedence.
func LoadConfig() {
	// .env is optional; it mirrors the original Vercel-style deployment
	// where everything arrives as environment variables.
	if err := godotenv.Load(); err == nil {
		log.Println("INFO: [Config] Loaded environment variables from .env file.")
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../config")

	viper.SetDefault("server.port", "8080")
	viper.SetDefault("database.dsn", "memory")
	viper.SetDefault("openai.model", "gpt-4o-mini")
	viper.SetDefault("daily_limit", 20)
	viper.SetDefault("tz_offset_min", 0)
	viper.SetDefault("idle_reset_min", 30)
	viper.SetDefault("history_limit", 10)
	viper.SetDefault("run_poll_interval", 600*time.Millisecond)
	viper.SetDefault("run_poll_max", 40)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("WARN: [Config] Configuration file (config.yaml) not found. Using environment variables and defaults.")
		} else {
			log.Fatalf("FATAL: [Config] Error reading configuration file: %v", err)
		}
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("FATAL: [Config] Failed to unmarshal configuration into AppConfig struct: %v", err)
	}

	// Environment variable overrides. The names match the original
	// deployment so existing secrets keep working unchanged.
	if port := os.Getenv("SERVER_PORT"); port != "" {
		AppConfig.Server.Port = port
		log.Printf("INFO: [Config] Server port overridden by environment variable SERVER_PORT: %s", port)
	}
	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		AppConfig.Database.DSN = dsn
		log.Println("INFO: [Config] Database DSN overridden by environment variable DATABASE_DSN.")
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		AppConfig.OpenAI.APIKey = key
		log.Println("INFO: [Config] Loaded OpenAI API key from environment variable OPENAI_API_KEY.")
	}
	if id := os.Getenv("UNIBOT_ASSISTANT_ID"); id != "" {
		AppConfig.OpenAI.AssistantID = id
		log.Println("INFO: [Config] Loaded assistant ID from environment variable UNIBOT_ASSISTANT_ID.")
	}
	if model := os.Getenv("OPENAI_MODEL"); model != "" {
		AppConfig.OpenAI.Model = model
		log.Printf("INFO: [Config] OpenAI model overridden by environment variable OPENAI_MODEL: %s", model)
	}
	if base := os.Getenv("OPENAI_BASE_URL"); base != "" {
		AppConfig.OpenAI.BaseURL = base
		log.Printf("INFO: [Config] OpenAI base URL overridden by environment variable OPENAI_BASE_URL: %s", base)
	}
	overrideInt("DAILY_LIMIT", &AppConfig.DailyLimit)
	overrideInt("TZ_OFFSET_MIN", &AppConfig.TZOffsetMin)
	overrideInt("IDLE_RESET_MIN", &AppConfig.IdleResetMin)

	if AppConfig.OpenAI.APIKey == "" {
		log.Println("WARN: [Config] OPENAI_API_KEY is not set. Chat requests will be rejected until it is configured.")
	}
	if AppConfig.OpenAI.AssistantID == "" {
		log.Printf("WARN: [Config] UNIBOT_ASSISTANT_ID is not set. Falling back to stateless completions with model '%s'.", AppConfig.OpenAI.Model)
	}

	log.Println("INFO: [Config] Configuration loading complete.")
}

func overrideInt(envVar string, target *int) {
	raw := os.Getenv(envVar)
	if raw == "" {
		return
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("WARN: [Config] Environment variable %s holds a non-integer value '%s'; keeping %d.", envVar, raw, *target)
		return
	}
	*target = v
	log.Printf("INFO: [Config] %s overridden by environment variable: %d", envVar, v)
}
