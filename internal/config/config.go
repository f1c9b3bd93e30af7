package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Provider    string   `yaml:"provider"`
	ModelFast   string   `yaml:"model_fast"`
	ModelExpert string   `yaml:"model_expert"`
	APIKeys     []string `yaml:"api_keys"`

	ConfFastAccept  float64 `yaml:"conf_fast_accept"`
	AuditRate       float64 `yaml:"audit_rate"`
	MarginThreshold float64 `yaml:"margin_threshold"`
	WeightFast      float64 `yaml:"weight_fast"`
	WeightExpert    float64 `yaml:"weight_expert"`
	AuditSeed       int64   `yaml:"audit_seed"` // 0 seeds from wall clock

	BatchSize           int     `yaml:"batch_size"`
	RequestDelaySeconds float64 `yaml:"request_delay_seconds"`
	MaxRetries          int     `yaml:"max_retries"`
	RetryDelaySeconds   float64 `yaml:"retry_delay_seconds"`
	CheckpointInterval  int     `yaml:"checkpoint_interval"`
	PartitionCount      int     `yaml:"partition_count"`

	PartitionsDir string `yaml:"partitions_dir"`
	CheckpointDir string `yaml:"checkpoint_dir"`
	OutputDir     string `yaml:"output_dir"`

	Schedule       string `yaml:"schedule"`
	SlackBotToken  string `yaml:"slack_bot_token"`
	SlackChannelID string `yaml:"slack_channel_id"`

	ExternalHTTPTimeoutSeconds int `yaml:"external_http_timeout_seconds"`
}

func LoadConfig() Config {
	var cfg Config

	// Load from config.yaml if it exists
	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatalf("Error parsing %s: %v", configPath, err)
		}
		log.Printf("Loaded config from %s", configPath)
	}

	// Env vars override YAML values
	envOverride(&cfg.Provider, "PROVIDER")
	envOverride(&cfg.ModelFast, "MODEL_FAST")
	envOverride(&cfg.ModelExpert, "MODEL_EXPERT")
	envOverrideFloat(&cfg.ConfFastAccept, "CONF_FAST_ACCEPT")
	envOverrideFloat(&cfg.AuditRate, "AUDIT_RATE")
	envOverrideFloat(&cfg.MarginThreshold, "MARGIN_THRESHOLD")
	envOverrideFloat(&cfg.WeightFast, "WEIGHT_FAST")
	envOverrideFloat(&cfg.WeightExpert, "WEIGHT_EXPERT")
	envOverrideInt64(&cfg.AuditSeed, "AUDIT_SEED")
	envOverrideInt(&cfg.BatchSize, "BATCH_SIZE")
	envOverrideFloat(&cfg.RequestDelaySeconds, "REQUEST_DELAY_SECONDS")
	envOverrideInt(&cfg.MaxRetries, "MAX_RETRIES")
	envOverrideFloat(&cfg.RetryDelaySeconds, "RETRY_DELAY_SECONDS")
	envOverrideInt(&cfg.CheckpointInterval, "CHECKPOINT_INTERVAL")
	envOverrideInt(&cfg.PartitionCount, "PARTITION_COUNT")
	envOverride(&cfg.PartitionsDir, "PARTITIONS_DIR")
	envOverride(&cfg.CheckpointDir, "CHECKPOINT_DIR")
	envOverride(&cfg.OutputDir, "OUTPUT_DIR")
	envOverride(&cfg.Schedule, "SCHEDULE")
	envOverride(&cfg.SlackBotToken, "SLACK_BOT_TOKEN")
	envOverride(&cfg.SlackChannelID, "SLACK_CHANNEL_ID")
	envOverrideInt(&cfg.ExternalHTTPTimeoutSeconds, "EXTERNAL_HTTP_TIMEOUT_SECONDS")

	if keys := os.Getenv("API_KEYS"); keys != "" {
		cfg.APIKeys = nil
		for _, key := range strings.Split(keys, ",") {
			key = strings.TrimSpace(key)
			if key != "" {
				cfg.APIKeys = append(cfg.APIKeys, key)
			}
		}
	}

	// Defaults
	if cfg.Provider == "" {
		cfg.Provider = "gemini"
	}
	if cfg.ModelFast == "" {
		cfg.ModelFast = defaultFastModel(cfg.Provider)
	}
	if cfg.ModelExpert == "" {
		cfg.ModelExpert = defaultExpertModel(cfg.Provider)
	}
	if cfg.ConfFastAccept == 0 {
		cfg.ConfFastAccept = 0.985
	}
	if cfg.AuditRate == 0 {
		cfg.AuditRate = 0.12
	}
	if cfg.MarginThreshold == 0 {
		cfg.MarginThreshold = 0.2
	}
	if cfg.WeightFast == 0 {
		cfg.WeightFast = 1.0
	}
	if cfg.WeightExpert == 0 {
		cfg.WeightExpert = 2.0
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 5
	}
	if cfg.RequestDelaySeconds == 0 {
		cfg.RequestDelaySeconds = 1.0
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelaySeconds == 0 {
		cfg.RetryDelaySeconds = 2.0
	}
	if cfg.CheckpointInterval == 0 {
		cfg.CheckpointInterval = 50
	}
	if cfg.PartitionCount == 0 {
		cfg.PartitionCount = 5
	}
	if cfg.PartitionsDir == "" {
		cfg.PartitionsDir = "./data_splits"
	}
	if cfg.CheckpointDir == "" {
		cfg.CheckpointDir = "./checkpoints"
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "./labeled_output"
	}
	if cfg.ExternalHTTPTimeoutSeconds == 0 {
		cfg.ExternalHTTPTimeoutSeconds = 90
	}

	// Validate ranges shared by every subcommand
	if cfg.ConfFastAccept < 0 || cfg.ConfFastAccept > 1 {
		log.Fatalf("invalid conf_fast_accept '%f': must be between 0 and 1", cfg.ConfFastAccept)
	}
	if cfg.AuditRate < 0 || cfg.AuditRate > 1 {
		log.Fatalf("invalid audit_rate '%f': must be between 0 and 1", cfg.AuditRate)
	}
	if cfg.MarginThreshold < 0 || cfg.MarginThreshold > 1 {
		log.Fatalf("invalid margin_threshold '%f': must be between 0 and 1", cfg.MarginThreshold)
	}
	if cfg.WeightFast <= 0 || cfg.WeightExpert <= 0 {
		log.Fatalf("invalid voting weights (%f, %f): must be > 0", cfg.WeightFast, cfg.WeightExpert)
	}
	if cfg.BatchSize < 1 {
		log.Fatalf("invalid batch_size '%d': must be >= 1", cfg.BatchSize)
	}
	if cfg.PartitionCount < 1 {
		log.Fatalf("invalid partition_count '%d': must be >= 1", cfg.PartitionCount)
	}
	if cfg.CheckpointInterval < 1 {
		log.Fatalf("invalid checkpoint_interval '%d': must be >= 1", cfg.CheckpointInterval)
	}

	return cfg
}

// ValidateRun checks the requirements only the run subcommand has: one
// credential per partition. Split, analyze, and export work without API
// keys, so this stays out of LoadConfig.
func (c Config) ValidateRun() error {
	if len(c.APIKeys) == 0 {
		return fmt.Errorf("api_keys is required to run labeling (config.yaml or API_KEYS env)")
	}
	if len(c.APIKeys) < c.PartitionCount {
		return fmt.Errorf("need one api key per partition: %d partitions, %d keys", c.PartitionCount, len(c.APIKeys))
	}
	switch strings.ToLower(c.Provider) {
	case "gemini", "anthropic":
	default:
		return fmt.Errorf("provider must be 'gemini' or 'anthropic', got '%s'", c.Provider)
	}
	return nil
}

// RequestDelay is the fixed pause between consecutive classifier calls.
func (c Config) RequestDelay() time.Duration {
	return time.Duration(c.RequestDelaySeconds * float64(time.Second))
}

// RetryDelay is the fixed pause between retry attempts.
func (c Config) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelaySeconds * float64(time.Second))
}

func defaultFastModel(provider string) string {
	if strings.EqualFold(provider, "anthropic") {
		return "claude-3-5-haiku-latest"
	}
	return "gemini-2.5-flash"
}

func defaultExpertModel(provider string) string {
	if strings.EqualFold(provider, "anthropic") {
		return "claude-sonnet-4-5-20250929"
	}
	return "gemini-2.5-pro"
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}

func envOverrideInt64(field *int64, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}

func envOverrideFloat(field *float64, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.ParseFloat(val, 64)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}
