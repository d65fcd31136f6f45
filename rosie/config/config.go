package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	internal "github.com/ZanzyTHEbar/rosie-cli/rosie"

	"github.com/spf13/viper"
)

// Config stores all configuration of the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	LLM     LLMConfig     `mapstructure:"llm"`
	Store   StoreConfig   `mapstructure:"store"`
	Search  SearchConfig  `mapstructure:"search"`
	Screen  ScreenConfig  `mapstructure:"screen"`
	Images  ImagesConfig  `mapstructure:"images"`
	Harness HarnessConfig `mapstructure:"harness"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// LLMConfig stores language model configurations.
type LLMConfig struct {
	Provider    string `mapstructure:"provider"`     // "openai"
	APIKey      string `mapstructure:"api_key"`      // last-resort key source (OPENAI_API_KEY)
	BaseURL     string `mapstructure:"base_url"`     // empty means the provider default
	Model       string `mapstructure:"model"`        // chat model
	VisionModel string `mapstructure:"vision_model"` // image analysis model
	ImageModel  string `mapstructure:"image_model"`  // image generation model
	ImageSize   string `mapstructure:"image_size"`   // e.g. "1024x1024"
	JSONMode    bool   `mapstructure:"json_mode"`    // request a JSON object response for structured calls
}

// StoreConfig stores persistence locations.
type StoreConfig struct {
	Backend           string `mapstructure:"backend"` // "json" or "libsql"
	Dir               string `mapstructure:"dir"`     // directory for the JSON files
	ConversationsFile string `mapstructure:"conversations_file"`
	MemoryFile        string `mapstructure:"memory_file"`
	SettingsFile      string `mapstructure:"settings_file"`
	DatabasePath      string `mapstructure:"database_path"` // libsql backend only
}

// SearchConfig stores options for the file search capability.
type SearchConfig struct {
	Backend    string `mapstructure:"backend"`   // "everything" or "locate"
	ToolPath   string `mapstructure:"tool_path"` // explicit executable path
	MatchCase  bool   `mapstructure:"match_case"`
	WholeWord  bool   `mapstructure:"whole_word"`
	Regex      bool   `mapstructure:"regex"`
	MatchPath  bool   `mapstructure:"match_path"`
	MaxResults int    `mapstructure:"max_results"`
	IgnoreFile string `mapstructure:"ignore_file"` // gitignore-style exclusions applied to results
}

// ScreenConfig stores options for the screen capture capability.
type ScreenConfig struct {
	Python string `mapstructure:"python"`
}

// ImagesConfig stores options for generated images.
type ImagesConfig struct {
	OutputDir string `mapstructure:"output_dir"`
}

// HarnessConfig stores orchestration guardrails and telemetry switches.
type HarnessConfig struct {
	AllowedActions []string `mapstructure:"allowed_actions"` // empty means every action is allowed
	EnableTracing  bool     `mapstructure:"enable_tracing"`
}

// LoggingConfig stores logger settings.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// ConversationsPath returns the conversation store file.
func (s StoreConfig) ConversationsPath() string { return filepath.Join(s.Dir, s.ConversationsFile) }

// MemoryPath returns the memory store file.
func (s StoreConfig) MemoryPath() string { return filepath.Join(s.Dir, s.MemoryFile) }

// SettingsPath returns the user settings file.
func (s StoreConfig) SettingsPath() string { return filepath.Join(s.Dir, s.SettingsFile) }

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath(internal.DefaultConfigPath)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// LLM defaults
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.model", internal.DefaultModel)
	v.SetDefault("llm.vision_model", internal.DefaultVisionModel)
	v.SetDefault("llm.image_model", internal.DefaultImageModel)
	v.SetDefault("llm.image_size", internal.DefaultImageSize)
	v.SetDefault("llm.json_mode", true)

	// Store defaults
	v.SetDefault("store.backend", internal.DefaultStoreBackend)
	v.SetDefault("store.dir", internal.DefaultHomeDir)
	v.SetDefault("store.conversations_file", internal.DefaultConversationsFile)
	v.SetDefault("store.memory_file", internal.DefaultMemoryFile)
	v.SetDefault("store.settings_file", internal.DefaultSettingsFile)
	v.SetDefault("store.database_path", internal.DefaultDatabasePath)

	// Search defaults
	v.SetDefault("search.backend", internal.DefaultSearchBackend)
	v.SetDefault("search.tool_path", "")
	v.SetDefault("search.match_case", false)
	v.SetDefault("search.whole_word", false)
	v.SetDefault("search.regex", false)
	v.SetDefault("search.match_path", false)
	v.SetDefault("search.max_results", internal.DefaultMaxResults)
	v.SetDefault("search.ignore_file", "")

	v.SetDefault("screen.python", internal.DefaultPython)
	v.SetDefault("images.output_dir", internal.DefaultImageDir)

	v.SetDefault("harness.allowed_actions", []string{}) // Empty means allow all
	v.SetDefault("harness.enable_tracing", false)

	v.SetDefault("logging.level", "warn")

	v.SetEnvPrefix(internal.DefaultAppName)
	v.AutomaticEnv()
	// Replace dots with underscores in env var names e.g. store.dir becomes ROSIE_STORE_DIR
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	if err := v.BindEnv("llm.api_key", "ROSIE_LLM_API_KEY", "OPENAI_API_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind api key env: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file; defaults and environment apply.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects values no component can work with.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "json", "libsql":
	default:
		return fmt.Errorf("unsupported store backend %q", c.Store.Backend)
	}

	switch c.Search.Backend {
	case "everything", "locate":
	default:
		return fmt.Errorf("unsupported search backend %q", c.Search.Backend)
	}

	if c.Search.MaxResults <= 0 {
		c.Search.MaxResults = internal.DefaultMaxResults
	}

	return nil
}
