package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v2"
)

// Config holds the application configuration
type Config struct {
	Models ModelsConfig `json:"models" yaml:"models"`
	Vision VisionConfig `json:"vision" yaml:"vision"`
	Pose   PoseConfig   `json:"pose" yaml:"pose"`
	Cache  CacheConfig  `json:"cache" yaml:"cache"`
	Server ServerConfig `json:"server" yaml:"server"`
	Output OutputConfig `json:"output" yaml:"output"`
	Log    LogConfig    `json:"log" yaml:"log"`
}

// ModelsConfig locates the classifier assets and picks the enabled tiers
type ModelsConfig struct {
	// Source is a base URL (http/https) or a local directory
	Source        string        `json:"source" yaml:"source"`
	Coefficients  string        `json:"coefficients" yaml:"coefficients"`
	NeuralModel   string        `json:"neural_model" yaml:"neural_model"`
	NeuralMeta    string        `json:"neural_metadata" yaml:"neural_metadata"`
	EnableNeural  bool          `json:"enable_neural" yaml:"enable_neural"`
	EnableLinear  bool          `json:"enable_linear" yaml:"enable_linear"`
	Retries       uint64        `json:"retries" yaml:"retries"`
	RetryBackoff  time.Duration `json:"retry_backoff" yaml:"retry_backoff"`
	WarmOnStartup bool          `json:"warm_on_startup" yaml:"warm_on_startup"`
}

// VisionConfig selects the vision backend used to locate landmarks
type VisionConfig struct {
	Backend string `json:"backend" yaml:"backend"`
	URL     string `json:"url" yaml:"url"`
	Model   string `json:"model" yaml:"model"`
	Format  string `json:"format" yaml:"format"`
	MaxDim  int    `json:"max_dim" yaml:"max_dim"`
	Quality int    `json:"quality" yaml:"quality"`
}

// PoseConfig holds landmark detection settings
type PoseConfig struct {
	MinVisibility float64 `json:"min_visibility" yaml:"min_visibility"`
	Fallback      bool    `json:"fallback" yaml:"fallback"`
	MinImageSize  int     `json:"min_image_size" yaml:"min_image_size"`
}

// CacheConfig selects where landmark responses are cached
type CacheConfig struct {
	Backend       string        `json:"backend" yaml:"backend"`
	Size          int           `json:"size" yaml:"size"`
	RedisAddr     string        `json:"redis_addr" yaml:"redis_addr"`
	RedisPassword string        `json:"redis_password" yaml:"redis_password"`
	RedisDB       int           `json:"redis_db" yaml:"redis_db"`
	Prefix        string        `json:"prefix" yaml:"prefix"`
	TTL           time.Duration `json:"ttl" yaml:"ttl"`
}

// ServerConfig holds HTTP API settings
type ServerConfig struct {
	Addr          string        `json:"addr" yaml:"addr"`
	ReadTimeout   time.Duration `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout  time.Duration `json:"write_timeout" yaml:"write_timeout"`
	MaxUploadSize int64         `json:"max_upload_size" yaml:"max_upload_size"`
}

// OutputConfig holds configuration for output generation
type OutputConfig struct {
	OutputDir     string `json:"output_dir" yaml:"output_dir"`
	Suffix        string `json:"suffix" yaml:"suffix"`
	DebugOverlay  bool   `json:"debug_overlay" yaml:"debug_overlay"`
	OverlayFormat string `json:"overlay_format" yaml:"overlay_format"`
	Quality       int    `json:"quality" yaml:"quality"`
	Concurrency   int    `json:"concurrency" yaml:"concurrency"`
}

// LogConfig configures the zap logger
type LogConfig struct {
	Level      string `json:"level" yaml:"level"`
	Format     string `json:"format" yaml:"format"`
	File       string `json:"file" yaml:"file"`
	MaxSizeMB  int    `json:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `json:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `json:"max_age_days" yaml:"max_age_days"`
	Compress   bool   `json:"compress" yaml:"compress"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Models: ModelsConfig{
			Source:        "./model",
			Coefficients:  "coefficients.json",
			NeuralModel:   "tfjs_model/model.json",
			NeuralMeta:    "tfjs_metadata.json",
			EnableNeural:  true,
			EnableLinear:  true,
			Retries:       2,
			RetryBackoff:  200 * time.Millisecond,
			WarmOnStartup: false,
		},
		Vision: VisionConfig{
			Backend: "ollama",
			URL:     "http://localhost:11434",
			Model:   "qwen2.5vl:7b",
			Format:  "jpg",
			MaxDim:  1024,
			Quality: 90,
		},
		Pose: PoseConfig{
			MinVisibility: 0.5,
			Fallback:      true,
			MinImageSize:  100,
		},
		Cache: CacheConfig{
			Backend:   "memory",
			Size:      256,
			RedisAddr: "localhost:6379",
			Prefix:    "body-analyzer:",
			TTL:       24 * time.Hour,
		},
		Server: ServerConfig{
			Addr:          ":8080",
			ReadTimeout:   30 * time.Second,
			WriteTimeout:  5 * time.Minute,
			MaxUploadSize: 16 << 20,
		},
		Output: OutputConfig{
			OutputDir:     "./output",
			Suffix:        "_analysis",
			DebugOverlay:  false,
			OverlayFormat: "jpg",
			Quality:       90,
			Concurrency:   4,
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// LoadFromFile loads configuration from a JSON or YAML file. Values missing
// from the file keep their defaults.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, config)
	default:
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration as JSON or YAML depending on the extension
func (c *Config) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Models.Source == "" {
		return fmt.Errorf("models.source cannot be empty")
	}

	switch c.Vision.Backend {
	case "ollama", "llamacpp", "none":
	default:
		return fmt.Errorf("vision.backend must be one of ollama, llamacpp, none")
	}

	if c.Vision.Backend != "none" && c.Vision.URL == "" {
		return fmt.Errorf("vision.url cannot be empty")
	}

	switch strings.ToLower(c.Vision.Format) {
	case "jpg", "jpeg", "png":
	default:
		return fmt.Errorf("vision.format must be jpg or png")
	}

	if c.Vision.Quality < 1 || c.Vision.Quality > 100 {
		return fmt.Errorf("vision.quality must be between 1 and 100")
	}

	if c.Pose.MinVisibility < 0 || c.Pose.MinVisibility > 1 {
		return fmt.Errorf("pose.min_visibility must be between 0 and 1")
	}

	if c.Pose.MinImageSize < 1 {
		return fmt.Errorf("pose.min_image_size must be positive")
	}

	switch c.Cache.Backend {
	case "memory":
		if c.Cache.Size < 1 {
			return fmt.Errorf("cache.size must be positive")
		}
	case "redis":
		if c.Cache.RedisAddr == "" {
			return fmt.Errorf("cache.redis_addr cannot be empty")
		}
	case "none":
	default:
		return fmt.Errorf("cache.backend must be one of memory, redis, none")
	}

	if c.Output.Quality < 1 || c.Output.Quality > 100 {
		return fmt.Errorf("output.quality must be between 1 and 100")
	}

	if c.Output.Concurrency < 1 {
		return fmt.Errorf("output.concurrency must be positive")
	}

	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}

	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "body-analyzer", "config.json")
}
