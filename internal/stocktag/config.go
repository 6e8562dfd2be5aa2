package stocktag

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/mitchellh/go-homedir"

	"github.com/SethCurry/stocktag/pkg/metagen"
	"github.com/SethCurry/stocktag/pkg/stock"
)

// EnvAPIKey overrides the API key from the configuration file.
const EnvAPIKey = "STOCKTAG_API_KEY"

// providerEnv lists the environment variable each provider's own tooling
// reads its key from.
var providerEnv = map[metagen.ProviderName]string{
	metagen.Gemini:     "GEMINI_API_KEY",
	metagen.OpenAI:     "OPENAI_API_KEY",
	metagen.OpenRouter: "OPENROUTER_API_KEY",
	metagen.Claude:     "ANTHROPIC_API_KEY",
}

var ErrUnknownConfigFormat = errors.New("configuration file must be .json or .toml")

type Config struct {
	// The AI provider to use.  One of gemini, openai, openrouter or claude.
	Provider metagen.ProviderName `json:"provider" toml:"provider"`

	// The API key for the provider.  When empty it is read from
	// STOCKTAG_API_KEY, then from the provider's usual variable such as
	// GEMINI_API_KEY.
	APIKey string `json:"api_key" toml:"api_key"`

	// The model to request.  Each provider has a default.
	Model string `json:"model" toml:"model"`

	// Overrides the provider's API endpoint, e.g. for a proxy.
	BaseURL string `json:"base_url" toml:"base_url"`

	// The directory embedded files, archives and CSV files are written to.
	// This can be an absolute or relative path, but it will not expand tilde
	// for home directories nor will it interpret environment variables.
	OutputDirectory string `json:"output_directory" toml:"output_directory"`

	// The command to run after writing a file.  This command will be invoked
	// with the path to the file as an argument.  E.g. putting "open" in here
	// will result in "open /path/to/file" being called.
	PostEmbedCommand string `json:"post_embed_command" toml:"post_embed_command"`

	// Default target platform: general, adobestock, shutterstock or freepik.
	Platform string `json:"platform" toml:"platform"`

	// Default mode: metadata or image-to-prompt.
	Mode string `json:"mode" toml:"mode"`

	// Keyword bounds in "min-max" form, e.g. "25-49".
	Keywords string `json:"keywords" toml:"keywords"`

	TitleWords          int `json:"title_words" toml:"title_words"`
	MinDescriptionWords int `json:"min_description_words" toml:"min_description_words"`

	// Minimum gap between two requests to the provider, in milliseconds.
	IntervalMS int `json:"interval_ms" toml:"interval_ms"`

	// Timeout of a single request, in seconds.
	TimeoutSeconds int `json:"timeout_seconds" toml:"timeout_seconds"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() Config {
	return Config{
		Provider:        metagen.Gemini,
		OutputDirectory: ".",
		Platform:        stock.General.String(),
		Mode:            string(stock.ModeMetadata),
		Keywords:        metagen.DefaultKeywordRange.String(),
		TitleWords:      metagen.DefaultOptions().TitleWords,
		IntervalMS:      int(metagen.DefaultInterval / time.Millisecond),
		TimeoutSeconds:  int(metagen.DefaultTimeout / time.Second),
	}
}

// ConfigDir returns the directory stocktag's configuration lives in.
func ConfigDir() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(home, ".config", "stocktag"), nil
}

// DefaultConfigPath returns the default path to the config file for
// stocktag.  config.toml is preferred when it exists.
func DefaultConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}

	tomlPath := filepath.Join(dir, "config.toml")
	if _, err := os.Stat(tomlPath); err == nil {
		return tomlPath, nil
	}

	return filepath.Join(dir, "config.json"), nil
}

// ParseConfigFile parses the given configuration file and returns a Config.
// The format is chosen by extension.  Values missing from the file keep
// their defaults.
func ParseConfigFile(configPath string) (*Config, error) {
	config := DefaultConfig()

	switch strings.ToLower(filepath.Ext(configPath)) {
	case ".toml":
		if _, err := toml.DecodeFile(configPath, &config); err != nil {
			return nil, fmt.Errorf("failed to parse TOML in configuration file %q: %w", configPath, err)
		}
	case ".json":
		fd, err := os.Open(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open configuration file %q: %w", configPath, err)
		}

		defer fd.Close()

		err = json.NewDecoder(fd).Decode(&config)
		if err != nil {
			return nil, fmt.Errorf("failed to parse JSON in configuration file %q: %w", configPath, err)
		}
	default:
		return nil, fmt.Errorf("%q: %w", configPath, ErrUnknownConfigFormat)
	}

	return &config, nil
}

// LoadConfig reads the configuration at configPath, or the default path
// when configPath is empty.  A missing default file is not an error.
func LoadConfig(configPath string) (*Config, error) {
	explicit := configPath != ""

	if !explicit {
		var err error

		configPath, err = DefaultConfigPath()
		if err != nil {
			return nil, err
		}
	}

	config, err := ParseConfigFile(configPath)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			config := DefaultConfig()
			config.ApplyEnv()

			return &config, nil
		}

		return nil, err
	}

	config.ApplyEnv()

	return config, nil
}

// ApplyEnv fills the API key from the environment when the file has none.
func (c *Config) ApplyEnv() {
	if c.APIKey != "" {
		return
	}

	if key := os.Getenv(EnvAPIKey); key != "" {
		c.APIKey = key
		return
	}

	if name, ok := providerEnv[c.Provider]; ok {
		c.APIKey = os.Getenv(name)
	}
}

// Options converts the generation settings into metagen.Options.
func (c *Config) Options() (metagen.Options, error) {
	opts := metagen.DefaultOptions()

	platform, err := stock.ParsePlatform(c.Platform)
	if err != nil {
		return opts, err
	}

	mode, err := stock.ParseMode(c.Mode)
	if err != nil {
		return opts, err
	}

	keywords, err := metagen.ParseKeywordRange(c.Keywords)
	if err != nil {
		return opts, err
	}

	opts.Platform = platform
	opts.Mode = mode
	opts.Keywords = keywords
	opts.TitleWords = c.TitleWords
	opts.MinDescriptionWords = c.MinDescriptionWords

	return opts, opts.Validate()
}

// ProviderConfig returns the settings needed to create the provider.
func (c *Config) ProviderConfig() metagen.ProviderConfig {
	return metagen.ProviderConfig{
		Name:    c.Provider,
		APIKey:  c.APIKey,
		Model:   c.Model,
		BaseURL: c.BaseURL,
	}
}

// Interval returns the pacing interval, falling back to the default.
func (c *Config) Interval() time.Duration {
	if c.IntervalMS <= 0 {
		return metagen.DefaultInterval
	}

	return time.Duration(c.IntervalMS) * time.Millisecond
}

// Timeout returns the per-request timeout, falling back to the default.
func (c *Config) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return metagen.DefaultTimeout
	}

	return time.Duration(c.TimeoutSeconds) * time.Second
}
