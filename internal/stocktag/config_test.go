package stocktag_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/SethCurry/stocktag/internal/stocktag"
	"github.com/SethCurry/stocktag/pkg/metagen"
	"github.com/SethCurry/stocktag/pkg/stock"
)

func writeConfig(t *testing.T, name, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	return path
}

func TestParseConfigFile(t *testing.T) {
	testCases := []struct {
		name     string
		file     string
		contents string
	}{
		{
			name: "JSON",
			file: "config.json",
			contents: `{
				"provider": "openrouter",
				"api_key": "secret",
				"output_directory": "/tmp/out",
				"post_embed_command": "open",
				"platform": "adobestock",
				"keywords": "10-30"
			}`,
		},
		{
			name: "TOML",
			file: "config.toml",
			contents: `
provider = "openrouter"
api_key = "secret"
output_directory = "/tmp/out"
post_embed_command = "open"
platform = "adobestock"
keywords = "10-30"
`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			config, err := stocktag.ParseConfigFile(writeConfig(t, tc.file, tc.contents))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if config.Provider != metagen.OpenRouter || config.APIKey != "secret" || config.PostEmbedCommand != "open" {
				t.Errorf("got %+v", config)
			}

			if config.Mode != string(stock.ModeMetadata) || config.Interval() != metagen.DefaultInterval {
				t.Errorf("defaults were not kept: %+v", config)
			}

			opts, err := config.Options()
			if err != nil {
				t.Fatalf("failed to build options: %v", err)
			}

			if opts.Platform != stock.AdobeStock || opts.Keywords != (metagen.KeywordRange{Min: 10, Max: 30}) {
				t.Errorf("got options %+v", opts)
			}
		})
	}
}

func TestParseConfigFileErrors(t *testing.T) {
	_, err := stocktag.ParseConfigFile(writeConfig(t, "config.yaml", "provider: gemini"))
	if !errors.Is(err, stocktag.ErrUnknownConfigFormat) {
		t.Errorf("got %v want ErrUnknownConfigFormat", err)
	}

	_, err = stocktag.ParseConfigFile(writeConfig(t, "config.json", "{"))
	if err == nil {
		t.Error("expected an error for broken JSON")
	}

	_, err = stocktag.ParseConfigFile(filepath.Join(t.TempDir(), "missing.json"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("got %v want ErrNotExist", err)
	}
}

func TestLoadConfigDefaultsWithoutFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv(stocktag.EnvAPIKey, "")
	t.Setenv("GEMINI_API_KEY", "from-env")

	config, err := stocktag.LoadConfig("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if config.Provider != metagen.Gemini || config.APIKey != "from-env" {
		t.Errorf("got %+v", config)
	}

	_, err = stocktag.LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	if err == nil {
		t.Error("an explicit missing file must fail")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(stocktag.EnvAPIKey, "generic")
	t.Setenv("ANTHROPIC_API_KEY", "specific")

	config := stocktag.Config{Provider: metagen.Claude}
	config.ApplyEnv()

	if config.APIKey != "generic" {
		t.Errorf("got %q want the STOCKTAG_API_KEY value", config.APIKey)
	}

	config = stocktag.Config{Provider: metagen.Claude, APIKey: "file"}
	config.ApplyEnv()

	if config.APIKey != "file" {
		t.Errorf("the file's key was replaced: %q", config.APIKey)
	}
}

func TestConfigOptionsErrors(t *testing.T) {
	testCases := []struct {
		name     string
		config   stocktag.Config
		expected error
	}{
		{"Platform", stocktag.Config{Platform: "istock"}, stock.ErrUnknownPlatform},
		{"Mode", stocktag.Config{Mode: "video"}, stock.ErrUnknownMode},
		{"Keywords", stocktag.Config{Keywords: "many"}, metagen.ErrInvalidKeywordRange},
		{"Keyword bounds", stocktag.Config{Keywords: "10-80"}, metagen.ErrKeywordRangeOutOfBounds},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			config := stocktag.DefaultConfig()

			if tc.config.Platform != "" {
				config.Platform = tc.config.Platform
			}

			if tc.config.Mode != "" {
				config.Mode = tc.config.Mode
			}

			if tc.config.Keywords != "" {
				config.Keywords = tc.config.Keywords
			}

			_, err := config.Options()
			if !errors.Is(err, tc.expected) {
				t.Errorf("got %v want %v", err, tc.expected)
			}
		})
	}
}

func TestConfigDurations(t *testing.T) {
	config := stocktag.Config{IntervalMS: 500, TimeoutSeconds: 10}

	if config.Interval() != 500*time.Millisecond || config.Timeout() != 10*time.Second {
		t.Errorf("got %v and %v", config.Interval(), config.Timeout())
	}

	config = stocktag.Config{}
	if config.Interval() != metagen.DefaultInterval || config.Timeout() != metagen.DefaultTimeout {
		t.Errorf("zero values did not fall back to defaults")
	}
}
