package metagen

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Provider sends a single prompt and image to a vision model and returns
// the model's text response.
type Provider interface {
	Name() string
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// GenerateRequest is one call to a Provider.
type GenerateRequest struct {
	Prompt   string
	MIMEType string
	Data     []byte
	Profile  Profile
}

// Profile holds the sampling parameters sent with every request.
type Profile struct {
	Temperature     float32
	TopP            float32
	MaxOutputTokens int
}

// DefaultProfile is the generation profile used unless overridden.
var DefaultProfile = Profile{
	Temperature:     0.7,
	TopP:            0.95,
	MaxOutputTokens: 1024,
}

// ProviderName identifies one of the supported AI backends.
type ProviderName string

// Exists returns whether the name is a known provider by checking whether it
// exists in AllProviders.
func (p ProviderName) Exists() bool {
	for _, v := range AllProviders {
		if p == v {
			return true
		}
	}

	return false
}

// DefaultModel returns the model used when none is configured.
func (p ProviderName) DefaultModel() string {
	return defaultModels[p]
}

const (
	// Gemini is Google's Gemini API.
	Gemini = ProviderName("gemini")

	// OpenAI is OpenAI's chat completions API.
	OpenAI = ProviderName("openai")

	// OpenRouter is OpenRouter's OpenAI compatible API.
	OpenRouter = ProviderName("openrouter")

	// Claude is Anthropic's messages API.
	Claude = ProviderName("claude")
)

// AllProviders stores a list of all of the supported providers.
var AllProviders = []ProviderName{
	Gemini,
	OpenAI,
	OpenRouter,
	Claude,
}

var defaultModels = map[ProviderName]string{
	Gemini:     "gemini-2.0-flash",
	OpenAI:     "gpt-4o-mini",
	OpenRouter: "google/gemini-2.0-flash-001",
	Claude:     "claude-3-5-haiku-latest",
}

// ErrUnknownProvider is returned when a provider name is not recognized.
var ErrUnknownProvider = errors.New("unknown provider")

// ErrMissingAPIKey is returned when a provider is created without a key.
var ErrMissingAPIKey = errors.New("API key is required")

// ProviderConfig configures NewProvider.
type ProviderConfig struct {
	Name   ProviderName
	APIKey string

	// Model overrides the provider's default model.
	Model string

	// BaseURL overrides the provider's API endpoint.
	BaseURL string

	HTTPClient *http.Client
}

// NewProvider creates the provider named in the config.
func NewProvider(ctx context.Context, cfg ProviderConfig) (Provider, error) {
	name := ProviderName(strings.ToLower(strings.TrimSpace(string(cfg.Name))))
	if !name.Exists() {
		return nil, fmt.Errorf("%q: %w", cfg.Name, ErrUnknownProvider)
	}

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("provider %s: %w", name, ErrMissingAPIKey)
	}

	if cfg.Model == "" {
		cfg.Model = name.DefaultModel()
	}

	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}

	switch name {
	case Gemini:
		return NewGeminiProvider(ctx, cfg)
	case OpenAI:
		return NewOpenAIProvider(cfg), nil
	case OpenRouter:
		return NewOpenRouterProvider(cfg), nil
	case Claude:
		return NewClaudeProvider(cfg), nil
	}

	return nil, fmt.Errorf("%q: %w", cfg.Name, ErrUnknownProvider)
}
