package metagen

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/SethCurry/stocktag/internal/bufutil"
)

const (
	openAIBaseURL     = "https://api.openai.com/v1/"
	openRouterBaseURL = "https://openrouter.ai/api/v1/"

	openRouterReferer = "https://github.com/SethCurry/stocktag"
	openRouterTitle   = "stocktag"
)

// OpenAIProvider talks to an OpenAI style chat completions endpoint.  It
// serves both OpenAI and OpenRouter.
type OpenAIProvider struct {
	name   ProviderName
	client openai.Client
	model  string
}

// NewOpenAIProvider creates a provider for the OpenAI API.
func NewOpenAIProvider(cfg ProviderConfig) *OpenAIProvider {
	return newChatProvider(OpenAI, openAIBaseURL, cfg)
}

// NewOpenRouterProvider creates a provider for the OpenRouter API, which
// asks clients to identify themselves through two extra headers.
func NewOpenRouterProvider(cfg ProviderConfig) *OpenAIProvider {
	return newChatProvider(OpenRouter, openRouterBaseURL, cfg,
		option.WithHeader("HTTP-Referer", openRouterReferer),
		option.WithHeader("X-Title", openRouterTitle),
	)
}

func newChatProvider(name ProviderName, baseURL string, cfg ProviderConfig, extra ...option.RequestOption) *OpenAIProvider {
	if cfg.BaseURL != "" {
		baseURL = cfg.BaseURL
	}

	// Client retries rate limited requests itself.
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(baseURL),
		option.WithMaxRetries(0),
	}

	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	return &OpenAIProvider{
		name:   name,
		client: openai.NewClient(append(opts, extra...)...),
		model:  cfg.Model,
	}
}

func (o *OpenAIProvider) Name() string {
	return string(o.name)
}

func (o *OpenAIProvider) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(req.Prompt),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL: bufutil.EncodeDataURI(req.MIMEType, req.Data),
				}),
			}),
		},
		Temperature: openai.Float(float64(req.Profile.Temperature)),
		TopP:        openai.Float(float64(req.Profile.TopP)),
	}

	if req.Profile.MaxOutputTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.Profile.MaxOutputTokens))
	}

	completion, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("failed to create %s chat completion: %w", o.name, err)
	}

	for _, choice := range completion.Choices {
		if text := strings.TrimSpace(choice.Message.Content); text != "" {
			return text, nil
		}
	}

	return "", fmt.Errorf("%s: %w", o.name, ErrEmptyResponse)
}
