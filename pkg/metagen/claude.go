package metagen

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// ClaudeProvider talks to Anthropic's messages API.
type ClaudeProvider struct {
	client anthropic.Client
	model  string
}

// NewClaudeProvider creates a Claude provider.
func NewClaudeProvider(cfg ProviderConfig) *ClaudeProvider {
	// Client retries rate limited requests itself.
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}

	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	return &ClaudeProvider{
		client: anthropic.NewClient(opts...),
		model:  cfg.Model,
	}
}

func (c *ClaudeProvider) Name() string {
	return string(Claude)
}

func (c *ClaudeProvider) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	if !strings.HasPrefix(req.MIMEType, "image/") {
		return "", fmt.Errorf("claude cannot read %s: %w", req.MIMEType, ErrUnsupportedType)
	}

	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   int64(req.Profile.MaxOutputTokens),
		Temperature: anthropic.Float(float64(req.Profile.Temperature)),
		TopP:        anthropic.Float(float64(req.Profile.TopP)),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewImageBlockBase64(req.MIMEType, base64.StdEncoding.EncodeToString(req.Data)),
				anthropic.NewTextBlock(req.Prompt),
			),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to create message: %w", err)
	}

	var text strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	if text.Len() == 0 {
		return "", fmt.Errorf("claude: %w", ErrEmptyResponse)
	}

	return strings.TrimSpace(text.String()), nil
}
