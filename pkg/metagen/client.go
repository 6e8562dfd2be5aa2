// Package metagen generates stock metadata for images and videos with a
// vision capable AI model.
package metagen

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/SethCurry/stocktag/pkg/stock"
)

const (
	// DefaultTimeout bounds a single request to the provider.
	DefaultTimeout = 90 * time.Second

	// DefaultRetries is how many times a rate limited request is retried.
	DefaultRetries = 3

	// DefaultBackoff is the wait before the first retry.  It doubles on each
	// following retry.
	DefaultBackoff = 5 * time.Second
)

var (
	// ErrUnsupportedType is returned for files that are neither images nor
	// videos, or that the provider cannot read.
	ErrUnsupportedType = errors.New("unsupported file type")

	// ErrFileTooLarge is returned for files above the configured size limit.
	ErrFileTooLarge = errors.New("file is too large")

	// ErrEmptyFile is returned for files with no content.
	ErrEmptyFile = errors.New("file is empty")
)

// ClientOption is a function that can be used as an option for the
// NewClient function.
type ClientOption func(*Client)

// WithLogger sets the logger the client reports retries and failures to.
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithPacer replaces the client's pacer, for example to share one between
// clients.
func WithPacer(pacer *Pacer) ClientOption {
	return func(c *Client) {
		c.pacer = pacer
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithRetries sets how many times a rate limited request is retried and
// the initial backoff.
func WithRetries(retries int, backoff time.Duration) ClientOption {
	return func(c *Client) {
		c.retries = retries
		c.backoff = backoff
	}
}

// WithProfile overrides the generation profile.
func WithProfile(profile Profile) ClientOption {
	return func(c *Client) {
		c.profile = profile
	}
}

// NewClient creates a new *Client.  The provider is mandatory, and any
// number of ClientOptions can be passed in to customize the client's
// behavior.
func NewClient(provider Provider, options ...ClientOption) *Client {
	client := &Client{
		provider: provider,
		pacer:    NewPacer(DefaultInterval),
		logger:   zap.NewNop(),
		timeout:  DefaultTimeout,
		retries:  DefaultRetries,
		backoff:  DefaultBackoff,
		profile:  DefaultProfile,
	}

	for _, option := range options {
		option(client)
	}

	return client
}

// Client analyzes files with a Provider.  Every request goes through the
// client's Pacer.
type Client struct {
	provider Provider
	pacer    *Pacer
	logger   *zap.Logger
	timeout  time.Duration
	retries  int
	backoff  time.Duration
	profile  Profile
}

// ValidateFile rejects files that cannot be analyzed before any request is
// made.
func ValidateFile(file stock.SourceFile, maxSize int64) error {
	if !file.IsImage() && !file.IsVideo() {
		return fmt.Errorf("%s has type %q: %w", file.Name, file.MIMEType, ErrUnsupportedType)
	}

	if len(file.Data) == 0 {
		return fmt.Errorf("%s: %w", file.Name, ErrEmptyFile)
	}

	if maxSize > 0 && int64(len(file.Data)) > maxSize {
		return fmt.Errorf("%s is %d bytes, the limit is %d: %w", file.Name, len(file.Data), maxSize, ErrFileTooLarge)
	}

	return nil
}

// Analyze generates metadata for a single file.
func (c *Client) Analyze(ctx context.Context, file stock.SourceFile, opts Options) (*stock.Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	if err := ValidateFile(file, opts.MaxFileSize); err != nil {
		return nil, err
	}

	text, err := c.generate(ctx, GenerateRequest{
		Prompt:   BuildPrompt(opts, file),
		MIMEType: file.MIMEType,
		Data:     file.Data,
		Profile:  c.profile,
	})
	if err != nil {
		return nil, err
	}

	if opts.Mode == stock.ModeImageToPrompt {
		return &stock.Result{Prompt: strings.TrimSpace(text)}, nil
	}

	result, err := ParseResult(text)
	if err != nil {
		c.logger.Debug("unparseable response", zap.String("file", file.Name), zap.String("response", text))
		return nil, err
	}

	err = PostProcess(result, opts)
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (c *Client) generate(ctx context.Context, req GenerateRequest) (string, error) {
	backoff := c.backoff

	for attempt := 0; ; attempt++ {
		err := c.pacer.Wait(ctx)
		if err != nil {
			return "", fmt.Errorf("failed while waiting to send request: %w", err)
		}

		text, err := c.generateOnce(ctx, req)
		if err == nil {
			return text, nil
		}

		if attempt >= c.retries || !IsRetryable(err) {
			return "", fmt.Errorf("%s request failed: %w", c.provider.Name(), err)
		}

		c.logger.Warn("provider is rate limited or unavailable, retrying",
			zap.String("provider", c.provider.Name()),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", backoff),
			zap.Error(err))

		err = sleep(ctx, backoff)
		if err != nil {
			return "", err
		}

		backoff *= 2
	}
}

func (c *Client) generateOnce(ctx context.Context, req GenerateRequest) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	return c.provider.Generate(ctx, req)
}

// IsRetryable reports whether the error means the provider is rate limiting
// or temporarily unavailable.  Only typed API errors carrying an HTTP status
// are considered.
func IsRetryable(err error) bool {
	var geminiErr genai.APIError
	if errors.As(err, &geminiErr) {
		return retryableStatus(geminiErr.Code)
	}

	var geminiErrPtr *genai.APIError
	if errors.As(err, &geminiErrPtr) && geminiErrPtr != nil {
		return retryableStatus(geminiErrPtr.Code)
	}

	var openaiErr *openai.Error
	if errors.As(err, &openaiErr) {
		return retryableStatus(openaiErr.StatusCode)
	}

	var anthropicErr *anthropic.Error
	if errors.As(err, &anthropicErr) {
		return retryableStatus(anthropicErr.StatusCode)
	}

	return false
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code == http.StatusServiceUnavailable
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
