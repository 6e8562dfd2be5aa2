package metagen_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go"
	"google.golang.org/genai"

	"github.com/SethCurry/stocktag/pkg/metagen"
)

// captured is what a test server saw of the single request it answered.
type captured struct {
	path   string
	header http.Header
	body   map[string]any
}

// newServer answers every request with status and body and records the
// request into got.
func newServer(t *testing.T, got *captured, status int, body string) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.path = r.URL.Path
		got.header = r.Header.Clone()

		_ = json.NewDecoder(r.Body).Decode(&got.body)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	return server
}

func newTestProvider(t *testing.T, name metagen.ProviderName, baseURL string) metagen.Provider {
	t.Helper()

	provider, err := metagen.NewProvider(context.Background(), metagen.ProviderConfig{
		Name:    name,
		APIKey:  "secret",
		BaseURL: baseURL,
	})
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}

	return provider
}

var imageRequest = metagen.GenerateRequest{
	Prompt:   "describe",
	MIMEType: "image/jpeg",
	Data:     []byte{0xff, 0xd8},
	Profile:  metagen.DefaultProfile,
}

func TestOpenAIProvider(t *testing.T) {
	var got captured

	server := newServer(t, &got, http.StatusOK,
		`{"id": "c1", "object": "chat.completion", "model": "m", "choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "{\"title\": \"Red fox\"}"}}]}`)

	text, err := newTestProvider(t, metagen.OpenRouter, server.URL).Generate(context.Background(), imageRequest)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if text != `{"title": "Red fox"}` {
		t.Errorf("text: got %q", text)
	}

	if got.path != "/chat/completions" || got.header.Get("Authorization") != "Bearer secret" {
		t.Errorf("request: path %q auth %q", got.path, got.header.Get("Authorization"))
	}

	if got.header.Get("HTTP-Referer") == "" || got.header.Get("X-Title") != "stocktag" {
		t.Errorf("OpenRouter headers missing: %v", got.header)
	}

	if got.body["model"] != metagen.OpenRouter.DefaultModel() || got.body["max_tokens"] != float64(1024) {
		t.Errorf("body: got %v", got.body)
	}

	if got.body["top_p"] != float64(float32(0.95)) {
		t.Errorf("top_p: got %v", got.body["top_p"])
	}

	encoded, _ := json.Marshal(got.body["messages"])
	if !strings.Contains(string(encoded), `"url":"data:image/jpeg;base64,/9g="`) {
		t.Errorf("image was not sent as a data URI: %s", encoded)
	}
}

func TestGeminiProvider(t *testing.T) {
	var got captured

	server := newServer(t, &got, http.StatusOK,
		`{"candidates": [{"content": {"role": "model", "parts": [{"text": "{\"title\": "}, {"text": "\"Red fox\"}"}]}}]}`)

	text, err := newTestProvider(t, metagen.Gemini, server.URL).Generate(context.Background(), imageRequest)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if text != `{"title": "Red fox"}` {
		t.Errorf("text: got %q", text)
	}

	if !strings.HasSuffix(got.path, "/models/"+metagen.Gemini.DefaultModel()+":generateContent") {
		t.Errorf("path: got %q", got.path)
	}

	if got.header.Get("x-goog-api-key") != "secret" {
		t.Errorf("API key header: got %q", got.header.Get("x-goog-api-key"))
	}

	encoded, _ := json.Marshal(got.body["contents"])
	if !strings.Contains(string(encoded), `"data":"/9g="`) || !strings.Contains(string(encoded), `"describe"`) {
		t.Errorf("contents: got %s", encoded)
	}
}

func TestClaudeProvider(t *testing.T) {
	var got captured

	server := newServer(t, &got, http.StatusOK,
		`{"id": "msg_1", "type": "message", "role": "assistant", "model": "m", "content": [{"type": "text", "text": " {\"title\": \"Red fox\"} "}], "stop_reason": "end_turn", "usage": {"input_tokens": 1, "output_tokens": 1}}`)

	text, err := newTestProvider(t, metagen.Claude, server.URL).Generate(context.Background(), imageRequest)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if text != `{"title": "Red fox"}` {
		t.Errorf("text: got %q", text)
	}

	if got.path != "/v1/messages" || got.header.Get("X-Api-Key") != "secret" {
		t.Errorf("request: path %q key %q", got.path, got.header.Get("X-Api-Key"))
	}

	if got.body["model"] != metagen.Claude.DefaultModel() || got.body["max_tokens"] != float64(1024) {
		t.Errorf("body: got %v", got.body)
	}

	if got.body["temperature"] != float64(float32(0.7)) || got.body["top_p"] != float64(float32(0.95)) {
		t.Errorf("sampling: temperature %v top_p %v", got.body["temperature"], got.body["top_p"])
	}

	encoded, _ := json.Marshal(got.body["messages"])
	if !strings.Contains(string(encoded), `"media_type":"image/jpeg"`) || !strings.Contains(string(encoded), `"data":"/9g="`) {
		t.Errorf("image was not sent: %s", encoded)
	}
}

func TestClaudeProviderRejectsVideo(t *testing.T) {
	var got captured

	server := newServer(t, &got, http.StatusOK, `{}`)

	_, err := newTestProvider(t, metagen.Claude, server.URL).Generate(context.Background(), metagen.GenerateRequest{
		Prompt:   "describe",
		MIMEType: "video/mp4",
		Data:     []byte{0x00},
	})
	if !errors.Is(err, metagen.ErrUnsupportedType) {
		t.Errorf("got %v want ErrUnsupportedType", err)
	}

	if got.path != "" {
		t.Errorf("a request was sent to %q", got.path)
	}
}

func TestProviderRateLimitIsRetryable(t *testing.T) {
	testCases := []struct {
		name     metagen.ProviderName
		body     string
		typedErr func(error) bool
	}{
		{
			name: metagen.OpenAI,
			body: `{"error": {"message": "Rate limit reached", "type": "requests", "code": "rate_limit_exceeded"}}`,
			typedErr: func(err error) bool {
				var apiErr *openai.Error
				return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests
			},
		},
		{
			name: metagen.Gemini,
			body: `{"error": {"code": 429, "message": "Resource has been exhausted", "status": "RESOURCE_EXHAUSTED"}}`,
			typedErr: func(err error) bool {
				var apiErr genai.APIError
				if errors.As(err, &apiErr) {
					return apiErr.Code == http.StatusTooManyRequests
				}

				var apiErrPtr *genai.APIError
				return errors.As(err, &apiErrPtr) && apiErrPtr.Code == http.StatusTooManyRequests
			},
		},
		{
			name: metagen.Claude,
			body: `{"type": "error", "error": {"type": "rate_limit_error", "message": "Number of requests has exceeded your rate limit"}}`,
			typedErr: func(err error) bool {
				var apiErr *anthropic.Error
				return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests
			},
		},
	}

	for _, tc := range testCases {
		t.Run(string(tc.name), func(t *testing.T) {
			var got captured

			server := newServer(t, &got, http.StatusTooManyRequests, tc.body)

			_, err := newTestProvider(t, tc.name, server.URL).Generate(context.Background(), imageRequest)
			if err == nil {
				t.Fatal("expected an error")
			}

			if !tc.typedErr(err) {
				t.Errorf("got %v want a typed 429 error", err)
			}

			if !metagen.IsRetryable(err) {
				t.Errorf("429 from %s is not retryable: %v", tc.name, err)
			}
		})
	}
}

func TestProviderServerErrorIsNotRetryable(t *testing.T) {
	var got captured

	server := newServer(t, &got, http.StatusBadRequest,
		`{"error": {"message": "model 429-preview does not exist", "type": "invalid_request_error"}}`)

	_, err := newTestProvider(t, metagen.OpenAI, server.URL).Generate(context.Background(), imageRequest)
	if err == nil {
		t.Fatal("expected an error")
	}

	if metagen.IsRetryable(err) {
		t.Errorf("400 must not be retried: %v", err)
	}
}
