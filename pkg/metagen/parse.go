package metagen

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/SethCurry/stocktag/pkg/stock"
)

var (
	// ErrEmptyResponse is returned when a provider answers with no text.
	ErrEmptyResponse = errors.New("model returned an empty response")

	// ErrNoJSON is returned when a metadata response holds no JSON object.
	ErrNoJSON = errors.New("model response does not contain a JSON object")

	// ErrMalformedResponse is returned when the JSON object cannot be parsed.
	ErrMalformedResponse = errors.New("model response is not valid metadata JSON")

	// ErrDescriptionTooShort is returned when the description has fewer
	// words than required.
	ErrDescriptionTooShort = errors.New("description is too short")
)

// jsonObject spans from the first "{" to the last "}".
var jsonObject = regexp.MustCompile(`(?s)\{.*\}`)

// ExtractJSON returns the JSON object embedded in a model response, which
// is often wrapped in prose or a markdown fence.
func ExtractJSON(text string) (string, error) {
	match := jsonObject.FindString(text)
	if match == "" {
		return "", ErrNoJSON
	}

	return match, nil
}

// rawResult accepts keywords either as a list or as one comma separated
// string, since models produce both.
type rawResult struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Keywords    json.RawMessage `json:"keywords"`
	Prompt      string          `json:"prompt"`
	BaseModel   string          `json:"baseModel"`
	Categories  json.RawMessage `json:"categories"`
}

// ParseResult parses a metadata response.
func ParseResult(text string) (*stock.Result, error) {
	obj, err := ExtractJSON(text)
	if err != nil {
		return nil, err
	}

	var raw rawResult

	err = json.Unmarshal([]byte(obj), &raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	keywords, err := stringList(raw.Keywords)
	if err != nil {
		return nil, fmt.Errorf("%w: keywords: %v", ErrMalformedResponse, err)
	}

	categories, err := stringList(raw.Categories)
	if err != nil {
		return nil, fmt.Errorf("%w: categories: %v", ErrMalformedResponse, err)
	}

	return &stock.Result{
		Title:       strings.TrimSpace(raw.Title),
		Description: strings.TrimSpace(raw.Description),
		Keywords:    keywords,
		Prompt:      strings.TrimSpace(raw.Prompt),
		BaseModel:   strings.TrimSpace(raw.BaseModel),
		Categories:  categories,
	}, nil
}

func stringList(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}

	var joined string
	if err := json.Unmarshal(raw, &joined); err != nil {
		return nil, errors.New("expected a list of strings or a comma separated string")
	}

	parts := strings.Split(joined, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	return parts, nil
}

// CountWords returns the number of whitespace separated words in s.
func CountWords(s string) int {
	return len(strings.Fields(s))
}

// CheckDescription returns an error naming the actual and required word
// counts when the description is too short.
func CheckDescription(description string, minWords int) error {
	if minWords <= 0 {
		return nil
	}

	if n := CountWords(description); n < minWords {
		return fmt.Errorf("description has %d words, at least %d are required: %w", n, minWords, ErrDescriptionTooShort)
	}

	return nil
}
