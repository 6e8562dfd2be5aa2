package metagen

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// KeywordRange bounds how many keywords a result carries, such as "10-50".
type KeywordRange struct {
	Min int
	Max int
}

// String converts the KeywordRange back into a dash-delimited string like
// "10-50".
func (k KeywordRange) String() string {
	return fmt.Sprintf("%d-%d", k.Min, k.Max)
}

// MaxKeywords is the most keywords any stock platform accepts.
const MaxKeywords = 50

// DefaultKeywordRange is used when no range is configured.
var DefaultKeywordRange = KeywordRange{Min: 25, Max: 49}

var (
	// ErrInvalidKeywordRange is returned when a range string cannot be parsed.
	ErrInvalidKeywordRange = errors.New("keyword range must look like 10-50")

	// ErrKeywordRangeOutOfBounds is returned when a range is inverted or
	// exceeds MaxKeywords.
	ErrKeywordRangeOutOfBounds = errors.New("keyword range is out of bounds")
)

// Validate ensures that the range is usable by checking
// - Whether either bound is negative
// - Whether the minimum exceeds the maximum
// - Whether the maximum exceeds MaxKeywords
func (k KeywordRange) Validate() error {
	if k.Min < 0 || k.Max < 0 {
		return fmt.Errorf("negative bound in %s: %w", k, ErrKeywordRangeOutOfBounds)
	}

	if k.Min > k.Max {
		return fmt.Errorf("minimum %d is above maximum %d: %w", k.Min, k.Max, ErrKeywordRangeOutOfBounds)
	}

	if k.Max > MaxKeywords {
		return fmt.Errorf("maximum %d is above %d: %w", k.Max, MaxKeywords, ErrKeywordRangeOutOfBounds)
	}

	return nil
}

// ParseKeywordRange takes a dash-delimited range like "10-50" and returns a
// KeywordRange representing it.  A single number sets both bounds.
func ParseKeywordRange(value string) (KeywordRange, error) {
	parts := strings.Split(strings.TrimSpace(value), "-")

	if len(parts) == 1 {
		n, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil {
			return KeywordRange{}, fmt.Errorf("%q: %w", value, ErrInvalidKeywordRange)
		}

		return KeywordRange{Min: n, Max: n}, nil
	}

	if len(parts) != 2 {
		return KeywordRange{}, fmt.Errorf("%q: %w", value, ErrInvalidKeywordRange)
	}

	parsed := KeywordRange{}

	if minimum, err := strconv.Atoi(strings.TrimSpace(parts[0])); err != nil {
		return KeywordRange{}, fmt.Errorf("minimum is not an integer: %w", ErrInvalidKeywordRange)
	} else {
		parsed.Min = minimum
	}

	if maximum, err := strconv.Atoi(strings.TrimSpace(parts[1])); err != nil {
		return KeywordRange{}, fmt.Errorf("maximum is not an integer: %w", ErrInvalidKeywordRange)
	} else {
		parsed.Max = maximum
	}

	return parsed, nil
}
