package utils

import (
	"errors"
	"fmt"
	"strings"
)

// MaxTickerLen bounds a ticker symbol after normalization.
const MaxTickerLen = 10

// ErrInvalidTicker is matched by every ticker validation failure.
var ErrInvalidTicker = errors.New("invalid ticker")

// Share-class aliases. FMP spells class suffixes with a dash.
var tickerAliases = map[string]string{
	"BRK.A": "BRK-A",
	"BRK.B": "BRK-B",
	"BF.A":  "BF-A",
	"BF.B":  "BF-B",
}

// NormalizeTicker upper-cases a user-input ticker, strips whitespace and a
// leading "$" (common in chat) and resolves share-class aliases.
func NormalizeTicker(ticker string) string {
	ticker = strings.TrimSpace(strings.ToUpper(ticker))
	ticker = strings.TrimPrefix(ticker, "$")

	if canonical, ok := tickerAliases[ticker]; ok {
		return canonical
	}
	return ticker
}

// ValidateTicker normalizes the ticker and checks it is 1-10 characters of
// A-Z, 0-9, "." or "-".
func ValidateTicker(ticker string) (string, error) {
	t := NormalizeTicker(ticker)
	if t == "" {
		return "", fmt.Errorf("%w: ticker is required", ErrInvalidTicker)
	}
	if len(t) > MaxTickerLen {
		return "", fmt.Errorf("%w: %q is longer than %d characters", ErrInvalidTicker, t, MaxTickerLen)
	}
	for _, r := range t {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
		default:
			return "", fmt.Errorf("%w: %q contains %q", ErrInvalidTicker, t, r)
		}
	}
	return t, nil
}
