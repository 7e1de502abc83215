package ingest

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/spice-sms/internal/common"
)

// UnknownMerchant is returned when no merchant can be extracted.
const UnknownMerchant = "Unknown Merchant"

// Matcher pairs a regex with a normalizer applied to its first capture. A
// normalizer returning "" rejects the capture.
type Matcher struct {
	Regex     *regexp.Regexp
	Normalize func(string) string
	Name      string
}

func newMatcher(name, expr string, normalize func(string) string) Matcher {
	return Matcher{
		Name:      name,
		Regex:     regexp.MustCompile("(?i)" + expr),
		Normalize: normalize,
	}
}

// NewMatcher compiles expr case-insensitively into a Matcher.
func NewMatcher(name, expr string, normalize func(string) string) (Matcher, error) {
	re, err := common.CompileInsensitive(expr)
	if err != nil {
		return Matcher{}, fmt.Errorf("failed to compile matcher %s: %w", name, err)
	}
	return Matcher{Name: name, Regex: re, Normalize: normalize}, nil
}

// apply returns the first normalized capture the normalizer accepts.
func (m Matcher) apply(text string) (string, bool) {
	for _, match := range m.Regex.FindAllStringSubmatch(text, -1) {
		raw := firstGroup(match)
		if m.Normalize != nil {
			raw = m.Normalize(raw)
		}
		if raw != "" {
			return raw, true
		}
	}
	return "", false
}

func firstGroup(match []string) string {
	for _, group := range match[1:] {
		if g := strings.TrimSpace(group); g != "" {
			return g
		}
	}
	return strings.TrimSpace(match[0])
}

// AmountMatchers is the generic amount chain, most specific first.
var AmountMatchers = []Matcher{
	newMatcher("currency-prefix", `(?:Rs\.?|INR|₹)\s*([\d,]+(?:\.\d+)?)`, stripSeparators),
	newMatcher("currency-suffix", `\b([\d,]+(?:\.\d+)?)\s*(?:Rs\.?|INR|₹|rupees)`, stripSeparators),
	newMatcher("keyword-amount", `\b(?:debited|credited|paid|withdrawn|received|transferred|spent|sent)\s+(?:by|for|with|of)?\s*([\d,]+(?:\.\d{1,2})?)\b`, stripSeparators),
	newMatcher("amount-label", `\b(?:amount|amt)\s*(?:of|:)?\s*([\d,]+(?:\.\d{1,2})?)\b`, stripSeparators),
}

var merchantStops = []string{`\s+on\b`, `\s+via\b`, `\s+using\b`, `\s+Ref\b`, `\s+UPI\b`, `\s+in\s+your\b`, `\s*\(`, `[,;]\s`, `\.\s`, `\.?$`}

// stopAt builds the lazy-capture terminator group.
func stopAt(extra ...string) string {
	return "(?:" + strings.Join(append(extra, merchantStops...), "|") + ")"
}

// MerchantMatchers is the generic merchant chain, most specific first.
var MerchantMatchers = []Matcher{
	newMatcher("at", `\bat\s+([A-Za-z0-9][\w&'.@\- ]*?)`+stopAt(), cleanMerchant),
	newMatcher("vpa", `\bVPA\s+([\w.\-]+@[\w.\-]+)`, cleanMerchant),
	newMatcher("to", `\bto\s+([A-Za-z0-9][\w&'.@\- ]*?)`+stopAt(`\s+from\b`), cleanMerchant),
	newMatcher("from", `\bfrom\s+([A-Za-z0-9][\w&'.@\- ]*?)`+stopAt(`\s+to\b`), cleanMerchant),
	newMatcher("info", `\bInfo:?\s*([^.]+?)(?:\.\s|\.?$)`, cleanMerchant),
}

// ParseAmountWithFallback tries each matcher in order, then falls back to the
// largest decimal-looking number in text.
func ParseAmountWithFallback(text string, matchers []Matcher) (decimal.Decimal, error) {
	for _, m := range matchers {
		raw, ok := m.apply(text)
		if !ok {
			continue
		}
		amount, err := ParseAmount(raw)
		if err == nil {
			return amount, nil
		}
	}

	if amount, ok := largestDecimal(text); ok {
		return amount, nil
	}
	return decimal.Zero, fmt.Errorf("no amount in %q: %w", truncate(text, 60), common.ErrAmountParsingFailed)
}

// ExtractMerchantWithFallback tries each matcher in order. When none yields a
// name it returns UnknownMerchant and false.
func ExtractMerchantWithFallback(text string, matchers []Matcher) (string, bool) {
	for _, m := range matchers {
		if merchant, ok := m.apply(text); ok {
			return merchant, true
		}
	}
	return UnknownMerchant, false
}

// ParseAmount parses a captured amount, dropping currency markers and
// thousands separators. Non-numeric text fails with ErrAmountParsingFailed and
// non-positive values with ErrValidationFailed.
func ParseAmount(raw string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(raw)
	for _, prefix := range []string{"Rs.", "Rs", "INR", "₹"} {
		if len(cleaned) >= len(prefix) && strings.EqualFold(cleaned[:len(prefix)], prefix) {
			cleaned = strings.TrimSpace(cleaned[len(prefix):])
			break
		}
	}
	cleaned = strings.TrimSuffix(stripSeparators(cleaned), ".")

	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("amount %q: %w", raw, common.ErrAmountParsingFailed)
	}
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("amount %s must be positive: %w", amount, common.ErrValidationFailed)
	}
	return amount, nil
}

var decimalLike = regexp.MustCompile(`(^|[^\w*])(\d{1,3}(?:,\d{2,3})+|\d+)\.(\d{1,2})\b`)

// largestDecimal picks the largest number with a one or two digit fraction,
// ignoring masked account fragments.
func largestDecimal(text string) (decimal.Decimal, bool) {
	var best decimal.Decimal
	found := false
	for _, m := range decimalLike.FindAllStringSubmatch(text, -1) {
		value, err := decimal.NewFromString(stripSeparators(m[2]) + "." + m[3])
		if err != nil || !value.IsPositive() {
			continue
		}
		if !found || value.GreaterThan(best) {
			best, found = value, true
		}
	}
	return best, found
}

func stripSeparators(s string) string {
	return strings.NewReplacer(",", "", " ", "").Replace(strings.TrimSpace(s))
}

var (
	accountLike    = regexp.MustCompile(`(?i)^(?:a/?c|acct|account|card)\b|^[X*]+\d+$`)
	pronounLeading = regexp.MustCompile(`(?i)^(?:your|you|the|my)\b`)
)

func cleanMerchant(s string) string {
	s = strings.Trim(strings.TrimSpace(s), ".,;:-")
	s = strings.Join(strings.Fields(s), " ")
	if s == "" || accountLike.MatchString(s) || pronounLeading.MatchString(s) {
		return ""
	}
	return s
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
