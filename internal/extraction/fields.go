// Package extraction turns a raw bank notification into a transaction
// candidate and rates how trustworthy that candidate is.
package extraction

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/spice-sms/internal/classification"
	"github.com/Veraticus/spice-sms/internal/common"
	"github.com/Veraticus/spice-sms/internal/ingest"
	"github.com/Veraticus/spice-sms/internal/model"
	"github.com/Veraticus/spice-sms/internal/pattern"
)

// Fields holds the values pulled out of one message.
type Fields struct {
	Date      time.Time
	Direction model.Direction
	Merchant  string
	Account   string
	Amount    decimal.Decimal
}

var (
	genericDate    = regexp.MustCompile(`(?i)(\d{1,2}[-/](?:\d{1,2}|[A-Za-z]{3})[-/]\d{2,4}(?:\s+\d{1,2}:\d{2}(?::\d{2})?)?|\d{4}-\d{2}-\d{2}|\d{1,2}[A-Za-z]{3}\d{2,4})`)
	genericAccount = regexp.MustCompile(`(?i)\b(?:A/c|Acct|Account|AC|Card)\s*(?:no\.?|ending)?\s*([X*]*\d{3,6})`)
)

// dateLayouts are tried in order; day and month accept one or two digits.
var dateLayouts = []string{
	"2-1-2006 15:04:05",
	"2-1-2006 15:04",
	"2-1-2006",
	"2/1/2006 15:04:05",
	"2/1/2006",
	"2-1-06 15:04:05",
	"2-1-06 15:04",
	"2-1-06",
	"2/1/06",
	"2-Jan-2006",
	"2-Jan-06",
	"2/Jan/2006",
	"2Jan2006",
	"2Jan06",
	"2006-01-02",
}

// FieldExtractor applies a pattern's field regexes and falls back to generic
// heuristics field by field.
type FieldExtractor struct {
	detector      *classification.Detector
	amountChain   []ingest.Matcher
	merchantChain []ingest.Matcher
}

// NewFieldExtractor creates an extractor using detector for direction words.
func NewFieldExtractor(detector *classification.Detector) *FieldExtractor {
	if detector == nil {
		detector = classification.NewDefaultDetector()
	}
	return &FieldExtractor{
		detector:      detector,
		amountChain:   ingest.AmountMatchers,
		merchantChain: ingest.MerchantMatchers,
	}
}

// Extract pulls the canonical fields out of body. p may be nil. A field that
// cannot be found is left zero and omitted from the returned list, except the
// amount: an unparseable or missing amount is an error.
func (fe *FieldExtractor) Extract(body string, p *pattern.Pattern, receivedAt time.Time) (Fields, []model.Field, error) {
	var (
		fields Fields
		found  []model.Field
	)

	amount, err := fe.amount(body, p)
	if err != nil {
		return fields, found, err
	}
	fields.Amount = amount
	found = append(found, model.FieldAmount)

	if direction, ok := fe.direction(body, p); ok {
		fields.Direction = direction
		found = append(found, model.FieldDirection)
	}

	if merchant, ok := fe.merchant(body, p); ok {
		fields.Merchant = merchant
		found = append(found, model.FieldMerchant)
	} else {
		fields.Merchant = ingest.UnknownMerchant
	}

	if date, ok := fe.date(body, p, receivedAt.Location()); ok {
		fields.Date = date
		found = append(found, model.FieldDate)
	} else {
		fields.Date = receivedAt
	}

	if account, ok := capture(patternRegex(p, model.FieldAccount), genericAccount, body); ok {
		fields.Account = account
		found = append(found, model.FieldAccount)
	}

	return fields, found, nil
}

func patternRegex(p *pattern.Pattern, field model.Field) *regexp.Regexp {
	if p == nil {
		return nil
	}
	return p.FieldRegex(field)
}

// capture tries the pattern regex first, then the generic one.
func capture(specific, generic *regexp.Regexp, body string) (string, bool) {
	if v, ok := common.FirstCapture(specific, body); ok {
		return v, true
	}
	return common.FirstCapture(generic, body)
}

func (fe *FieldExtractor) amount(body string, p *pattern.Pattern) (decimal.Decimal, error) {
	if raw, ok := common.FirstCapture(patternRegex(p, model.FieldAmount), body); ok {
		amount, err := ingest.ParseAmount(raw)
		if err != nil {
			return decimal.Zero, fmt.Errorf("pattern %s: %w", p.ID, err)
		}
		return amount, nil
	}
	return ingest.ParseAmountWithFallback(body, fe.amountChain)
}

func (fe *FieldExtractor) direction(body string, p *pattern.Pattern) (model.Direction, bool) {
	keyword, _ := common.FirstCapture(patternRegex(p, model.FieldDirection), body)
	match, ok := fe.detector.DetectKeyword(keyword, body)
	if !ok {
		return "", false
	}
	return match.Direction, true
}

func (fe *FieldExtractor) merchant(body string, p *pattern.Pattern) (string, bool) {
	if raw, ok := common.FirstCapture(patternRegex(p, model.FieldMerchant), body); ok {
		if merchant := strings.Join(strings.Fields(raw), " "); merchant != "" {
			return merchant, true
		}
	}
	return ingest.ExtractMerchantWithFallback(body, fe.merchantChain)
}

func (fe *FieldExtractor) date(body string, p *pattern.Pattern, loc *time.Location) (time.Time, bool) {
	raw, ok := capture(patternRegex(p, model.FieldDate), genericDate, body)
	if !ok {
		return time.Time{}, false
	}
	return ParseDate(raw, loc)
}

// ParseDate parses the date formats banks use in notifications.
func ParseDate(raw string, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}
	raw = strings.Join(strings.Fields(raw), " ")
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
