// Package pattern holds the per-institution message templates used to recognize
// and parse bank notification messages.
package pattern

import (
	"fmt"
	"regexp"

	"github.com/Veraticus/spice-sms/internal/common"
	"github.com/Veraticus/spice-sms/internal/model"
)

// Pattern is a MessagePattern with its regexes compiled. Optional field
// regexes are nil when the pattern leaves them empty.
type Pattern struct {
	Sender    *regexp.Regexp
	Amount    *regexp.Regexp
	Merchant  *regexp.Regexp
	Date      *regexp.Regexp
	Direction *regexp.Regexp
	Account   *regexp.Regexp
	model.MessagePattern
}

// Compile validates p and compiles its regexes case-insensitively.
func Compile(p model.MessagePattern) (*Pattern, error) {
	if p.Institution == "" {
		return nil, fmt.Errorf("pattern %q: institution is required: %w", p.ID, common.ErrValidationFailed)
	}
	if p.SenderPattern == "" {
		return nil, fmt.Errorf("pattern %q: sender pattern is required: %w", p.ID, common.ErrValidationFailed)
	}

	compiled := &Pattern{MessagePattern: p}
	fields := []struct {
		dst  **regexp.Regexp
		name string
		expr string
	}{
		{&compiled.Sender, "sender", p.SenderPattern},
		{&compiled.Amount, "amount", p.AmountPattern},
		{&compiled.Merchant, "merchant", p.MerchantPattern},
		{&compiled.Date, "date", p.DatePattern},
		{&compiled.Direction, "direction", p.DirectionPattern},
		{&compiled.Account, "account", p.AccountPattern},
	}
	for _, f := range fields {
		if f.expr == "" {
			continue
		}
		re, err := common.CompileInsensitive(f.expr)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: failed to compile %s regex: %w", p.ID, f.name, err)
		}
		*f.dst = re
	}
	return compiled, nil
}

// FieldRegex returns the regex configured for field, or nil.
func (p *Pattern) FieldRegex(field model.Field) *regexp.Regexp {
	switch field {
	case model.FieldAmount:
		return p.Amount
	case model.FieldDirection:
		return p.Direction
	case model.FieldMerchant:
		return p.Merchant
	case model.FieldDate:
		return p.Date
	case model.FieldAccount:
		return p.Account
	default:
		return nil
	}
}

// MatchesSender reports whether sender matches the pattern's sender signature.
func (p *Pattern) MatchesSender(sender string) bool {
	return p.Sender.MatchString(sender)
}

// Fit counts how many of the pattern's field regexes match body.
func (p *Pattern) Fit(body string) int {
	n := 0
	for _, field := range model.CanonicalFields {
		if re := p.FieldRegex(field); re != nil && re.MatchString(body) {
			n++
		}
	}
	return n
}
