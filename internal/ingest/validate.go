// Package ingest gates inbound messages before extraction and provides the
// bounded retry loop and fallback parsing chains used around it.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/Veraticus/spice-sms/internal/common"
	"github.com/Veraticus/spice-sms/internal/model"
	"github.com/Veraticus/spice-sms/internal/service"
)

// financialKeywords must appear at least once in a transaction message.
var financialKeywords = regexp.MustCompile(`(?i)\b(debited|credited|paid|received|withdrawn|transferred|purchase|transaction|deposited)\b`)

// bankPhrases covers notification shapes that use a bare verb or noun instead
// of the past tense. Each alternative is anchored to an amount or a transfer
// rail so that "credit card bill" and chat like "I sent Rs.200 for" stay out.
var bankPhrases = regexp.MustCompile(`(?i)` +
	`(?:rs\.?|inr|₹)\s*[\d,]+(?:\.\d+)?\s+spent\b` +
	`|\bdebit\s+(?:of\s+)?(?:rs\.?|inr|₹)` +
	`|\bcredit\s+(?:by|of)\s+(?:transfer|neft|imps|upi|rs\.?|inr|₹)` +
	`|\bsent\s+(?:rs\.?|inr|₹)\s*[\d,]+(?:\.\d+)?\s+from\s+.*\b(?:a/?c|account)\b`)

// HasFinancialKeyword reports whether body mentions a money-movement keyword
// or one of the known bank phrasings of one.
func HasFinancialKeyword(body string) bool {
	return financialKeywords.MatchString(body) || bankPhrases.MatchString(body)
}

// Validate rejects messages that cannot describe a transaction. It is a cheap
// pre-filter run before any pattern work.
func Validate(msg model.Message) error {
	if strings.TrimSpace(msg.Body) == "" {
		return fmt.Errorf("empty message body: %w", common.ErrInvalidFormat)
	}
	if !HasFinancialKeyword(msg.Body) {
		return fmt.Errorf("no financial keyword in message from %q: %w", msg.Sender, common.ErrInvalidFormat)
	}
	return nil
}

// ProcessWithRetry invokes work for msg until it succeeds, fails with a
// non-retryable error, or opts.MaxAttempts is reached. Exhaustion returns the
// last error wrapped with common.ErrMaxRetries.
func ProcessWithRetry(ctx context.Context, msg model.Message, work func(context.Context, model.Message) error, opts service.RetryOptions) error {
	attempt := 0
	err := common.WithRetry(ctx, func() error {
		attempt++
		return work(ctx, msg)
	}, opts)
	if err != nil {
		slog.Debug("Message processing failed",
			"sender", msg.Sender,
			"attempts", attempt,
			"error", err)
	}
	return err
}
