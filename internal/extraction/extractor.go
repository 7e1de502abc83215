package extraction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/spice-sms/internal/accounts"
	"github.com/Veraticus/spice-sms/internal/common"
	"github.com/Veraticus/spice-sms/internal/model"
	"github.com/Veraticus/spice-sms/internal/pattern"
)

// Extractor runs one message through pattern lookup, field extraction,
// account resolution and scoring.
type Extractor struct {
	registry        *pattern.Registry
	resolver        *accounts.Resolver
	fields          *FieldExtractor
	now             func() time.Time
	scorer          Scorer
	genericFallback bool
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithResolver resolves extracted account identifiers through resolver.
func WithResolver(resolver *accounts.Resolver) Option {
	return func(e *Extractor) {
		e.resolver = resolver
	}
}

// WithScorer replaces the default confidence weights.
func WithScorer(scorer Scorer) Option {
	return func(e *Extractor) {
		e.scorer = scorer
	}
}

// WithFieldExtractor replaces the default field extractor.
func WithFieldExtractor(fields *FieldExtractor) Option {
	return func(e *Extractor) {
		e.fields = fields
	}
}

// WithGenericFallback lets messages from unknown senders be extracted with
// generic heuristics instead of failing with no_pattern_match.
func WithGenericFallback(enabled bool) Option {
	return func(e *Extractor) {
		e.genericFallback = enabled
	}
}

// WithClock overrides the time source used for durations and missing receipt times.
func WithClock(now func() time.Time) Option {
	return func(e *Extractor) {
		e.now = now
	}
}

// NewExtractor creates an Extractor reading patterns from registry.
func NewExtractor(registry *pattern.Registry, opts ...Option) *Extractor {
	e := &Extractor{
		registry: registry,
		scorer:   DefaultScorer(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.fields == nil {
		e.fields = NewFieldExtractor(nil)
	}
	return e
}

// Extract converts msg into a transaction candidate. Failures are reported in
// the result, never as a panic; nothing is persisted.
func (e *Extractor) Extract(ctx context.Context, msg model.Message) model.ExtractionResult {
	start := e.now()
	details := model.ExtractionDetails{Stage: model.StageReceived}
	identity := msg.Hash()
	if msg.ReceivedAt.IsZero() {
		msg.ReceivedAt = start
	}

	details.Stage = model.StagePatternLookup
	p := e.registry.Match(msg.Sender, msg.Body)
	if p == nil && !e.genericFallback {
		return e.fail(details, start, model.FailureNoPatternMatch,
			fmt.Errorf("sender %q: %w", msg.Sender, common.ErrNoPatternMatch))
	}
	if p != nil {
		details.UsedPattern = true
		details.PatternID = p.ID
		details.Institution = p.Institution
	}

	details.Stage = model.StageFieldExtraction
	fields, found, err := e.fields.Extract(msg.Body, p, msg.ReceivedAt)
	details.FieldsFound = found
	if err != nil {
		return e.fail(details, start, model.FailureAmountValidation, err)
	}
	if !details.HasField(model.FieldDirection) {
		return e.fail(details, start, model.FailureNoTransactionSemantics,
			fmt.Errorf("no debit or credit wording: %w", common.ErrNoTransactionSemantics))
	}

	txn := &model.Transaction{
		ID:                uuid.NewString(),
		Date:              fields.Date,
		Amount:            fields.Amount,
		Direction:         fields.Direction,
		MerchantName:      fields.Merchant,
		AccountIdentifier: fields.Account,
		Sender:            msg.Sender,
		RawMessage:        msg.Body,
		Source:            model.SourceAutomatic,
	}

	details.Stage = model.StageAccountResolution
	if e.resolver != nil && p != nil && txn.AccountIdentifier != "" {
		mapping, err := e.resolver.FindAccount(ctx, p.Institution, txn.AccountIdentifier)
		switch {
		case err != nil:
			// Resolution is best effort; the candidate stays unresolved.
			slog.Warn("Account resolution failed",
				"institution", p.Institution,
				"identifier", txn.AccountIdentifier,
				"error", err)
		case mapping != nil:
			txn.AccountRef = mapping.AccountRef
		}
	}
	txn.Hash = identity

	details.Stage = model.StageScored
	details.Duration = e.now().Sub(start)
	confidence := e.scorer.Score(details)

	slog.Debug("Message extracted",
		"sender", msg.Sender,
		"pattern", details.PatternID,
		"fields", len(found),
		"confidence", confidence,
		"duration", details.Duration)

	return model.ExtractionResult{
		Success:     true,
		Transaction: txn,
		Confidence:  confidence,
		Details:     details,
	}
}

func (e *Extractor) fail(details model.ExtractionDetails, start time.Time, reason model.FailureReason, err error) model.ExtractionResult {
	details.FailureReason = reason
	details.Err = err
	details.Duration = e.now().Sub(start)

	slog.Debug("Message extraction failed",
		"stage", details.Stage,
		"reason", reason,
		"pattern", details.PatternID,
		"error", err)

	return model.ExtractionResult{Details: details}
}

// Err returns the failure error carried by result, or nil on success.
func Err(result model.ExtractionResult) error {
	if result.Success {
		return nil
	}
	if result.Details.Err != nil {
		return result.Details.Err
	}
	return errors.New(string(result.Details.FailureReason))
}
