// Package engine runs inbound messages through validation, extraction,
// categorization and persistence.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Veraticus/spice-sms/internal/categorize"
	"github.com/Veraticus/spice-sms/internal/common"
	"github.com/Veraticus/spice-sms/internal/extraction"
	"github.com/Veraticus/spice-sms/internal/ingest"
	"github.com/Veraticus/spice-sms/internal/model"
	"github.com/Veraticus/spice-sms/internal/service"
	"github.com/Veraticus/spice-sms/internal/storage"
)

// Status is the final state of one processed message.
type Status string

// Message outcomes.
const (
	StatusSaved     Status = "saved"
	StatusSkipped   Status = "skipped"
	StatusDuplicate Status = "duplicate"
	StatusFailed    Status = "failed"
)

// Outcome records what happened to one message.
type Outcome struct {
	Err            error
	Transaction    *model.Transaction
	Categorization *model.CategorizationResult
	Message        model.Message
	Status         Status
	Extraction     model.ExtractionResult
}

// Summary contains statistics about a batch run.
type Summary struct {
	Outcomes       []Outcome
	Saved          int
	Skipped        int
	Duplicates     int
	Failed         int
	ProcessingTime time.Duration
}

func (s *Summary) add(o Outcome) {
	switch o.Status {
	case StatusSaved:
		s.Saved++
	case StatusSkipped:
		s.Skipped++
	case StatusDuplicate:
		s.Duplicates++
	case StatusFailed:
		s.Failed++
	}
}

// Config holds configuration options for the pipeline.
type Config struct {
	Retry   service.RetryOptions
	Workers int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Retry: service.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: 50 * time.Millisecond,
			MaxDelay:     50 * time.Millisecond,
			Multiplier:   1,
		},
		Workers: 4,
	}
}

// Pipeline orchestrates message ingestion.
type Pipeline struct {
	extractor   Extractor
	categorizer Categorizer
	store       Store
	progress    func(Outcome)
	config      Config
	progressMu  sync.Mutex
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithProgress registers fn to be called after each message of a batch.
func WithProgress(fn func(Outcome)) Option {
	return func(p *Pipeline) {
		p.progress = fn
	}
}

// New creates a pipeline with the given dependencies.
func New(extractor Extractor, categorizer Categorizer, store Store, config Config, opts ...Option) *Pipeline {
	if config.Workers < 1 {
		config.Workers = 1
	}
	if config.Retry.MaxAttempts < 1 {
		config.Retry.MaxAttempts = 1
	}
	p := &Pipeline{
		extractor:   extractor,
		categorizer: categorizer,
		store:       store,
		config:      config,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process runs one message through the pipeline. Messages that are not
// transactions come back skipped with a nil error; the error is non-nil only
// when categorization or persistence failed.
func (p *Pipeline) Process(ctx context.Context, msg model.Message) (Outcome, error) {
	outcome := Outcome{Message: msg}

	if err := ingest.Validate(msg); err != nil {
		outcome.Status = StatusSkipped
		outcome.Err = err
		slog.Debug("Skipping message", "sender", msg.Sender, "error", err)
		return outcome, nil
	}

	err := ingest.ProcessWithRetry(ctx, msg, func(ctx context.Context, msg model.Message) error {
		outcome.Extraction = p.extractor.Extract(ctx, msg)
		return extraction.Err(outcome.Extraction)
	}, p.config.Retry)
	if err != nil {
		outcome.Err = err
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			outcome.Status = StatusFailed
			return outcome, err
		}
		outcome.Status = StatusSkipped
		slog.Warn("Message not extracted",
			"sender", msg.Sender,
			"reason", outcome.Extraction.Details.FailureReason,
			"error", err)
		return outcome, nil
	}

	txn := outcome.Extraction.Transaction
	outcome.Transaction = txn

	result, err := p.categorizer.Categorize(ctx, *txn)
	if err != nil {
		return p.failed(outcome, fmt.Errorf("failed to categorize %q: %w", txn.MerchantName, err))
	}
	outcome.Categorization = result
	txn.CategoryID = result.Category.ID
	txn.CategoryConfidence = result.Confidence
	txn.CategoryReason = result.Reason

	err = p.store.SaveTransaction(ctx, txn)
	switch {
	case errors.Is(err, common.ErrDuplicateEntry):
		outcome.Status = StatusDuplicate
		outcome.Err = err
		slog.Debug("Duplicate transaction", "sender", msg.Sender, "hash", txn.Hash)
		return outcome, nil
	case errors.Is(err, storage.ErrInvalidTransaction):
		outcome.Status = StatusSkipped
		outcome.Err = err
		slog.Warn("Extracted transaction rejected", "sender", msg.Sender, "error", err)
		return outcome, nil
	case err != nil:
		return p.failed(outcome, err)
	}

	if txn.MerchantName != ingest.UnknownMerchant {
		if err := p.store.IncrementMerchantTransactionCount(ctx, model.NormalizeMerchantName(txn.MerchantName)); err != nil {
			slog.Warn("Failed to update merchant history", "merchant", txn.MerchantName, "error", err)
		}
	}

	outcome.Status = StatusSaved
	slog.Debug("Transaction saved",
		"id", txn.ID,
		"merchant", txn.MerchantName,
		"amount", txn.Amount.StringFixed(2),
		"category", result.Category.Name,
		"reason", result.Reason)
	return outcome, nil
}

func (p *Pipeline) failed(outcome Outcome, err error) (Outcome, error) {
	outcome.Status = StatusFailed
	outcome.Err = err
	return outcome, err
}

// ProcessBatch processes messages with up to Config.Workers running at once.
// A failing message does not stop the batch; canceling ctx does.
func (p *Pipeline) ProcessBatch(ctx context.Context, messages []model.Message) (*Summary, error) {
	startTime := time.Now()

	slog.Info("Starting batch ingest",
		"messages", len(messages),
		"workers", p.config.Workers)

	outcomes := make([]Outcome, len(messages))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.config.Workers)

	for i, msg := range messages {
		i, msg := i, msg
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			outcome, err := p.Process(gctx, msg)
			outcomes[i] = outcome
			p.report(outcome)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				common.LogError(err, "Message processing failed", common.Fields{"sender": msg.Sender})
			}
			return nil
		})
	}
	err := g.Wait()

	summary := &Summary{Outcomes: outcomes}
	for _, o := range outcomes {
		summary.add(o)
	}
	summary.ProcessingTime = time.Since(startTime)

	slog.Info("Batch ingest complete",
		"saved", summary.Saved,
		"skipped", summary.Skipped,
		"duplicates", summary.Duplicates,
		"failed", summary.Failed,
		"duration", summary.ProcessingTime)

	if err != nil {
		return summary, fmt.Errorf("batch ingest interrupted: %w", err)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return summary, fmt.Errorf("batch ingest interrupted: %w", ctxErr)
	}
	return summary, nil
}

func (p *Pipeline) report(o Outcome) {
	if p.progress == nil {
		return
	}
	p.progressMu.Lock()
	defer p.progressMu.Unlock()
	p.progress(o)
}

// Correct reassigns a stored transaction to categoryID and teaches the
// categorizer so the merchant is categorized the same way next time.
func (p *Pipeline) Correct(ctx context.Context, transactionID string, category model.Category) error {
	txn, err := p.store.GetTransactionByID(ctx, transactionID)
	if err != nil {
		return fmt.Errorf("failed to load transaction %s: %w", transactionID, err)
	}

	if err := p.categorizer.LearnFromUserInput(ctx, *txn, category.ID); err != nil {
		return err
	}

	result := model.CategorizationResult{
		Category:   category,
		Confidence: categorize.UserRuleConfidence,
		Reason:     model.ReasonUserRule,
	}
	if err := p.store.UpdateTransactionCategory(ctx, txn.ID, result); err != nil {
		return err
	}

	slog.Info("Transaction recategorized",
		"id", txn.ID,
		"merchant", txn.MerchantName,
		"category", category.Name)
	return nil
}
