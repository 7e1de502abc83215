package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/spice-sms/internal/accounts"
	"github.com/Veraticus/spice-sms/internal/categorize"
	"github.com/Veraticus/spice-sms/internal/common"
	"github.com/Veraticus/spice-sms/internal/config"
	"github.com/Veraticus/spice-sms/internal/engine"
	"github.com/Veraticus/spice-sms/internal/extraction"
	"github.com/Veraticus/spice-sms/internal/model"
	"github.com/Veraticus/spice-sms/internal/pattern"
	"github.com/Veraticus/spice-sms/internal/service"
	"github.com/Veraticus/spice-sms/internal/storage"
	"github.com/spf13/viper"
)

// initStorage opens and migrates the configured database.
func initStorage(ctx context.Context, cfg *config.Config) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		if closeErr := store.Close(); closeErr != nil {
			slog.Error("Failed to close storage", "error", closeErr)
		}
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// services bundles everything a command needs to extract and categorize.
type services struct {
	cfg         *config.Config
	store       *storage.SQLiteStorage
	registry    *pattern.Registry
	resolver    *accounts.Resolver
	categorizer *categorize.SmartCategorizer
	extractor   *extraction.Extractor
}

// initServices loads configuration, opens storage and builds the pattern
// registry, account resolver, extractor and categorizer on top of it.
func initServices(ctx context.Context) (*services, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}

	store, err := initStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}

	registry := pattern.NewRegistry(pattern.WithStore(store))
	if err := registry.Load(ctx, cfg.Patterns...); err != nil {
		if closeErr := store.Close(); closeErr != nil {
			slog.Error("Failed to close storage", "error", closeErr)
		}
		return nil, err
	}

	resolver := accounts.NewResolver(store)
	scorer := extraction.Scorer{
		FieldWeight:    cfg.Extraction.FieldWeight,
		PatternBonus:   cfg.Extraction.PatternBonus,
		LatencyPenalty: cfg.Extraction.LatencyPenalty,
		LatencyBudget:  cfg.Extraction.LatencyBudget,
	}

	return &services{
		cfg:      cfg,
		store:    store,
		registry: registry,
		resolver: resolver,
		extractor: extraction.NewExtractor(registry,
			extraction.WithResolver(resolver),
			extraction.WithScorer(scorer),
			extraction.WithGenericFallback(cfg.Extraction.GenericFallback)),
		categorizer: categorize.NewSmartCategorizer(store),
	}, nil
}

// Close releases the underlying storage.
func (s *services) Close() {
	if err := s.store.Close(); err != nil {
		slog.Error("Failed to close storage", "error", err)
	}
}

// pipeline builds an ingestion pipeline honoring the configured retry and
// worker settings.
func (s *services) pipeline(opts ...engine.Option) *engine.Pipeline {
	cfg := engine.DefaultConfig()
	cfg.Workers = s.cfg.Workers
	cfg.Retry = service.RetryOptions{
		MaxAttempts:  s.cfg.Retry.MaxAttempts,
		InitialDelay: s.cfg.Retry.Delay,
		MaxDelay:     s.cfg.Retry.Delay,
		Multiplier:   1,
	}
	return engine.New(s.extractor, s.categorizer, s.store, cfg, opts...)
}

// lookupCategory resolves a category by name, listing the valid names when
// it does not exist.
func (s *services) lookupCategory(ctx context.Context, name string) (*model.Category, error) {
	category, err := s.store.GetCategoryByName(ctx, name)
	if err == nil {
		return category, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	categories, listErr := s.store.GetCategories(ctx)
	if listErr != nil {
		return nil, err
	}
	names := make([]string, 0, len(categories))
	for _, c := range categories {
		names = append(names, c.Name)
	}
	return nil, common.NewUserError(
		fmt.Sprintf("unknown category %q (available: %s)", name, strings.Join(names, ", ")),
		err)
}

// parseDirection validates a --direction flag value. An empty value means
// expense.
func parseDirection(raw string) (model.Direction, error) {
	if raw == "" {
		return model.DirectionExpense, nil
	}
	d := model.Direction(strings.ToLower(strings.TrimSpace(raw)))
	if !d.IsValid() {
		return "", common.NewUserError(
			fmt.Sprintf("invalid direction %q (expense, income, transfer_out, transfer_in)", raw),
			common.ErrValidationFailed)
	}
	return d, nil
}

// categoryNames indexes categories by ID.
func categoryNames(categories []model.Category) map[int]string {
	names := make(map[int]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}
	return names
}
