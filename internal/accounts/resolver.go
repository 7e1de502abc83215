// Package accounts resolves masked account identifiers seen in bank messages
// to internal account references.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/spice-sms/internal/common"
	"github.com/Veraticus/spice-sms/internal/model"
	"github.com/Veraticus/spice-sms/internal/service"
)

// Resolver maps (institution, identifier) pairs to account references.
type Resolver struct {
	store service.AccountMappingStore
}

// NewResolver creates a resolver backed by store.
func NewResolver(store service.AccountMappingStore) *Resolver {
	return &Resolver{store: store}
}

// CreateMapping binds identifier at institution to accountRef. Registering the
// same triple again returns the existing mapping, reactivating it if needed.
func (r *Resolver) CreateMapping(ctx context.Context, accountRef, institution, identifier string) (*model.AccountMapping, error) {
	accountRef = strings.TrimSpace(accountRef)
	institution = strings.TrimSpace(institution)
	identifier = strings.TrimSpace(identifier)
	if accountRef == "" || institution == "" || identifier == "" {
		return nil, fmt.Errorf("account, institution and identifier are required: %w", common.ErrValidationFailed)
	}

	mapping := &model.AccountMapping{
		AccountRef:  accountRef,
		Institution: institution,
		Identifier:  identifier,
		IsActive:    true,
	}
	if err := r.store.SaveMapping(ctx, mapping); err != nil {
		return nil, fmt.Errorf("failed to save mapping for %s/%s: %w", institution, identifier, err)
	}

	slog.Debug("Account mapping saved",
		"id", mapping.ID,
		"account", accountRef,
		"institution", institution,
		"identifier", identifier)
	return mapping, nil
}

// FindAccount returns the active mapping for identifier at institution, or nil.
// Institution comparison ignores case; identifier comparison is exact.
func (r *Resolver) FindAccount(ctx context.Context, institution, identifier string) (*model.AccountMapping, error) {
	mapping, err := r.store.FindActiveMapping(ctx, strings.TrimSpace(institution), strings.TrimSpace(identifier))
	if errors.Is(err, common.ErrNotFound) {
		return nil, nil //nolint:nilnil // no mapping is a valid result
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve account %s/%s: %w", institution, identifier, err)
	}
	return mapping, nil
}

// MappingsForAccount lists every identifier owned by accountRef.
func (r *Resolver) MappingsForAccount(ctx context.Context, accountRef string) ([]model.AccountMapping, error) {
	mappings, err := r.store.GetMappingsForAccount(ctx, accountRef)
	if err != nil {
		return nil, fmt.Errorf("failed to list mappings for %s: %w", accountRef, err)
	}
	return mappings, nil
}

// AllMappings lists every mapping, active or not.
func (r *Resolver) AllMappings(ctx context.Context) ([]model.AccountMapping, error) {
	mappings, err := r.store.GetAllMappings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list mappings: %w", err)
	}
	return mappings, nil
}

// Activate re-enables a mapping.
func (r *Resolver) Activate(ctx context.Context, id string) error {
	if err := r.store.SetMappingActive(ctx, id, true); err != nil {
		return fmt.Errorf("failed to activate mapping %s: %w", id, err)
	}
	return nil
}

// Deactivate disables a mapping while keeping its history.
func (r *Resolver) Deactivate(ctx context.Context, id string) error {
	if err := r.store.SetMappingActive(ctx, id, false); err != nil {
		return fmt.Errorf("failed to deactivate mapping %s: %w", id, err)
	}
	return nil
}

// Delete removes a mapping permanently.
func (r *Resolver) Delete(ctx context.Context, id string) error {
	if err := r.store.DeleteMapping(ctx, id); err != nil {
		return fmt.Errorf("failed to delete mapping %s: %w", id, err)
	}
	return nil
}
