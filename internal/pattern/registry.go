package pattern

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/spice-sms/internal/common"
	"github.com/Veraticus/spice-sms/internal/model"
	"github.com/Veraticus/spice-sms/internal/service"
)

// Registry holds compiled message patterns. Readers load an immutable snapshot
// and never block; writers are serialized and publish a fresh snapshot.
type Registry struct {
	store    service.PatternStore
	now      func() time.Time
	snapshot atomic.Pointer[[]*Pattern]
	mu       sync.Mutex
}

// Option configures a Registry.
type Option func(*Registry)

// WithStore persists every registry write through store.
func WithStore(store service.PatternStore) Option {
	return func(r *Registry) {
		r.store = store
	}
}

// WithClock overrides the registry's time source.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	empty := []*Pattern{}
	r.snapshot.Store(&empty)
	return r
}

// NewDefaultRegistry creates a registry holding DefaultPatterns.
func NewDefaultRegistry(opts ...Option) (*Registry, error) {
	r := NewRegistry(opts...)
	compiled, err := compileAll(DefaultPatterns())
	if err != nil {
		return nil, err
	}
	r.snapshot.Store(&compiled)
	return r, nil
}

func compileAll(patterns []model.MessagePattern) ([]*Pattern, error) {
	compiled := make([]*Pattern, 0, len(patterns))
	for _, p := range patterns {
		c, err := Compile(p)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, c)
	}
	return compiled, nil
}

func (r *Registry) load() []*Pattern {
	return *r.snapshot.Load()
}

// Load replaces the registry contents with the stored patterns, the extra
// patterns, and the defaults, in that order. A stored pattern sharing an ID
// with a default replaces the default in place.
func (r *Registry) Load(ctx context.Context, extra ...model.MessagePattern) error {
	// Held across the read so a concurrent Register is either in the store
	// before we read it or applied on top of the new snapshot.
	r.mu.Lock()
	defer r.mu.Unlock()

	var stored []model.MessagePattern
	if r.store != nil {
		var err error
		stored, err = r.store.GetMessagePatterns(ctx)
		if err != nil {
			return fmt.Errorf("failed to load stored patterns: %w", err)
		}
	}

	defaults := DefaultPatterns()
	overrides := make(map[string]model.MessagePattern, len(stored))
	defaultIDs := make(map[string]bool, len(defaults))
	for _, d := range defaults {
		defaultIDs[d.ID] = true
	}

	merged := make([]model.MessagePattern, 0, len(stored)+len(extra)+len(defaults))
	for _, p := range stored {
		if defaultIDs[p.ID] {
			overrides[p.ID] = p
			continue
		}
		merged = append(merged, p)
	}
	for _, p := range extra {
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		merged = append(merged, p)
	}
	for _, d := range defaults {
		if o, ok := overrides[d.ID]; ok {
			d = o
		}
		merged = append(merged, d)
	}

	compiled, err := compileAll(merged)
	if err != nil {
		return err
	}

	r.snapshot.Store(&compiled)

	slog.Debug("Loaded message patterns",
		"stored", len(stored),
		"configured", len(extra),
		"total", len(compiled))
	return nil
}

// Register compiles and appends p, assigning an ID when absent.
func (r *Registry) Register(ctx context.Context, p model.MessagePattern) (*model.MessagePattern, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := r.now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	compiled, err := Compile(p)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current := r.load()
	if indexOf(current, p.ID) >= 0 {
		return nil, fmt.Errorf("pattern %s: %w", p.ID, common.ErrDuplicateEntry)
	}

	if r.store != nil {
		if err := r.store.SaveMessagePattern(ctx, &compiled.MessagePattern); err != nil {
			return nil, fmt.Errorf("failed to persist pattern %s: %w", p.ID, err)
		}
	}

	next := make([]*Pattern, 0, len(current)+1)
	next = append(next, current...)
	next = append(next, compiled)
	r.snapshot.Store(&next)

	result := compiled.MessagePattern
	return &result, nil
}

// Update replaces the pattern with p.ID, keeping its position and creation time.
func (r *Registry) Update(ctx context.Context, p model.MessagePattern) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current := r.load()
	idx := indexOf(current, p.ID)
	if idx < 0 {
		return fmt.Errorf("pattern %s: %w", p.ID, common.ErrNotFound)
	}
	p.CreatedAt = current[idx].CreatedAt
	p.UpdatedAt = r.now()

	compiled, err := Compile(p)
	if err != nil {
		return err
	}
	if r.store != nil {
		if err := r.store.SaveMessagePattern(ctx, &compiled.MessagePattern); err != nil {
			return fmt.Errorf("failed to persist pattern %s: %w", p.ID, err)
		}
	}

	next := make([]*Pattern, len(current))
	copy(next, current)
	next[idx] = compiled
	r.snapshot.Store(&next)
	return nil
}

// Activate marks the pattern active.
func (r *Registry) Activate(ctx context.Context, id string) error {
	return r.setActive(ctx, id, true)
}

// Deactivate marks the pattern inactive; it stays registered.
func (r *Registry) Deactivate(ctx context.Context, id string) error {
	return r.setActive(ctx, id, false)
}

func (r *Registry) setActive(ctx context.Context, id string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current := r.load()
	idx := indexOf(current, id)
	if idx < 0 {
		return fmt.Errorf("pattern %s: %w", id, common.ErrNotFound)
	}

	updated := *current[idx]
	updated.IsActive = active
	updated.UpdatedAt = r.now()

	if r.store != nil {
		err := r.store.SetMessagePatternActive(ctx, id, active)
		if errors.Is(err, common.ErrNotFound) {
			// Built-in patterns live only in memory until first toggled.
			err = r.store.SaveMessagePattern(ctx, &updated.MessagePattern)
		}
		if err != nil {
			return fmt.Errorf("failed to persist pattern %s state: %w", id, err)
		}
	}

	next := make([]*Pattern, len(current))
	copy(next, current)
	next[idx] = &updated
	r.snapshot.Store(&next)
	return nil
}

// Delete removes the pattern. Built-in patterns return on the next Load.
func (r *Registry) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current := r.load()
	idx := indexOf(current, id)
	if idx < 0 {
		return fmt.Errorf("pattern %s: %w", id, common.ErrNotFound)
	}

	if r.store != nil {
		if err := r.store.DeleteMessagePattern(ctx, id); err != nil && !errors.Is(err, common.ErrNotFound) {
			return fmt.Errorf("failed to delete pattern %s: %w", id, err)
		}
	}

	next := make([]*Pattern, 0, len(current)-1)
	next = append(next, current[:idx]...)
	next = append(next, current[idx+1:]...)
	r.snapshot.Store(&next)
	return nil
}

// FindBySender returns the first active pattern whose sender regex matches.
func (r *Registry) FindBySender(sender string) *Pattern {
	for _, p := range r.load() {
		if p.IsActive && p.MatchesSender(sender) {
			return p
		}
	}
	return nil
}

// Match returns the active pattern for sender that fits body best. Among
// patterns matching the sender, the one with the most matching field regexes
// wins; ties go to the earlier registration.
func (r *Registry) Match(sender, body string) *Pattern {
	var best *Pattern
	bestFit := -1
	for _, p := range r.load() {
		if !p.IsActive || !p.MatchesSender(sender) {
			continue
		}
		if fit := p.Fit(body); fit > bestFit {
			best, bestFit = p, fit
		}
	}
	return best
}

// ByInstitution returns active patterns whose institution equals name under
// Unicode case folding.
func (r *Registry) ByInstitution(name string) []*Pattern {
	key := common.Fold(name)
	var matches []*Pattern
	for _, p := range r.load() {
		if p.IsActive && common.Fold(p.Institution) == key {
			matches = append(matches, p)
		}
	}
	return matches
}

// Get returns the pattern with id, active or not.
func (r *Registry) Get(id string) (*Pattern, bool) {
	current := r.load()
	if idx := indexOf(current, id); idx >= 0 {
		return current[idx], true
	}
	return nil, false
}

// All returns every registered pattern in match order.
func (r *Registry) All() []*Pattern {
	current := r.load()
	out := make([]*Pattern, len(current))
	copy(out, current)
	return out
}

// Len returns the number of registered patterns.
func (r *Registry) Len() int {
	return len(r.load())
}

func indexOf(patterns []*Pattern, id string) int {
	for i, p := range patterns {
		if p.ID == id {
			return i
		}
	}
	return -1
}
