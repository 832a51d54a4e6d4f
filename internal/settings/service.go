package settings

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/codebuildervaibhav/tubesummary/internal/logging"
	"github.com/codebuildervaibhav/tubesummary/internal/types"
)

// Max token bounds accepted from admins
const (
	MinMaxTokens = 100
	MaxMaxTokens = 32000
)

// Defaults seed a store that has never been written
type Defaults struct {
	Model     string
	MaxTokens int
	// PresetIDs restricts per-preset settings to known presets when set
	PresetIDs []string
}

// Service is the admin configuration shared by the summary and admin handlers.
// Writes go to the store first and are only visible once persisted.
type Service struct {
	mu      sync.RWMutex
	cur     Snapshot
	store   Store
	presets map[string]bool
	order   []string
	now     func() time.Time
}

// NewService loads the stored snapshot or seeds one from defaults
func NewService(ctx context.Context, store Store, d Defaults) (*Service, error) {
	if store == nil {
		store = NewMemoryStore()
	}
	if d.MaxTokens == 0 {
		d.MaxTokens = 4000
	}
	if err := checkMaxTokens(d.MaxTokens); err != nil {
		return nil, err
	}

	s := &Service{store: store, now: time.Now}
	if len(d.PresetIDs) > 0 {
		s.presets = make(map[string]bool, len(d.PresetIDs))
		for _, id := range d.PresetIDs {
			s.presets[id] = true
		}
		s.order = append([]string(nil), d.PresetIDs...)
	}

	stored, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if stored != nil {
		s.cur = stored.clone()
		if s.cur.DefaultMaxTokens == 0 {
			s.cur.DefaultMaxTokens = d.MaxTokens
		}
		if s.cur.SelectedModel == "" {
			s.cur.SelectedModel = d.Model
		}
		return s, nil
	}

	s.cur = Snapshot{
		SelectedModel:    d.Model,
		DefaultMaxTokens: d.MaxTokens,
		LastUpdated:      s.now(),
		UpdatedBy:        "system",
	}.clone()
	if err := store.Save(ctx, s.cur); err != nil {
		return nil, fmt.Errorf("seed settings: %w", err)
	}
	return s, nil
}

// Snapshot returns a copy of the current settings
func (s *Service) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur.clone()
}

// SelectedModel returns the model used for new summaries
func (s *Service) SelectedModel() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur.SelectedModel
}

// MaxTokens returns the ceiling for presetID, falling back to the default
func (s *Service) MaxTokens(presetID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n, ok := s.cur.PresetMaxTokens[presetID]; ok {
		return n
	}
	return s.cur.DefaultMaxTokens
}

// PresetMaxTokens returns the effective ceiling of every known preset,
// plus the default.
func (s *Service) PresetMaxTokens() (map[string]int, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]int, len(s.order)+len(s.cur.PresetMaxTokens))
	for _, id := range s.order {
		out[id] = s.cur.DefaultMaxTokens
	}
	for id, n := range s.cur.PresetMaxTokens {
		out[id] = n
	}
	return out, s.cur.DefaultMaxTokens
}

// PresetIDs returns the known presets in catalog order
func (s *Service) PresetIDs() []string {
	if len(s.order) > 0 {
		return append([]string(nil), s.order...)
	}
	m, _ := s.PresetMaxTokens()
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// PromptOverride returns the admin-edited prompt for presetID, if any
func (s *Service) PromptOverride(presetID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.cur.PromptOverrides[presetID]
	return p, ok
}

// SelectModel changes the model. IDs must look like provider/model.
func (s *Service) SelectModel(ctx context.Context, modelID, by string) error {
	modelID = strings.TrimSpace(modelID)
	if modelID == "" {
		return invalid("Model ID is required")
	}
	if !strings.Contains(modelID, "/") {
		return invalid("Invalid model ID format. Expected format: provider/model-name")
	}
	return s.update(ctx, by, "model selected", func(next *Snapshot) error {
		next.SelectedModel = modelID
		return nil
	}, slog.String("model", modelID))
}

// SetPresetMaxTokens sets one preset's ceiling
func (s *Service) SetPresetMaxTokens(ctx context.Context, presetID string, n int, by string) error {
	if err := s.checkPreset(presetID); err != nil {
		return err
	}
	if err := checkMaxTokens(n); err != nil {
		return err
	}
	return s.update(ctx, by, "preset max tokens updated", func(next *Snapshot) error {
		next.PresetMaxTokens[presetID] = n
		return nil
	}, slog.String("preset", presetID), slog.Int("max_tokens", n))
}

// SetDefaultMaxTokens sets the ceiling used by presets without their own
func (s *Service) SetDefaultMaxTokens(ctx context.Context, n int, by string) error {
	if err := checkMaxTokens(n); err != nil {
		return err
	}
	return s.update(ctx, by, "default max tokens updated", func(next *Snapshot) error {
		next.DefaultMaxTokens = n
		return nil
	}, slog.Int("max_tokens", n))
}

// BulkSetMaxTokens applies all values or none
func (s *Service) BulkSetMaxTokens(ctx context.Context, values map[string]int, by string) error {
	if len(values) == 0 {
		return invalid("Presets object is required (presetId: maxTokens pairs)")
	}
	for id, n := range values {
		if err := s.checkPreset(id); err != nil {
			return err
		}
		if checkMaxTokens(n) != nil {
			return invalid(fmt.Sprintf("Max tokens for preset %s must be between %d and %d", id, MinMaxTokens, MaxMaxTokens))
		}
	}
	return s.update(ctx, by, "preset max tokens bulk updated", func(next *Snapshot) error {
		for id, n := range values {
			next.PresetMaxTokens[id] = n
		}
		return nil
	}, slog.Int("count", len(values)))
}

// SetPromptOverride replaces a preset's prompt; an empty prompt restores the built-in one
func (s *Service) SetPromptOverride(ctx context.Context, presetID, prompt, by string) error {
	if err := s.checkPreset(presetID); err != nil {
		return err
	}
	return s.update(ctx, by, "preset prompt updated", func(next *Snapshot) error {
		if strings.TrimSpace(prompt) == "" {
			delete(next.PromptOverrides, presetID)
			return nil
		}
		next.PromptOverrides[presetID] = prompt
		return nil
	}, slog.String("preset", presetID), slog.Bool("reset", strings.TrimSpace(prompt) == ""))
}

func (s *Service) update(ctx context.Context, by, msg string, mutate func(*Snapshot) error, attrs ...any) error {
	if by == "" {
		by = "admin"
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cur.clone()
	if err := mutate(&next); err != nil {
		return err
	}
	next.UpdatedBy = by
	next.LastUpdated = s.now()

	if err := s.store.Save(ctx, next); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	s.cur = next

	logging.FromContext(ctx).Info(msg, append(attrs, slog.String("updated_by", by))...)
	return nil
}

func (s *Service) checkPreset(id string) error {
	if strings.TrimSpace(id) == "" {
		return invalid("Preset ID is required")
	}
	if s.presets != nil && !s.presets[id] {
		return invalid(fmt.Sprintf("Unknown preset ID: %s", id))
	}
	return nil
}

func checkMaxTokens(n int) error {
	if n < MinMaxTokens || n > MaxMaxTokens {
		return invalid(fmt.Sprintf("Max tokens must be between %d and %d", MinMaxTokens, MaxMaxTokens))
	}
	return nil
}

func invalid(msg string) error {
	return types.NewError(types.KindInvalidInput, msg, nil)
}
