package settings

import (
	"context"
	"sync"
	"time"
)

// Snapshot is the full admin configuration at a point in time
type Snapshot struct {
	SelectedModel    string            `json:"selectedModel"`
	DefaultMaxTokens int               `json:"defaultMaxTokens"`
	PresetMaxTokens  map[string]int    `json:"presetMaxTokens"`
	PromptOverrides  map[string]string `json:"promptOverrides"`
	LastUpdated      time.Time         `json:"lastUpdated"`
	UpdatedBy        string            `json:"updatedBy"`
}

func (s Snapshot) clone() Snapshot {
	cp := s
	cp.PresetMaxTokens = make(map[string]int, len(s.PresetMaxTokens))
	for k, v := range s.PresetMaxTokens {
		cp.PresetMaxTokens[k] = v
	}
	cp.PromptOverrides = make(map[string]string, len(s.PromptOverrides))
	for k, v := range s.PromptOverrides {
		cp.PromptOverrides[k] = v
	}
	return cp
}

// Store persists snapshots. Load returns nil when nothing was saved yet.
type Store interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, s Snapshot) error
	Close() error
}

// MemoryStore keeps the snapshot for the process lifetime
type MemoryStore struct {
	mu   sync.Mutex
	snap *Snapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(ctx context.Context) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snap == nil {
		return nil, nil
	}
	cp := m.snap.clone()
	return &cp, nil
}

func (m *MemoryStore) Save(ctx context.Context, s Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := s.clone()
	m.snap = &cp
	return nil
}

func (m *MemoryStore) Close() error { return nil }
