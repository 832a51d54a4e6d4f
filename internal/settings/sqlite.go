package settings

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	_ "modernc.org/sqlite"
)

const (
	keySelectedModel    = "selected_model"
	keyDefaultMaxTokens = "default_max_tokens"
	keyPresetMaxTokens  = "preset_max_tokens"
	keyPromptOverrides  = "prompt_overrides"
	keyUpdatedBy        = "updated_by"
	keyLastUpdated      = "last_updated"
)

// SQLiteStore keeps settings as key/value rows in SQLite
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens dsn and creates the settings table if needed
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// single writer; also keeps an in-memory database alive on one connection
	db.SetMaxOpenConns(1)

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS admin_settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	);
	`
	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Load reads all settings rows. It returns nil when the table is empty.
func (s *SQLiteStore) Load(ctx context.Context) (*Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM admin_settings`)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		values[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, nil
	}

	snap := Snapshot{
		SelectedModel: values[keySelectedModel],
		UpdatedBy:     values[keyUpdatedBy],
	}
	if v, ok := values[keyDefaultMaxTokens]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("setting %s: %w", keyDefaultMaxTokens, err)
		}
		snap.DefaultMaxTokens = n
	}
	if v, ok := values[keyPresetMaxTokens]; ok {
		if err := json.Unmarshal([]byte(v), &snap.PresetMaxTokens); err != nil {
			return nil, fmt.Errorf("setting %s: %w", keyPresetMaxTokens, err)
		}
	}
	if v, ok := values[keyPromptOverrides]; ok {
		if err := json.Unmarshal([]byte(v), &snap.PromptOverrides); err != nil {
			return nil, fmt.Errorf("setting %s: %w", keyPromptOverrides, err)
		}
	}
	if v, ok := values[keyLastUpdated]; ok {
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return nil, fmt.Errorf("setting %s: %w", keyLastUpdated, err)
		}
		snap.LastUpdated = t
	}
	return &snap, nil
}

// Save upserts every setting in one transaction
func (s *SQLiteStore) Save(ctx context.Context, snap Snapshot) error {
	presets, err := json.Marshal(snap.PresetMaxTokens)
	if err != nil {
		return err
	}
	prompts, err := json.Marshal(snap.PromptOverrides)
	if err != nil {
		return err
	}

	values := map[string]string{
		keySelectedModel:    snap.SelectedModel,
		keyDefaultMaxTokens: strconv.Itoa(snap.DefaultMaxTokens),
		keyPresetMaxTokens:  string(presets),
		keyPromptOverrides:  string(prompts),
		keyUpdatedBy:        snap.UpdatedBy,
		keyLastUpdated:      snap.LastUpdated.UTC().Format(time.RFC3339Nano),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
	INSERT INTO admin_settings (key, value, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	now := time.Now().UTC()
	for k, v := range values {
		if _, err := tx.ExecContext(ctx, query, k, v, now); err != nil {
			return fmt.Errorf("failed to save setting %s: %w", k, err)
		}
	}
	return tx.Commit()
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
