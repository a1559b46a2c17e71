// Package config implements the Configuration Store (spec §4.1, C1): a
// schema-typed KV store with strict env > persisted > default precedence,
// a short-lived in-memory memo, sensitive-value redaction, and typed
// coercion. Grounded on the teacher's internal/config/service.go (TTL-memo
// shape) and internal/config/sanitizer.go (redaction), generalized from a
// static viper Config to the DB-backed runtime store spec.md describes.
package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cmdarr/cmdarr/internal/apierr"
	"github.com/cmdarr/cmdarr/internal/store"
)

// memoTTL is how long a resolved value may be cached before Get re-reads
// the environment/store (spec §4.1: "MAY memoise ... for up to 5 minutes").
const memoTTL = 5 * time.Minute

// RedactedPlaceholder is returned by GetAll for sensitive keys when the
// caller requests a redacted view.
const RedactedPlaceholder = "••••••••"

// Setting mirrors the declared shape of a ConfigSetting for API responses.
type Setting struct {
	Key          string
	Value        string
	DefaultValue string
	DataType     store.DataType
	Category     string
	Description  string
	IsSensitive  bool
	IsRequired   bool
	IsHidden     bool
	EnumOptions  []string
}

// Store is the runtime configuration contract (C1).
type Store struct {
	db store.Store

	mu   sync.RWMutex
	memo map[string]memoEntry
}

type memoEntry struct {
	value     string
	expiresAt time.Time
}

// New constructs a Store over the given persistence backend and seeds the
// declared default set (idempotent: already-present rows are untouched).
func New(ctx context.Context, db store.Store) (*Store, error) {
	s := &Store{db: db, memo: make(map[string]memoEntry)}
	for _, d := range Defaults() {
		row := store.ConfigSettingRow{
			Key:          d.Key,
			DefaultValue: d.DefaultValue,
			DataType:     d.DataType,
			Category:     d.Category,
			Description:  d.Description,
			IsSensitive:  d.IsSensitive,
			IsRequired:   d.IsRequired,
			IsHidden:     d.IsHidden,
			EnumOptions:  d.EnumOptions,
		}
		if err := db.UpsertConfigSettingIfAbsent(ctx, row); err != nil {
			return nil, fmt.Errorf("seeding config key %s: %w", d.Key, err)
		}
	}
	return s, nil
}

// Get resolves a key's string value following env > persisted > default
// precedence, short-lived memoization included.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	if v, ok := s.lookupMemo(key); ok {
		return v, nil
	}

	resolved, err := s.resolve(ctx, key)
	if err != nil {
		return "", err
	}
	s.storeMemo(key, resolved)
	return resolved, nil
}

func (s *Store) resolve(ctx context.Context, key string) (string, error) {
	if envVal, ok := os.LookupEnv(key); ok {
		return envVal, nil
	}
	row, err := s.db.GetConfigSetting(ctx, key)
	if err != nil {
		return "", apierr.Wrap(apierr.CodeNotFound, fmt.Sprintf("unknown config key %q", key), err)
	}
	if row.CurrentValue != nil {
		return *row.CurrentValue, nil
	}
	return row.DefaultValue, nil
}

// GetTyped resolves and coerces a key to its declared data type.
func (s *Store) GetTyped(ctx context.Context, key string) (any, error) {
	row, err := s.db.GetConfigSetting(ctx, key)
	if err != nil {
		return nil, apierr.Wrap(apierr.CodeNotFound, fmt.Sprintf("unknown config key %q", key), err)
	}
	raw, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return Coerce(row.DataType, raw, row.EnumOptions)
}

// Set validates and persists a new current value for key, invalidating the
// memo. On coercion failure the key keeps its prior value (spec §4.1).
func (s *Store) Set(ctx context.Context, key, value string) error {
	row, err := s.db.GetConfigSetting(ctx, key)
	if err != nil {
		return apierr.Wrap(apierr.CodeNotFound, fmt.Sprintf("unknown config key %q", key), err)
	}
	if _, err := Coerce(row.DataType, value, row.EnumOptions); err != nil {
		return apierr.Wrap(apierr.CodeValidation, fmt.Sprintf("invalid value for %s", key), err)
	}
	if err := s.db.SetConfigValue(ctx, key, value); err != nil {
		return err
	}
	s.invalidate(key)
	return nil
}

// GetCategory returns every setting in a category as a key->value map,
// honoring precedence per key.
func (s *Store) GetCategory(ctx context.Context, category string) (map[string]string, error) {
	rows, err := s.db.ListConfigSettingsByCategory(ctx, category)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		v, err := s.Get(ctx, r.Key)
		if err != nil {
			return nil, err
		}
		out[r.Key] = v
	}
	return out, nil
}

// GetAll returns every setting, with sensitive values replaced by
// RedactedPlaceholder when redact is true.
func (s *Store) GetAll(ctx context.Context, redact bool) ([]Setting, error) {
	rows, err := s.db.ListConfigSettings(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Setting, 0, len(rows))
	for _, r := range rows {
		v, err := s.Get(ctx, r.Key)
		if err != nil {
			return nil, err
		}
		if redact && r.IsSensitive {
			v = RedactedPlaceholder
		}
		out = append(out, Setting{
			Key: r.Key, Value: v, DefaultValue: r.DefaultValue, DataType: r.DataType,
			Category: r.Category, Description: r.Description, IsSensitive: r.IsSensitive,
			IsRequired: r.IsRequired, IsHidden: r.IsHidden, EnumOptions: r.EnumOptions,
		})
	}
	return out, nil
}

// ValidateRequired returns the keys flagged required whose resolved value
// is empty.
func (s *Store) ValidateRequired(ctx context.Context) ([]string, error) {
	rows, err := s.db.ListConfigSettings(ctx)
	if err != nil {
		return nil, err
	}
	var missing []string
	for _, r := range rows {
		if !r.IsRequired {
			continue
		}
		v, err := s.Get(ctx, r.Key)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(v) == "" {
			missing = append(missing, r.Key)
		}
	}
	return missing, nil
}

// Refresh flushes the entire memo (spec §4.1 POST /api/config/refresh).
func (s *Store) Refresh() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memo = make(map[string]memoEntry)
}

func (s *Store) lookupMemo(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.memo[key]
	if !ok || time.Now().After(e.expiresAt) {
		return "", false
	}
	return e.value, true
}

func (s *Store) storeMemo(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memo[key] = memoEntry{value: value, expiresAt: time.Now().Add(memoTTL)}
}

func (s *Store) invalidate(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.memo, key)
}

// Coerce parses raw according to dt, as spec §4.1 prescribes. Failure is a
// typed validation error; callers must not persist raw on failure.
func Coerce(dt store.DataType, raw string, enumOptions []string) (any, error) {
	switch dt {
	case store.TypeString:
		return raw, nil
	case store.TypeInt:
		return strconv.Atoi(raw)
	case store.TypeFloat:
		return strconv.ParseFloat(raw, 64)
	case store.TypeBool:
		switch strings.ToLower(strings.TrimSpace(raw)) {
		case "true", "1", "yes", "on":
			return true, nil
		case "false", "0", "no", "off", "":
			return false, nil
		default:
			return nil, fmt.Errorf("cannot parse %q as bool", raw)
		}
	case store.TypeJSON:
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("invalid json: %w", err)
		}
		return v, nil
	case store.TypeEnum:
		for _, opt := range enumOptions {
			if opt == raw {
				return raw, nil
			}
		}
		return nil, fmt.Errorf("value %q is not one of %v", raw, enumOptions)
	default:
		return nil, fmt.Errorf("unknown data type %q", dt)
	}
}
