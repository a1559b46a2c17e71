// Package store provides the persistence layer shared by the Configuration
// Store (C1), Execution Registry (C5), Response/Failure Cache (C2, Lite
// profile fallback), and Library Cache (C3). It exposes one Store interface
// with two backends (SQLite for the Lite profile, Postgres for Standard),
// selected by internal/bootstrap.Profile, matching the teacher's
// internal/storage.NewStorage factory pattern.
package store

import (
	"context"
	"encoding/json"
	"time"
)

// DataType enumerates the declared type of a ConfigSetting (spec §3).
type DataType string

const (
	TypeString DataType = "string"
	TypeInt    DataType = "int"
	TypeFloat  DataType = "float"
	TypeBool   DataType = "bool"
	TypeJSON   DataType = "json"
	TypeEnum   DataType = "enum"
)

// ConfigSettingRow is the persisted row backing a ConfigSetting.
type ConfigSettingRow struct {
	Key          string
	CurrentValue *string
	DefaultValue string
	DataType     DataType
	Category     string
	Description  string
	IsSensitive  bool
	IsRequired   bool
	IsHidden     bool
	EnumOptions  []string
}

// CommandConfigRow is the persisted row backing a CommandConfig.
type CommandConfigRow struct {
	Name            string
	DisplayName     string
	Description     string
	Enabled         bool
	CronExpr        string
	IntervalHours   float64
	TimeoutMinutes  int // 0 = unset
	ConfigJSON      json.RawMessage
	LastRun         *time.Time
	LastSuccess     *bool
	LastDuration    *float64
	LastError       string
	Internal        bool // helper command, excluded from /api/status/commands
}

// ExecutionStatus is the lifecycle state of a CommandExecution.
type ExecutionStatus string

const (
	StatusRunning   ExecutionStatus = "running"
	StatusCompleted ExecutionStatus = "completed"
	StatusFailed    ExecutionStatus = "failed"
)

// TriggeredBy identifies what caused a CommandExecution to start.
type TriggeredBy string

const (
	TriggeredScheduler TriggeredBy = "scheduler"
	TriggeredManual    TriggeredBy = "manual"
	TriggeredStartup   TriggeredBy = "startup"
)

// ExecutionRow is the persisted row backing a CommandExecution.
type ExecutionRow struct {
	ID            int64
	CommandName   string
	StartedAt     time.Time
	CompletedAt   *time.Time
	Success       bool
	DurationSecs  float64
	TriggeredBy   TriggeredBy
	ErrorMessage  string
	Status        ExecutionStatus
	OutputSummary json.RawMessage
}

// CacheEntryRow backs CacheEntry.
type CacheEntryRow struct {
	Fingerprint string
	Source      string
	Payload     json.RawMessage
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

// FailedLookupRow backs FailedLookup.
type FailedLookupRow struct {
	Fingerprint string
	Source      string
	ErrorReason string
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

// LibraryCacheRow backs LibraryCache.
type LibraryCacheRow struct {
	Service       string
	BaseURL       string
	LibraryKey    string
	SchemaVersion int
	Payload       []byte // JSON-encoded LibrarySnapshot
	TrackCount    int
	CreatedAt     time.Time
	ExpiresAt     time.Time
}

// Store is the full persistence contract. Implementations must be safe for
// concurrent use from any goroutine (spec §5).
type Store interface {
	// Config settings (C1)
	GetConfigSetting(ctx context.Context, key string) (*ConfigSettingRow, error)
	UpsertConfigSettingIfAbsent(ctx context.Context, row ConfigSettingRow) error
	SetConfigValue(ctx context.Context, key, value string) error
	ListConfigSettings(ctx context.Context) ([]ConfigSettingRow, error)
	ListConfigSettingsByCategory(ctx context.Context, category string) ([]ConfigSettingRow, error)

	// Command configs + executions (C5, C6)
	GetCommandConfig(ctx context.Context, name string) (*CommandConfigRow, error)
	UpsertCommandConfigIfAbsent(ctx context.Context, row CommandConfigRow) error
	ListCommandConfigs(ctx context.Context) ([]CommandConfigRow, error)
	UpdateCommandRunStats(ctx context.Context, name string, lastRun time.Time, success bool, duration float64, errMsg string) error

	BeginExecution(ctx context.Context, commandName string, triggeredBy TriggeredBy, startedAt time.Time) (int64, error)
	CompleteExecution(ctx context.Context, id int64, completedAt time.Time, success bool, status ExecutionStatus, errMsg string, output json.RawMessage) error
	GetRunningExecution(ctx context.Context, commandName string) (*ExecutionRow, error)
	ListRunningExecutions(ctx context.Context) ([]ExecutionRow, error)
	ListRecentExecutions(ctx context.Context, limit int) ([]ExecutionRow, error)
	ListExecutionsForCommand(ctx context.Context, commandName string, limit int) ([]ExecutionRow, error)
	CountExecutionsForCommand(ctx context.Context, commandName string) (int, error)
	DeleteOldestExecutions(ctx context.Context, commandName string, keep int) (int, error)
	MarkAllRunningFailed(ctx context.Context, reason string, at time.Time) (int, error)
	MarkExecutionFailed(ctx context.Context, id int64, reason string, at time.Time) error

	// Response/failure cache (C2, used directly in Lite profile, or as the
	// persistence behind a Redis L1 in Standard profile)
	GetCacheEntry(ctx context.Context, fingerprint, source string) (*CacheEntryRow, error)
	SetCacheEntry(ctx context.Context, row CacheEntryRow) error
	GetFailedLookup(ctx context.Context, fingerprint, source string) (*FailedLookupRow, error)
	SetFailedLookup(ctx context.Context, row FailedLookupRow) error
	CleanupExpiredCache(ctx context.Context, now time.Time) (int, error)
	ClearCacheSource(ctx context.Context, source string) (int, error)

	// Library cache (C3)
	GetLibraryCache(ctx context.Context, service, libraryKey string) (*LibraryCacheRow, error)
	UpsertLibraryCache(ctx context.Context, row LibraryCacheRow) error
	DeleteExpiredLibraryCache(ctx context.Context, now time.Time) (int, error)

	Close() error
}
