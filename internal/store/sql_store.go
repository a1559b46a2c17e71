package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/cmdarr/cmdarr/internal/apierr"
)

// sqlStore implements Store over database/sql, parameterized by dialect so
// the same query logic serves both the SQLite (Lite) and Postgres
// (Standard) backends — the teacher keeps two separate structs
// (internal/storage/sqlite, internal/storage/postgres) behind one
// interface; here the two backends differ only in placeholder syntax and
// driver name, so a single implementation parameterized on dialect avoids
// duplicating every query twice while keeping the same profile-selected
// backend shape.
type sqlStore struct {
	db      *sql.DB
	dialect string // "sqlite3" or "postgres"
}

func newSQLStore(db *sql.DB, dialect string) *sqlStore {
	return &sqlStore{db: db, dialect: dialect}
}

// ph returns the positional placeholder for argument index n (1-based).
func (s *sqlStore) ph(n int) string {
	if s.dialect == "postgres" {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

func (s *sqlStore) Close() error { return s.db.Close() }

// --- Config settings ---

func (s *sqlStore) GetConfigSetting(ctx context.Context, key string) (*ConfigSettingRow, error) {
	q := fmt.Sprintf(`SELECT key, current_value, default_value, data_type, category, description, is_sensitive, is_required, is_hidden, enum_options FROM config_settings WHERE key = %s`, s.ph(1))
	row := s.db.QueryRowContext(ctx, q, key)
	return scanConfigSetting(row)
}

func scanConfigSetting(row *sql.Row) (*ConfigSettingRow, error) {
	var r ConfigSettingRow
	var enumOpts sql.NullString
	if err := row.Scan(&r.Key, &r.CurrentValue, &r.DefaultValue, &r.DataType, &r.Category, &r.Description, &r.IsSensitive, &r.IsRequired, &r.IsHidden, &enumOpts); err != nil {
		return nil, err
	}
	if enumOpts.Valid && enumOpts.String != "" {
		_ = json.Unmarshal([]byte(enumOpts.String), &r.EnumOptions)
	}
	return &r, nil
}

func (s *sqlStore) UpsertConfigSettingIfAbsent(ctx context.Context, row ConfigSettingRow) error {
	var exists int
	q := fmt.Sprintf(`SELECT COUNT(1) FROM config_settings WHERE key = %s`, s.ph(1))
	if err := s.db.QueryRowContext(ctx, q, row.Key).Scan(&exists); err != nil {
		return err
	}
	if exists > 0 {
		return nil
	}
	enumJSON, _ := json.Marshal(row.EnumOptions)
	ins := fmt.Sprintf(`INSERT INTO config_settings (key, current_value, default_value, data_type, category, description, is_sensitive, is_required, is_hidden, enum_options)
		VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s)`,
		s.ph(1), s.ph(2), s.ph(3), s.ph(4), s.ph(5), s.ph(6), s.ph(7), s.ph(8), s.ph(9), s.ph(10))
	_, err := s.db.ExecContext(ctx, ins, row.Key, row.CurrentValue, row.DefaultValue, row.DataType, row.Category, row.Description, row.IsSensitive, row.IsRequired, row.IsHidden, string(enumJSON))
	return err
}

func (s *sqlStore) SetConfigValue(ctx context.Context, key, value string) error {
	q := fmt.Sprintf(`UPDATE config_settings SET current_value = %s WHERE key = %s`, s.ph(1), s.ph(2))
	res, err := s.db.ExecContext(ctx, q, value, key)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("config key %q not found", key)
	}
	return nil
}

func (s *sqlStore) ListConfigSettings(ctx context.Context) ([]ConfigSettingRow, error) {
	return s.queryConfigSettings(ctx, `SELECT key, current_value, default_value, data_type, category, description, is_sensitive, is_required, is_hidden, enum_options FROM config_settings ORDER BY key`)
}

func (s *sqlStore) ListConfigSettingsByCategory(ctx context.Context, category string) ([]ConfigSettingRow, error) {
	q := fmt.Sprintf(`SELECT key, current_value, default_value, data_type, category, description, is_sensitive, is_required, is_hidden, enum_options FROM config_settings WHERE category = %s ORDER BY key`, s.ph(1))
	return s.queryConfigSettings(ctx, q, category)
}

func (s *sqlStore) queryConfigSettings(ctx context.Context, q string, args ...any) ([]ConfigSettingRow, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ConfigSettingRow
	for rows.Next() {
		var r ConfigSettingRow
		var enumOpts sql.NullString
		if err := rows.Scan(&r.Key, &r.CurrentValue, &r.DefaultValue, &r.DataType, &r.Category, &r.Description, &r.IsSensitive, &r.IsRequired, &r.IsHidden, &enumOpts); err != nil {
			return nil, err
		}
		if enumOpts.Valid && enumOpts.String != "" {
			_ = json.Unmarshal([]byte(enumOpts.String), &r.EnumOptions)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// --- Command configs ---

func (s *sqlStore) GetCommandConfig(ctx context.Context, name string) (*CommandConfigRow, error) {
	q := fmt.Sprintf(`SELECT name, display_name, description, enabled, cron_expr, interval_hours, timeout_minutes, config_json, last_run, last_success, last_duration, last_error, is_internal FROM command_configs WHERE name = %s`, s.ph(1))
	row := s.db.QueryRowContext(ctx, q, name)
	return scanCommandConfig(row)
}

func scanCommandConfig(row *sql.Row) (*CommandConfigRow, error) {
	var r CommandConfigRow
	var cfgJSON string
	var lastRun sql.NullTime
	var lastSuccess sql.NullBool
	var lastDuration sql.NullFloat64
	if err := row.Scan(&r.Name, &r.DisplayName, &r.Description, &r.Enabled, &r.CronExpr, &r.IntervalHours, &r.TimeoutMinutes, &cfgJSON, &lastRun, &lastSuccess, &lastDuration, &r.LastError, &r.Internal); err != nil {
		return nil, err
	}
	r.ConfigJSON = json.RawMessage(cfgJSON)
	if lastRun.Valid {
		r.LastRun = &lastRun.Time
	}
	if lastSuccess.Valid {
		r.LastSuccess = &lastSuccess.Bool
	}
	if lastDuration.Valid {
		r.LastDuration = &lastDuration.Float64
	}
	return &r, nil
}

func (s *sqlStore) UpsertCommandConfigIfAbsent(ctx context.Context, row CommandConfigRow) error {
	var exists int
	q := fmt.Sprintf(`SELECT COUNT(1) FROM command_configs WHERE name = %s`, s.ph(1))
	if err := s.db.QueryRowContext(ctx, q, row.Name).Scan(&exists); err != nil {
		return err
	}
	if exists > 0 {
		return nil
	}
	cfgJSON := row.ConfigJSON
	if cfgJSON == nil {
		cfgJSON = json.RawMessage("{}")
	}
	ins := fmt.Sprintf(`INSERT INTO command_configs (name, display_name, description, enabled, cron_expr, interval_hours, timeout_minutes, config_json, is_internal)
		VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s)`,
		s.ph(1), s.ph(2), s.ph(3), s.ph(4), s.ph(5), s.ph(6), s.ph(7), s.ph(8), s.ph(9))
	_, err := s.db.ExecContext(ctx, ins, row.Name, row.DisplayName, row.Description, row.Enabled, row.CronExpr, row.IntervalHours, row.TimeoutMinutes, string(cfgJSON), row.Internal)
	return err
}

func (s *sqlStore) ListCommandConfigs(ctx context.Context) ([]CommandConfigRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, display_name, description, enabled, cron_expr, interval_hours, timeout_minutes, config_json, last_run, last_success, last_duration, last_error, is_internal FROM command_configs ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CommandConfigRow
	for rows.Next() {
		var r CommandConfigRow
		var cfgJSON string
		var lastRun sql.NullTime
		var lastSuccess sql.NullBool
		var lastDuration sql.NullFloat64
		if err := rows.Scan(&r.Name, &r.DisplayName, &r.Description, &r.Enabled, &r.CronExpr, &r.IntervalHours, &r.TimeoutMinutes, &cfgJSON, &lastRun, &lastSuccess, &lastDuration, &r.LastError, &r.Internal); err != nil {
			return nil, err
		}
		r.ConfigJSON = json.RawMessage(cfgJSON)
		if lastRun.Valid {
			r.LastRun = &lastRun.Time
		}
		if lastSuccess.Valid {
			r.LastSuccess = &lastSuccess.Bool
		}
		if lastDuration.Valid {
			r.LastDuration = &lastDuration.Float64
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *sqlStore) UpdateCommandRunStats(ctx context.Context, name string, lastRun time.Time, success bool, duration float64, errMsg string) error {
	q := fmt.Sprintf(`UPDATE command_configs SET last_run = %s, last_success = %s, last_duration = %s, last_error = %s WHERE name = %s`,
		s.ph(1), s.ph(2), s.ph(3), s.ph(4), s.ph(5))
	_, err := s.db.ExecContext(ctx, q, lastRun, success, duration, errMsg, name)
	return err
}

// --- Executions ---

// isUniqueViolation reports whether err is a Postgres unique-constraint
// violation (SQLSTATE 23505), the backstop idx_executions_one_running_per_command
// trips under concurrent Begin calls for the same command that the
// preceding COUNT check raced past under READ COMMITTED.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (s *sqlStore) BeginExecution(ctx context.Context, commandName string, triggeredBy TriggeredBy, startedAt time.Time) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback() //nolint:errcheck

	var running int
	checkQ := fmt.Sprintf(`SELECT COUNT(1) FROM command_executions WHERE command_name = %s AND status = %s`, s.ph(1), s.ph(2))
	if err := tx.QueryRowContext(ctx, checkQ, commandName, StatusRunning).Scan(&running); err != nil {
		return 0, err
	}
	if running > 0 {
		return 0, apierr.ErrAlreadyRunning
	}

	var id int64
	if s.dialect == "postgres" {
		insQ := fmt.Sprintf(`INSERT INTO command_executions (command_name, started_at, triggered_by, status) VALUES (%s, %s, %s, %s) RETURNING id`,
			s.ph(1), s.ph(2), s.ph(3), s.ph(4))
		if err := tx.QueryRowContext(ctx, insQ, commandName, startedAt, triggeredBy, StatusRunning).Scan(&id); err != nil {
			if isUniqueViolation(err) {
				return 0, apierr.ErrAlreadyRunning
			}
			return 0, err
		}
	} else {
		insQ := fmt.Sprintf(`INSERT INTO command_executions (command_name, started_at, triggered_by, status) VALUES (%s, %s, %s, %s)`,
			s.ph(1), s.ph(2), s.ph(3), s.ph(4))
		res, err := tx.ExecContext(ctx, insQ, commandName, startedAt, triggeredBy, StatusRunning)
		if err != nil {
			if isUniqueViolation(err) {
				return 0, apierr.ErrAlreadyRunning
			}
			return 0, err
		}
		id, err = res.LastInsertId()
		if err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

func (s *sqlStore) CompleteExecution(ctx context.Context, id int64, completedAt time.Time, success bool, status ExecutionStatus, errMsg string, output json.RawMessage) error {
	if output == nil {
		output = json.RawMessage("{}")
	}
	duration := 0.0
	var startedAt time.Time
	q := fmt.Sprintf(`SELECT started_at FROM command_executions WHERE id = %s`, s.ph(1))
	if err := s.db.QueryRowContext(ctx, q, id).Scan(&startedAt); err == nil {
		duration = completedAt.Sub(startedAt).Seconds()
	}
	upd := fmt.Sprintf(`UPDATE command_executions SET completed_at = %s, success = %s, duration_secs = %s, status = %s, error_message = %s, output_summary = %s WHERE id = %s`,
		s.ph(1), s.ph(2), s.ph(3), s.ph(4), s.ph(5), s.ph(6), s.ph(7))
	_, err := s.db.ExecContext(ctx, upd, completedAt, success, duration, status, errMsg, string(output), id)
	return err
}

func (s *sqlStore) GetRunningExecution(ctx context.Context, commandName string) (*ExecutionRow, error) {
	q := fmt.Sprintf(`SELECT id, command_name, started_at, completed_at, success, duration_secs, triggered_by, error_message, status, output_summary FROM command_executions WHERE command_name = %s AND status = %s LIMIT 1`, s.ph(1), s.ph(2))
	row := s.db.QueryRowContext(ctx, q, commandName, StatusRunning)
	return scanExecution(row)
}

func scanExecution(row *sql.Row) (*ExecutionRow, error) {
	var r ExecutionRow
	var completedAt sql.NullTime
	var output string
	if err := row.Scan(&r.ID, &r.CommandName, &r.StartedAt, &completedAt, &r.Success, &r.DurationSecs, &r.TriggeredBy, &r.ErrorMessage, &r.Status, &output); err != nil {
		return nil, err
	}
	if completedAt.Valid {
		r.CompletedAt = &completedAt.Time
	}
	r.OutputSummary = json.RawMessage(output)
	return &r, nil
}

func (s *sqlStore) ListRunningExecutions(ctx context.Context) ([]ExecutionRow, error) {
	q := fmt.Sprintf(`SELECT id, command_name, started_at, completed_at, success, duration_secs, triggered_by, error_message, status, output_summary FROM command_executions WHERE status = %s`, s.ph(1))
	return s.queryExecutions(ctx, q, StatusRunning)
}

func (s *sqlStore) ListRecentExecutions(ctx context.Context, limit int) ([]ExecutionRow, error) {
	q := fmt.Sprintf(`SELECT id, command_name, started_at, completed_at, success, duration_secs, triggered_by, error_message, status, output_summary FROM command_executions ORDER BY started_at DESC LIMIT %s`, s.ph(1))
	return s.queryExecutions(ctx, q, limit)
}

func (s *sqlStore) ListExecutionsForCommand(ctx context.Context, commandName string, limit int) ([]ExecutionRow, error) {
	q := fmt.Sprintf(`SELECT id, command_name, started_at, completed_at, success, duration_secs, triggered_by, error_message, status, output_summary FROM command_executions WHERE command_name = %s ORDER BY started_at DESC LIMIT %s`, s.ph(1), s.ph(2))
	return s.queryExecutions(ctx, q, commandName, limit)
}

func (s *sqlStore) queryExecutions(ctx context.Context, q string, args ...any) ([]ExecutionRow, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ExecutionRow
	for rows.Next() {
		var r ExecutionRow
		var completedAt sql.NullTime
		var output string
		if err := rows.Scan(&r.ID, &r.CommandName, &r.StartedAt, &completedAt, &r.Success, &r.DurationSecs, &r.TriggeredBy, &r.ErrorMessage, &r.Status, &output); err != nil {
			return nil, err
		}
		if completedAt.Valid {
			r.CompletedAt = &completedAt.Time
		}
		r.OutputSummary = json.RawMessage(output)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *sqlStore) CountExecutionsForCommand(ctx context.Context, commandName string) (int, error) {
	var n int
	q := fmt.Sprintf(`SELECT COUNT(1) FROM command_executions WHERE command_name = %s`, s.ph(1))
	err := s.db.QueryRowContext(ctx, q, commandName).Scan(&n)
	return n, err
}

func (s *sqlStore) DeleteOldestExecutions(ctx context.Context, commandName string, keep int) (int, error) {
	ids, err := s.queryExecutions(ctx, fmt.Sprintf(`SELECT id, command_name, started_at, completed_at, success, duration_secs, triggered_by, error_message, status, output_summary FROM command_executions WHERE command_name = %s ORDER BY started_at DESC`, s.ph(1)), commandName)
	if err != nil {
		return 0, err
	}
	if len(ids) <= keep {
		return 0, nil
	}
	toDelete := ids[keep:]
	deleted := 0
	for _, row := range toDelete {
		q := fmt.Sprintf(`DELETE FROM command_executions WHERE id = %s`, s.ph(1))
		if _, err := s.db.ExecContext(ctx, q, row.ID); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

func (s *sqlStore) MarkAllRunningFailed(ctx context.Context, reason string, at time.Time) (int, error) {
	q := fmt.Sprintf(`UPDATE command_executions SET status = %s, success = %s, completed_at = %s, error_message = %s WHERE status = %s`,
		s.ph(1), s.ph(2), s.ph(3), s.ph(4), s.ph(5))
	res, err := s.db.ExecContext(ctx, q, StatusFailed, false, at, reason, StatusRunning)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *sqlStore) MarkExecutionFailed(ctx context.Context, id int64, reason string, at time.Time) error {
	q := fmt.Sprintf(`UPDATE command_executions SET status = %s, success = %s, completed_at = %s, error_message = %s WHERE id = %s AND status = %s`,
		s.ph(1), s.ph(2), s.ph(3), s.ph(4), s.ph(5), s.ph(6))
	_, err := s.db.ExecContext(ctx, q, StatusFailed, false, at, reason, id, StatusRunning)
	return err
}

// --- Response/failure cache ---

func (s *sqlStore) GetCacheEntry(ctx context.Context, fingerprint, source string) (*CacheEntryRow, error) {
	q := fmt.Sprintf(`SELECT fingerprint, source, payload, created_at, expires_at FROM cache_entries WHERE fingerprint = %s AND source = %s`, s.ph(1), s.ph(2))
	var r CacheEntryRow
	var payload string
	if err := s.db.QueryRowContext(ctx, q, fingerprint, source).Scan(&r.Fingerprint, &r.Source, &payload, &r.CreatedAt, &r.ExpiresAt); err != nil {
		return nil, err
	}
	r.Payload = json.RawMessage(payload)
	return &r, nil
}

func (s *sqlStore) SetCacheEntry(ctx context.Context, row CacheEntryRow) error {
	if s.dialect == "postgres" {
		q := fmt.Sprintf(`INSERT INTO cache_entries (fingerprint, source, payload, created_at, expires_at) VALUES (%s,%s,%s,%s,%s)
			ON CONFLICT (fingerprint, source) DO UPDATE SET payload = EXCLUDED.payload, created_at = EXCLUDED.created_at, expires_at = EXCLUDED.expires_at`,
			s.ph(1), s.ph(2), s.ph(3), s.ph(4), s.ph(5))
		_, err := s.db.ExecContext(ctx, q, row.Fingerprint, row.Source, string(row.Payload), row.CreatedAt, row.ExpiresAt)
		return err
	}
	q := `INSERT INTO cache_entries (fingerprint, source, payload, created_at, expires_at) VALUES (?,?,?,?,?)
		ON CONFLICT (fingerprint, source) DO UPDATE SET payload = excluded.payload, created_at = excluded.created_at, expires_at = excluded.expires_at`
	_, err := s.db.ExecContext(ctx, q, row.Fingerprint, row.Source, string(row.Payload), row.CreatedAt, row.ExpiresAt)
	return err
}

func (s *sqlStore) GetFailedLookup(ctx context.Context, fingerprint, source string) (*FailedLookupRow, error) {
	q := fmt.Sprintf(`SELECT fingerprint, source, error_reason, created_at, expires_at FROM failed_lookups WHERE fingerprint = %s AND source = %s`, s.ph(1), s.ph(2))
	var r FailedLookupRow
	if err := s.db.QueryRowContext(ctx, q, fingerprint, source).Scan(&r.Fingerprint, &r.Source, &r.ErrorReason, &r.CreatedAt, &r.ExpiresAt); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *sqlStore) SetFailedLookup(ctx context.Context, row FailedLookupRow) error {
	if s.dialect == "postgres" {
		q := fmt.Sprintf(`INSERT INTO failed_lookups (fingerprint, source, error_reason, created_at, expires_at) VALUES (%s,%s,%s,%s,%s)
			ON CONFLICT (fingerprint, source) DO UPDATE SET error_reason = EXCLUDED.error_reason, created_at = EXCLUDED.created_at, expires_at = EXCLUDED.expires_at`,
			s.ph(1), s.ph(2), s.ph(3), s.ph(4), s.ph(5))
		_, err := s.db.ExecContext(ctx, q, row.Fingerprint, row.Source, row.ErrorReason, row.CreatedAt, row.ExpiresAt)
		return err
	}
	q := `INSERT INTO failed_lookups (fingerprint, source, error_reason, created_at, expires_at) VALUES (?,?,?,?,?)
		ON CONFLICT (fingerprint, source) DO UPDATE SET error_reason = excluded.error_reason, created_at = excluded.created_at, expires_at = excluded.expires_at`
	_, err := s.db.ExecContext(ctx, q, row.Fingerprint, row.Source, row.ErrorReason, row.CreatedAt, row.ExpiresAt)
	return err
}

func (s *sqlStore) CleanupExpiredCache(ctx context.Context, now time.Time) (int, error) {
	total := 0
	q1 := fmt.Sprintf(`DELETE FROM cache_entries WHERE expires_at < %s`, s.ph(1))
	res, err := s.db.ExecContext(ctx, q1, now)
	if err != nil {
		return total, err
	}
	n, _ := res.RowsAffected()
	total += int(n)

	q2 := fmt.Sprintf(`DELETE FROM failed_lookups WHERE expires_at < %s`, s.ph(1))
	res, err = s.db.ExecContext(ctx, q2, now)
	if err != nil {
		return total, err
	}
	n, _ = res.RowsAffected()
	total += int(n)
	return total, nil
}

func (s *sqlStore) ClearCacheSource(ctx context.Context, source string) (int, error) {
	total := 0
	q1 := fmt.Sprintf(`DELETE FROM cache_entries WHERE source = %s`, s.ph(1))
	res, err := s.db.ExecContext(ctx, q1, source)
	if err != nil {
		return total, err
	}
	n, _ := res.RowsAffected()
	total += int(n)

	q2 := fmt.Sprintf(`DELETE FROM failed_lookups WHERE source = %s`, s.ph(1))
	res, err = s.db.ExecContext(ctx, q2, source)
	if err != nil {
		return total, err
	}
	n, _ = res.RowsAffected()
	total += int(n)
	return total, nil
}

// --- Library cache ---

func (s *sqlStore) GetLibraryCache(ctx context.Context, service, libraryKey string) (*LibraryCacheRow, error) {
	q := fmt.Sprintf(`SELECT service, base_url, library_key, schema_version, payload, track_count, created_at, expires_at FROM library_cache WHERE service = %s AND library_key = %s`, s.ph(1), s.ph(2))
	var r LibraryCacheRow
	if err := s.db.QueryRowContext(ctx, q, service, libraryKey).Scan(&r.Service, &r.BaseURL, &r.LibraryKey, &r.SchemaVersion, &r.Payload, &r.TrackCount, &r.CreatedAt, &r.ExpiresAt); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *sqlStore) UpsertLibraryCache(ctx context.Context, row LibraryCacheRow) error {
	if s.dialect == "postgres" {
		q := fmt.Sprintf(`INSERT INTO library_cache (service, base_url, library_key, schema_version, payload, track_count, created_at, expires_at) VALUES (%s,%s,%s,%s,%s,%s,%s,%s)
			ON CONFLICT (service, library_key) DO UPDATE SET base_url=EXCLUDED.base_url, schema_version=EXCLUDED.schema_version, payload=EXCLUDED.payload, track_count=EXCLUDED.track_count, created_at=EXCLUDED.created_at, expires_at=EXCLUDED.expires_at`,
			s.ph(1), s.ph(2), s.ph(3), s.ph(4), s.ph(5), s.ph(6), s.ph(7), s.ph(8))
		_, err := s.db.ExecContext(ctx, q, row.Service, row.BaseURL, row.LibraryKey, row.SchemaVersion, row.Payload, row.TrackCount, row.CreatedAt, row.ExpiresAt)
		return err
	}
	q := `INSERT INTO library_cache (service, base_url, library_key, schema_version, payload, track_count, created_at, expires_at) VALUES (?,?,?,?,?,?,?,?)
		ON CONFLICT (service, library_key) DO UPDATE SET base_url=excluded.base_url, schema_version=excluded.schema_version, payload=excluded.payload, track_count=excluded.track_count, created_at=excluded.created_at, expires_at=excluded.expires_at`
	_, err := s.db.ExecContext(ctx, q, row.Service, row.BaseURL, row.LibraryKey, row.SchemaVersion, row.Payload, row.TrackCount, row.CreatedAt, row.ExpiresAt)
	return err
}

func (s *sqlStore) DeleteExpiredLibraryCache(ctx context.Context, now time.Time) (int, error) {
	q := fmt.Sprintf(`DELETE FROM library_cache WHERE expires_at < %s`, s.ph(1))
	res, err := s.db.ExecContext(ctx, q, now)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
