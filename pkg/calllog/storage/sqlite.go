package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"prismgw/prism/pkg/calllog"
)

// SQLiteConfig configures the SQLite storage backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns caps open connections. Default: 10
	MaxOpenConns int

	// MaxIdleConns caps idle connections. Default: 5
	MaxIdleConns int

	// WALMode enables write-ahead logging for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is how long to wait on a locked database.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/prism.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStorage implements calllog.Storage on SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStorage opens the database, applies the schema, and verifies
// the schema version.
func NewSQLiteStorage(config *SQLiteConfig) (*SQLiteStorage, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}

	logger := slog.Default().With("component", "calllog.storage.sqlite")

	db, err := sql.Open("sqlite", config.Path)
	if err != nil {
		return nil, calllog.NewStorageError("sqlite", "open", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)

	s := &SQLiteStorage{
		db:     db,
		config: config,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite storage initialized",
		"path", config.Path,
		"wal_mode", config.WALMode,
		"max_open_conns", config.MaxOpenConns,
	)

	return s, nil
}

func (s *SQLiteStorage) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return calllog.NewStorageError("sqlite", "enable_wal", err)
		}
	}

	busyTimeoutMs := s.config.BusyTimeout.Milliseconds()
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busyTimeoutMs)); err != nil {
		return calllog.NewStorageError("sqlite", "set_busy_timeout", err)
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return calllog.NewStorageError("sqlite", "create_schema", err)
	}

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return calllog.NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	err := s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return calllog.NewStorageError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return calllog.NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	return nil
}

// timestampFormat is fixed-width so SQLite string comparisons and date
// functions both work on the stored values.
const timestampFormat = "2006-01-02T15:04:05.000Z07:00"

// columns lists the api_calls columns in insert and scan order.
const columns = `id, timestamp, provider, model, endpoint, method,
	client_ip, user_agent, user_id, session_id, proxy_used, success, error, streaming,
	estimated_prompt_tokens, estimated_completion_tokens, estimated_cost,
	estimated_cached_tokens, estimated_fresh_tokens, estimated_cache_hit_rate,
	actual_prompt_tokens, actual_completion_tokens, actual_total_tokens,
	actual_cost, actual_cache_hit_rate,
	ttft_ms, tpot_ms, tokens_per_second, total_latency_ms,
	request_body, response_body, status_code, response_size`

// Store persists one call log.
func (s *SQLiteStorage) Store(ctx context.Context, log *calllog.CallLog) error {
	query := "INSERT INTO api_calls (" + columns + `) VALUES (
		?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?,
		?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?
	)`

	var errVal interface{}
	if log.Error != "" {
		errVal = log.Error
	}

	_, err := s.db.ExecContext(ctx, query,
		log.ID, log.Timestamp.UTC().Format(timestampFormat), log.Provider, log.Model, log.Endpoint, log.Method,
		log.ClientIP, log.UserAgent, nullString(log.UserID), nullString(log.SessionID), nullString(log.ProxyUsed),
		log.Success, errVal, log.Streaming,
		log.EstimatedPromptTokens, log.EstimatedCompletionTokens, log.EstimatedCost,
		log.EstimatedCachedTokens, log.EstimatedFreshTokens, log.EstimatedCacheHitRate,
		log.ActualPromptTokens, log.ActualCompletionTokens, log.ActualTotalTokens,
		log.ActualCost, nullFloat(log.ActualCacheHitRate),
		nullInt(log.TTFTMs), nullFloat(log.TPOTMs), nullFloat(log.TokensPerSecond), log.TotalLatencyMs,
		log.RequestBody, log.ResponseBody, log.StatusCode, log.ResponseSize,
	)
	if err != nil {
		return calllog.NewStorageError("sqlite", "store", err)
	}
	return nil
}

// Query returns logs matching the filters.
func (s *SQLiteStorage) Query(ctx context.Context, q *calllog.Query) ([]*calllog.CallLog, error) {
	rows, err := s.db.QueryContext(ctx, s.selectQuery(q), s.whereArgs(q)...)
	if err != nil {
		return nil, calllog.NewStorageError("sqlite", "query", err)
	}
	defer rows.Close()

	logs := []*calllog.CallLog{}
	for rows.Next() {
		log, err := scanRow(rows)
		if err != nil {
			return nil, calllog.NewStorageError("sqlite", "scan", err)
		}
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		return nil, calllog.NewStorageError("sqlite", "query", err)
	}
	return logs, nil
}

// QueryStream streams matching logs through a buffered channel.
func (s *SQLiteStorage) QueryStream(ctx context.Context, q *calllog.Query) (<-chan *calllog.CallLog, <-chan error, error) {
	logsCh := make(chan *calllog.CallLog, 100)
	errCh := make(chan error, 1)

	query := s.selectQuery(q)
	args := s.whereArgs(q)

	go func() {
		defer close(logsCh)
		defer close(errCh)

		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			errCh <- calllog.NewStorageError("sqlite", "query_stream", err)
			return
		}
		defer rows.Close()

		for rows.Next() {
			log, err := scanRow(rows)
			if err != nil {
				errCh <- calllog.NewStorageError("sqlite", "scan", err)
				return
			}
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case logsCh <- log:
			}
		}
		if err := rows.Err(); err != nil {
			errCh <- calllog.NewStorageError("sqlite", "query_stream", err)
		}
	}()

	return logsCh, errCh, nil
}

// Count returns the number of logs matching the filters.
func (s *SQLiteStorage) Count(ctx context.Context, q *calllog.Query) (int64, error) {
	query := "SELECT COUNT(*) FROM api_calls"
	if where := s.whereClause(q); where != "" {
		query += " WHERE " + where
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, query, s.whereArgs(q)...).Scan(&count); err != nil {
		return 0, calllog.NewStorageError("sqlite", "count", err)
	}
	return count, nil
}

// Delete removes matching logs and returns how many were deleted.
func (s *SQLiteStorage) Delete(ctx context.Context, q *calllog.Query) (int64, error) {
	query := "DELETE FROM api_calls"
	if where := s.whereClause(q); where != "" {
		query += " WHERE " + where
	}

	result, err := s.db.ExecContext(ctx, query, s.whereArgs(q)...)
	if err != nil {
		return 0, calllog.NewStorageError("sqlite", "delete", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, calllog.NewStorageError("sqlite", "delete", err)
	}
	return count, nil
}

// PerformanceStats reads the performance_stats view.
func (s *SQLiteStorage) PerformanceStats(ctx context.Context, model, provider string, days int) ([]*calllog.PerformanceStatsRow, error) {
	if days <= 0 {
		days = 7
	}

	query := `SELECT model, provider, date, calls,
		COALESCE(avg_ttft_ms, 0), COALESCE(min_ttft_ms, 0), COALESCE(max_ttft_ms, 0),
		COALESCE(avg_tpot_ms, 0), COALESCE(avg_tokens_per_second, 0), COALESCE(avg_total_latency_ms, 0),
		COALESCE(total_tokens, 0), COALESCE(total_cost, 0)
		FROM performance_stats WHERE date >= DATE('now', ?)`
	args := []interface{}{fmt.Sprintf("-%d days", days)}

	if model != "" {
		query += " AND model = ?"
		args = append(args, model)
	}
	if provider != "" {
		query += " AND provider = ?"
		args = append(args, provider)
	}
	query += " ORDER BY date DESC, model"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, calllog.NewStorageError("sqlite", "performance_stats", err)
	}
	defer rows.Close()

	stats := []*calllog.PerformanceStatsRow{}
	for rows.Next() {
		var row calllog.PerformanceStatsRow
		err := rows.Scan(&row.Model, &row.Provider, &row.Date, &row.Calls,
			&row.AvgTTFT, &row.MinTTFT, &row.MaxTTFT,
			&row.AvgTPOT, &row.AvgTPS, &row.AvgTotal,
			&row.TotalTokens, &row.TotalCost)
		if err != nil {
			return nil, calllog.NewStorageError("sqlite", "scan", err)
		}
		stats = append(stats, &row)
	}
	return stats, rows.Err()
}

// CacheAnalysisSummary reads the cache_analysis_comparison view.
func (s *SQLiteStorage) CacheAnalysisSummary(ctx context.Context, days int, threshold float64) (*calllog.CacheAnalysisSummary, error) {
	if days <= 0 {
		days = 7
	}

	query := `SELECT
		COUNT(*),
		COALESCE(SUM(CASE WHEN prediction_error < ? THEN 1 ELSE 0 END), 0),
		COALESCE(AVG(estimated_cache_hit_rate), 0),
		COALESCE(AVG(actual_cache_hit_rate), 0),
		COALESCE(AVG(prediction_error), 0)
		FROM cache_analysis_comparison
		WHERE datetime(timestamp) >= datetime('now', ?)`

	summary := &calllog.CacheAnalysisSummary{Days: days}
	err := s.db.QueryRowContext(ctx, query, threshold, fmt.Sprintf("-%d days", days)).Scan(
		&summary.TotalPredictions,
		&summary.AccuratePredictions,
		&summary.AvgEstimatedHitRate,
		&summary.AvgActualHitRate,
		&summary.AvgPredictionError,
	)
	if err != nil {
		return nil, calllog.NewStorageError("sqlite", "cache_analysis_summary", err)
	}

	if summary.TotalPredictions > 0 {
		summary.AccuracyPercentage = float64(summary.AccuratePredictions) / float64(summary.TotalPredictions) * 100
	}
	return summary, nil
}

// RecentLogs returns the most recent logs, newest first.
func (s *SQLiteStorage) RecentLogs(ctx context.Context, limit int) ([]*calllog.CallLog, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.Query(ctx, &calllog.Query{Limit: limit})
}

// DatabaseStats summarizes the store contents.
func (s *SQLiteStorage) DatabaseStats(ctx context.Context) (*calllog.DatabaseStats, error) {
	stats := &calllog.DatabaseStats{
		CallsByProvider: make(map[string]int64),
	}

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM api_calls").Scan(&stats.TotalCalls); err != nil {
		return nil, calllog.NewStorageError("sqlite", "database_stats", err)
	}

	rows, err := s.db.QueryContext(ctx, "SELECT provider, COUNT(*) FROM api_calls GROUP BY provider")
	if err != nil {
		return nil, calllog.NewStorageError("sqlite", "database_stats", err)
	}
	for rows.Next() {
		var provider string
		var count int64
		if err := rows.Scan(&provider, &count); err != nil {
			rows.Close()
			return nil, calllog.NewStorageError("sqlite", "scan", err)
		}
		stats.CallsByProvider[provider] = count
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, calllog.NewStorageError("sqlite", "database_stats", err)
	}

	rows, err = s.db.QueryContext(ctx,
		"SELECT model, COUNT(*) AS calls FROM api_calls GROUP BY model ORDER BY calls DESC LIMIT 10")
	if err != nil {
		return nil, calllog.NewStorageError("sqlite", "database_stats", err)
	}
	for rows.Next() {
		var mc calllog.ModelCount
		if err := rows.Scan(&mc.Model, &mc.Calls); err != nil {
			rows.Close()
			return nil, calllog.NewStorageError("sqlite", "scan", err)
		}
		stats.TopModels = append(stats.TopModels, mc)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, calllog.NewStorageError("sqlite", "database_stats", err)
	}

	var pageCount, pageSize int64
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err == nil {
		if err := s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize); err == nil {
			stats.SizeBytes = pageCount * pageSize
		}
	}

	return stats, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	if err := s.db.Close(); err != nil {
		return calllog.NewStorageError("sqlite", "close", err)
	}
	s.logger.Info("SQLite storage closed")
	return nil
}

func (s *SQLiteStorage) selectQuery(q *calllog.Query) string {
	query := "SELECT " + columns + " FROM api_calls"
	if where := s.whereClause(q); where != "" {
		query += " WHERE " + where
	}

	// Sort parameters come from API callers, so they never reach the SQL
	// text unvalidated.
	sortBy := "timestamp"
	if _, ok := sortableColumns[q.SortBy]; ok {
		sortBy = q.SortBy
	}
	sortOrder := "DESC"
	if strings.EqualFold(q.SortOrder, "ASC") {
		sortOrder = "ASC"
	}
	query += fmt.Sprintf(" ORDER BY %s %s", sortBy, sortOrder)

	limit := 100
	if q.Limit > 0 {
		limit = q.Limit
	}
	query += fmt.Sprintf(" LIMIT %d", limit)
	if q.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", q.Offset)
	}
	return query
}

// sortableColumns whitelists the columns a Query may sort by.
var sortableColumns = map[string]struct{}{
	"timestamp":        {},
	"model":            {},
	"provider":         {},
	"total_latency_ms": {},
	"ttft_ms":          {},
	"actual_cost":      {},
	"status_code":      {},
}

func (s *SQLiteStorage) whereClause(q *calllog.Query) string {
	var conditions []string
	if q.StartTime != nil {
		conditions = append(conditions, "timestamp >= ?")
	}
	if q.EndTime != nil {
		conditions = append(conditions, "timestamp <= ?")
	}
	if q.Model != "" {
		conditions = append(conditions, "model = ?")
	}
	if q.Provider != "" {
		conditions = append(conditions, "provider = ?")
	}
	if q.Success != nil {
		conditions = append(conditions, "success = ?")
	}
	if q.Streaming != nil {
		conditions = append(conditions, "streaming = ?")
	}
	return strings.Join(conditions, " AND ")
}

func (s *SQLiteStorage) whereArgs(q *calllog.Query) []interface{} {
	var args []interface{}
	if q.StartTime != nil {
		args = append(args, q.StartTime.UTC().Format(timestampFormat))
	}
	if q.EndTime != nil {
		args = append(args, q.EndTime.UTC().Format(timestampFormat))
	}
	if q.Model != "" {
		args = append(args, q.Model)
	}
	if q.Provider != "" {
		args = append(args, q.Provider)
	}
	if q.Success != nil {
		args = append(args, *q.Success)
	}
	if q.Streaming != nil {
		args = append(args, *q.Streaming)
	}
	return args
}

func scanRow(rows *sql.Rows) (*calllog.CallLog, error) {
	var log calllog.CallLog
	var timestamp string
	var errVal, userID, sessionID, proxyUsed sql.NullString
	var actualHitRate, tpot, tps sql.NullFloat64
	var ttft sql.NullInt64

	err := rows.Scan(
		&log.ID, &timestamp, &log.Provider, &log.Model, &log.Endpoint, &log.Method,
		&log.ClientIP, &log.UserAgent, &userID, &sessionID, &proxyUsed,
		&log.Success, &errVal, &log.Streaming,
		&log.EstimatedPromptTokens, &log.EstimatedCompletionTokens, &log.EstimatedCost,
		&log.EstimatedCachedTokens, &log.EstimatedFreshTokens, &log.EstimatedCacheHitRate,
		&log.ActualPromptTokens, &log.ActualCompletionTokens, &log.ActualTotalTokens,
		&log.ActualCost, &actualHitRate,
		&ttft, &tpot, &tps, &log.TotalLatencyMs,
		&log.RequestBody, &log.ResponseBody, &log.StatusCode, &log.ResponseSize,
	)
	if err != nil {
		return nil, err
	}

	if t, err := time.Parse(timestampFormat, timestamp); err == nil {
		log.Timestamp = t
	}
	if errVal.Valid {
		log.Error = errVal.String
	}
	log.UserID = userID.String
	log.SessionID = sessionID.String
	log.ProxyUsed = proxyUsed.String
	if actualHitRate.Valid {
		log.ActualCacheHitRate = &actualHitRate.Float64
	}
	if ttft.Valid {
		log.TTFTMs = &ttft.Int64
	}
	if tpot.Valid {
		log.TPOTMs = &tpot.Float64
	}
	if tps.Valid {
		log.TokensPerSecond = &tps.Float64
	}

	return &log, nil
}

func nullString(v string) interface{} {
	if v == "" {
		return nil
	}
	return v
}

func nullFloat(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullInt(v *int64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
