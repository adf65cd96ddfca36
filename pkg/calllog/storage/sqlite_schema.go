package storage

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema creates the api_calls table, its indexes, and the analytical
// views used by the stats endpoints.
const Schema = `
CREATE TABLE IF NOT EXISTS api_calls (
    id TEXT PRIMARY KEY,
    timestamp TIMESTAMP NOT NULL,

    -- Routing
    provider TEXT NOT NULL,
    model TEXT NOT NULL,
    endpoint TEXT,
    method TEXT,

    -- Client
    client_ip TEXT,
    user_agent TEXT,
    user_id TEXT,
    session_id TEXT,
    proxy_used TEXT,

    -- Outcome
    success BOOLEAN NOT NULL,
    error TEXT,
    streaming BOOLEAN NOT NULL DEFAULT 0,

    -- Estimated track
    estimated_prompt_tokens INTEGER,
    estimated_completion_tokens INTEGER,
    estimated_cost REAL,
    estimated_cached_tokens INTEGER,
    estimated_fresh_tokens INTEGER,
    estimated_cache_hit_rate REAL,

    -- Actual track
    actual_prompt_tokens INTEGER,
    actual_completion_tokens INTEGER,
    actual_total_tokens INTEGER,
    actual_cost REAL,
    actual_cache_hit_rate REAL,

    -- Performance
    ttft_ms INTEGER,
    tpot_ms REAL,
    tokens_per_second REAL,
    total_latency_ms INTEGER NOT NULL DEFAULT 0,

    -- Raw wire data
    request_body TEXT,
    response_body TEXT,
    status_code INTEGER,
    response_size INTEGER
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_api_calls_timestamp ON api_calls(timestamp);
CREATE INDEX IF NOT EXISTS idx_api_calls_model_timestamp ON api_calls(model, timestamp);
CREATE INDEX IF NOT EXISTS idx_api_calls_provider_model ON api_calls(provider, model);
CREATE INDEX IF NOT EXISTS idx_api_calls_performance ON api_calls(model, ttft_ms, tpot_ms);
CREATE INDEX IF NOT EXISTS idx_api_calls_cache ON api_calls(model, estimated_cache_hit_rate, actual_cache_hit_rate);
CREATE INDEX IF NOT EXISTS idx_api_calls_user_session ON api_calls(user_id, session_id);

-- Estimated vs actual cache reuse, for calls where the upstream reported
-- cache details.
CREATE VIEW IF NOT EXISTS cache_analysis_comparison AS
SELECT
    id,
    timestamp,
    provider,
    model,
    estimated_cache_hit_rate,
    actual_cache_hit_rate,
    actual_cache_hit_rate - estimated_cache_hit_rate AS hit_rate_diff,
    ABS(actual_cache_hit_rate - estimated_cache_hit_rate) AS prediction_error
FROM api_calls
WHERE actual_cache_hit_rate IS NOT NULL;

-- Streaming performance aggregated per model, provider, and day.
CREATE VIEW IF NOT EXISTS performance_stats AS
SELECT
    model,
    provider,
    DATE(timestamp) AS date,
    COUNT(*) AS calls,
    AVG(ttft_ms) AS avg_ttft_ms,
    MIN(ttft_ms) AS min_ttft_ms,
    MAX(ttft_ms) AS max_ttft_ms,
    AVG(tpot_ms) AS avg_tpot_ms,
    AVG(tokens_per_second) AS avg_tokens_per_second,
    AVG(total_latency_ms) AS avg_total_latency_ms,
    SUM(actual_total_tokens) AS total_tokens,
    SUM(actual_cost) AS total_cost
FROM api_calls
WHERE success = 1 AND ttft_ms IS NOT NULL
GROUP BY model, provider, DATE(timestamp);
`

// InsertSchemaVersion records the schema version once.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion retrieves the latest applied schema version.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`
