package export

import (
	"context"
	"io"

	"github.com/parquet-go/parquet-go"

	"prismgw/prism/pkg/calllog"
)

// parquetRow is the flattened Parquet schema for one call log. Nullable
// analysis fields map to optional columns.
type parquetRow struct {
	ID        string `parquet:"id"`
	Timestamp int64  `parquet:"timestamp,timestamp(millisecond)"`
	Provider  string `parquet:"provider"`
	Model     string `parquet:"model"`
	Endpoint  string `parquet:"endpoint"`
	Method    string `parquet:"method"`
	ClientIP  string `parquet:"client_ip"`
	UserAgent string `parquet:"user_agent"`
	UserID    string `parquet:"user_id"`
	SessionID string `parquet:"session_id"`
	ProxyUsed string `parquet:"proxy_used"`
	Success   bool   `parquet:"success"`
	Error     string `parquet:"error"`
	Streaming bool   `parquet:"streaming"`

	EstimatedPromptTokens     int32   `parquet:"estimated_prompt_tokens"`
	EstimatedCompletionTokens int32   `parquet:"estimated_completion_tokens"`
	EstimatedCost             float64 `parquet:"estimated_cost"`
	EstimatedCachedTokens     int32   `parquet:"estimated_cached_tokens"`
	EstimatedFreshTokens      int32   `parquet:"estimated_fresh_tokens"`
	EstimatedCacheHitRate     float64 `parquet:"estimated_cache_hit_rate"`

	ActualPromptTokens     int32    `parquet:"actual_prompt_tokens"`
	ActualCompletionTokens int32    `parquet:"actual_completion_tokens"`
	ActualTotalTokens      int32    `parquet:"actual_total_tokens"`
	ActualCost             float64  `parquet:"actual_cost"`
	ActualCacheHitRate     *float64 `parquet:"actual_cache_hit_rate,optional"`

	TTFTMs          *int64   `parquet:"ttft_ms,optional"`
	TPOTMs          *float64 `parquet:"tpot_ms,optional"`
	TokensPerSecond *float64 `parquet:"tokens_per_second,optional"`
	TotalLatencyMs  int64    `parquet:"total_latency_ms"`

	StatusCode   int32 `parquet:"status_code"`
	ResponseSize int32 `parquet:"response_size"`
}

func toParquetRow(log *calllog.CallLog) parquetRow {
	return parquetRow{
		ID:        log.ID,
		Timestamp: log.Timestamp.UTC().UnixMilli(),
		Provider:  log.Provider,
		Model:     log.Model,
		Endpoint:  log.Endpoint,
		Method:    log.Method,
		ClientIP:  log.ClientIP,
		UserAgent: log.UserAgent,
		UserID:    log.UserID,
		SessionID: log.SessionID,
		ProxyUsed: log.ProxyUsed,
		Success:   log.Success,
		Error:     log.Error,
		Streaming: log.Streaming,

		EstimatedPromptTokens:     int32(log.EstimatedPromptTokens),
		EstimatedCompletionTokens: int32(log.EstimatedCompletionTokens),
		EstimatedCost:             log.EstimatedCost,
		EstimatedCachedTokens:     int32(log.EstimatedCachedTokens),
		EstimatedFreshTokens:      int32(log.EstimatedFreshTokens),
		EstimatedCacheHitRate:     log.EstimatedCacheHitRate,

		ActualPromptTokens:     int32(log.ActualPromptTokens),
		ActualCompletionTokens: int32(log.ActualCompletionTokens),
		ActualTotalTokens:      int32(log.ActualTotalTokens),
		ActualCost:             log.ActualCost,
		ActualCacheHitRate:     log.ActualCacheHitRate,

		TTFTMs:          log.TTFTMs,
		TPOTMs:          log.TPOTMs,
		TokensPerSecond: log.TokensPerSecond,
		TotalLatencyMs:  log.TotalLatencyMs,

		StatusCode:   int32(log.StatusCode),
		ResponseSize: int32(log.ResponseSize),
	}
}

// ParquetExporter writes call logs as a Parquet file.
type ParquetExporter struct{}

// NewParquetExporter creates a Parquet exporter.
func NewParquetExporter() *ParquetExporter {
	return &ParquetExporter{}
}

// Export writes the logs to w as Parquet.
func (e *ParquetExporter) Export(ctx context.Context, logs []*calllog.CallLog, w io.Writer) error {
	writer := parquet.NewGenericWriter[parquetRow](w)

	rows := make([]parquetRow, 0, len(logs))
	for _, log := range logs {
		rows = append(rows, toParquetRow(log))
	}

	written := 0
	for written < len(rows) {
		n, err := writer.Write(rows[written:])
		if err != nil {
			return calllog.NewExportError("parquet", written, err)
		}
		written += n
	}

	if err := writer.Close(); err != nil {
		return calllog.NewExportError("parquet", written, err)
	}
	return nil
}

// ExportStream writes logs from a channel to w as Parquet, buffering
// into row groups.
func (e *ParquetExporter) ExportStream(ctx context.Context, logsCh <-chan *calllog.CallLog, w io.Writer) error {
	writer := parquet.NewGenericWriter[parquetRow](w)

	const batchSize = 1000
	count := 0
	batch := make([]parquetRow, 0, batchSize)

	flush := func() error {
		pending := batch
		for len(pending) > 0 {
			n, err := writer.Write(pending)
			if err != nil {
				return calllog.NewExportError("parquet", count, err)
			}
			pending = pending[n:]
		}
		batch = batch[:0]
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case log, ok := <-logsCh:
			if !ok {
				if err := flush(); err != nil {
					return err
				}
				if err := writer.Close(); err != nil {
					return calllog.NewExportError("parquet", count, err)
				}
				return nil
			}

			batch = append(batch, toParquetRow(log))
			count++
			if len(batch) >= batchSize {
				if err := flush(); err != nil {
					return err
				}
			}
		}
	}
}
