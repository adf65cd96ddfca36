package export

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"prismgw/prism/pkg/calllog"
)

// CSVExporter writes call logs as CSV rows.
type CSVExporter struct {
	// IncludeHeader writes a header row with column names.
	IncludeHeader bool
}

// NewCSVExporter creates a CSV exporter.
func NewCSVExporter(includeHeader bool) *CSVExporter {
	return &CSVExporter{IncludeHeader: includeHeader}
}

// Export writes the logs to w in CSV format.
func (e *CSVExporter) Export(ctx context.Context, logs []*calllog.CallLog, w io.Writer) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if e.IncludeHeader {
		if err := writer.Write(headerRow()); err != nil {
			return calllog.NewExportError("csv", 0, err)
		}
	}

	for i, log := range logs {
		if err := writer.Write(logToRow(log)); err != nil {
			return calllog.NewExportError("csv", i, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return calllog.NewExportError("csv", len(logs), err)
	}
	return nil
}

// ExportStream writes logs from a channel to w, flushing periodically so
// long exports make visible progress.
func (e *CSVExporter) ExportStream(ctx context.Context, logsCh <-chan *calllog.CallLog, w io.Writer) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if e.IncludeHeader {
		if err := writer.Write(headerRow()); err != nil {
			return calllog.NewExportError("csv", 0, err)
		}
	}

	count := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case log, ok := <-logsCh:
			if !ok {
				writer.Flush()
				if err := writer.Error(); err != nil {
					return calllog.NewExportError("csv", count, err)
				}
				return nil
			}

			if err := writer.Write(logToRow(log)); err != nil {
				return calllog.NewExportError("csv", count, err)
			}
			count++

			if count%100 == 0 {
				writer.Flush()
				if err := writer.Error(); err != nil {
					return calllog.NewExportError("csv", count, err)
				}
			}
		}
	}
}

func headerRow() []string {
	return []string{
		"id", "timestamp", "provider", "model", "endpoint", "method",
		"client_ip", "user_agent", "user_id", "session_id", "proxy_used",
		"success", "error", "streaming",
		"estimated_prompt_tokens", "estimated_completion_tokens", "estimated_cost",
		"estimated_cached_tokens", "estimated_fresh_tokens", "estimated_cache_hit_rate",
		"actual_prompt_tokens", "actual_completion_tokens", "actual_total_tokens",
		"actual_cost", "actual_cache_hit_rate",
		"ttft_ms", "tpot_ms", "tokens_per_second", "total_latency_ms",
		"status_code", "response_size",
	}
}

func logToRow(log *calllog.CallLog) []string {
	return []string{
		log.ID,
		log.Timestamp.UTC().Format(time.RFC3339),
		log.Provider,
		log.Model,
		log.Endpoint,
		log.Method,
		log.ClientIP,
		log.UserAgent,
		log.UserID,
		log.SessionID,
		log.ProxyUsed,
		strconv.FormatBool(log.Success),
		log.Error,
		strconv.FormatBool(log.Streaming),
		strconv.Itoa(log.EstimatedPromptTokens),
		strconv.Itoa(log.EstimatedCompletionTokens),
		formatFloat(log.EstimatedCost),
		strconv.Itoa(log.EstimatedCachedTokens),
		strconv.Itoa(log.EstimatedFreshTokens),
		formatFloat(log.EstimatedCacheHitRate),
		strconv.Itoa(log.ActualPromptTokens),
		strconv.Itoa(log.ActualCompletionTokens),
		strconv.Itoa(log.ActualTotalTokens),
		formatFloat(log.ActualCost),
		formatFloatPtr(log.ActualCacheHitRate),
		formatIntPtr(log.TTFTMs),
		formatFloatPtr(log.TPOTMs),
		formatFloatPtr(log.TokensPerSecond),
		strconv.FormatInt(log.TotalLatencyMs, 10),
		strconv.Itoa(log.StatusCode),
		strconv.Itoa(log.ResponseSize),
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatFloatPtr(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func formatIntPtr(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}
