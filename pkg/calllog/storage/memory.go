package storage

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"prismgw/prism/pkg/calllog"
)

// MemoryStorage is an in-memory calllog.Storage for tests and ephemeral
// setups. Not suitable for production use.
type MemoryStorage struct {
	mu   sync.RWMutex
	logs []*calllog.CallLog
}

// NewMemoryStorage creates an empty in-memory store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

// Store persists one call log.
func (m *MemoryStorage) Store(ctx context.Context, log *calllog.CallLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *log
	m.logs = append(m.logs, &clone)
	return nil
}

// Query returns logs matching the filters, newest first.
func (m *MemoryStorage) Query(ctx context.Context, q *calllog.Query) ([]*calllog.CallLog, error) {
	m.mu.RLock()
	matched := m.match(q)
	m.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if q.SortOrder == "ASC" {
			return matched[i].Timestamp.Before(matched[j].Timestamp)
		}
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})

	if q.Offset > 0 {
		if q.Offset >= len(matched) {
			return []*calllog.CallLog{}, nil
		}
		matched = matched[q.Offset:]
	}
	limit := 100
	if q.Limit > 0 {
		limit = q.Limit
	}
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// QueryStream streams matching logs through a channel.
func (m *MemoryStorage) QueryStream(ctx context.Context, q *calllog.Query) (<-chan *calllog.CallLog, <-chan error, error) {
	logsCh := make(chan *calllog.CallLog, 100)
	errCh := make(chan error, 1)

	logs, err := m.Query(ctx, q)
	if err != nil {
		return nil, nil, err
	}

	go func() {
		defer close(logsCh)
		defer close(errCh)
		for _, log := range logs {
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case logsCh <- log:
			}
		}
	}()

	return logsCh, errCh, nil
}

// Count returns the number of logs matching the filters.
func (m *MemoryStorage) Count(ctx context.Context, q *calllog.Query) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.match(q))), nil
}

// Delete removes matching logs.
func (m *MemoryStorage) Delete(ctx context.Context, q *calllog.Query) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.logs[:0]
	var deleted int64
	for _, log := range m.logs {
		if matchesQuery(log, q) {
			deleted++
			continue
		}
		kept = append(kept, log)
	}
	m.logs = kept
	return deleted, nil
}

// PerformanceStats aggregates streaming performance by model, provider,
// and day.
func (m *MemoryStorage) PerformanceStats(ctx context.Context, model, provider string, days int) ([]*calllog.PerformanceStatsRow, error) {
	if days <= 0 {
		days = 7
	}
	cutoff := time.Now().AddDate(0, 0, -days)

	type agg struct {
		row      *calllog.PerformanceStatsRow
		sumTTFT  float64
		sumTPOT  float64
		sumTPS   float64
		sumTotal float64
	}

	m.mu.RLock()
	groups := make(map[string]*agg)
	for _, log := range m.logs {
		if !log.Success || log.TTFTMs == nil || log.Timestamp.Before(cutoff) {
			continue
		}
		if model != "" && log.Model != model {
			continue
		}
		if provider != "" && log.Provider != provider {
			continue
		}

		date := log.Timestamp.UTC().Format("2006-01-02")
		key := log.Model + "|" + log.Provider + "|" + date
		g, ok := groups[key]
		if !ok {
			g = &agg{row: &calllog.PerformanceStatsRow{
				Model:    log.Model,
				Provider: log.Provider,
				Date:     date,
				MinTTFT:  math.MaxFloat64,
			}}
			groups[key] = g
		}

		ttft := float64(*log.TTFTMs)
		g.row.Calls++
		g.sumTTFT += ttft
		g.row.MinTTFT = math.Min(g.row.MinTTFT, ttft)
		g.row.MaxTTFT = math.Max(g.row.MaxTTFT, ttft)
		if log.TPOTMs != nil {
			g.sumTPOT += *log.TPOTMs
		}
		if log.TokensPerSecond != nil {
			g.sumTPS += *log.TokensPerSecond
		}
		g.sumTotal += float64(log.TotalLatencyMs)
		g.row.TotalTokens += int64(log.ActualTotalTokens)
		g.row.TotalCost += log.ActualCost
	}
	m.mu.RUnlock()

	stats := make([]*calllog.PerformanceStatsRow, 0, len(groups))
	for _, g := range groups {
		n := float64(g.row.Calls)
		g.row.AvgTTFT = g.sumTTFT / n
		g.row.AvgTPOT = g.sumTPOT / n
		g.row.AvgTPS = g.sumTPS / n
		g.row.AvgTotal = g.sumTotal / n
		stats = append(stats, g.row)
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Date != stats[j].Date {
			return stats[i].Date > stats[j].Date
		}
		return stats[i].Model < stats[j].Model
	})
	return stats, nil
}

// CacheAnalysisSummary compares estimated and actual cache hit rates.
func (m *MemoryStorage) CacheAnalysisSummary(ctx context.Context, days int, threshold float64) (*calllog.CacheAnalysisSummary, error) {
	if days <= 0 {
		days = 7
	}
	cutoff := time.Now().AddDate(0, 0, -days)

	summary := &calllog.CacheAnalysisSummary{Days: days}
	var sumEst, sumAct, sumErr float64

	m.mu.RLock()
	for _, log := range m.logs {
		if log.ActualCacheHitRate == nil || log.Timestamp.Before(cutoff) {
			continue
		}
		summary.TotalPredictions++
		predErr := math.Abs(*log.ActualCacheHitRate - log.EstimatedCacheHitRate)
		if predErr < threshold {
			summary.AccuratePredictions++
		}
		sumEst += log.EstimatedCacheHitRate
		sumAct += *log.ActualCacheHitRate
		sumErr += predErr
	}
	m.mu.RUnlock()

	if summary.TotalPredictions > 0 {
		n := float64(summary.TotalPredictions)
		summary.AvgEstimatedHitRate = sumEst / n
		summary.AvgActualHitRate = sumAct / n
		summary.AvgPredictionError = sumErr / n
		summary.AccuracyPercentage = float64(summary.AccuratePredictions) / n * 100
	}
	return summary, nil
}

// RecentLogs returns the most recent logs, newest first.
func (m *MemoryStorage) RecentLogs(ctx context.Context, limit int) ([]*calllog.CallLog, error) {
	if limit <= 0 {
		limit = 10
	}
	return m.Query(ctx, &calllog.Query{Limit: limit})
}

// DatabaseStats summarizes the store contents.
func (m *MemoryStorage) DatabaseStats(ctx context.Context) (*calllog.DatabaseStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := &calllog.DatabaseStats{
		TotalCalls:      int64(len(m.logs)),
		CallsByProvider: make(map[string]int64),
	}
	modelCounts := make(map[string]int64)
	for _, log := range m.logs {
		stats.CallsByProvider[log.Provider]++
		modelCounts[log.Model]++
	}

	for model, calls := range modelCounts {
		stats.TopModels = append(stats.TopModels, calllog.ModelCount{Model: model, Calls: calls})
	}
	sort.Slice(stats.TopModels, func(i, j int) bool {
		if stats.TopModels[i].Calls != stats.TopModels[j].Calls {
			return stats.TopModels[i].Calls > stats.TopModels[j].Calls
		}
		return stats.TopModels[i].Model < stats.TopModels[j].Model
	})
	if len(stats.TopModels) > 10 {
		stats.TopModels = stats.TopModels[:10]
	}
	return stats, nil
}

// Close is a no-op.
func (m *MemoryStorage) Close() error {
	return nil
}

func (m *MemoryStorage) match(q *calllog.Query) []*calllog.CallLog {
	var matched []*calllog.CallLog
	for _, log := range m.logs {
		if matchesQuery(log, q) {
			matched = append(matched, log)
		}
	}
	return matched
}

func matchesQuery(log *calllog.CallLog, q *calllog.Query) bool {
	if q == nil {
		return true
	}
	if q.StartTime != nil && log.Timestamp.Before(*q.StartTime) {
		return false
	}
	if q.EndTime != nil && log.Timestamp.After(*q.EndTime) {
		return false
	}
	if q.Model != "" && log.Model != q.Model {
		return false
	}
	if q.Provider != "" && log.Provider != q.Provider {
		return false
	}
	if q.Success != nil && log.Success != *q.Success {
		return false
	}
	if q.Streaming != nil && log.Streaming != *q.Streaming {
		return false
	}
	return true
}
