package retention

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"prismgw/prism/pkg/calllog"
	"prismgw/prism/pkg/calllog/export"
)

// Config configures the retention pruner.
type Config struct {
	// RetentionDays is how many days of call logs to keep.
	// 0 keeps logs forever.
	RetentionDays int

	// PruneSchedule is a cron expression for automatic pruning.
	// Example: "0 3 * * *" (daily at 3 AM). Empty disables scheduling.
	PruneSchedule string

	// MaxRecords caps the total record count. 0 means unlimited.
	MaxRecords int64

	// ArchiveBeforeDelete exports logs to JSON before deleting them.
	ArchiveBeforeDelete bool

	// ArchivePath is the directory for archive files.
	ArchivePath string
}

// DefaultConfig returns the default retention configuration.
func DefaultConfig() *Config {
	return &Config{
		RetentionDays:       90,
		PruneSchedule:       "0 3 * * *",
		MaxRecords:          0,
		ArchiveBeforeDelete: false,
		ArchivePath:         "data/archives/",
	}
}

// Pruner enforces the retention policy on the call log store.
type Pruner struct {
	storage   calllog.Storage
	config    *Config
	logger    *slog.Logger
	scheduler *Scheduler
}

// NewPruner creates a retention pruner.
func NewPruner(storage calllog.Storage, config *Config) *Pruner {
	if config == nil {
		config = DefaultConfig()
	}

	p := &Pruner{
		storage: storage,
		config:  config,
		logger:  slog.Default().With("component", "calllog.retention"),
	}
	p.scheduler = NewScheduler(p)
	return p
}

// Prune runs both retention phases: age-based deletion, then count-based
// deletion of the oldest records. Returns the total number deleted.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	var totalDeleted int64

	if p.config.RetentionDays > 0 {
		deleted, err := p.pruneByAge(ctx)
		if err != nil {
			return totalDeleted, fmt.Errorf("prune by age failed: %w", err)
		}
		totalDeleted += deleted
	}

	if p.config.MaxRecords > 0 {
		deleted, err := p.pruneByCount(ctx)
		if err != nil {
			return totalDeleted, fmt.Errorf("prune by count failed: %w", err)
		}
		totalDeleted += deleted
	}

	if totalDeleted > 0 {
		p.logger.Info("call log pruning completed",
			"total_deleted", totalDeleted,
			"retention_days", p.config.RetentionDays,
			"max_records", p.config.MaxRecords,
		)
	}
	return totalDeleted, nil
}

func (p *Pruner) pruneByAge(ctx context.Context) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -p.config.RetentionDays)
	query := &calllog.Query{EndTime: &cutoff}

	if p.config.ArchiveBeforeDelete {
		if err := p.archive(ctx, query, "age"); err != nil {
			return 0, err
		}
	}

	deleted, err := p.storage.Delete(ctx, query)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		p.logger.Info("pruned call logs by age",
			"deleted_count", deleted,
			"cutoff", cutoff,
		)
	}
	return deleted, nil
}

func (p *Pruner) pruneByCount(ctx context.Context) (int64, error) {
	count, err := p.storage.Count(ctx, &calllog.Query{})
	if err != nil {
		return 0, fmt.Errorf("failed to count call logs: %w", err)
	}
	if count <= p.config.MaxRecords {
		return 0, nil
	}

	// Oldest first, enough to cover the overage.
	overage := count - p.config.MaxRecords
	oldest, err := p.storage.Query(ctx, &calllog.Query{
		SortOrder: "ASC",
		Limit:     int(overage),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to query oldest call logs: %w", err)
	}
	if len(oldest) == 0 {
		return 0, nil
	}

	sort.Slice(oldest, func(i, j int) bool {
		return oldest[i].Timestamp.Before(oldest[j].Timestamp)
	})
	cutoff := oldest[len(oldest)-1].Timestamp
	query := &calllog.Query{EndTime: &cutoff}

	if p.config.ArchiveBeforeDelete {
		if err := p.archiveLogs(ctx, oldest, "count"); err != nil {
			return 0, err
		}
	}

	deleted, err := p.storage.Delete(ctx, query)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		p.logger.Info("pruned call logs by count",
			"deleted_count", deleted,
			"max_records", p.config.MaxRecords,
		)
	}
	return deleted, nil
}

func (p *Pruner) archive(ctx context.Context, query *calllog.Query, reason string) error {
	logs, err := p.storage.Query(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to query call logs for archiving: %w", err)
	}
	return p.archiveLogs(ctx, logs, reason)
}

func (p *Pruner) archiveLogs(ctx context.Context, logs []*calllog.CallLog, reason string) error {
	if len(logs) == 0 {
		return nil
	}

	if err := os.MkdirAll(p.config.ArchivePath, 0o755); err != nil {
		return fmt.Errorf("failed to create archive directory: %w", err)
	}

	name := fmt.Sprintf("calllog-%s-%s.json", reason, time.Now().Format("2006-01-02-150405"))
	archiveFile := filepath.Join(p.config.ArchivePath, name)
	f, err := os.Create(archiveFile)
	if err != nil {
		return fmt.Errorf("failed to create archive file: %w", err)
	}
	defer f.Close()

	exporter := export.NewJSONExporter(true)
	if err := exporter.Export(ctx, logs, f); err != nil {
		return fmt.Errorf("failed to archive call logs: %w", err)
	}

	p.logger.Info("call logs archived",
		"archive_file", archiveFile,
		"record_count", len(logs),
	)
	return nil
}

// Start begins scheduled pruning.
func (p *Pruner) Start(ctx context.Context) error {
	return p.scheduler.Start(ctx)
}

// Stop stops scheduled pruning.
func (p *Pruner) Stop() {
	p.scheduler.Stop()
}

// NextPruning returns when the next scheduled prune will run.
func (p *Pruner) NextPruning() *time.Time {
	return p.scheduler.NextRun()
}
