package recorder

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"prismgw/prism/pkg/calllog"
)

// Config configures the async recorder.
type Config struct {
	// Enabled enables call log recording.
	Enabled bool

	// AsyncBuffer is the size of the write channel buffer.
	// Default: 1000
	AsyncBuffer int

	// WriteTimeout bounds each storage write.
	// Default: 5 seconds
	WriteTimeout time.Duration
}

// DefaultConfig returns the default recorder configuration.
func DefaultConfig() *Config {
	return &Config{
		Enabled:      true,
		AsyncBuffer:  1000,
		WriteTimeout: 5 * time.Second,
	}
}

// Recorder enqueues call logs onto a bounded channel drained by a single
// background worker. When the channel is full the log is dropped with a
// log line rather than stalling the request path.
type Recorder struct {
	storage calllog.Storage
	config  *Config
	logCh   chan *calllog.CallLog
	done    chan struct{}
	wg      sync.WaitGroup
	logger  *slog.Logger

	dropped atomic.Int64
	written atomic.Int64
}

// NewRecorder creates a recorder and starts its worker.
func NewRecorder(storage calllog.Storage, config *Config) *Recorder {
	if config == nil {
		config = DefaultConfig()
	}
	if config.AsyncBuffer <= 0 {
		config.AsyncBuffer = 1000
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 5 * time.Second
	}

	r := &Recorder{
		storage: storage,
		config:  config,
		logCh:   make(chan *calllog.CallLog, config.AsyncBuffer),
		done:    make(chan struct{}),
		logger:  slog.Default().With("component", "calllog.recorder"),
	}

	r.wg.Add(1)
	go r.worker()

	r.logger.Info("call log recorder initialized",
		"async_buffer", config.AsyncBuffer,
		"write_timeout", config.WriteTimeout,
	)

	return r
}

// Record enqueues one call log for async writing. An empty ID is filled
// in. Returns immediately; a full channel drops the log.
func (r *Recorder) Record(log *calllog.CallLog) error {
	if !r.config.Enabled {
		return nil
	}
	if log.ID == "" {
		log.ID = uuid.New().String()
	}
	if log.Timestamp.IsZero() {
		log.Timestamp = time.Now()
	}

	select {
	case <-r.done:
		r.logger.Warn("recorder shutting down, dropping call log", "log_id", log.ID)
		return calllog.NewRecorderError(log.ID, context.Canceled)
	default:
	}

	select {
	case r.logCh <- log:
		return nil
	default:
		r.dropped.Add(1)
		r.logger.Error("call log channel full, dropping record",
			"log_id", log.ID,
			"channel_capacity", r.config.AsyncBuffer,
		)
		return calllog.NewRecorderError(log.ID, context.DeadlineExceeded)
	}
}

// QueueDepth returns the number of logs waiting to be written.
func (r *Recorder) QueueDepth() int {
	return len(r.logCh)
}

// Dropped returns how many logs were dropped due to a full channel.
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

// Written returns how many logs were written to storage.
func (r *Recorder) Written() int64 {
	return r.written.Load()
}

// Close drains the channel and waits for pending writes to finish.
func (r *Recorder) Close() error {
	r.logger.Info("shutting down call log recorder")
	close(r.done)
	r.wg.Wait()
	r.logger.Info("call log recorder shut down", "written", r.written.Load(), "dropped", r.dropped.Load())
	return nil
}

func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case log := <-r.logCh:
			r.write(log)

		case <-r.done:
			r.logger.Debug("draining call log channel before shutdown",
				"pending_count", len(r.logCh),
			)
			for {
				select {
				case log := <-r.logCh:
					r.write(log)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) write(log *calllog.CallLog) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	start := time.Now()
	if err := r.storage.Store(ctx, log); err != nil {
		r.logger.Error("failed to store call log",
			"log_id", log.ID,
			"error", err,
		)
		return
	}
	r.written.Add(1)

	duration := time.Since(start)
	r.logger.Debug("call log recorded",
		"log_id", log.ID,
		"provider", log.Provider,
		"model", log.Model,
		"duration_ms", duration.Milliseconds(),
	)
	if duration > r.config.WriteTimeout/2 {
		r.logger.Warn("slow call log write",
			"log_id", log.ID,
			"duration_ms", duration.Milliseconds(),
		)
	}
}
