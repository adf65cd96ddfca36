package calllog

import "fmt"

// StorageError wraps a failure in a storage backend operation.
type StorageError struct {
	Backend string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("calllog storage %s: %s failed: %v", e.Backend, e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError creates a StorageError.
func NewStorageError(backend, op string, err error) *StorageError {
	return &StorageError{Backend: backend, Op: op, Err: err}
}

// ExportError wraps a failure while exporting call logs.
type ExportError struct {
	Format  string
	Records int
	Err     error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("calllog export to %s failed after %d records: %v", e.Format, e.Records, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

// NewExportError creates an ExportError.
func NewExportError(format string, records int, err error) *ExportError {
	return &ExportError{Format: format, Records: records, Err: err}
}

// RecorderError wraps a failure to enqueue or write a call log.
type RecorderError struct {
	LogID string
	Err   error
}

func (e *RecorderError) Error() string {
	return fmt.Sprintf("calllog recorder: failed to record %s: %v", e.LogID, e.Err)
}

func (e *RecorderError) Unwrap() error {
	return e.Err
}

// NewRecorderError creates a RecorderError.
func NewRecorderError(logID string, err error) *RecorderError {
	return &RecorderError{LogID: logID, Err: err}
}
