package export

import (
	"context"
	"encoding/json"
	"io"

	"prismgw/prism/pkg/calllog"
)

// JSONExporter writes call logs as a JSON array or as JSON Lines.
type JSONExporter struct {
	// Pretty indents the output.
	Pretty bool

	// Lines emits one JSON object per line instead of a single array.
	Lines bool
}

// NewJSONExporter creates a JSON exporter.
func NewJSONExporter(pretty bool) *JSONExporter {
	return &JSONExporter{Pretty: pretty}
}

// Export writes the logs to w.
func (e *JSONExporter) Export(ctx context.Context, logs []*calllog.CallLog, w io.Writer) error {
	if e.Lines {
		enc := json.NewEncoder(w)
		for i, log := range logs {
			if err := enc.Encode(log); err != nil {
				return calllog.NewExportError("json", i, err)
			}
		}
		return nil
	}

	enc := json.NewEncoder(w)
	if e.Pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(logs); err != nil {
		return calllog.NewExportError("json", len(logs), err)
	}
	return nil
}

// ExportStream writes logs from a channel to w as JSON Lines. Arrays
// need the whole result set up front, so streaming always emits lines.
func (e *JSONExporter) ExportStream(ctx context.Context, logsCh <-chan *calllog.CallLog, w io.Writer) error {
	enc := json.NewEncoder(w)

	count := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case log, ok := <-logsCh:
			if !ok {
				return nil
			}
			if err := enc.Encode(log); err != nil {
				return calllog.NewExportError("json", count, err)
			}
			count++
		}
	}
}
