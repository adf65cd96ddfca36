package providers

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"strings"
	"time"
)

// SSEReader reads "data:" payloads from an SSE response body and
// timestamps each event for timing analysis. It implements StreamReader
// for both provider dialects, which differ only in payload content.
type SSEReader struct {
	provider string
	body     io.ReadCloser
	scanner  *bufio.Scanner
	meta     *RawCall
	closed   bool
}

// NewSSEReader wraps an open SSE response.
func NewSSEReader(provider string, resp *http.Response, meta *RawCall) *SSEReader {
	scanner := bufio.NewScanner(resp.Body)
	// Frames can exceed the default 64K token limit on long completions.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	meta.StatusCode = resp.StatusCode
	meta.ResponseHeaders = flattenHeaders(resp.Header)

	return &SSEReader{
		provider: provider,
		body:     resp.Body,
		scanner:  scanner,
		meta:     meta,
	}
}

// Read returns the next data payload. Non-data lines (event names,
// comments, blank separators) are skipped; io.EOF signals normal end.
func (s *SSEReader) Read(ctx context.Context) (*StreamEvent, error) {
	if s.closed {
		return nil, io.EOF
	}

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return nil, &StreamError{Provider: s.provider, Message: "failed to read stream", Cause: err}
			}
			return nil, io.EOF
		}

		line := s.scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		return &StreamEvent{
			Data: strings.TrimPrefix(line, "data: "),
			At:   time.Now(),
		}, nil
	}
}

// Meta returns the call metadata captured at stream open.
func (s *SSEReader) Meta() *RawCall {
	return s.meta
}

// Close terminates the stream.
func (s *SSEReader) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.body.Close()
}
