// Package recorder writes call logs to storage asynchronously so
// recording never blocks or fails a live request.
package recorder
