// Package export writes call logs to Parquet, CSV, and JSON for offline
// analysis. Each format has a batch exporter and a streaming variant for
// large result sets.
package export
