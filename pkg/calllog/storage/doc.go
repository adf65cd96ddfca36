// Package storage provides call log persistence backends: SQLite for
// production and an in-memory store for tests.
package storage
