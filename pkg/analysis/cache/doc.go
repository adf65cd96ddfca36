// Package cache estimates how much of a prompt an upstream provider is
// likely to serve from its prompt cache.
//
// Three independent signals contribute: repeated system messages (tracked
// by content hash), common prompt-template openings, and conversation
// history carried across turns. The estimate is compared against actual
// cache usage reported by providers to measure prediction accuracy.
package cache
