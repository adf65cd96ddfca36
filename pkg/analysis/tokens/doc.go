// Package tokens estimates token counts for chat requests and responses.
//
// OpenAI-family models use an exact tiktoken encoding when one is
// available; everything else falls back to a word-and-punctuation
// heuristic with CJK awareness. Estimates feed cost calculation and
// cache-reuse analysis before the upstream reports actual usage.
package tokens
