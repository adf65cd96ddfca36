// Package costs calculates request costs from token counts using a
// static per-model pricing table.
package costs
