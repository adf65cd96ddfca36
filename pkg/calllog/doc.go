// Package calllog defines the API call record and its storage contract.
//
// Every request through the gateway produces exactly one CallLog holding
// both tracks of telemetry: the pre-dispatch estimates (tokens, cost,
// cache reuse) and the actual usage extracted from the raw upstream
// response. Subpackages provide the SQLite backend, the async recorder,
// exporters, and retention pruning.
package calllog
