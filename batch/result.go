/*
result.go - Per-item results and the batch summary

Failure results echo the original request so the caller can reconcile
results[i] with items[i] without keeping its own copy; this correspondence
by index is an invariant of the engine, not a convenience.
*/
package batch

// Result is the tagged per-item outcome. On success Detail is populated;
// on failure Code carries the contract-local error code. Request and
// Account are always echoed.
type Result[R any, D any] struct {
	Account Account `json:"account"`
	Request R       `json:"request"`
	Success bool    `json:"success"`
	Detail  D       `json:"detail,omitempty"`
	Code    Code    `json:"code,omitempty"`
}

// Summary is the whole-batch return value. Results preserves input order.
type Summary[R any, D any] struct {
	BatchID    uint64         `json:"batch_id"`
	Total      int            `json:"total_requests"`
	Successful int            `json:"successful"`
	Failed     int            `json:"failed"`
	Aggregate  Amount         `json:"aggregate_amount"`
	Results    []Result[R, D] `json:"results"`
}
