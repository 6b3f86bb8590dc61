package batching

import "errors"

var (
	// ErrChannelNotFound — the channel has no shop config in the commerce
	// source. Manual triggers surface this as a 4xx.
	ErrChannelNotFound = errors.New("shop channel not found")

	// ErrSourceUnavailable — the order/metadata source was unreachable or
	// errored mid-pagination. Aborts only the current channel's attempt.
	ErrSourceUnavailable = errors.New("order source unavailable")

	// ErrBatchConflict — a batch already covers the requested period.
	// The scheduler treats it as COMPLETED; manual triggers get a 409.
	ErrBatchConflict = errors.New("batch period already covered")

	// ErrNotConfigured — the channel has neither an order window end nor a
	// batching interval. Not a failure; excluded from DUE evaluation.
	ErrNotConfigured = errors.New("channel not configured for batching")
)
