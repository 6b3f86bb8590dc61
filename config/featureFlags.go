package config

import (
	"os"
	"strconv"
	"strings"
)

// DryRunBatches disables snapshot writes: the scheduler evaluates every shop
// and logs what it would order, but persists nothing.
//
// Set via env:
// - BATCH_DRY_RUN=true
func DryRunBatches() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("BATCH_DRY_RUN")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

// BatchWorkerCount bounds how many shop channels a single scheduling pass
// processes concurrently. Channels are independent; the only shared resource
// is the batch store.
//
// Set via env:
// - BATCH_WORKER_COUNT (default 4)
func BatchWorkerCount() int {
	n, err := strconv.Atoi(strings.TrimSpace(os.Getenv("BATCH_WORKER_COUNT")))
	if err != nil || n < 1 {
		return 4
	}
	return n
}

// FirstPeriodDays is the default look-back for the very first batch of a
// recurring shop that has no configured order window start. The 30-day
// default is an operator policy, not a hard requirement.
//
// Set via env:
// - BATCH_FIRST_PERIOD_DAYS (default 30)
func FirstPeriodDays() int {
	n, err := strconv.Atoi(strings.TrimSpace(os.Getenv("BATCH_FIRST_PERIOD_DAYS")))
	if err != nil || n < 1 {
		return 30
	}
	return n
}
