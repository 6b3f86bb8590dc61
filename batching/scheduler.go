package batching

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/google/uuid"
	"github.com/mmprintworks/printshop_backend/config"
	"github.com/mmprintworks/printshop_backend/models"
	"github.com/mmprintworks/printshop_backend/utils"
	"github.com/shopspring/decimal"
)

type ChannelState string

const (
	StatePending       ChannelState = "PENDING"
	StateDue           ChannelState = "DUE"
	StateCompleted     ChannelState = "COMPLETED"
	StateError         ChannelState = "ERROR"
	StateNotConfigured ChannelState = "NOT_CONFIGURED"
)

// Decision is the outcome of evaluating one channel's batching policy against
// the latest persisted batch. PeriodStart/PeriodEnd are set only for DUE.
type Decision struct {
	State       ChannelState
	PeriodStart time.Time
	PeriodEnd   time.Time
	Reason      string
}

// EvaluateChannel decides whether a batch is due for a channel. Pure function
// of the shop config, the latest persisted batch, and the clock.
//
// Finite drops close exactly once: the latest batch's period end reaching the
// order window end is the idempotency guard. Recurring shops close whenever
// the configured interval has elapsed since the last period end.
func EvaluateChannel(cfg *ShopConfig, latest *models.Batch, now time.Time, firstPeriodDays int) Decision {
	switch {
	case cfg.OrderWindowEnd != nil:
		windowEnd := *cfg.OrderWindowEnd
		if now.Before(windowEnd) {
			return Decision{State: StatePending, Reason: "order window still open"}
		}
		if latest != nil && !latest.PeriodEnd.Before(windowEnd) {
			return Decision{State: StateCompleted, Reason: "window already batched"}
		}
		start := time.Unix(0, 0).UTC()
		if cfg.OrderWindowStart != nil {
			start = *cfg.OrderWindowStart
		} else if latest != nil {
			start = latest.PeriodEnd
		}
		return Decision{State: StateDue, PeriodStart: start, PeriodEnd: windowEnd}

	case cfg.BatchIntervalDays != nil:
		interval := time.Duration(*cfg.BatchIntervalDays) * 24 * time.Hour
		if latest == nil {
			start := now.AddDate(0, 0, -firstPeriodDays)
			if cfg.OrderWindowStart != nil {
				start = *cfg.OrderWindowStart
			}
			return Decision{State: StateDue, PeriodStart: start, PeriodEnd: now}
		}
		if now.Sub(latest.PeriodEnd) >= interval {
			return Decision{State: StateDue, PeriodStart: latest.PeriodEnd, PeriodEnd: now}
		}
		return Decision{State: StatePending, Reason: "interval not yet elapsed"}

	default:
		return Decision{State: StateNotConfigured, Reason: "no order window end and no batching interval"}
	}
}

// ChannelResult is one channel's outcome from a scheduling pass. Failures are
// carried in Err instead of being swallowed; one channel's failure never
// stops the others.
type ChannelResult struct {
	Channel     string       `json:"channel"`
	State       ChannelState `json:"state"`
	BatchId     int          `json:"batch_id,omitempty"`
	PeriodStart time.Time    `json:"period_start,omitempty"`
	PeriodEnd   time.Time    `json:"period_end,omitempty"`
	Reason      string       `json:"reason,omitempty"`
	Err         error        `json:"-"`
}

// Scheduler composes metadata resolution, order ingestion, aggregation,
// requirement resolution and the snapshot store into per-channel batch runs.
type Scheduler struct {
	Meta   MetadataSource
	Orders OrderSource
	Store  BatchStore

	// Locker is a best-effort guard against concurrent passes working the
	// same channel. Correctness does not depend on it; the store's unique
	// period index is the hard guard.
	Locker *redislock.Client

	Workers         int
	DryRun          bool
	FirstPeriodDays int
	Now             func() time.Time
}

func NewScheduler(meta MetadataSource, orders OrderSource, store BatchStore, locker *redislock.Client) *Scheduler {
	return &Scheduler{
		Meta:            meta,
		Orders:          orders,
		Store:           store,
		Locker:          locker,
		Workers:         config.BatchWorkerCount(),
		DryRun:          config.DryRunBatches(),
		FirstPeriodDays: config.FirstPeriodDays(),
		Now:             time.Now,
	}
}

const channelLockTTL = 5 * time.Minute

// RunPass evaluates every configured channel once and closes the batches that
// are due. Channels are processed by a bounded worker pool; each result is
// collected, errors included.
func (s *Scheduler) RunPass(ctx context.Context) ([]ChannelResult, error) {
	logger := config.GetLogger()
	runId := uuid.NewString()
	ctx = utils.SetCorrelationIdInContext(ctx, runId)

	channels, err := s.Meta.ListChannels(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list channels: %v", ErrSourceUnavailable, err)
	}

	workers := s.Workers
	if workers < 1 {
		workers = 1
	}

	results := make([]ChannelResult, len(channels))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i, channel := range channels {
		if ctx.Err() != nil {
			results[i] = ChannelResult{Channel: channel, State: StateError, Reason: "pass cancelled", Err: ctx.Err()}
			continue
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, channel string) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = s.processChannel(ctx, channel)
		}(i, channel)
	}
	wg.Wait()

	var created, failed int
	for _, r := range results {
		if r.Err != nil {
			failed++
		} else if r.BatchId > 0 {
			created++
		}
	}
	config.LogInfo(logger, "batching", "RunPass", "pass finished",
		map[string]any{"run": runId, "channels": len(channels), "created": created, "failed": failed},
		"scheduling pass finished")

	return results, nil
}

func (s *Scheduler) processChannel(ctx context.Context, channel string) ChannelResult {
	logger := config.GetLogger()
	ctx = utils.SetChannelInContext(ctx, channel)
	result := ChannelResult{Channel: channel}

	if s.Locker != nil {
		lock, err := s.Locker.Obtain(ctx, "batching:channel:"+channel, channelLockTTL, nil)
		if err == nil {
			defer lock.Release(ctx)
		} else if errors.Is(err, redislock.ErrNotObtained) {
			result.State = StatePending
			result.Reason = "channel locked by another scheduler run"
			return result
		}
		// Any other lock error: proceed without the lock. The unique period
		// index still prevents a double batch.
	}

	cfg, variants, err := s.Meta.ShopMetadata(ctx, channel)
	if err != nil {
		config.LogError(logger, "batching", "processChannel", "resolve shop metadata", map[string]any{"channel": channel}, err)
		result.State = StateError
		result.Reason = err.Error()
		result.Err = err
		return result
	}

	latest, err := s.Store.LatestBatchByChannel(ctx, channel)
	if err != nil {
		config.LogError(logger, "batching", "processChannel", "load latest batch", map[string]any{"channel": channel}, err)
		result.State = StateError
		result.Reason = err.Error()
		result.Err = err
		return result
	}

	decision := EvaluateChannel(cfg, latest, s.Now(), s.FirstPeriodDays)
	result.State = decision.State
	result.Reason = decision.Reason
	if decision.State != StateDue {
		return result
	}
	result.PeriodStart = decision.PeriodStart
	result.PeriodEnd = decision.PeriodEnd

	batch, err := s.closeBatch(ctx, cfg, variants, decision.PeriodStart, decision.PeriodEnd)
	if err != nil {
		if errors.Is(err, ErrBatchConflict) {
			// A concurrent run already closed this period.
			result.State = StateCompleted
			result.Reason = "period already batched"
			return result
		}
		config.LogError(logger, "batching", "processChannel", "close batch", map[string]any{"channel": channel}, err)
		result.State = StateError
		result.Reason = err.Error()
		result.Err = err
		return result
	}

	if s.DryRun {
		result.Reason = "dry run; snapshot not persisted"
		return result
	}
	result.BatchId = batch.ID
	config.LogInfo(logger, "batching", "processChannel", "batch closed",
		map[string]any{"channel": channel, "batch": batch.ID, "sold": batch.TotalItemsSold, "required": batch.TotalItemsRequired},
		"batch snapshot created")
	return result
}

// CloseBatchNow is the manual trigger path: close a batch for an explicit
// period, bypassing the window/interval decision but not the conflict guard.
func (s *Scheduler) CloseBatchNow(ctx context.Context, channel string, periodStart, periodEnd time.Time) (*models.Batch, error) {
	cfg, variants, err := s.Meta.ShopMetadata(ctx, channel)
	if err != nil {
		return nil, err
	}
	return s.closeBatch(ctx, cfg, variants, periodStart, periodEnd)
}

func (s *Scheduler) closeBatch(ctx context.Context, cfg *ShopConfig, variants VariantLookup, periodStart, periodEnd time.Time) (*models.Batch, error) {
	pager, err := s.Orders.Orders(ctx, cfg.Channel, periodStart, periodEnd)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	var orders []Order
	for {
		page, hasMore, err := pager.Next(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
		}
		orders = append(orders, page...)
		if !hasMore {
			break
		}
	}

	totalSold, garments := AggregateOrders(variants, orders)
	resolved := ResolveRequirements(cfg, totalSold, garments, len(orders))

	batch := buildBatch(cfg, periodStart, periodEnd, s.Now(), resolved)
	if s.DryRun {
		return batch, nil
	}
	if err := s.Store.CreateBatch(ctx, batch); err != nil {
		if errors.Is(err, utils.ErrorDuplicateRecord) {
			return nil, fmt.Errorf("%w: %w", ErrBatchConflict, err)
		}
		return nil, err
	}
	return batch, nil
}

// ChannelStatus is the read-only scheduler state exposed per channel.
type ChannelStatus struct {
	Channel         string       `json:"channel"`
	State           ChannelState `json:"state"`
	Reason          string       `json:"reason,omitempty"`
	NextPeriodStart *time.Time   `json:"next_period_start,omitempty"`
	NextPeriodEnd   *time.Time   `json:"next_period_end,omitempty"`
	LatestBatchId   int          `json:"latest_batch_id,omitempty"`
	LatestPeriodEnd *time.Time   `json:"latest_period_end,omitempty"`
}

// Status evaluates every channel without closing anything.
func (s *Scheduler) Status(ctx context.Context) ([]ChannelStatus, error) {
	channels, err := s.Meta.ListChannels(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list channels: %v", ErrSourceUnavailable, err)
	}

	statuses := make([]ChannelStatus, 0, len(channels))
	for _, channel := range channels {
		status := ChannelStatus{Channel: channel}
		cfg, _, err := s.Meta.ShopMetadata(ctx, channel)
		if err != nil {
			status.State = StateError
			status.Reason = err.Error()
			statuses = append(statuses, status)
			continue
		}
		latest, err := s.Store.LatestBatchByChannel(ctx, channel)
		if err != nil {
			status.State = StateError
			status.Reason = err.Error()
			statuses = append(statuses, status)
			continue
		}
		decision := EvaluateChannel(cfg, latest, s.Now(), s.FirstPeriodDays)
		status.State = decision.State
		status.Reason = decision.Reason
		if decision.State == StateDue {
			start, end := decision.PeriodStart, decision.PeriodEnd
			status.NextPeriodStart = &start
			status.NextPeriodEnd = &end
		}
		if latest != nil {
			status.LatestBatchId = latest.ID
			latestEnd := latest.PeriodEnd
			status.LatestPeriodEnd = &latestEnd
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

func buildBatch(cfg *ShopConfig, periodStart, periodEnd, closedAt time.Time, resolved *AggregationResult) *models.Batch {
	batch := &models.Batch{
		ShopChannel:        cfg.Channel,
		PeriodStart:        periodStart,
		PeriodEnd:          periodEnd,
		ClosedAt:           closedAt,
		OrderCount:         resolved.OrderCount,
		TotalItemsSold:     resolved.TotalItemsSold,
		TotalItemsRequired: resolved.TotalItemsRequired,
		ClientId:           cfg.ClientId,
		ClientSharePct:     cfg.ClientSharePct,
	}

	sortOrder := 0
	for _, line := range resolved.GarmentLines {
		batch.Lines = append(batch.Lines, models.BatchLine{
			LineType:    models.BatchLineGarment,
			Sku:         line.Sku,
			Size:        line.Size,
			SoldQty:     decimal.NewFromInt(int64(line.SoldQty)),
			RequiredQty: decimal.NewFromInt(int64(line.RequiredQty)),
			SortOrder:   sortOrder,
		})
		sortOrder++
	}
	for _, line := range resolved.MaterialLines {
		batch.Lines = append(batch.Lines, models.BatchLine{
			LineType:       models.BatchLineMaterial,
			Sku:            line.MaterialSku,
			ProductionType: line.ProductionType,
			SoldQty:        line.SoldUnits,
			RequiredQty:    line.RequiredUnits,
			SortOrder:      sortOrder,
		})
		sortOrder++
	}
	return batch
}
