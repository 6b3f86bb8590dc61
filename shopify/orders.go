package shopify

import (
	"context"
	"encoding/json"
	"net/url"
	"slices"
	"strconv"
	"time"

	"github.com/mmprintworks/printshop_backend/batching"
	"github.com/mmprintworks/printshop_backend/config"
)

const maxPageRetries = 3

// Orders opens a paginated query over [periodStart, periodEnd) for one
// channel. The server-side date filter is channel-agnostic; each page is
// filtered client-side to line items whose product belongs to the channel.
func (s *Source) Orders(ctx context.Context, channel string, periodStart, periodEnd time.Time) (batching.OrderPager, error) {
	return &orderPager{
		client:  s.client,
		channel: channel,
		start:   periodStart,
		end:     periodEnd,
	}, nil
}

type orderPager struct {
	client  *shopClient
	channel string
	start   time.Time
	end     time.Time
	cursor  string
	done    bool
}

// Next fetches one page, retrying transient failures up to maxPageRetries
// before giving up. A returned error aborts ingestion for the channel; the
// caller gets no partial results.
func (p *orderPager) Next(ctx context.Context) ([]batching.Order, bool, error) {
	if p.done {
		return nil, false, nil
	}

	params := url.Values{}
	params.Set("limit", strconv.Itoa(listPageSize))
	params.Set("created_at_min", p.start.Format(time.RFC3339))
	params.Set("created_at_max", p.end.Format(time.RFC3339))
	if p.cursor != "" {
		params.Set("cursor", p.cursor)
	}

	var resp listResponse
	var err error
	for attempt := 0; ; attempt++ {
		resp, err = p.client.getList(ctx, "/admin/orders", params)
		if err == nil {
			break
		}
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		if attempt >= maxPageRetries {
			return nil, false, err
		}
		time.Sleep(time.Second * time.Duration(1<<attempt))
	}

	orders := p.decodePage(resp.records())
	p.cursor = resp.NextCursor
	hasMore := resp.more()
	if !hasMore {
		p.done = true
	}
	return orders, hasMore, nil
}

func (p *orderPager) decodePage(records []json.RawMessage) []batching.Order {
	logger := config.GetLogger()
	var orders []batching.Order

	for _, raw := range records {
		var payload orderPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			config.LogWarn(logger, "shopify", "decodePage", "order record",
				map[string]any{"channel": p.channel}, "unparseable order record; skipped")
			continue
		}

		createdAt, err := time.Parse(time.RFC3339, payload.CreatedAt)
		if err != nil {
			config.LogWarn(logger, "shopify", "decodePage", "order created_at",
				map[string]any{"channel": p.channel, "order": payload.ID}, "unparseable timestamp; order skipped")
			continue
		}
		// The interval is half-open; the server's created_at_max may be
		// inclusive, so re-check here.
		if createdAt.Before(p.start) || !createdAt.Before(p.end) {
			continue
		}

		order := batching.Order{ID: payload.ID, CreatedAt: createdAt}
		for _, item := range payload.LineItems {
			if !slices.Contains(item.ProductCollections, p.channel) {
				continue
			}
			qty := intFromNumber(item.Quantity)
			if qty <= 0 {
				continue
			}
			order.LineItems = append(order.LineItems, batching.LineItem{
				VariantId: item.VariantId,
				Quantity:  qty,
			})
		}
		if len(order.LineItems) > 0 {
			orders = append(orders, order)
		}
	}
	return orders
}
