package shopify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mmprintworks/printshop_backend/batching"
	"github.com/mmprintworks/printshop_backend/config"
	"github.com/shopspring/decimal"
)

// Source resolves shop configuration, variant metadata and orders from the
// commerce API. It implements batching.MetadataSource and
// batching.OrderSource.
type Source struct {
	client *shopClient
}

func NewSource() (*Source, error) {
	client, err := newShopClient(os.Getenv("SHOPIFY_ACCESS_TOKEN"))
	if err != nil {
		return nil, err
	}
	return &Source{client: client}, nil
}

const listPageSize = 250

// ListChannels returns the handle of every collection carrying a batch
// config, paginating the collection listing.
func (s *Source) ListChannels(ctx context.Context) ([]string, error) {
	var channels []string
	cursor := ""
	for {
		params := url.Values{}
		params.Set("limit", strconv.Itoa(listPageSize))
		if cursor != "" {
			params.Set("cursor", cursor)
		}
		resp, err := s.client.getList(ctx, "/admin/collections", params)
		if err != nil {
			return nil, err
		}
		for _, raw := range resp.records() {
			var col collectionPayload
			if err := json.Unmarshal(raw, &col); err != nil {
				continue
			}
			if col.Handle != "" && col.BatchConfig != nil {
				channels = append(channels, col.Handle)
			}
		}
		if !resp.more() {
			return channels, nil
		}
		cursor = resp.NextCursor
	}
}

// ShopMetadata resolves one channel's batching policy plus a variant lookup
// table for every product in the collection. Partially populated metadata is
// tolerated: missing values fall back per field, never error.
func (s *Source) ShopMetadata(ctx context.Context, channel string) (*batching.ShopConfig, batching.VariantLookup, error) {
	body, err := s.client.get(ctx, "/admin/collections/"+url.PathEscape(channel), nil)
	if err != nil {
		if errors.Is(err, errNotFound) {
			return nil, nil, fmt.Errorf("%w: %s", batching.ErrChannelNotFound, channel)
		}
		return nil, nil, err
	}

	var col collectionPayload
	if err := json.Unmarshal(body, &col); err != nil {
		return nil, nil, err
	}

	cfg := decodeShopConfig(channel, col.BatchConfig)
	variants, err := s.collectionVariants(ctx, channel)
	if err != nil {
		return nil, nil, err
	}
	return cfg, variants, nil
}

func (s *Source) collectionVariants(ctx context.Context, channel string) (batching.VariantLookup, error) {
	lookup := make(batching.VariantLookup)
	cursor := ""
	for {
		params := url.Values{}
		params.Set("limit", strconv.Itoa(listPageSize))
		if cursor != "" {
			params.Set("cursor", cursor)
		}
		resp, err := s.client.getList(ctx, "/admin/collections/"+url.PathEscape(channel)+"/products", params)
		if err != nil {
			return nil, err
		}
		for _, raw := range resp.records() {
			var product productPayload
			if err := json.Unmarshal(raw, &product); err != nil {
				continue
			}
			for _, v := range product.Variants {
				lookup[v.ID] = &batching.VariantMetadata{
					VariantId:  v.ID,
					ProductId:  product.ID,
					Size:       sizeOption(v.Options),
					GarmentSku: v.GarmentSku,
					Materials:  decodeMaterials(v.Materials, v.ID),
				}
			}
		}
		if !resp.more() {
			return lookup, nil
		}
		cursor = resp.NextCursor
	}
}

func sizeOption(options []optionPayload) string {
	for _, opt := range options {
		if strings.EqualFold(opt.Name, "Size") {
			return opt.Value
		}
	}
	return ""
}

func decodeShopConfig(channel string, payload *batchConfigPayload) *batching.ShopConfig {
	logger := config.GetLogger()
	cfg := &batching.ShopConfig{
		Channel:       channel,
		ProductMinQty: map[string]int{},
	}
	if payload == nil {
		return cfg
	}

	cfg.OrderWindowStart = parseTimestamp(payload.OrderWindowStart, channel, "order_window_start")
	cfg.OrderWindowEnd = parseTimestamp(payload.OrderWindowEnd, channel, "order_window_end")
	cfg.BatchIntervalDays = payload.BatchIntervalDays
	cfg.CollectionMinQty = intFromNumber(payload.CollectionMinQuantity)
	cfg.ClientId = payload.ClientId

	for productId, raw := range payload.ProductMinQuantities {
		if n := intFromNumber(raw); n > 0 {
			cfg.ProductMinQty[productId] = n
		} else {
			config.LogWarn(logger, "shopify", "decodeShopConfig", "product minimum",
				map[string]any{"channel": channel, "product": productId}, "invalid minimum override; ignored")
		}
	}

	if payload.ClientSharePct != "" {
		if pct, err := decimal.NewFromString(payload.ClientSharePct.String()); err == nil {
			cfg.ClientSharePct = pct
		}
	}
	return cfg
}

func parseTimestamp(value, channel, field string) *time.Time {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		config.LogWarn(config.GetLogger(), "shopify", "parseTimestamp", field,
			map[string]any{"channel": channel, "value": value}, "unparseable timestamp; treated as unset")
		return nil
	}
	return &t
}
