package shopify

import (
	"encoding/json"

	"github.com/mmprintworks/printshop_backend/batching"
	"github.com/mmprintworks/printshop_backend/config"
	"github.com/shopspring/decimal"
)

type collectionPayload struct {
	Handle      string              `json:"handle"`
	Title       string              `json:"title"`
	BatchConfig *batchConfigPayload `json:"batch_config"`
}

type batchConfigPayload struct {
	OrderWindowStart      string                 `json:"order_window_start"`
	OrderWindowEnd        string                 `json:"order_window_end"`
	BatchIntervalDays     *int                   `json:"batch_interval_days"`
	CollectionMinQuantity json.Number            `json:"collection_min_quantity"`
	ProductMinQuantities  map[string]json.Number `json:"product_min_quantities"`
	ClientId              string                 `json:"client_id"`
	ClientSharePct        json.Number            `json:"client_share_pct"`
}

type productPayload struct {
	ID       string           `json:"id"`
	Variants []variantPayload `json:"variants"`
}

type variantPayload struct {
	ID         string          `json:"id"`
	GarmentSku string          `json:"garment_sku"`
	Options    []optionPayload `json:"options"`
	// Materials is the bill-of-materials metafield, stored shop-side as an
	// untyped JSON blob. Parsed here at the boundary; malformed entries are
	// dropped with a warning, never an error.
	Materials json.RawMessage `json:"materials"`
}

type optionPayload struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type materialPayload struct {
	MaterialSku    string      `json:"material_sku"`
	UnitsPerOrder  json.Number `json:"units_per_order"`
	ProductionType string      `json:"production_type"`
}

type orderPayload struct {
	ID        string            `json:"id"`
	CreatedAt string            `json:"created_at"`
	LineItems []lineItemPayload `json:"line_items"`
}

type lineItemPayload struct {
	VariantId          string      `json:"variant_id"`
	Quantity           json.Number `json:"quantity"`
	ProductCollections []string    `json:"product_collections"`
}

// decodeMaterials parses a variant's BOM metafield. A variant with no
// declared materials yields an empty list; so does an unparseable blob.
func decodeMaterials(raw json.RawMessage, variantId string) []batching.MaterialEntry {
	logger := config.GetLogger()
	if len(raw) == 0 {
		return nil
	}

	var payloads []materialPayload
	if err := json.Unmarshal(raw, &payloads); err != nil {
		config.LogWarn(logger, "shopify", "decodeMaterials", "parse BOM metafield",
			map[string]any{"variant": variantId}, "malformed materials blob; variant treated as having no BOM")
		return nil
	}

	entries := make([]batching.MaterialEntry, 0, len(payloads))
	for _, p := range payloads {
		if p.MaterialSku == "" {
			config.LogWarn(logger, "shopify", "decodeMaterials", "material entry",
				map[string]any{"variant": variantId}, "material entry missing SKU; skipped")
			continue
		}
		units, err := decimal.NewFromString(p.UnitsPerOrder.String())
		if err != nil || units.IsNegative() {
			config.LogWarn(logger, "shopify", "decodeMaterials", "material entry",
				map[string]any{"variant": variantId, "material": p.MaterialSku}, "invalid units_per_order; entry skipped")
			continue
		}
		entries = append(entries, batching.MaterialEntry{
			MaterialSku:    p.MaterialSku,
			UnitsPerOrder:  units,
			ProductionType: p.ProductionType,
		})
	}
	return entries
}

func intFromNumber(n json.Number) int {
	v, err := n.Int64()
	if err != nil {
		return 0
	}
	return int(v)
}
