package batching

import (
	"github.com/mmprintworks/printshop_backend/config"
)

// GarmentKey builds the composite aggregation key for a garment SKU and size.
func GarmentKey(sku, size string) string {
	return sku + "|" + size
}

// AggregateOrders groups sold quantities by garmentSku|size and collects the
// per-unit bill of materials for each key.
//
// The variant BOM is appended once per physical unit sold (quantity 3 appends
// the list 3 times): the later sold:required scaling must be computed on the
// same per-unit granularity as the sold quantity. A line item whose variant
// cannot be resolved is skipped from aggregation but still counts toward
// totalItemsSold.
func AggregateOrders(variants VariantLookup, orders []Order) (totalItemsSold int, garments map[string]*GarmentAggregation) {
	logger := config.GetLogger()
	garments = make(map[string]*GarmentAggregation)

	for _, order := range orders {
		for _, item := range order.LineItems {
			totalItemsSold += item.Quantity

			variant := variants[item.VariantId]
			if variant == nil {
				config.LogWarn(logger, "batching", "AggregateOrders", "resolve variant",
					map[string]any{"order": order.ID, "variant": item.VariantId},
					"line item variant not resolvable; skipped from aggregation")
				continue
			}

			sku := variant.GarmentSku
			if sku == "" {
				sku = UnknownGarmentSku
			}
			size := variant.Size
			if size == "" {
				size = DefaultSize
			}

			key := GarmentKey(sku, size)
			agg := garments[key]
			if agg == nil {
				agg = &GarmentAggregation{
					GarmentSku: sku,
					Size:       size,
					ProductId:  variant.ProductId,
				}
				garments[key] = agg
			}

			agg.SoldQty += item.Quantity
			for i := 0; i < item.Quantity; i++ {
				agg.UnitMaterials = append(agg.UnitMaterials, variant.Materials)
			}
		}
	}

	return totalItemsSold, garments
}
