package batching

import (
	"sort"

	"github.com/shopspring/decimal"
)

// sizeRank is the fixed apparel size ordering used for garment line sorting.
// Sizes outside the table sort after all known sizes, lexicographically.
var sizeRank = map[string]int{
	"XS":  0,
	"S":   1,
	"M":   2,
	"L":   3,
	"XL":  4,
	"2XL": 5,
	"3XL": 6,
	"4XL": 7,
	"5XL": 8,
}

func sizeLess(a, b string) bool {
	ra, aKnown := sizeRank[a]
	rb, bKnown := sizeRank[b]
	switch {
	case aKnown && bKnown:
		return ra < rb
	case aKnown:
		return true
	case bKnown:
		return false
	default:
		return a < b
	}
}

// effectiveMinimum resolves the minimum order quantity for a garment's owning
// product: per-product override, else the channel-wide minimum, else 1.
func effectiveMinimum(cfg *ShopConfig, productId string) int {
	if m, ok := cfg.ProductMinQty[productId]; ok && m > 0 {
		return m
	}
	if cfg.CollectionMinQty > 0 {
		return cfg.CollectionMinQty
	}
	return 1
}

// ResolveRequirements applies the minimum-quantity policy to a garment
// aggregation and derives the material requirement rollup.
//
// Material units scale on the garment's own sold:required ratio:
// requiredUnits = ceil(soldUnits * requiredQty/soldQty), always rounded up so
// materials are never under-ordered. A zero-sold garment uses requiredQty
// itself as the scale factor.
func ResolveRequirements(cfg *ShopConfig, totalItemsSold int, garments map[string]*GarmentAggregation, orderCount int) *AggregationResult {
	result := &AggregationResult{
		OrderCount:     orderCount,
		TotalItemsSold: totalItemsSold,
		GarmentLines:   make([]GarmentLine, 0, len(garments)),
	}

	materials := make(map[string]*MaterialAggregation)

	for _, agg := range garments {
		required := effectiveMinimum(cfg, agg.ProductId)
		if agg.SoldQty > required {
			required = agg.SoldQty
		}
		result.GarmentLines = append(result.GarmentLines, GarmentLine{
			Sku:         agg.GarmentSku,
			Size:        agg.Size,
			ProductId:   agg.ProductId,
			SoldQty:     agg.SoldQty,
			RequiredQty: required,
		})
		result.TotalItemsRequired += required

		scaleMaterials(materials, agg, required)
	}

	sort.Slice(result.GarmentLines, func(i, j int) bool {
		a, b := result.GarmentLines[i], result.GarmentLines[j]
		if a.Sku != b.Sku {
			return a.Sku < b.Sku
		}
		return sizeLess(a.Size, b.Size)
	})

	result.MaterialLines = make([]MaterialAggregation, 0, len(materials))
	for _, mat := range materials {
		result.MaterialLines = append(result.MaterialLines, *mat)
	}
	sort.Slice(result.MaterialLines, func(i, j int) bool {
		return result.MaterialLines[i].MaterialSku < result.MaterialLines[j].MaterialSku
	})

	return result
}

// scaleMaterials folds one garment's per-unit material lists into the shared
// rollup. Sold and required units from different garments sharing a material
// SKU accumulate.
func scaleMaterials(materials map[string]*MaterialAggregation, agg *GarmentAggregation, requiredQty int) {
	// Sum the units actually consumed by sold garments, per material SKU.
	soldUnits := make(map[string]decimal.Decimal)
	productionTypes := make(map[string]string)
	for _, unitList := range agg.UnitMaterials {
		for _, entry := range unitList {
			if entry.MaterialSku == "" {
				continue
			}
			soldUnits[entry.MaterialSku] = soldUnits[entry.MaterialSku].Add(entry.UnitsPerOrder)
			if productionTypes[entry.MaterialSku] == "" {
				productionTypes[entry.MaterialSku] = entry.ProductionType
			}
		}
	}

	var scale decimal.Decimal
	if agg.SoldQty > 0 {
		scale = decimal.NewFromInt(int64(requiredQty)).Div(decimal.NewFromInt(int64(agg.SoldQty)))
	} else {
		// No sold units to derive a ratio from; assume one unit of material
		// consumption per required unit.
		scale = decimal.NewFromInt(int64(requiredQty))
	}

	for sku, sold := range soldUnits {
		mat := materials[sku]
		if mat == nil {
			mat = &MaterialAggregation{MaterialSku: sku}
			materials[sku] = mat
		}
		if mat.ProductionType == "" {
			mat.ProductionType = productionTypes[sku]
		}
		mat.SoldUnits = mat.SoldUnits.Add(sold)
		mat.RequiredUnits = mat.RequiredUnits.Add(sold.Mul(scale).Ceil())
	}
}
