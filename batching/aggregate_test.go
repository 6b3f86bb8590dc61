package batching

import (
	"testing"

	"github.com/shopspring/decimal"
)

func testVariants() VariantLookup {
	return VariantLookup{
		"v-tee-m": {
			VariantId:  "v-tee-m",
			ProductId:  "p-tee",
			Size:       "M",
			GarmentSku: "TEE-001",
			Materials: []MaterialEntry{
				{MaterialSku: "FABRIC-X", UnitsPerOrder: decimal.NewFromInt(1), ProductionType: "DTG"},
			},
		},
		"v-tee-l": {
			VariantId:  "v-tee-l",
			ProductId:  "p-tee",
			Size:       "L",
			GarmentSku: "TEE-001",
			Materials: []MaterialEntry{
				{MaterialSku: "FABRIC-X", UnitsPerOrder: decimal.NewFromInt(1), ProductionType: "DTG"},
			},
		},
		"v-bare": {
			VariantId: "v-bare",
			ProductId: "p-bare",
			// no garment SKU, no size, no materials
		},
	}
}

func TestAggregateOrders_SoldQuantityConservation(t *testing.T) {
	orders := []Order{
		{ID: "1", LineItems: []LineItem{
			{VariantId: "v-tee-m", Quantity: 3},
			{VariantId: "v-missing", Quantity: 2}, // unresolvable
		}},
		{ID: "2", LineItems: []LineItem{
			{VariantId: "v-tee-l", Quantity: 4},
		}},
	}

	totalSold, garments := AggregateOrders(testVariants(), orders)

	if totalSold != 9 {
		t.Fatalf("expected totalItemsSold 9 (unresolvable variants included), got %d", totalSold)
	}

	aggregated := 0
	for _, agg := range garments {
		aggregated += agg.SoldQty
	}
	// 9 total minus the 2 units whose variant could not be resolved.
	if aggregated != 7 {
		t.Fatalf("expected 7 units aggregated into garment keys, got %d", aggregated)
	}
	if _, ok := garments[GarmentKey("TEE-001", "M")]; !ok {
		t.Fatal("missing TEE-001|M aggregation")
	}
}

func TestAggregateOrders_PerUnitMaterialExpansion(t *testing.T) {
	orders := []Order{
		{ID: "1", LineItems: []LineItem{{VariantId: "v-tee-m", Quantity: 3}}},
	}

	_, garments := AggregateOrders(testVariants(), orders)

	agg := garments[GarmentKey("TEE-001", "M")]
	if agg == nil {
		t.Fatal("missing aggregation")
	}
	if agg.SoldQty != 3 {
		t.Fatalf("expected soldQty 3, got %d", agg.SoldQty)
	}
	// quantity=3 appends the BOM three times, one per physical unit.
	if len(agg.UnitMaterials) != 3 {
		t.Fatalf("expected 3 per-unit material lists, got %d", len(agg.UnitMaterials))
	}
}

func TestAggregateOrders_MissingSkuAndSizeFallbacks(t *testing.T) {
	orders := []Order{
		{ID: "1", LineItems: []LineItem{{VariantId: "v-bare", Quantity: 1}}},
	}

	_, garments := AggregateOrders(testVariants(), orders)

	agg := garments[GarmentKey(UnknownGarmentSku, DefaultSize)]
	if agg == nil {
		t.Fatalf("expected fallback key %q, got keys %v", GarmentKey(UnknownGarmentSku, DefaultSize), keysOf(garments))
	}
	if len(agg.UnitMaterials) != 1 || len(agg.UnitMaterials[0]) != 0 {
		t.Fatalf("expected one empty per-unit BOM list, got %v", agg.UnitMaterials)
	}
}

func keysOf(m map[string]*GarmentAggregation) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
