package batching

import (
	"testing"

	"github.com/shopspring/decimal"
)

func unitList(sku string, units int64) []MaterialEntry {
	return []MaterialEntry{
		{MaterialSku: sku, UnitsPerOrder: decimal.NewFromInt(units), ProductionType: "Screen"},
	}
}

func repeatUnits(list []MaterialEntry, n int) [][]MaterialEntry {
	out := make([][]MaterialEntry, n)
	for i := range out {
		out[i] = list
	}
	return out
}

func TestResolveRequirements_MinimumEnforcement(t *testing.T) {
	cfg := &ShopConfig{
		Channel:          "drop",
		CollectionMinQty: 12,
		ProductMinQty:    map[string]int{"p-special": 3},
	}
	garments := map[string]*GarmentAggregation{
		GarmentKey("SHIRT-A", "M"): {GarmentSku: "SHIRT-A", Size: "M", ProductId: "p-shirt", SoldQty: 5},
		GarmentKey("SHIRT-B", "M"): {GarmentSku: "SHIRT-B", Size: "M", ProductId: "p-shirt", SoldQty: 20},
		GarmentKey("CAP-01", "M"):  {GarmentSku: "CAP-01", Size: "M", ProductId: "p-special", SoldQty: 1},
	}

	result := ResolveRequirements(cfg, 26, garments, 4)

	for _, line := range result.GarmentLines {
		if line.RequiredQty < line.SoldQty {
			t.Fatalf("%s|%s: requiredQty %d < soldQty %d", line.Sku, line.Size, line.RequiredQty, line.SoldQty)
		}
	}

	byKey := map[string]GarmentLine{}
	for _, line := range result.GarmentLines {
		byKey[GarmentKey(line.Sku, line.Size)] = line
	}
	if got := byKey[GarmentKey("SHIRT-A", "M")].RequiredQty; got != 12 {
		t.Fatalf("SHIRT-A|M: expected channel minimum 12, got %d", got)
	}
	if got := byKey[GarmentKey("SHIRT-B", "M")].RequiredQty; got != 20 {
		t.Fatalf("SHIRT-B|M: sold above minimum must keep soldQty, got %d", got)
	}
	if got := byKey[GarmentKey("CAP-01", "M")].RequiredQty; got != 3 {
		t.Fatalf("CAP-01|M: expected per-product override 3, got %d", got)
	}
	if result.TotalItemsRequired != 12+20+3 {
		t.Fatalf("expected totalItemsRequired 35, got %d", result.TotalItemsRequired)
	}
}

func TestResolveRequirements_DefaultMinimumIsOne(t *testing.T) {
	cfg := &ShopConfig{Channel: "drop"}
	garments := map[string]*GarmentAggregation{
		GarmentKey("SHIRT-A", "M"): {GarmentSku: "SHIRT-A", Size: "M", ProductId: "p", SoldQty: 0},
	}

	result := ResolveRequirements(cfg, 0, garments, 0)

	if got := result.GarmentLines[0].RequiredQty; got != 1 {
		t.Fatalf("expected fallback minimum 1, got %d", got)
	}
}

func TestResolveRequirements_MaterialScaling(t *testing.T) {
	// SHIRT-A|M sold 5, each unit consumes 1 FABRIC-X, channel minimum 12:
	// requiredQty=12, scale=12/5=2.4, requiredUnits=ceil(5*2.4)=12.
	cfg := &ShopConfig{Channel: "drop", CollectionMinQty: 12}
	garments := map[string]*GarmentAggregation{
		GarmentKey("SHIRT-A", "M"): {
			GarmentSku:    "SHIRT-A",
			Size:          "M",
			ProductId:     "p-shirt",
			SoldQty:       5,
			UnitMaterials: repeatUnits(unitList("FABRIC-X", 1), 5),
		},
	}

	result := ResolveRequirements(cfg, 5, garments, 2)

	if len(result.MaterialLines) != 1 {
		t.Fatalf("expected one material line, got %d", len(result.MaterialLines))
	}
	mat := result.MaterialLines[0]
	if !mat.SoldUnits.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("expected material soldUnits 5, got %s", mat.SoldUnits)
	}
	if !mat.RequiredUnits.Equal(decimal.NewFromInt(12)) {
		t.Fatalf("expected material requiredUnits 12, got %s", mat.RequiredUnits)
	}
	if mat.ProductionType != "Screen" {
		t.Fatalf("expected first non-empty production type kept, got %q", mat.ProductionType)
	}
}

func TestResolveRequirements_MaterialsMergeAcrossGarments(t *testing.T) {
	cfg := &ShopConfig{Channel: "drop", CollectionMinQty: 10}
	garments := map[string]*GarmentAggregation{
		GarmentKey("TEE-001", "M"): {
			GarmentSku: "TEE-001", Size: "M", ProductId: "p", SoldQty: 5,
			UnitMaterials: repeatUnits(unitList("FABRIC-X", 1), 5),
		},
		GarmentKey("TEE-001", "L"): {
			GarmentSku: "TEE-001", Size: "L", ProductId: "p", SoldQty: 10,
			UnitMaterials: repeatUnits(unitList("FABRIC-X", 1), 10),
		},
	}

	result := ResolveRequirements(cfg, 15, garments, 3)

	if len(result.MaterialLines) != 1 {
		t.Fatalf("expected merged material line, got %d", len(result.MaterialLines))
	}
	mat := result.MaterialLines[0]
	// M scales 5 -> 10; L is already at its minimum.
	if !mat.SoldUnits.Equal(decimal.NewFromInt(15)) {
		t.Fatalf("expected soldUnits 15, got %s", mat.SoldUnits)
	}
	if !mat.RequiredUnits.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("expected requiredUnits 20, got %s", mat.RequiredUnits)
	}
}

func TestResolveRequirements_ZeroSoldFallback(t *testing.T) {
	// Aggregation never produces a zero-sold key, but the resolver must not
	// divide by zero if handed one: the scale factor becomes requiredQty
	// itself, i.e. one unit of material consumption per required unit.
	cfg := &ShopConfig{Channel: "drop", CollectionMinQty: 5}
	garments := map[string]*GarmentAggregation{
		GarmentKey("SHIRT-A", "M"): {
			GarmentSku:    "SHIRT-A",
			Size:          "M",
			ProductId:     "p-shirt",
			SoldQty:       0,
			UnitMaterials: repeatUnits(unitList("FABRIC-X", 2), 1),
		},
	}

	result := ResolveRequirements(cfg, 0, garments, 0)

	if got := result.GarmentLines[0].RequiredQty; got != 5 {
		t.Fatalf("expected requiredQty 5, got %d", got)
	}
	mat := result.MaterialLines[0]
	if !mat.RequiredUnits.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("expected requiredUnits ceil(2*5)=10, got %s", mat.RequiredUnits)
	}
}

func TestResolveRequirements_SortOrder(t *testing.T) {
	cfg := &ShopConfig{Channel: "drop", CollectionMinQty: 1}
	garments := map[string]*GarmentAggregation{}
	for _, g := range []struct {
		sku, size string
	}{
		{"B-SHIRT", "L"},
		{"B-SHIRT", "S"},
		{"A-SHIRT", "4XL-TALL"},
		{"A-SHIRT", "L"},
		{"A-SHIRT", "S"},
	} {
		garments[GarmentKey(g.sku, g.size)] = &GarmentAggregation{
			GarmentSku: g.sku, Size: g.size, ProductId: "p", SoldQty: 1,
		}
	}

	result := ResolveRequirements(cfg, 5, garments, 1)

	var got []string
	for _, line := range result.GarmentLines {
		got = append(got, GarmentKey(line.Sku, line.Size))
	}
	want := []string{
		"A-SHIRT|S",
		"A-SHIRT|L",
		"A-SHIRT|4XL-TALL", // out-of-table size sorts after all known sizes
		"B-SHIRT|S",
		"B-SHIRT|L",
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sort mismatch at %d: expected %v, got %v", i, want, got)
		}
	}
}

func TestSizeLess(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"XS", "S", true},
		{"S", "M", true},
		{"M", "L", true},
		{"L", "XL", true},
		{"XL", "2XL", true},
		{"2XL", "3XL", true},
		{"3XL", "M", false},
		{"M", "4XL-TALL", true},  // known before unknown
		{"4XL-TALL", "XS", false},
		{"AAA", "BBB", true}, // unknown sizes fall back to lexicographic
	}
	for _, tc := range cases {
		if got := sizeLess(tc.a, tc.b); got != tc.want {
			t.Fatalf("sizeLess(%q,%q) expected %v, got %v", tc.a, tc.b, tc.want, got)
		}
	}
}
