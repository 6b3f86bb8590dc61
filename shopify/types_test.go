package shopify

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestDecodeMaterials(t *testing.T) {
	raw := json.RawMessage(`[
		{"material_sku":"FABRIC-X","units_per_order":1.5,"production_type":"DTG"},
		{"material_sku":"","units_per_order":2},
		{"material_sku":"INK-B","units_per_order":-1},
		{"material_sku":"THREAD-C","units_per_order":0.25}
	]`)

	entries := decodeMaterials(raw, "v-1")

	// The SKU-less and negative entries are dropped, not fatal.
	if len(entries) != 2 {
		t.Fatalf("expected 2 usable entries, got %d", len(entries))
	}
	if entries[0].MaterialSku != "FABRIC-X" || !entries[0].UnitsPerOrder.Equal(decimal.NewFromFloat(1.5)) {
		t.Fatalf("unexpected first entry: %+v", entries[0])
	}
	if entries[0].ProductionType != "DTG" {
		t.Fatalf("expected production type kept, got %q", entries[0].ProductionType)
	}
	if entries[1].MaterialSku != "THREAD-C" {
		t.Fatalf("unexpected second entry: %+v", entries[1])
	}
}

func TestDecodeMaterials_MalformedBlob(t *testing.T) {
	if got := decodeMaterials(json.RawMessage(`{"oops":true}`), "v-1"); got != nil {
		t.Fatalf("malformed blob must yield no BOM, got %v", got)
	}
	if got := decodeMaterials(nil, "v-1"); got != nil {
		t.Fatalf("missing blob must yield no BOM, got %v", got)
	}
}

func TestDecodeShopConfig(t *testing.T) {
	payload := &batchConfigPayload{
		OrderWindowStart:      "2024-09-01T00:00:00Z",
		OrderWindowEnd:        "not-a-date",
		CollectionMinQuantity: "10",
		ProductMinQuantities: map[string]json.Number{
			"p-1": "5",
			"p-2": "-3",
		},
		ClientId:       "client-9",
		ClientSharePct: "40",
	}

	cfg := decodeShopConfig("fall-drop", payload)

	if cfg.Channel != "fall-drop" {
		t.Fatalf("unexpected channel %q", cfg.Channel)
	}
	if cfg.OrderWindowStart == nil {
		t.Fatal("expected parsed window start")
	}
	if cfg.OrderWindowEnd != nil {
		t.Fatal("unparseable window end must be treated as unset")
	}
	if cfg.CollectionMinQty != 10 {
		t.Fatalf("expected minimum 10, got %d", cfg.CollectionMinQty)
	}
	if cfg.ProductMinQty["p-1"] != 5 {
		t.Fatalf("expected override 5, got %d", cfg.ProductMinQty["p-1"])
	}
	if _, ok := cfg.ProductMinQty["p-2"]; ok {
		t.Fatal("negative override must be ignored")
	}
	if !cfg.ClientSharePct.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("expected client share 40, got %s", cfg.ClientSharePct)
	}
}

func TestDecodeShopConfig_NilPayload(t *testing.T) {
	cfg := decodeShopConfig("bare", nil)
	if cfg.OrderWindowEnd != nil || cfg.BatchIntervalDays != nil {
		t.Fatal("bare config must have no window and no interval")
	}
	if cfg.ProductMinQty == nil {
		t.Fatal("override map must be initialized")
	}
}
