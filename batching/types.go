package batching

import (
	"context"
	"time"

	"github.com/mmprintworks/printshop_backend/models"
	"github.com/shopspring/decimal"
)

// ShopConfig is the per-channel batching policy, resolved fresh on every
// scheduling pass and never mutated by the engine.
//
// A shop is either a finite drop (OrderWindowEnd set), a recurring shop
// (BatchIntervalDays set), or not configured for batching at all.
type ShopConfig struct {
	Channel          string
	OrderWindowStart *time.Time
	OrderWindowEnd   *time.Time
	BatchIntervalDays *int

	// CollectionMinQty is the channel-wide minimum order quantity per garment
	// key. ProductMinQty overrides it per owning product id.
	CollectionMinQty int
	ProductMinQty    map[string]int

	ClientId       string
	ClientSharePct decimal.Decimal
}

// MaterialEntry is one bill-of-materials line: producing one unit of a
// variant consumes UnitsPerOrder of MaterialSku.
type MaterialEntry struct {
	MaterialSku    string
	UnitsPerOrder  decimal.Decimal
	ProductionType string
}

// VariantMetadata describes one sellable variant. GarmentSku falls back to
// "UNKNOWN" and Size to "N/A" when the commerce source has no value.
type VariantMetadata struct {
	VariantId  string
	ProductId  string
	Size       string
	GarmentSku string
	Materials  []MaterialEntry
}

// VariantLookup maps variant id to its metadata. Resolved once per pass.
type VariantLookup map[string]*VariantMetadata

const (
	UnknownGarmentSku = "UNKNOWN"
	DefaultSize       = "N/A"
)

type LineItem struct {
	VariantId string
	Quantity  int
}

type Order struct {
	ID        string
	CreatedAt time.Time
	LineItems []LineItem
}

// GarmentAggregation accumulates sold units for one garmentSku|size key.
// UnitMaterials holds one per-unit copy of the variant BOM per physical unit
// sold, so material requirements can later be scaled on the same granularity
// as the sold quantity. This makes aggregation O(total line-item quantity),
// not O(distinct line items); very large orders cost memory accordingly.
type GarmentAggregation struct {
	GarmentSku    string
	Size          string
	ProductId     string
	SoldQty       int
	UnitMaterials [][]MaterialEntry
}

// MaterialAggregation is the rollup for one material SKU across all garments.
// ProductionType keeps the first non-empty value seen.
type MaterialAggregation struct {
	MaterialSku    string
	ProductionType string
	SoldUnits      decimal.Decimal
	RequiredUnits  decimal.Decimal
}

type GarmentLine struct {
	Sku         string
	Size        string
	ProductId   string
	SoldQty     int
	RequiredQty int
}

// AggregationResult is the fully resolved requirement set for one period of
// one channel, ready to snapshot.
type AggregationResult struct {
	OrderCount         int
	TotalItemsSold     int
	TotalItemsRequired int
	GarmentLines       []GarmentLine
	MaterialLines      []MaterialAggregation
}

// MetadataSource resolves batching policy and variant metadata for a channel.
type MetadataSource interface {
	// ListChannels returns every channel configured for batching.
	ListChannels(ctx context.Context) ([]string, error)
	// ShopMetadata returns the channel config plus a variant lookup table.
	// Returns ErrChannelNotFound when the channel does not exist.
	ShopMetadata(ctx context.Context, channel string) (*ShopConfig, VariantLookup, error)
}

// OrderPager yields one page of channel orders per call. hasMore is false on
// the final page. Implementations retry transient page failures internally;
// a returned error aborts ingestion for the channel (all-or-nothing).
type OrderPager interface {
	Next(ctx context.Context) (orders []Order, hasMore bool, err error)
}

// OrderSource opens a paginated query over [periodStart, periodEnd) whose
// line items belong to the given channel.
type OrderSource interface {
	Orders(ctx context.Context, channel string, periodStart, periodEnd time.Time) (OrderPager, error)
}

// BatchStore is the snapshot persistence contract. CreateBatch writes header
// and lines in one transaction; a period already covered surfaces as
// utils.ErrorDuplicateRecord from the store.
type BatchStore interface {
	CreateBatch(ctx context.Context, batch *models.Batch) error
	LatestBatchByChannel(ctx context.Context, channel string) (*models.Batch, error)
	GetBatch(ctx context.Context, id int) (*models.Batch, error)
	ListBatches(ctx context.Context, channel string) ([]models.Batch, error)
}
