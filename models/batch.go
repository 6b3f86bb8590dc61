package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/mmprintworks/printshop_backend/config"
	"github.com/mmprintworks/printshop_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type BatchLineType string

const (
	BatchLineGarment  BatchLineType = "GARMENT"
	BatchLineMaterial BatchLineType = "MATERIAL"
)

// Batch is one immutable purchase-order snapshot: the aggregated,
// minimum-adjusted garment and material requirements for one period of one
// shop channel. Corrections create a new Batch; rows are never updated.
//
// The unique index on (shop_channel, period_end) is the hard guard against a
// double-batch race between concurrent scheduler runs.
type Batch struct {
	ID                 int             `gorm:"primary_key" json:"id"`
	ShopChannel        string          `gorm:"size:255;not null;uniqueIndex:uk_batches_channel_period_end,priority:1" json:"shop_channel"`
	PeriodStart        time.Time       `gorm:"not null" json:"period_start"`
	PeriodEnd          time.Time       `gorm:"not null;uniqueIndex:uk_batches_channel_period_end,priority:2" json:"period_end"`
	ClosedAt           time.Time       `gorm:"not null" json:"closed_at"`
	OrderCount         int             `gorm:"default:0" json:"order_count"`
	TotalItemsSold     int             `gorm:"default:0" json:"total_items_sold"`
	TotalItemsRequired int             `gorm:"default:0" json:"total_items_required"`
	ClientId           string          `gorm:"size:255;default:null" json:"client_id"`
	ClientSharePct     decimal.Decimal `gorm:"type:decimal(5,2);default:0" json:"client_share_pct"`
	Lines              []BatchLine     `json:"lines"`
	CreatedAt          time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// BatchLine is one row of a snapshot, discriminated by LineType. Garment
// lines carry Size; material lines carry ProductionType. Quantities are
// stored as decimal so material lines keep fractional sold units.
type BatchLine struct {
	ID             int             `gorm:"primary_key" json:"id"`
	BatchId        int             `gorm:"index;not null" json:"batch_id"`
	LineType       BatchLineType   `gorm:"type:enum('GARMENT','MATERIAL');not null" json:"line_type"`
	Sku            string          `gorm:"size:100;not null" json:"sku"`
	Size           string          `gorm:"size:50;default:null" json:"size"`
	ProductionType string          `gorm:"size:100;default:null" json:"production_type"`
	SoldQty        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"sold_qty"`
	RequiredQty    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"required_qty"`
	SortOrder      int             `gorm:"default:0" json:"sort_order"`
}

func isDuplicateKeyErr(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}

// BatchDB is the gorm-backed batch snapshot store. With a nil db it falls
// back to the process-wide connection, so it can be constructed before
// main() has connected.
type BatchDB struct {
	db *gorm.DB
}

func NewBatchDB(db *gorm.DB) *BatchDB {
	return &BatchDB{db: db}
}

func (s *BatchDB) conn() *gorm.DB {
	if s.db != nil {
		return s.db
	}
	return config.GetDB()
}

// CreateBatch persists the header and all lines in a single transaction.
// A period already covered for the channel returns utils.ErrorDuplicateRecord.
func (s *BatchDB) CreateBatch(ctx context.Context, batch *Batch) error {
	return s.conn().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(batch).Error; err != nil {
			if isDuplicateKeyErr(err) {
				return fmt.Errorf("%w: batch for %s closing %s",
					utils.ErrorDuplicateRecord, batch.ShopChannel, batch.PeriodEnd.Format(time.RFC3339))
			}
			return err
		}
		return nil
	})
}

// LatestBatchByChannel returns the most recently closed batch (by period end)
// for a channel, or nil when the channel has never been batched.
func (s *BatchDB) LatestBatchByChannel(ctx context.Context, channel string) (*Batch, error) {
	var batch Batch
	err := s.conn().WithContext(ctx).
		Where("shop_channel = ?", channel).
		Order("period_end DESC").
		First(&batch).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &batch, nil
}

// GetBatch returns one batch with its lines in snapshot order, or nil when
// the id does not exist.
func (s *BatchDB) GetBatch(ctx context.Context, id int) (*Batch, error) {
	var batch Batch
	err := s.conn().WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB {
			return db.Order("batch_lines.sort_order ASC")
		}).
		First(&batch, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &batch, nil
}

// ListBatches returns batch headers, newest period first. An empty channel
// returns every channel's history.
func (s *BatchDB) ListBatches(ctx context.Context, channel string) ([]Batch, error) {
	dbCtx := s.conn().WithContext(ctx).Order("period_end DESC")
	if channel != "" {
		dbCtx = dbCtx.Where("shop_channel = ?", channel)
	}
	var batches []Batch
	if err := dbCtx.Find(&batches).Error; err != nil {
		return nil, err
	}
	return batches, nil
}
