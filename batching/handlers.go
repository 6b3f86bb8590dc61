package batching

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mmprintworks/printshop_backend/config"
	"github.com/mmprintworks/printshop_backend/utils"
)

// Handler exposes the thin trigger surface over the engine: manual close,
// batch history, per-batch detail, export, and scheduler status.
type Handler struct {
	Scheduler *Scheduler
	Store     BatchStore
}

type CloseBatchRequest struct {
	Channel     string    `json:"channel" binding:"required" validate:"required"`
	PeriodStart time.Time `json:"period_start" binding:"required" validate:"required"`
	PeriodEnd   time.Time `json:"period_end" binding:"required" validate:"required,gtfield=PeriodStart"`
}

func (h *Handler) CloseBatchHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()

		var req CloseBatchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		if err := utils.ValidateStruct(req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid period", "fields": utils.ProcessValidationErrors(err)})
			return
		}

		ctx := utils.SetCorrelationIdInContext(c.Request.Context(), uuid.NewString())
		batch, err := h.Scheduler.CloseBatchNow(ctx, req.Channel, req.PeriodStart, req.PeriodEnd)
		if err != nil {
			switch {
			case errors.Is(err, ErrChannelNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "unknown channel"})
			case errors.Is(err, ErrBatchConflict):
				c.JSON(http.StatusConflict, gin.H{"error": "batch period already covered"})
			case errors.Is(err, ErrSourceUnavailable):
				c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			default:
				config.LogError(logger, "batching", "CloseBatchHandler", "close batch", req, err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			}
			return
		}

		c.JSON(http.StatusCreated, batch)
	}
}

func (h *Handler) ListBatchesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		batches, err := h.Store.ListBatches(c.Request.Context(), c.Query("channel"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, batches)
	}
}

func (h *Handler) GetBatchHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid batch id"})
			return
		}
		batch, err := h.Store.GetBatch(c.Request.Context(), id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if batch == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "batch not found"})
			return
		}
		c.JSON(http.StatusOK, batch)
	}
}

func (h *Handler) ExportBatchHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid batch id"})
			return
		}
		batch, err := h.Store.GetBatch(c.Request.Context(), id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if batch == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "batch not found"})
			return
		}

		filename := fmt.Sprintf("purchase-order-%s-%d", batch.ShopChannel, batch.ID)
		switch c.DefaultQuery("format", "csv") {
		case "xlsx":
			c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
			c.Header("Content-Disposition", "attachment; filename="+filename+".xlsx")
			if err := WriteXLSX(c.Writer, batch); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			}
		case "csv":
			c.Header("Content-Type", "text/csv")
			c.Header("Content-Disposition", "attachment; filename="+filename+".csv")
			if err := WriteCSV(c.Writer, batch); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			}
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported format"})
		}
	}
}

const statusCacheKey = "batching:status"
const statusCacheTTL = 30 * time.Second

func (h *Handler) StatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var cached []ChannelStatus
		if hit, err := config.GetRedisObject(statusCacheKey, &cached); err == nil && hit {
			c.JSON(http.StatusOK, cached)
			return
		}

		statuses, err := h.Scheduler.Status(c.Request.Context())
		if err != nil {
			if errors.Is(err, ErrSourceUnavailable) {
				c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		config.SetRedisObject(statusCacheKey, statuses, statusCacheTTL)
		c.JSON(http.StatusOK, statuses)
	}
}
