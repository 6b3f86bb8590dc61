package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/mmprintworks/printshop_backend/batching"
	"github.com/mmprintworks/printshop_backend/config"
	"github.com/mmprintworks/printshop_backend/models"
	"github.com/mmprintworks/printshop_backend/shopify"
	"go.opentelemetry.io/otel"
)

const defaultPort = "8080"

var tracer = otel.Tracer("printshop-batching")

func main() {
	godotenv.Load()

	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}

	source, err := shopify.NewSource()
	if err != nil {
		log.Fatalf("shopify source: %v", err)
	}
	store := models.NewBatchDB(nil)
	// Locker is wired after redis connects; the scheduler tolerates nil until
	// then because the store's unique index carries correctness.
	scheduler := batching.NewScheduler(source, source, store, nil)
	handler := &batching.Handler{Scheduler: scheduler, Store: store}

	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Split(os.Getenv("CORS_ALLOWED_ORIGINS"), ","),
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1")
	api.POST("/batches/close", handler.CloseBatchHandler())
	api.GET("/batches", handler.ListBatchesHandler())
	api.GET("/batches/status", handler.StatusHandler())
	api.GET("/batches/:id", handler.GetBatchHandler())
	api.GET("/batches/:id/export", handler.ExportBatchHandler())

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	// Connect after the listener is up (Cloud Run wants a fast bind).
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	scheduler.Locker = config.GetRedisLock()

	if err := config.GetDB().AutoMigrate(&models.Batch{}, &models.BatchLine{}); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go runSchedulerLoop(ctx, scheduler)

	<-ctx.Done()
	log.Println("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

// runSchedulerLoop runs a scheduling pass at startup and then on a fixed
// interval. BATCH_SCHEDULER_INTERVAL_MINUTES=0 disables the loop (batches
// are then closed only via the manual trigger or batch-runner).
func runSchedulerLoop(ctx context.Context, scheduler *batching.Scheduler) {
	minutes := 60
	if v := strings.TrimSpace(os.Getenv("BATCH_SCHEDULER_INTERVAL_MINUTES")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			minutes = n
		}
	}
	if minutes <= 0 {
		log.Println("batch scheduler loop disabled")
		return
	}

	ticker := time.NewTicker(time.Duration(minutes) * time.Minute)
	defer ticker.Stop()

	for {
		runPass(ctx, scheduler)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func runPass(ctx context.Context, scheduler *batching.Scheduler) {
	logger := config.GetLogger()
	passCtx, span := tracer.Start(ctx, "batching.RunPass")
	defer span.End()

	results, err := scheduler.RunPass(passCtx)
	if err != nil {
		config.LogError(logger, "server.go", "runPass", "scheduler pass", nil, err)
		return
	}
	for _, r := range results {
		if r.Err != nil {
			config.LogError(logger, "server.go", "runPass", "channel "+r.Channel, r.Reason, r.Err)
		}
	}
}
