package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/mmprintworks/printshop_backend/batching"
	"github.com/mmprintworks/printshop_backend/config"
	"github.com/mmprintworks/printshop_backend/models"
	"github.com/mmprintworks/printshop_backend/shopify"
	"github.com/mmprintworks/printshop_backend/utils"
)

// batch-runner executes one scheduling pass and exits, for cron deployments
// that do not run the HTTP server's internal loop. With -channel it instead
// closes a single batch for an explicit period.
//
// Usage:
//
//	batch-runner
//	batch-runner -channel fall-drop -start 2024-09-01T00:00:00Z -end 2024-09-15T00:00:00Z
func main() {
	godotenv.Load()

	channel := flag.String("channel", "", "close one channel for an explicit period instead of running a pass")
	start := flag.String("start", "", "period start (RFC3339), required with -channel")
	end := flag.String("end", "", "period end (RFC3339), required with -channel")
	flag.Parse()

	config.ConnectDatabaseWithRetry()
	if err := config.GetDB().AutoMigrate(&models.Batch{}, &models.BatchLine{}); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	source, err := shopify.NewSource()
	if err != nil {
		log.Fatalf("shopify source: %v", err)
	}
	store := models.NewBatchDB(nil)
	scheduler := batching.NewScheduler(source, source, store, nil)

	ctx := context.Background()

	if *channel != "" {
		periodStart, err := time.Parse(time.RFC3339, *start)
		if err != nil {
			log.Fatalf("invalid -start: %v", err)
		}
		periodEnd, err := time.Parse(time.RFC3339, *end)
		if err != nil {
			log.Fatalf("invalid -end: %v", err)
		}
		if !periodEnd.After(periodStart) {
			log.Fatal("period end must be after period start")
		}

		batch, err := scheduler.CloseBatchNow(ctx, *channel, periodStart, periodEnd)
		if err != nil {
			log.Fatalf("close batch: %v", err)
		}
		out, _ := utils.MarshalToJSON(batch)
		fmt.Println(out)
		return
	}

	results, err := scheduler.RunPass(ctx)
	if err != nil {
		log.Fatalf("scheduling pass: %v", err)
	}

	failed := 0
	for _, r := range results {
		line, _ := utils.MarshalToJSON(r)
		fmt.Println(line)
		if r.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		log.Printf("%d of %d channels failed", failed, len(results))
		os.Exit(1)
	}
}
