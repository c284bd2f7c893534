package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/pos-invoice/internal/adapter/storage"
	"github.com/rl1809/pos-invoice/internal/core/domain"
	"github.com/rl1809/pos-invoice/internal/core/engine"
	"github.com/rl1809/pos-invoice/internal/core/service"
)

const (
	productName   = "stress-test-mug"
	initialStock  = 20
	totalRequests = 50
)

func main() {
	ctx := context.Background()

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	// Initialize Redis
	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	defer rdb.Close()

	// Clear previous test data
	rdb.Del(ctx, "product:"+productName, "invoices")
	rdb.SRem(ctx, "products", productName)

	redisAdapter := storage.NewRedisAdapter(rdb)
	if err := redisAdapter.UpsertProduct(ctx, domain.Product{
		Name:  productName,
		Price: decimal.NewFromInt(10),
		Stock: initialStock,
	}); err != nil {
		log.Fatalf("failed to seed product: %v", err)
	}

	invoiceService := service.NewInvoiceService(redisAdapter, redisAdapter, engine.New(), zap.NewNop(),
		service.WithLocker(redisAdapter, 5*time.Second),
		service.WithIdempotency(redisAdapter),
		service.WithBranding("Stress Test Store", ""),
	)

	// Counters
	var successCount atomic.Int32
	var failCount atomic.Int32

	// Spawn concurrent checkouts
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func(customer int) {
			defer wg.Done()

			_, err := invoiceService.Checkout(ctx, service.CheckoutRequest{
				RequestID:     uuid.NewString(),
				CustomerName:  fmt.Sprintf("customer-%d", customer),
				CustomerPhone: fmt.Sprintf("1555%07d", customer),
				Lines:         []domain.LineRequest{{ProductName: productName, Quantity: 1}},
			})
			if err == nil {
				successCount.Add(1)
			} else {
				failCount.Add(1)
			}
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	// Results
	success := successCount.Load()
	fail := failCount.Load()

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Initial Stock:    %d\n", initialStock)
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Failed:           %d\n", fail)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	if success == int32(initialStock) && fail == int32(totalRequests-initialStock) {
		fmt.Printf("PASS: Exactly %d checkouts succeeded, %d failed\n", initialStock, totalRequests-initialStock)
	} else {
		fmt.Printf("FAIL: Expected %d success/%d fail, got %d/%d\n",
			initialStock, totalRequests-initialStock, success, fail)
	}

	// Verify final stock and invoice count
	finalStock, _ := rdb.HGet(ctx, "product:"+productName, "stock").Int()
	fmt.Printf("Final Redis Stock: %d\n", finalStock)
	if finalStock == 0 {
		fmt.Println("PASS: Stock depleted to 0")
	} else {
		fmt.Printf("FAIL: Expected stock 0, got %d\n", finalStock)
	}

	invoices, err := redisAdapter.Invoices(ctx)
	if err != nil {
		log.Fatalf("failed to read invoices: %v", err)
	}
	if len(invoices) == initialStock {
		fmt.Printf("PASS: %d invoices recorded\n", len(invoices))
	} else {
		fmt.Printf("FAIL: Expected %d invoices, got %d\n", initialStock, len(invoices))
	}
}
