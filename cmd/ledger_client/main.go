package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	grpc_adapter "github.com/JoeShih716/go-serial-ledger/internal/app/core/adapter/in/grpc"
	"github.com/JoeShih716/go-serial-ledger/pkg/grpc"
	"github.com/JoeShih716/go-serial-ledger/pkg/logger"
)

// 壓力測試: 建立數個帳戶並各自存入初始金額，
// 多個 goroutine 隨機互轉，結束後檢查總額不變
func main() {
	addr := flag.String("addr", "localhost:50051", "ledger gRPC address")
	accounts := flag.Int("accounts", 3, "number of accounts to create")
	initial := flag.String("initial", "1000", "initial balance per account")
	workers := flag.Int("workers", 8, "concurrent transfer workers")
	iterations := flag.Int("iterations", 10000, "transfers per worker")
	flag.Parse()

	log := logger.New(logger.Config{Level: "info"})

	pool := grpc.NewPool()
	defer pool.Close()
	conn, err := pool.GetConnection(*addr)
	if err != nil {
		log.Error("did not connect", "error", err)
		os.Exit(1)
	}
	client := grpc_adapter.NewClient(conn)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	amount := decimal.RequireFromString(*initial)
	ids := make([]int64, 0, *accounts)
	for i := 0; i < *accounts; i++ {
		account, err := client.CreateAccount(ctx)
		if err != nil {
			log.Error("create account", "error", err)
			os.Exit(1)
		}
		if _, err := client.Recharge(ctx, account.ID, amount); err != nil {
			log.Error("recharge", "account_id", account.ID, "error", err)
			os.Exit(1)
		}
		ids = append(ids, account.ID)
	}
	expected := amount.Mul(decimal.NewFromInt(int64(len(ids))))

	var ok, rejected, failed atomic.Int64
	var wg sync.WaitGroup
	start := time.Now()
	for w := 0; w < *workers; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for i := 0; i < *iterations; i++ {
				from := ids[rng.Intn(len(ids))]
				to := ids[rng.Intn(len(ids))]
				value := decimal.New(rng.Int63n(amount.IntPart()*100+1), -2)
				_, err := client.Transfer(ctx, from, to, value, "stress")
				switch status.Code(err) {
				case codes.OK:
					ok.Add(1)
				case codes.InvalidArgument:
					rejected.Add(1)
				default:
					if failed.Add(1)%1000 == 1 {
						log.Warn("transfer failed", "error", err)
					}
				}
			}
		}(time.Now().UnixNano() + int64(w))
	}
	wg.Wait()
	elapsed := time.Since(start)

	total := decimal.Zero
	for _, id := range ids {
		account, found, err := client.GetAccount(ctx, id)
		if err != nil || !found {
			log.Error("get account", "account_id", id, "found", found, "error", err)
			os.Exit(1)
		}
		if account.Balance.IsNegative() {
			log.Error("negative balance", "account_id", id, "balance", account.Balance.String())
			os.Exit(1)
		}
		total = total.Add(account.Balance)
	}

	count := int64(*workers) * int64(*iterations)
	fmt.Printf("Completed %d transfers in %v (ok=%d rejected=%d failed=%d)\n",
		count, elapsed, ok.Load(), rejected.Load(), failed.Load())
	fmt.Printf("TPS: %.2f\n", float64(count)/elapsed.Seconds())

	if !total.Equal(expected) {
		log.Error("total balance changed", "expected", expected.String(), "actual", total.String())
		os.Exit(1)
	}
	fmt.Printf("Total balance preserved: %s\n", total.String())
}
