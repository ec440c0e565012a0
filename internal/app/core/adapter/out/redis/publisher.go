package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/JoeShih716/go-serial-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-serial-ledger/internal/app/core/usecase"
)

// DefaultMaxLen stream 保留的大約筆數
const DefaultMaxLen = 100_000

// Publisher 以 XADD 把交易完成事件寫入 Redis Stream
type Publisher struct {
	client redis.Cmdable
	stream string
	maxLen int64
}

var _ usecase.EventPublisher = (*Publisher)(nil)

func NewPublisher(client redis.Cmdable, stream string) *Publisher {
	return &Publisher{
		client: client,
		stream: stream,
		maxLen: DefaultMaxLen,
	}
}

// NewClient 建立 redis client 並確認連線
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return rdb, nil
}

func (p *Publisher) Publish(ctx context.Context, tran domain.Transaction) error {
	args, err := p.xaddArgs(tran)
	if err != nil {
		return err
	}
	if err := p.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

func (p *Publisher) xaddArgs(tran domain.Transaction) (*redis.XAddArgs, error) {
	event, err := json.Marshal(domain.NewTransactionCompleted(tran))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	return &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]any{
			"type":           domain.EventTransactionCompleted,
			"transaction_id": tran.ID.String(),
			"event":          event,
		},
	}, nil
}
