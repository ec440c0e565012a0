package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/segmentio/kafka-go"

	"github.com/JoeShih716/go-serial-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-serial-ledger/internal/app/core/usecase"
)

// Publisher 把交易完成事件送到 Kafka
//
// Writer 以非同步模式運作，送出失敗只會記錄在 log。
// 訊息 key 為來源帳戶，同一帳戶的事件落在同一個 partition。
type Publisher struct {
	writer *kafka.Writer
	logger *slog.Logger
}

var _ usecase.EventPublisher = (*Publisher)(nil)

func NewPublisher(brokers []string, topic string, logger *slog.Logger) *Publisher {
	p := &Publisher{logger: logger}
	p.writer = &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		Async:                  true,
		AllowAutoTopicCreation: true,
		Completion:             p.onCompletion,
	}
	return p
}

func (p *Publisher) Publish(ctx context.Context, tran domain.Transaction) error {
	msg, err := message(tran)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write kafka message: %w", err)
	}
	return nil
}

// Close 送出緩衝中的訊息並關閉 writer
func (p *Publisher) Close() error {
	return p.writer.Close()
}

func (p *Publisher) onCompletion(messages []kafka.Message, err error) {
	if err == nil {
		return
	}
	p.logger.Error("failed to deliver transaction events",
		"topic", p.writer.Topic,
		"count", len(messages),
		"error", err,
	)
}

func message(tran domain.Transaction) (kafka.Message, error) {
	data, err := json.Marshal(domain.NewTransactionCompleted(tran))
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal transaction event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(strconv.FormatInt(tran.From, 10)),
		Value: data,
		Time:  tran.Timestamp,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(domain.EventTransactionCompleted)},
		},
	}, nil
}
