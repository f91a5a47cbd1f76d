package events

import (
	"context"
	"encoding/json"
	"strconv"

	"eatoff/internal/domain/model"

	"github.com/segmentio/kafka-go"
)

const CartEventsTopic = "cart-events"

// MessageWriter は kafka.Writer の送信部分だけ（テストで差し替える）
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// カート操作をKafkaへ流す
type KafkaSink struct {
	writer MessageWriter
}

func NewKafkaSink(writer MessageWriter) *KafkaSink {
	return &KafkaSink{writer: writer}
}

func NewKafkaWriter(broker string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(broker),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
}

// ユーザーIDをキーにしてユーザー単位の順序を保つ
func (s *KafkaSink) Emit(ctx context.Context, ev model.CartEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(ev.UserID, 10)),
		Value: payload,
	})
}
