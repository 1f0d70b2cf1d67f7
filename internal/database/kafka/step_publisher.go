package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"FactorySense/internal/models"

	"github.com/segmentio/kafka-go"
)

// StepPublisher 封装了向 Kafka 发送工作流进度事件的逻辑。
type StepPublisher struct {
	writer *kafka.Writer
}

// NewStepPublisher 创建一个新的 StepPublisher 实例，复用客户端的 writer。
func NewStepPublisher(client *KafkaClient) *StepPublisher {
	return &StepPublisher{writer: client.Writer}
}

// PublishStepEvent 将 StepLogEntry 序列化为 JSON 并发送到 Kafka。
// 使用 RunID 作为消息键，保证同一次运行的事件落在同一分区、保持顺序。
func (p *StepPublisher) PublishStepEvent(ctx context.Context, entry *models.StepLogEntry) error {
	jsonData, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal step log entry: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(entry.RunID),
		Value: jsonData,
	})
	if err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	return nil
}

// Close 关闭底层的 writer 连接。
func (p *StepPublisher) Close() error {
	return p.writer.Close()
}
