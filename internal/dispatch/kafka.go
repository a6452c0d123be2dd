package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/hikarin/chatcore/config"
	"github.com/hikarin/chatcore/internal/models"
	"github.com/hikarin/chatcore/internal/utils"
)

// KafkaDispatcher produces notification jobs to Kafka. Produces run on the
// worker pool so post-commit hooks return without waiting on the broker;
// broker failures are logged, never surfaced to the sender.
type KafkaDispatcher struct {
	producer sarama.SyncProducer
	cfg      *config.KafkaConfig
	pool     *utils.WorkerPool
	logger   *zap.Logger
}

// NewKafkaDispatcher creates a dispatcher with an idempotent sync producer
// configured for at-least-once delivery.
func NewKafkaDispatcher(cfg *config.KafkaConfig, pool *utils.WorkerPool, logger *zap.Logger) (*KafkaDispatcher, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Retry.Max = cfg.Producer.MaxRetries
	saramaConfig.Producer.Retry.Backoff = time.Duration(cfg.Producer.RetryBackoffMs) * time.Millisecond
	saramaConfig.Producer.Compression = sarama.CompressionSnappy
	saramaConfig.Producer.Idempotent = true
	saramaConfig.Net.MaxOpenRequests = 1

	saramaConfig.Net.DialTimeout = 10 * time.Second
	saramaConfig.Net.ReadTimeout = 10 * time.Second
	saramaConfig.Net.WriteTimeout = 10 * time.Second
	saramaConfig.Metadata.Retry.Max = 3
	saramaConfig.Metadata.Retry.Backoff = 250 * time.Millisecond
	saramaConfig.Metadata.Timeout = 10 * time.Second

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return &KafkaDispatcher{
		producer: producer,
		cfg:      cfg,
		pool:     pool,
		logger:   logger,
	}, nil
}

// messageJob is the payload produced for every notification kind.
type messageJob struct {
	MessageID  int64     `json:"message_id"`
	ChannelID  uint      `json:"channel_id"`
	SenderID   uint      `json:"sender_id"`
	SenderName string    `json:"sender_name,omitempty"`
	Content    string    `json:"content"`
	IsAction   bool      `json:"is_action"`
	UUID       string    `json:"uuid,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

func (d *KafkaDispatcher) DispatchDirectMessage(ctx context.Context, message *models.Message, sender *models.User) error {
	return d.enqueue(d.cfg.Topics.DirectMessage, message, sender)
}

func (d *KafkaDispatcher) DispatchAnnouncement(ctx context.Context, message *models.Message, sender *models.User) error {
	return d.enqueue(d.cfg.Topics.Announcement, message, sender)
}

func (d *KafkaDispatcher) DispatchRelay(ctx context.Context, message *models.Message) error {
	return d.enqueue(d.cfg.Topics.Relay, message, nil)
}

func (d *KafkaDispatcher) enqueue(topic string, message *models.Message, sender *models.User) error {
	job := messageJob{
		MessageID: message.ID,
		ChannelID: message.ChannelID,
		SenderID:  message.SenderID,
		Content:   message.Content,
		IsAction:  message.IsAction,
		UUID:      message.UUID,
		Timestamp: message.Timestamp,
	}
	if sender != nil {
		job.SenderName = sender.UserName
	}

	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal notification job: %w", err)
	}

	// Partition by channel so per-channel ordering survives the broker.
	key := fmt.Sprintf("channel:%d", message.ChannelID)

	d.pool.Submit(func() {
		_, _, err := d.producer.SendMessage(&sarama.ProducerMessage{
			Topic: topic,
			Key:   sarama.StringEncoder(key),
			Value: sarama.ByteEncoder(payload),
		})
		if err != nil {
			d.logger.Error("failed to produce notification job",
				zap.String("topic", topic),
				zap.Int64("message_id", message.ID),
				zap.Error(err),
			)
		}
	})
	return nil
}

func (d *KafkaDispatcher) Close() error {
	return d.producer.Close()
}
