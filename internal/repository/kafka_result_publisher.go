package repository

import (
	"context"

	"DemandCast/internal/domain/models"
	domrepo "DemandCast/internal/domain/repository"
	pkgkafka "DemandCast/pkg/kafka"
)

// KafkaResultPublisher implements ResultPublisher on a Kafka topic. Events
// are keyed by config hash so repeats of one request stay ordered.
type KafkaResultPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaResultPublisher(producer *pkgkafka.Producer, topic string) *KafkaResultPublisher {
	return &KafkaResultPublisher{producer: producer, topic: topic}
}

var _ domrepo.ResultPublisher = (*KafkaResultPublisher)(nil)

func (p *KafkaResultPublisher) Publish(ctx context.Context, ev *models.ResultEvent) error {
	return p.producer.Publish(ctx, p.topic, []byte(ev.ConfigHash), ev)
}

func (p *KafkaResultPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
