package publish

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"

	"github.com/stridewatch/stridewatch/internal/catalog"
)

// PubSub publishes change observations to a Pub/Sub topic as JSON messages.
type PubSub struct {
	client *pubsub.Client
	topic  *pubsub.Topic
}

// NewPubSub connects to Pub/Sub and verifies the topic exists.
func NewPubSub(ctx context.Context, cfg Config, opts ...option.ClientOption) (*PubSub, error) {
	if cfg.Project == "" {
		return nil, fmt.Errorf("pubsub.project is required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("pubsub.topic is required")
	}
	client, err := pubsub.NewClient(ctx, cfg.Project, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect pubsub: %w", err)
	}
	topic := client.Topic(cfg.Topic)
	exists, err := topic.Exists(ctx)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("check topic: %w", err)
	}
	if !exists {
		_ = client.Close()
		return nil, fmt.Errorf("topic %q does not exist", cfg.Topic)
	}
	return &PubSub{client: client, topic: topic}, nil
}

// Publish marshals the observation to JSON and publishes it, returning the
// server-assigned message id.
func (p *PubSub) Publish(ctx context.Context, obs catalog.PriceObservation) (string, error) {
	if p == nil || p.topic == nil {
		return "", fmt.Errorf("pubsub publisher is not configured")
	}
	data, err := json.Marshal(obs)
	if err != nil {
		return "", fmt.Errorf("marshal observation: %w", err)
	}
	result := p.topic.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"size_id":     obs.SizeID,
			"change_type": obs.ChangeType,
		},
	})
	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish observation: %w", err)
	}
	return id, nil
}

// Close flushes pending messages and releases the client.
func (p *PubSub) Close() error {
	if p == nil {
		return nil
	}
	if p.topic != nil {
		p.topic.Stop()
	}
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}
