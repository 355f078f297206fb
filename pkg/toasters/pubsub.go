package toasters

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"
	"github.com/samvad-hq/callgate/internal/domain"
	"google.golang.org/api/option"
)

// pubsubToaster publishes toasts to a Google Cloud Pub/Sub topic.
type pubsubToaster struct {
	id     string
	client *pubsub.Client
	topic  *pubsub.Topic
	log    Logger
}

func newPubSubToaster(ctx context.Context, cfg ToasterConfig, log Logger) (Toaster, error) {
	if cfg.PubSub == nil {
		return nil, fmt.Errorf("toaster %q missing pubsub configuration", cfg.ID)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var opts []option.ClientOption
	if cfg.PubSub.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.PubSub.CredentialsFile))
	}
	if cfg.PubSub.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.PubSub.Endpoint))
	}

	client, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}

	return &pubsubToaster{
		id:     cfg.ID,
		client: client,
		topic:  client.Topic(cfg.PubSub.Topic),
		log:    ensureLogger(log),
	}, nil
}

func (p *pubsubToaster) ID() string   { return p.id }
func (p *pubsubToaster) Type() string { return TypePubSub }

// Toast publishes the toast and waits for the server ack.
func (p *pubsubToaster) Toast(ctx context.Context, t domain.Toast) error {
	payload, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal toast: %w", err)
	}

	res := p.topic.Publish(ctx, &pubsub.Message{
		Data:       payload,
		Attributes: toastAttributes(t.Occurrences),
	})
	serverID, err := res.Get(ctx)
	if err != nil {
		p.log.ErrorObj("pubsub toaster publish failed", "toaster_pubsub_error", map[string]any{
			"toaster_id": p.id,
			"error":      err.Error(),
		})
		return fmt.Errorf("publish to pubsub: %w", err)
	}
	p.log.DebugObj("pubsub toaster delivered toast", "toaster_pubsub_delivery", map[string]any{
		"toaster_id": p.id,
		"message_id": serverID,
	})
	return nil
}

// Close flushes pending publishes and closes the client.
func (p *pubsubToaster) Close() error {
	p.topic.Stop()
	return p.client.Close()
}
