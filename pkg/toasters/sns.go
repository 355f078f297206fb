package toasters

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/samvad-hq/callgate/internal/domain"
)

type snsClient interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// snsToaster publishes toasts to an SNS topic.
type snsToaster struct {
	id       string
	topicARN string
	client   snsClient
	log      Logger
}

func newSNSToaster(ctx context.Context, cfg ToasterConfig, log Logger) (Toaster, error) {
	if cfg.SNS == nil {
		return nil, fmt.Errorf("toaster %q missing sns configuration", cfg.ID)
	}

	awsCfg, err := loadAWSConfig(ctx, cfg.SNS.AWSConfig)
	if err != nil {
		return nil, err
	}

	endpoint := cfg.SNS.Endpoint
	client := sns.NewFromConfig(awsCfg, func(o *sns.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	return &snsToaster{
		id:       cfg.ID,
		topicARN: cfg.SNS.TopicARN,
		client:   client,
		log:      ensureLogger(log),
	}, nil
}

func (s *snsToaster) ID() string   { return s.id }
func (s *snsToaster) Type() string { return TypeSNS }

func (s *snsToaster) Toast(ctx context.Context, t domain.Toast) error {
	payload, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal toast: %w", err)
	}

	attrs := make(map[string]types.MessageAttributeValue)
	for k, v := range toastAttributes(t.Occurrences) {
		attrs[k] = types.MessageAttributeValue{
			DataType:    aws.String("Number"),
			StringValue: aws.String(v),
		}
	}

	out, err := s.client.Publish(ctx, &sns.PublishInput{
		TopicArn:          aws.String(s.topicARN),
		Message:           aws.String(string(payload)),
		MessageAttributes: attrs,
	})
	if err != nil {
		s.log.ErrorObj("sns toaster publish failed", "toaster_sns_error", map[string]any{
			"toaster_id": s.id,
			"error":      err.Error(),
		})
		return fmt.Errorf("publish to sns: %w", err)
	}
	s.log.DebugObj("sns toaster delivered toast", "toaster_sns_delivery", map[string]any{
		"toaster_id": s.id,
		"message_id": aws.ToString(out.MessageId),
	})
	return nil
}
