package toasters

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/samvad-hq/callgate/internal/domain"
)

// sqsClient defines the minimal subset of the SQS client used by sqsToaster.
type sqsClient interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// sqsToaster queues toasts on AWS SQS for a frontend relay.
type sqsToaster struct {
	id       string
	queueURL string
	client   sqsClient
	log      Logger
}

func newSQSToaster(ctx context.Context, cfg ToasterConfig, log Logger) (Toaster, error) {
	if cfg.SQS == nil {
		return nil, fmt.Errorf("toaster %q missing sqs configuration", cfg.ID)
	}

	awsCfg, err := loadAWSConfig(ctx, cfg.SQS.AWSConfig)
	if err != nil {
		return nil, err
	}

	endpoint := cfg.SQS.Endpoint
	client := sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	return &sqsToaster{
		id:       cfg.ID,
		queueURL: cfg.SQS.QueueURL,
		client:   client,
		log:      ensureLogger(log),
	}, nil
}

func (s *sqsToaster) ID() string   { return s.id }
func (s *sqsToaster) Type() string { return TypeSQS }

// Toast sends the toast to the configured queue.
func (s *sqsToaster) Toast(ctx context.Context, t domain.Toast) error {
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

	input := &sqs.SendMessageInput{
		QueueUrl:          aws.String(s.queueURL),
		MessageBody:       aws.String(string(payload)),
		MessageAttributes: attrs,
	}

	if _, err := s.client.SendMessage(ctx, input); err != nil {
		s.log.ErrorObj("sqs toaster send failed", "toaster_sqs_error", map[string]any{
			"toaster_id": s.id,
			"error":      err.Error(),
		})
		return fmt.Errorf("send message to sqs: %w", err)
	}
	s.log.DebugObj("sqs toaster delivered toast", "toaster_sqs_delivery", map[string]any{
		"toaster_id": s.id,
	})
	return nil
}
