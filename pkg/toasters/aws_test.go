package toasters

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/samvad-hq/callgate/internal/domain"
)

type fakeSQSClient struct {
	input *sqs.SendMessageInput
	err   error
}

func (f *fakeSQSClient) SendMessage(_ context.Context, params *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sqs.SendMessageOutput{MessageId: aws.String("msg-123")}, nil
}

type fakeSNSClient struct {
	input *sns.PublishInput
	err   error
}

func (f *fakeSNSClient) Publish(_ context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{MessageId: aws.String("msg-123")}, nil
}

func TestSQSToasterSendsToast(t *testing.T) {
	client := &fakeSQSClient{}
	toaster := &sqsToaster{
		id:       "queue",
		queueURL: "https://example.com/queue",
		client:   client,
		log:      noopLogger{},
	}

	if err := toaster.Toast(context.Background(), domain.Toast{Message: "service error", Occurrences: 3}); err != nil {
		t.Fatalf("Toast returned error: %v", err)
	}
	if client.input == nil {
		t.Fatalf("client was not called")
	}
	if got := aws.ToString(client.input.QueueUrl); got != "https://example.com/queue" {
		t.Fatalf("QueueUrl = %s", got)
	}
	attr, ok := client.input.MessageAttributes["occurrences"]
	if !ok || aws.ToString(attr.StringValue) != "3" || aws.ToString(attr.DataType) != "Number" {
		t.Fatalf("occurrences attribute missing or wrong: %#v", attr)
	}
	if !strings.Contains(aws.ToString(client.input.MessageBody), `"message":"service error"`) {
		t.Fatalf("MessageBody missing message: %s", aws.ToString(client.input.MessageBody))
	}
}

func TestSQSToasterSendError(t *testing.T) {
	toaster := &sqsToaster{
		id:       "queue",
		queueURL: "https://example.com/queue",
		client:   &fakeSQSClient{err: errors.New("boom")},
		log:      noopLogger{},
	}
	if err := toaster.Toast(context.Background(), domain.Toast{Message: "x"}); err == nil {
		t.Fatalf("expected error from Toast")
	}
}

func TestSNSToasterPublishesToast(t *testing.T) {
	client := &fakeSNSClient{}
	toaster := &snsToaster{
		id:       "topic",
		topicARN: "arn:aws:sns:::topic",
		client:   client,
		log:      noopLogger{},
	}

	if err := toaster.Toast(context.Background(), domain.Toast{Message: "service error", Occurrences: 1}); err != nil {
		t.Fatalf("Toast returned error: %v", err)
	}
	if got := aws.ToString(client.input.TopicArn); got != "arn:aws:sns:::topic" {
		t.Fatalf("TopicArn = %s", got)
	}
	if attr, ok := client.input.MessageAttributes["occurrences"]; !ok || aws.ToString(attr.StringValue) != "1" {
		t.Fatalf("occurrences attribute missing or wrong: %#v", attr)
	}
	if !strings.Contains(aws.ToString(client.input.Message), `"message":"service error"`) {
		t.Fatalf("Message missing toast text: %s", aws.ToString(client.input.Message))
	}
}

func TestSNSToasterPublishError(t *testing.T) {
	toaster := &snsToaster{
		id:       "topic",
		topicARN: "arn:aws:sns:::topic",
		client:   &fakeSNSClient{err: errors.New("boom")},
		log:      noopLogger{},
	}
	if err := toaster.Toast(context.Background(), domain.Toast{Message: "x"}); err == nil {
		t.Fatalf("expected error from Toast")
	}
}

func TestNewSQSToasterWithStaticCredentials(t *testing.T) {
	toaster, err := newSQSToaster(context.Background(), ToasterConfig{
		ID:   "queue",
		Type: TypeSQS,
		SQS: &SQSConfig{
			AWSConfig: AWSConfig{
				Region:          "us-east-1",
				Endpoint:        "http://localhost:4566",
				AccessKeyID:     "test",
				SecretAccessKey: "test",
			},
			QueueURL: "http://localhost:4566/000000000000/toasts",
		},
	}, nil)
	if err != nil {
		t.Fatalf("newSQSToaster: %v", err)
	}
	if toaster.Type() != TypeSQS || toaster.ID() != "queue" {
		t.Fatalf("unexpected toaster identity %s/%s", toaster.Type(), toaster.ID())
	}
}
