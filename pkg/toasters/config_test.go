package toasters

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRegistryEnabledFilter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "toasters.yaml")
	raw := `
toasters:
  - id: hook1
    type: http
    enabled: false
    http:
      url: https://example.com
  - id: queue
    type: sqs
    sqs:
      region: " us-east-1 "
      endpoint: http://localhost:4566
      uri: http://localhost:4566/000000000000/toasts
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	enabled := reg.Enabled()
	if len(enabled) != 1 || enabled[0].ID != "queue" {
		t.Fatalf("expected only queue enabled, got %#v", enabled)
	}
	if enabled[0].SQS.Region != "us-east-1" || enabled[0].SQS.Endpoint != "http://localhost:4566" {
		t.Fatalf("expected inline aws settings to be sanitized, got %#v", enabled[0].SQS)
	}

	hook, ok := reg.ByID("hook1")
	if !ok {
		t.Fatalf("expected hook1 to be indexed")
	}
	if hook.HTTP.Method != httpDefaultMethod || hook.HTTP.TimeoutSeconds != httpDefaultTimeoutSeconds {
		t.Fatalf("expected http defaults, got %#v", hook.HTTP)
	}
}

func TestLoadRegistryJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "toasters.json")
	raw := `{"toasters":[{"id":"ps","type":"pubsub","pubsub":{"project_id":"p","topic":"t"}}]}`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	if all := reg.All(); len(all) != 1 || all[0].PubSub.Topic != "t" {
		t.Fatalf("unexpected registry contents %#v", all)
	}
}

func TestLoadRegistryRejectsDuplicates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "toasters.yaml")
	raw := `
toasters:
  - id: a
    type: log
  - id: a
    type: log
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, err := LoadRegistry(path); err == nil {
		t.Fatalf("expected duplicate id error")
	}
}

func TestValidateToasterConfig(t *testing.T) {
	cases := []struct {
		name string
		cfg  ToasterConfig
	}{
		{name: "missing http", cfg: ToasterConfig{ID: "h", Type: TypeHTTP}},
		{name: "sqs without region", cfg: ToasterConfig{ID: "q", Type: TypeSQS, SQS: &SQSConfig{QueueURL: "u"}}},
		{name: "sns without topic", cfg: ToasterConfig{ID: "s", Type: TypeSNS, SNS: &SNSConfig{AWSConfig: AWSConfig{Region: "r"}}}},
		{name: "pubsub without topic", cfg: ToasterConfig{ID: "p", Type: TypePubSub, PubSub: &PubSubConfig{ProjectID: "p"}}},
		{name: "unknown type", cfg: ToasterConfig{ID: "k", Type: "kafka"}},
		{name: "missing id", cfg: ToasterConfig{Type: TypeLog}},
		{name: "relative webhook url", cfg: ToasterConfig{ID: "h", Type: TypeHTTP, HTTP: &HTTPConfig{URL: "/hook", Method: "POST"}}},
		{name: "webhook without body verb", cfg: ToasterConfig{ID: "h", Type: TypeHTTP, HTTP: &HTTPConfig{URL: "https://example.com", Method: "GET"}}},
		{name: "webhook overrides content type", cfg: ToasterConfig{ID: "h", Type: TypeHTTP, HTTP: &HTTPConfig{
			URL: "https://example.com", Method: "POST", Headers: map[string]string{"content-type": "text/plain"},
		}}},
		{name: "sqs uri not a url", cfg: ToasterConfig{ID: "q", Type: TypeSQS, SQS: &SQSConfig{AWSConfig: AWSConfig{Region: "us-east-1"}, QueueURL: "toasts"}}},
		{name: "aws key without secret", cfg: ToasterConfig{ID: "q", Type: TypeSQS, SQS: &SQSConfig{
			AWSConfig: AWSConfig{Region: "us-east-1", AccessKeyID: "AKIA"},
			QueueURL:  "https://sqs.us-east-1.amazonaws.com/1/toasts",
		}}},
		{name: "sns arn of another service", cfg: ToasterConfig{ID: "s", Type: TypeSNS, SNS: &SNSConfig{
			AWSConfig: AWSConfig{Region: "us-east-1"},
			TopicARN:  "arn:aws:sqs:us-east-1:000000000000:toasts",
		}}},
		{name: "pubsub topic from another project", cfg: ToasterConfig{ID: "p", Type: TypePubSub, PubSub: &PubSubConfig{ProjectID: "a", Topic: "projects/b/topics/t"}}},
		{name: "pubsub endpoint with scheme", cfg: ToasterConfig{ID: "p", Type: TypePubSub, PubSub: &PubSubConfig{ProjectID: "a", Topic: "t", Endpoint: "http://localhost:8085"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := validateToasterConfig(tc.cfg); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestSanitizeAcceptsDomainForms(t *testing.T) {
	cases := []struct {
		name string
		cfg  ToasterConfig
	}{
		{name: "webhook defaults to POST", cfg: ToasterConfig{ID: "h", Type: TypeHTTP, HTTP: &HTTPConfig{URL: " https://example.com/hook "}}},
		{name: "sqs with static credentials", cfg: ToasterConfig{ID: "q", Type: TypeSQS, SQS: &SQSConfig{
			AWSConfig: AWSConfig{Region: "us-east-1", Endpoint: "http://localhost:4566", AccessKeyID: "test", SecretAccessKey: "test"},
			QueueURL:  "http://localhost:4566/000000000000/toasts",
		}}},
		{name: "sns topic arn", cfg: ToasterConfig{ID: "s", Type: TypeSNS, SNS: &SNSConfig{
			AWSConfig: AWSConfig{Region: "us-east-1"},
			TopicARN:  "arn:aws:sns:us-east-1:000000000000:toasts",
		}}},
		{name: "pubsub emulator", cfg: ToasterConfig{ID: "p", Type: TypePubSub, PubSub: &PubSubConfig{ProjectID: "a", Topic: "t", Endpoint: "localhost:8085"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := validateToasterConfig(sanitizeToasterConfig(tc.cfg)); err != nil {
				t.Fatalf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestSanitizeShortensPubSubTopicName(t *testing.T) {
	cfg := sanitizeToasterConfig(ToasterConfig{
		ID:     "p",
		Type:   TypePubSub,
		PubSub: &PubSubConfig{ProjectID: "my-project", Topic: "projects/my-project/topics/toasts"},
	})
	if cfg.PubSub.Topic != "toasts" {
		t.Fatalf("expected short topic id, got %q", cfg.PubSub.Topic)
	}
	if err := validateToasterConfig(cfg); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}
