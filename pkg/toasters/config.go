package toasters

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	// Supported toaster types.
	TypeLog    = "log"
	TypeHTTP   = "http"
	TypeSQS    = "sqs"
	TypeSNS    = "sns"
	TypePubSub = "pubsub"

	httpDefaultMethod         = "POST"
	httpDefaultTimeoutSeconds = 5
)

type configFile struct {
	Toasters []ToasterConfig `json:"toasters" yaml:"toasters"`
}

// ToasterConfig represents a single toaster entry declared in the toasters file.
type ToasterConfig struct {
	ID      string        `json:"id" yaml:"id"`
	Type    string        `json:"type" yaml:"type"`
	Enabled *bool         `json:"enabled" yaml:"enabled"`
	HTTP    *HTTPConfig   `json:"http" yaml:"http"`
	SQS     *SQSConfig    `json:"sqs" yaml:"sqs"`
	SNS     *SNSConfig    `json:"sns" yaml:"sns"`
	PubSub  *PubSubConfig `json:"pubsub" yaml:"pubsub"`
}

// HTTPConfig holds webhook settings.
type HTTPConfig struct {
	URL            string            `json:"url" yaml:"url"`
	Method         string            `json:"method" yaml:"method"`
	Headers        map[string]string `json:"headers" yaml:"headers"`
	TimeoutSeconds int               `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// AWSConfig holds settings shared by the AWS toasters. Endpoint overrides the
// service endpoint, for example to reach LocalStack.
type AWSConfig struct {
	Region          string `json:"region" yaml:"region"`
	Endpoint        string `json:"endpoint" yaml:"endpoint"`
	AccessKeyID     string `json:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key" yaml:"secret_access_key"`
	SessionToken    string `json:"session_token" yaml:"session_token"`
}

// SQSConfig holds AWS SQS settings.
type SQSConfig struct {
	AWSConfig `json:",inline" yaml:",inline"`
	QueueURL  string `json:"uri" yaml:"uri"`
}

// SNSConfig holds AWS SNS settings.
type SNSConfig struct {
	AWSConfig `json:",inline" yaml:",inline"`
	TopicARN  string `json:"topic_arn" yaml:"topic_arn"`
}

// PubSubConfig holds Google Cloud Pub/Sub settings.
type PubSubConfig struct {
	ProjectID       string `json:"project_id" yaml:"project_id"`
	Topic           string `json:"topic" yaml:"topic"`
	CredentialsFile string `json:"credentials_file" yaml:"credentials_file"`
	Endpoint        string `json:"endpoint" yaml:"endpoint"`
}

// ConfigRegistry holds toaster definitions loaded from the toasters file.
type ConfigRegistry struct {
	mu       sync.RWMutex
	toasters []ToasterConfig
	idx      map[string]ToasterConfig
}

// LoadRegistry loads toaster definitions from a YAML or JSON file.
func LoadRegistry(path string) (*ConfigRegistry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("toasters file path is empty")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read toasters file: %w", err)
	}

	file, err := parseToasters(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	if len(file.Toasters) == 0 {
		return nil, errors.New("toasters file contains no toasters entries")
	}

	reg := &ConfigRegistry{
		toasters: make([]ToasterConfig, len(file.Toasters)),
		idx:      make(map[string]ToasterConfig, len(file.Toasters)),
	}

	for i := range file.Toasters {
		cfg := sanitizeToasterConfig(file.Toasters[i])
		if err := validateToasterConfig(cfg); err != nil {
			return nil, fmt.Errorf("toasters[%d]: %w", i, err)
		}
		if _, exists := reg.idx[cfg.ID]; exists {
			return nil, fmt.Errorf("duplicate toaster id %q", cfg.ID)
		}
		reg.toasters[i] = cfg
		reg.idx[cfg.ID] = cfg
	}

	return reg, nil
}

// parseToasters decodes the toasters file by extension. Without an extension
// the YAML decoder is used, which also accepts JSON.
func parseToasters(data []byte, ext string) (configFile, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))
	decoders := []struct {
		name string
		ext  string
		fn   func([]byte, any) error
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		var file configFile
		if err := d.fn(data, &file); err != nil {
			return configFile{}, fmt.Errorf("decode %s toasters: %w", d.name, err)
		}
		return file, nil
	}

	return configFile{}, errors.New("toasters file format not recognized (expected YAML or JSON)")
}

func sanitizeToasterConfig(cfg ToasterConfig) ToasterConfig {
	cfg.ID = strings.TrimSpace(cfg.ID)
	cfg.Type = strings.ToLower(strings.TrimSpace(cfg.Type))

	if cfg.Enabled == nil {
		def := true
		cfg.Enabled = &def
	}
	if cfg.HTTP != nil {
		c := *cfg.HTTP
		c.URL = strings.TrimSpace(c.URL)
		c.Method = strings.ToUpper(strings.TrimSpace(c.Method))
		if c.Method == "" {
			c.Method = httpDefaultMethod
		}
		c.Headers = sanitizeHeaders(c.Headers)
		if c.TimeoutSeconds <= 0 {
			c.TimeoutSeconds = httpDefaultTimeoutSeconds
		}
		cfg.HTTP = &c
	}
	if cfg.SQS != nil {
		c := *cfg.SQS
		c.AWSConfig = sanitizeAWS(c.AWSConfig)
		c.QueueURL = strings.TrimSpace(c.QueueURL)
		cfg.SQS = &c
	}
	if cfg.SNS != nil {
		c := *cfg.SNS
		c.AWSConfig = sanitizeAWS(c.AWSConfig)
		c.TopicARN = strings.TrimSpace(c.TopicARN)
		cfg.SNS = &c
	}
	if cfg.PubSub != nil {
		c := *cfg.PubSub
		c.ProjectID = strings.TrimSpace(c.ProjectID)
		c.Topic = shortTopicID(c.ProjectID, strings.TrimSpace(c.Topic))
		c.CredentialsFile = strings.TrimSpace(c.CredentialsFile)
		c.Endpoint = strings.TrimSpace(c.Endpoint)
		cfg.PubSub = &c
	}

	return cfg
}

func sanitizeAWS(c AWSConfig) AWSConfig {
	c.Region = strings.TrimSpace(c.Region)
	c.Endpoint = strings.TrimSpace(c.Endpoint)
	c.AccessKeyID = strings.TrimSpace(c.AccessKeyID)
	c.SecretAccessKey = strings.TrimSpace(c.SecretAccessKey)
	c.SessionToken = strings.TrimSpace(c.SessionToken)
	return c
}

// sanitizeHeaders trims and removes empty headers.
func sanitizeHeaders(headers map[string]string) map[string]string {
	if len(headers) == 0 {
		return nil
	}
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		key := strings.TrimSpace(k)
		val := strings.TrimSpace(v)
		if key == "" || val == "" {
			continue
		}
		out[key] = val
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func validateToasterConfig(cfg ToasterConfig) error {
	if cfg.ID == "" {
		return errors.New("id is required")
	}

	var err error
	switch cfg.Type {
	case "":
		return fmt.Errorf("type is required for toaster %q", cfg.ID)
	case TypeLog:
	case TypeHTTP:
		if cfg.HTTP == nil {
			return fmt.Errorf("http config required for toaster %q", cfg.ID)
		}
		err = cfg.HTTP.validate()
	case TypeSQS:
		if cfg.SQS == nil {
			return fmt.Errorf("sqs config required for toaster %q", cfg.ID)
		}
		err = cfg.SQS.validate()
	case TypeSNS:
		if cfg.SNS == nil {
			return fmt.Errorf("sns config required for toaster %q", cfg.ID)
		}
		err = cfg.SNS.validate()
	case TypePubSub:
		if cfg.PubSub == nil {
			return fmt.Errorf("pubsub config required for toaster %q", cfg.ID)
		}
		err = cfg.PubSub.validate()
	default:
		return fmt.Errorf("unsupported toaster type %q for %q", cfg.Type, cfg.ID)
	}
	if err != nil {
		return fmt.Errorf("toaster %q: %w", cfg.ID, err)
	}
	return nil
}

// webhookMethods are the verbs that carry the toast as a JSON body.
var webhookMethods = map[string]struct{}{
	"POST":  {},
	"PUT":   {},
	"PATCH": {},
}

func (c *HTTPConfig) validate() error {
	if c.URL == "" {
		return errors.New("http.url is required")
	}
	if err := absoluteHTTPURL(c.URL); err != nil {
		return fmt.Errorf("http.url: %w", err)
	}
	if _, ok := webhookMethods[c.Method]; !ok {
		return fmt.Errorf("http.method %q cannot carry a toast body", c.Method)
	}
	for k := range c.Headers {
		if strings.EqualFold(k, "Content-Type") {
			return errors.New("http.headers must not set Content-Type; toasts are always sent as JSON")
		}
	}
	return nil
}

func (c AWSConfig) validate(prefix string) error {
	if c.Region == "" {
		return fmt.Errorf("%s.region is required", prefix)
	}
	if c.Endpoint != "" {
		if err := absoluteHTTPURL(c.Endpoint); err != nil {
			return fmt.Errorf("%s.endpoint: %w", prefix, err)
		}
	}
	if (c.AccessKeyID == "") != (c.SecretAccessKey == "") {
		return fmt.Errorf("%s.access_key_id and %s.secret_access_key must be set together", prefix, prefix)
	}
	if c.SessionToken != "" && c.AccessKeyID == "" {
		return fmt.Errorf("%s.session_token requires static credentials", prefix)
	}
	return nil
}

func (c *SQSConfig) validate() error {
	if c.QueueURL == "" {
		return errors.New("sqs.uri is required")
	}
	if err := absoluteHTTPURL(c.QueueURL); err != nil {
		return fmt.Errorf("sqs.uri: %w", err)
	}
	return c.AWSConfig.validate(TypeSQS)
}

func (c *SNSConfig) validate() error {
	if c.TopicARN == "" {
		return errors.New("sns.topic_arn is required")
	}
	// arn:partition:sns:region:account:topic
	parts := strings.Split(c.TopicARN, ":")
	if len(parts) != 6 || parts[0] != "arn" || parts[2] != "sns" || parts[5] == "" {
		return fmt.Errorf("sns.topic_arn %q is not an SNS topic ARN", c.TopicARN)
	}
	return c.AWSConfig.validate(TypeSNS)
}

func (c *PubSubConfig) validate() error {
	if c.ProjectID == "" || c.Topic == "" {
		return errors.New("pubsub.project_id and pubsub.topic are required")
	}
	if strings.Contains(c.Topic, "/") {
		return fmt.Errorf("pubsub.topic %q must be a topic id or projects/%s/topics/<id>", c.Topic, c.ProjectID)
	}
	if c.Endpoint != "" && strings.Contains(c.Endpoint, "://") {
		return fmt.Errorf("pubsub.endpoint %q must be host:port", c.Endpoint)
	}
	return nil
}

func absoluteHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%q is not an absolute http(s) URL", raw)
	}
	return nil
}

// shortTopicID reduces projects/<project>/topics/<id> to <id> when the
// project matches; anything else is returned unchanged for validation.
func shortTopicID(project, topic string) string {
	prefix := "projects/" + project + "/topics/"
	if project != "" && strings.HasPrefix(topic, prefix) {
		return strings.TrimPrefix(topic, prefix)
	}
	return topic
}

// ByID returns the toaster config by id.
func (r *ConfigRegistry) ByID(id string) (ToasterConfig, bool) {
	if r == nil {
		return ToasterConfig{}, false
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return ToasterConfig{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.idx[id]
	return cfg, ok
}

// All returns all configured toasters.
func (r *ConfigRegistry) All() []ToasterConfig {
	if r == nil {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ToasterConfig, len(r.toasters))
	copy(out, r.toasters)
	return out
}

// Enabled returns toasters that are enabled.
func (r *ConfigRegistry) Enabled() []ToasterConfig {
	all := r.All()
	if len(all) == 0 {
		return nil
	}

	out := make([]ToasterConfig, 0, len(all))
	for _, cfg := range all {
		if cfg.EnabledValue() {
			out = append(out, cfg)
		}
	}
	return out
}

// EnabledValue returns the enabled flag, defaulting to true.
func (cfg ToasterConfig) EnabledValue() bool {
	if cfg.Enabled == nil {
		return true
	}
	return *cfg.Enabled
}
