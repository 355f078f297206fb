package toasters

import (
	"context"
	"encoding/json"
	"testing"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/samvad-hq/callgate/internal/domain"
)

func TestPubSubToasterPublishes(t *testing.T) {
	// Use the in-memory Pub/Sub emulator.
	server := pstest.NewServer()
	defer server.Close()
	t.Setenv("PUBSUB_EMULATOR_HOST", server.Addr)

	ctx := context.Background()
	client, err := pubsub.NewClient(ctx, "test-project")
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	defer client.Close()
	if _, err := client.CreateTopic(ctx, "toasts"); err != nil {
		t.Fatalf("create topic: %v", err)
	}

	toaster, err := newPubSubToaster(ctx, ToasterConfig{
		ID:     "ps",
		Type:   TypePubSub,
		PubSub: &PubSubConfig{ProjectID: "test-project", Topic: "toasts"},
	}, nil)
	if err != nil {
		t.Fatalf("newPubSubToaster: %v", err)
	}
	defer toaster.(*pubsubToaster).Close()

	if err := toaster.Toast(ctx, domain.Toast{Message: "service error", Occurrences: 2}); err != nil {
		t.Fatalf("Toast: %v", err)
	}

	msgs := server.Messages()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 published message, got %d", len(msgs))
	}
	var got domain.Toast
	if err := json.Unmarshal(msgs[0].Data, &got); err != nil {
		t.Fatalf("decode message: %v", err)
	}
	if got.Message != "service error" {
		t.Fatalf("unexpected message %q", got.Message)
	}
	if msgs[0].Attributes["occurrences"] != "2" {
		t.Fatalf("unexpected attributes %v", msgs[0].Attributes)
	}
}
