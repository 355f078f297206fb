package main

import (
	"errors"
	"testing"
)

func TestParsePayload(t *testing.T) {
	payload, err := parsePayload([]string{`{"id":3,"tags":["a"]}`})
	if err != nil {
		t.Fatalf("parsePayload: %v", err)
	}
	if payload["id"] != float64(3) {
		t.Fatalf("unexpected payload %v", payload)
	}

	if payload, err := parsePayload(nil); err != nil || payload != nil {
		t.Fatalf("expected nil payload without args, got %v err=%v", payload, err)
	}
}

func TestParsePayloadRejectsBadInput(t *testing.T) {
	for _, args := range [][]string{{`[1,2]`}, {`not json`}, {`{}`, `{}`}} {
		if _, err := parsePayload(args); !errors.Is(err, errUsage) {
			t.Fatalf("expected usage error for %v, got %v", args, err)
		}
	}
}

func TestRunWithoutCommand(t *testing.T) {
	if err := run(nil, nil); !errors.Is(err, errUsage) {
		t.Fatalf("expected usage error, got %v", err)
	}
}
