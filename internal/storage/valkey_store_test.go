package storage

import (
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
)

func TestValkeyStoreCountsToasts(t *testing.T) {
	server, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer server.Close()

	store, err := NewStore("valkey", "", Options{
		ToastTTL: time.Hour,
		Valkey:   ValkeyOptions{Address: server.Addr()},
	})
	if err != nil {
		t.Fatalf("NewStore valkey: %v", err)
	}
	defer store.Close()

	now := time.Now()
	for want := 1; want <= 2; want++ {
		got, err := store.RecordToast("service error", now)
		if err != nil {
			t.Fatalf("RecordToast: %v", err)
		}
		if got != want {
			t.Fatalf("expected count %d, got %d", want, got)
		}
	}
	if _, err := store.RecordToast("request timed out", now.Add(time.Second)); err != nil {
		t.Fatalf("RecordToast: %v", err)
	}

	recs, err := store.RecentToasts()
	if err != nil {
		t.Fatalf("RecentToasts: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %+v", recs)
	}
	if recs[0].Message != "request timed out" || recs[1].Count != 2 {
		t.Fatalf("unexpected ordering or counts: %+v", recs)
	}

	if ttl := server.TTL("callgate:toast:service error"); ttl <= 0 || ttl > time.Hour {
		t.Fatalf("expected key ttl within the retention window, got %v", ttl)
	}
}

func TestValkeyStoreRequiresAddress(t *testing.T) {
	if _, err := NewStore("valkey", "", Options{}); err == nil {
		t.Fatalf("expected error without address")
	}
}
