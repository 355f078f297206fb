package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/samvad-hq/callgate/internal/domain"
	valkey "github.com/valkey-io/valkey-go"
)

const (
	valkeyKeyPrefix  = "callgate:toast:"
	valkeyOpTimeout  = 5 * time.Second
	valkeyPingWindow = 5 * time.Second
)

// ValkeyOptions locates a Valkey or Redis server for shared toast history.
type ValkeyOptions struct {
	Address  string
	Username string
	Password string
	DB       int
}

// valkeyStore keeps one JSON record per message, expired by the server.
type valkeyStore struct {
	client   valkey.Client
	toastTTL time.Duration
}

func openValkey(opts Options) (Store, error) {
	if strings.TrimSpace(opts.Valkey.Address) == "" {
		return nil, errors.New("valkey storage requires an address")
	}

	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress:       []string{opts.Valkey.Address},
		Username:          opts.Valkey.Username,
		Password:          opts.Valkey.Password,
		SelectDB:          opts.Valkey.DB,
		AlwaysRESP2:       true,
		ForceSingleClient: true,
		DisableCache:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("valkey client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), valkeyPingWindow)
	defer cancel()
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("valkey ping: %w", err)
	}

	return &valkeyStore{client: client, toastTTL: opts.ToastTTL}, nil
}

func (s *valkeyStore) Close() error {
	s.client.Close()
	return nil
}

// RecordToast is a read-modify-write; concurrent writers for the same message
// may under-count.
func (s *valkeyStore) RecordToast(message string, at time.Time) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), valkeyOpTimeout)
	defer cancel()

	key := valkeyKeyPrefix + message
	rec, ok, err := s.get(ctx, key)
	if err != nil {
		return 0, err
	}
	if !ok || !rec.ExpiresAt.After(at) {
		rec = domain.ToastRecord{Message: message}
	}
	rec.Count++
	rec.LastShown = at
	rec.ExpiresAt = at.Add(s.toastTTL)

	payload, err := json.Marshal(rec)
	if err != nil {
		return 0, fmt.Errorf("valkey marshal: %w", err)
	}
	cmd := s.client.B().Set().Key(key).Value(string(payload)).Px(s.toastTTL).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return 0, fmt.Errorf("valkey set: %w", err)
	}
	return rec.Count, nil
}

func (s *valkeyStore) RecentToasts() ([]domain.ToastRecord, error) {
	ctx, cancel := context.WithTimeout(context.Background(), valkeyOpTimeout)
	defer cancel()

	keys, err := s.client.Do(ctx, s.client.B().Keys().Pattern(valkeyKeyPrefix+"*").Build()).AsStrSlice()
	if err != nil {
		return nil, fmt.Errorf("valkey keys: %w", err)
	}

	now := time.Now()
	out := make([]domain.ToastRecord, 0, len(keys))
	for _, key := range keys {
		rec, ok, err := s.get(ctx, key)
		if err != nil {
			return nil, err
		}
		if ok && rec.ExpiresAt.After(now) {
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastShown.After(out[j].LastShown)
	})
	return out, nil
}

func (s *valkeyStore) get(ctx context.Context, key string) (domain.ToastRecord, bool, error) {
	resp := s.client.Do(ctx, s.client.B().Get().Key(key).Build())
	if err := resp.Error(); err != nil {
		if errors.Is(err, valkey.Nil) {
			return domain.ToastRecord{}, false, nil
		}
		return domain.ToastRecord{}, false, fmt.Errorf("valkey get: %w", err)
	}
	payload, err := resp.AsBytes()
	if err != nil {
		return domain.ToastRecord{}, false, fmt.Errorf("valkey get bytes: %w", err)
	}
	var rec domain.ToastRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		return domain.ToastRecord{}, false, nil
	}
	return rec, true, nil
}
