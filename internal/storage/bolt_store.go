package storage

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samvad-hq/callgate/internal/domain"
	bolt "go.etcd.io/bbolt"
)

const (
	toastBucket = "toasts"
	// value layout: expiry unix | last shown unix | count, big endian uint64 each
	recordValueBytes = 24
)

// boltStore implements a Store backed by BoltDB.
type boltStore struct {
	db              *bolt.DB
	cleanupMu       sync.Mutex
	lastCleanup     atomic.Int64
	toastTTL        time.Duration
	cleanupInterval time.Duration
}

// openBolt initializes a BoltDB-backed Store.
func openBolt(path string, opts Options) (Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(toastBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("init bucket: %w", err)
	}

	store := &boltStore{
		db:              db,
		toastTTL:        opts.ToastTTL,
		cleanupInterval: opts.CleanupInterval,
	}
	store.lastCleanup.Store(time.Now().Unix())
	return store, nil
}

// Close closes the BoltDB store.
func (b *boltStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// RecordToast bumps the count for message, restarting the count once the
// previous record expired.
func (b *boltStore) RecordToast(message string, at time.Time) (int, error) {
	if b == nil || b.db == nil {
		return 0, nil
	}

	if err := b.maybeCleanupExpired(at); err != nil {
		return 0, err
	}

	var count int
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(toastBucket))
		if bucket == nil {
			return fmt.Errorf("toast bucket missing")
		}

		key := []byte(message)
		rec, ok := decodeRecord(message, bucket.Get(key))
		if !ok || !rec.ExpiresAt.After(at) {
			rec = domain.ToastRecord{Message: message}
		}
		rec.Count++
		rec.LastShown = at
		rec.ExpiresAt = at.Add(b.toastTTL)
		count = rec.Count
		return bucket.Put(key, encodeRecord(rec))
	})
	return count, err
}

// RecentToasts returns unexpired records, most recently shown first.
func (b *boltStore) RecentToasts() ([]domain.ToastRecord, error) {
	if b == nil || b.db == nil {
		return nil, nil
	}

	now := time.Now()
	var out []domain.ToastRecord
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(toastBucket))
		if bucket == nil {
			return fmt.Errorf("toast bucket missing")
		}
		return bucket.ForEach(func(k, v []byte) error {
			rec, ok := decodeRecord(string(k), v)
			if ok && rec.ExpiresAt.After(now) {
				out = append(out, rec)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastShown.After(out[j].LastShown)
	})
	return out, nil
}

// maybeCleanupExpired removes expired records on a fixed cadence to avoid unbounded growth.
func (b *boltStore) maybeCleanupExpired(now time.Time) error {
	if b == nil || b.db == nil {
		return nil
	}

	last := time.Unix(b.lastCleanup.Load(), 0)
	if now.Sub(last) < b.cleanupInterval {
		return nil
	}

	b.cleanupMu.Lock()
	defer b.cleanupMu.Unlock()

	last = time.Unix(b.lastCleanup.Load(), 0)
	if now.Sub(last) < b.cleanupInterval {
		return nil
	}

	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(toastBucket))
		if bucket == nil {
			return fmt.Errorf("toast bucket missing")
		}

		cursor := bucket.Cursor()
		for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
			rec, ok := decodeRecord(string(k), v)
			if !ok || !rec.ExpiresAt.After(now) {
				if err := cursor.Delete(); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err == nil {
		b.lastCleanup.Store(now.Unix())
	}
	return err
}

func encodeRecord(rec domain.ToastRecord) []byte {
	buf := make([]byte, recordValueBytes)
	binary.BigEndian.PutUint64(buf[0:8], uint64(rec.ExpiresAt.Unix()))
	binary.BigEndian.PutUint64(buf[8:16], uint64(rec.LastShown.Unix()))
	binary.BigEndian.PutUint64(buf[16:24], uint64(rec.Count))
	return buf
}

// decodeRecord decodes a stored value; ok is false for missing or corrupt values.
func decodeRecord(message string, value []byte) (domain.ToastRecord, bool) {
	if len(value) != recordValueBytes {
		return domain.ToastRecord{}, false
	}
	expiry := int64(binary.BigEndian.Uint64(value[0:8]))
	if expiry <= 0 {
		return domain.ToastRecord{}, false
	}
	return domain.ToastRecord{
		Message:   message,
		ExpiresAt: time.Unix(expiry, 0),
		LastShown: time.Unix(int64(binary.BigEndian.Uint64(value[8:16])), 0),
		Count:     int(binary.BigEndian.Uint64(value[16:24])),
	}, true
}
