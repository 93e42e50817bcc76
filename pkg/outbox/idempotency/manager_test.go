package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

type fakeStore struct {
	keys map[string]bool
}

func (f *fakeStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if f.keys == nil {
		f.keys = map[string]bool{}
	}
	if f.keys[key] {
		return false, nil
	}
	f.keys[key] = true
	return true, nil
}

func (f *fakeStore) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.keys, key)
	}
	return nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return "mkt:idempotency:" + scope + ":" + id
}

func TestCheckAndMarkProcessed(t *testing.T) {
	manager, err := NewManager(&fakeStore{}, time.Hour)
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	eventID := uuid.New()

	already, err := manager.CheckAndMarkProcessed(context.Background(), "worker", eventID)
	if err != nil || already {
		t.Fatalf("first call: already=%v err=%v", already, err)
	}
	already, err = manager.CheckAndMarkProcessed(context.Background(), "worker", eventID)
	if err != nil || !already {
		t.Fatalf("second call: already=%v err=%v", already, err)
	}

	if err := manager.Delete(context.Background(), "worker", eventID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	already, err = manager.CheckAndMarkProcessed(context.Background(), "worker", eventID)
	if err != nil || already {
		t.Fatalf("after delete: already=%v err=%v", already, err)
	}
}

func TestProcessedKeyValidation(t *testing.T) {
	manager, _ := NewManager(&fakeStore{}, time.Hour)
	if _, err := manager.CheckAndMarkProcessed(context.Background(), "", uuid.New()); err == nil {
		t.Fatal("expected error for empty consumer")
	}
	if _, err := manager.CheckAndMarkProcessed(context.Background(), "worker", uuid.Nil); err == nil {
		t.Fatal("expected error for nil event id")
	}
}
