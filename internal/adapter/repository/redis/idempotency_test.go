package redis

import (
	"bytes"
	"context"
	"testing"
	"time"
)

func TestIdempotencyFirstRequest(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	store := NewIdempotencyStore(client)
	ctx := context.Background()

	exists, _, err := store.CheckAndSet(ctx, "key-1", nil, time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exists {
		t.Fatal("first request must not find an existing key")
	}
}

func TestIdempotencyReplay(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	store := NewIdempotencyStore(client)
	ctx := context.Background()

	if _, _, err := store.CheckAndSet(ctx, "key-1", nil, time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Update(ctx, "key-1", []byte(`{"id":"txn-1"}`), time.Minute); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	exists, stored, err := store.CheckAndSet(ctx, "key-1", nil, time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !exists {
		t.Fatal("replay must find the stored response")
	}
	if !bytes.Equal(stored, []byte(`{"id":"txn-1"}`)) {
		t.Fatalf("unexpected stored response: %s", stored)
	}
}

func TestIdempotencyInFlightLock(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	store := NewIdempotencyStore(client)
	ctx := context.Background()

	if _, _, err := store.CheckAndSet(ctx, "key-1", nil, time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A concurrent request with the same key sees the processing placeholder.
	exists, stored, err := store.CheckAndSet(ctx, "key-1", nil, time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !exists {
		t.Fatal("second request must observe the in-flight key")
	}
	if !bytes.Equal(stored, []byte("processing")) {
		t.Fatalf("expected processing placeholder, got %s", stored)
	}
}
