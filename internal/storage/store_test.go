package storage

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	data := []byte{1, 2, 3}
	key, err := s.Put(ctx, "menus/a.png", data, "image/png")
	if err != nil {
		t.Fatal(err)
	}
	data[0] = 9 // caller mutation must not leak into the store

	got, err := s.Get(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	if got[0] != 1 {
		t.Fatalf("store aliases caller buffer: %v", got)
	}

	if err := s.Delete(ctx, key); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(ctx, key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestNewKey(t *testing.T) {
	k1 := NewKey("/menu-uploads/", "Speisekarte.JPG")
	k2 := NewKey("menu-uploads", "Speisekarte.JPG")

	if !strings.HasPrefix(k1, "menu-uploads/") || !strings.HasSuffix(k1, ".jpg") {
		t.Fatalf("unexpected key %q", k1)
	}
	if k1 == k2 {
		t.Fatal("keys must be unique")
	}
}

func TestGCS_Integration(t *testing.T) {
	bucket := os.Getenv("GCS_TEST_BUCKET")
	if bucket == "" {
		t.Skip("GCS_TEST_BUCKET not set")
	}
	ctx := context.Background()

	g, err := NewGCSClient(ctx, bucket, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer g.Close()

	key := NewKey("test", "x.txt")
	if _, err := g.Put(ctx, key, []byte("hello"), "text/plain"); err != nil {
		t.Fatal(err)
	}
	defer g.Delete(ctx, key)

	got, err := g.Get(ctx, key)
	if err != nil || string(got) != "hello" {
		t.Fatalf("unexpected read back %q %v", got, err)
	}
}
