package store

import (
	"context"
	"testing"
)

func TestMemoryLoadMissing(t *testing.T) {
	m := NewMemory()
	_, ok, err := m.Load(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ok {
		t.Fatal("missing key must report ok=false")
	}
}

func TestMemorySaveOverwrites(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	if err := m.Save(ctx, "k", "one"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := m.Save(ctx, "k", "two"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	value, ok, err := m.Load(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("Load = %v, ok=%v", err, ok)
	}
	if value != "two" {
		t.Fatalf("value = %q, want two", value)
	}
}
