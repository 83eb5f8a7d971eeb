package report

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestFileCheckpointRoundTrip(t *testing.T) {
	ctx := context.Background()
	cp := NewFileCheckpoint(filepath.Join(t.TempDir(), "state", "daily.json"), true)

	if _, ok, err := cp.Load(ctx); err != nil || ok {
		t.Fatalf("expected empty checkpoint, got ok=%v err=%v", ok, err)
	}

	day := time.Date(2018, 7, 1, 0, 0, 0, 0, time.UTC)
	if err := cp.Save(ctx, day); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, ok, err := cp.Load(ctx)
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if !got.Equal(day) {
		t.Fatalf("day = %s, want %s", got, day)
	}
}

func TestFileCheckpointDisabled(t *testing.T) {
	ctx := context.Background()
	cp := NewFileCheckpoint(filepath.Join(t.TempDir(), "daily.json"), false)
	if err := cp.Save(ctx, time.Now()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, ok, err := cp.Load(ctx); err != nil || ok {
		t.Fatalf("disabled checkpoint should never load, got ok=%v err=%v", ok, err)
	}
}

func TestStateNameIncludesNetwork(t *testing.T) {
	if got := StateName("met-daily", 1); got != "met-daily:1" {
		t.Fatalf("state name = %q", got)
	}
	if StateName("met-daily", 1) == StateName("met-daily", 5) {
		t.Fatalf("state names collide across networks")
	}
}
