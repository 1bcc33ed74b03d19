package versions

import (
	"context"
	"testing"
)

func TestTracker_RecordAndGet(t *testing.T) {
	tr := NewTracker(nil, "test-versions")
	ctx := context.Background()

	if err := tr.Record(ctx, "memory", "file-1", "v3", "Drawing.dwg"); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	row, err := tr.Get(ctx, "memory", "file-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if row == nil || row.VersionID != "v3" || row.LastKnownName != "Drawing.dwg" {
		t.Errorf("unexpected row: %+v", row)
	}
}

func TestTracker_Miss(t *testing.T) {
	tr := NewTracker(nil, "test-versions")
	row, err := tr.Get(context.Background(), "memory", "never-written")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if row != nil {
		t.Error("expected (nil, nil) for a file never written through the service")
	}
}

func TestTracker_KindsAreIsolated(t *testing.T) {
	tr := NewTracker(nil, "test-versions")
	ctx := context.Background()

	tr.Record(ctx, "memory", "file-1", "v1", "a")
	tr.Record(ctx, "googledrive", "file-1", "v9", "b")

	row, _ := tr.Get(ctx, "memory", "file-1")
	if row.VersionID != "v1" {
		t.Errorf("storage kinds must not share rows: %+v", row)
	}
}
