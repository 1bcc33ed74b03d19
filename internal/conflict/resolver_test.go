package conflict

import (
	"context"
	"testing"

	"github.com/tkoide/editbridge/internal/adapter/memory"
	"github.com/tkoide/editbridge/internal/model"
)

func TestResolve_VersionsConflicted_ForksBesideOriginal(t *testing.T) {
	vendor := memory.New()
	ctx := context.Background()

	folder := vendor.AddFolder("", "Projects")
	original := vendor.AddFile(folder, "Drawing.dwg", []byte("their changes"))
	vendor.AddFile(folder, "Drawing (1).dwg", nil)

	r := NewResolver(vendor)
	res, err := r.Resolve(ctx, model.VersionsConflicted, original, "Drawing.dwg", "", []byte("my changes"))
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if res.NewName != "Drawing (2).dwg" {
		t.Errorf("expected 'Drawing (2).dwg', got %q", res.NewName)
	}
	if !res.IsSameFolder || res.NewFolderID != folder {
		t.Errorf("expected fork beside original, got %+v", res)
	}
	if res.OriginalFileID != original || res.NewFileID == original {
		t.Errorf("bad id mapping: %+v", res)
	}
	if string(vendor.Content(res.NewFileID)) != "my changes" {
		t.Error("fork does not carry the upload content")
	}
	if string(vendor.Content(original)) != "their changes" {
		t.Error("original must remain untouched")
	}
}

func TestResolve_NoEditingRights_AlwaysRootFallback(t *testing.T) {
	vendor := memory.New()
	ctx := context.Background()

	folder := vendor.AddFolder("", "Shared")
	original := vendor.AddFile(folder, "Drawing.dwg", nil)
	vendor.SetEditable(original, false)

	r := NewResolver(vendor)
	res, err := r.Resolve(ctx, model.NoEditingRights, original, "Drawing.dwg", "", []byte("mine"))
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if res.IsSameFolder {
		t.Error("NoEditingRights fork must never land beside the original")
	}
	if res.NewFolderID == folder {
		t.Error("fork landed in the unwritable folder")
	}
	info, err := vendor.FileInfo(ctx, res.NewFileID)
	if err != nil {
		t.Fatalf("forked file unreadable: %v", err)
	}
	if info.Name != "Drawing.dwg" {
		t.Errorf("unexpected fork name %q", info.Name)
	}
}

func TestResolve_UnsharedOrDeleted_UsesLastKnownName(t *testing.T) {
	vendor := memory.New()
	ctx := context.Background()

	original := vendor.AddFile("", "Drawing.dwg", nil)
	vendor.SetReachable(original, false)

	r := NewResolver(vendor)
	res, err := r.Resolve(ctx, model.UnsharedOrDeleted, original, "", "Drawing.dwg", []byte("mine"))
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if res.NewName != "Drawing.dwg" {
		t.Errorf("expected last-known name, got %q", res.NewName)
	}
	if res.IsSameFolder {
		t.Error("fork of a vanished file cannot be in the original folder")
	}
}

func TestResolve_NoNameAnywhere_Placeholder(t *testing.T) {
	vendor := memory.New()
	ctx := context.Background()

	r := NewResolver(vendor)
	res, err := r.Resolve(ctx, model.UnsharedOrDeleted, "ghost-id", "", "", []byte("mine"))
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if res.NewName != "Untitled" {
		t.Errorf("expected placeholder name, got %q", res.NewName)
	}
}

func TestResolve_SessionExpired_PlacesBesideOriginal(t *testing.T) {
	vendor := memory.New()
	ctx := context.Background()

	folder := vendor.AddFolder("", "Projects")
	original := vendor.AddFile(folder, "Drawing.dwg", nil)

	r := NewResolver(vendor)
	res, err := r.Resolve(ctx, model.SessionExpired, original, "Drawing.dwg", "", []byte("mine"))
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !res.IsSameFolder || res.NewFolderID != folder {
		t.Errorf("SessionExpired should follow the beside-original rule, got %+v", res)
	}
	if res.Reason != model.SessionExpired {
		t.Errorf("reason must pass through for client messaging, got %q", res.Reason)
	}
}

func TestResolve_ContainerVendor(t *testing.T) {
	vendor := memory.New()
	vendor.ContainerMode = true
	ctx := context.Background()

	folder := vendor.AddFolder("", "Shared")
	original := vendor.AddFile(folder, "Sheet.xlsx", nil)
	vendor.SetEditable(original, false)

	r := NewResolver(vendor)
	res, err := r.Resolve(ctx, model.NoEditingRights, original, "Sheet.xlsx", "", []byte("mine"))
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	// The upload must have landed inside a freshly created container.
	info, err := vendor.FileInfo(ctx, res.NewFileID)
	if err != nil {
		t.Fatalf("forked file unreadable: %v", err)
	}
	container, err := vendor.FileInfo(ctx, info.ParentID)
	if err != nil || !container.IsFolder {
		t.Errorf("expected fork inside a container object, got parent %+v, %v", container, err)
	}
	if res.NewFolderID != container.ID {
		t.Errorf("result folder should be the container, got %q", res.NewFolderID)
	}
}

func TestResolve_NoConflictRejected(t *testing.T) {
	r := NewResolver(memory.New())
	if _, err := r.Resolve(context.Background(), model.NoConflict, "id", "n", "", nil); err == nil {
		t.Error("expected error when no conflict is declared")
	}
}
