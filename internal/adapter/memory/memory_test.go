package memory

import (
	"context"
	"testing"

	"github.com/tkoide/editbridge/internal/adapter"
)

func TestUploadVersion_BumpsVersion(t *testing.T) {
	a := New()
	ctx := context.Background()

	id := a.AddFile("", "Drawing.dwg", []byte("rev one"))

	meta, err := a.UploadVersion(ctx, id, []byte("rev two"))
	if err != nil {
		t.Fatalf("UploadVersion failed: %v", err)
	}
	if meta.VersionID != "v2" {
		t.Errorf("expected v2, got %q", meta.VersionID)
	}
	if string(a.Content(id)) != "rev two" {
		t.Errorf("content not replaced: %q", a.Content(id))
	}
}

func TestUploadVersion_Unreachable(t *testing.T) {
	a := New()
	ctx := context.Background()

	id := a.AddFile("", "Drawing.dwg", nil)
	a.SetReachable(id, false)

	if _, err := a.UploadVersion(ctx, id, []byte("x")); err != adapter.ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if ok, _ := a.IsFileReachable(ctx, id); ok {
		t.Error("file should be unreachable")
	}
}

func TestUploadVersion_NoRights(t *testing.T) {
	a := New()
	ctx := context.Background()

	id := a.AddFile("", "Drawing.dwg", nil)
	a.SetEditable(id, false)

	if _, err := a.UploadVersion(ctx, id, []byte("x")); err != adapter.ErrForbidden {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
	rights, err := a.CurrentRights(ctx, id)
	if err != nil || rights.CanEdit {
		t.Errorf("expected CanEdit=false, got %+v, %v", rights, err)
	}
}

func TestEnsureRootFolder_Idempotent(t *testing.T) {
	a := New()
	ctx := context.Background()

	first, err := a.EnsureRootFolder(ctx, "Editbridge")
	if err != nil {
		t.Fatalf("EnsureRootFolder failed: %v", err)
	}
	second, err := a.EnsureRootFolder(ctx, "Editbridge")
	if err != nil {
		t.Fatalf("EnsureRootFolder failed: %v", err)
	}
	if first != second {
		t.Errorf("expected a single root folder, got %q and %q", first, second)
	}
}

func TestListFolder(t *testing.T) {
	a := New()
	ctx := context.Background()

	folder := a.AddFolder("", "Projects")
	a.AddFile(folder, "a.dwg", nil)
	a.AddFile(folder, "b.dwg", nil)
	a.AddFile("", "elsewhere.dwg", nil)

	files, err := a.ListFolder(ctx, folder)
	if err != nil {
		t.Fatalf("ListFolder failed: %v", err)
	}
	if len(files) != 2 {
		t.Errorf("expected 2 children, got %d", len(files))
	}
}
