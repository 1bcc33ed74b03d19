// Package memory implements adapter.StorageAdapter in process memory, for
// tests and demo mode. Per-file reachability and rights can be toggled to
// exercise every conflict classification.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tkoide/editbridge/internal/adapter"
)

type entry struct {
	meta      adapter.FileMetadata
	content   []byte
	revision  int
	reachable bool
	canEdit   bool
}

// Adapter is an in-memory vendor.
type Adapter struct {
	mu      sync.RWMutex
	entries map[string]*entry

	// ContainerMode makes the adapter demand a container object before a
	// fork upload, like vendors whose files live inside a document object.
	ContainerMode bool
}

// New creates an empty in-memory vendor.
func New() *Adapter {
	return &Adapter{entries: make(map[string]*entry)}
}

func (a *Adapter) Kind() string { return "memory" }

// AddFile seeds a file and returns its id.
func (a *Adapter) AddFile(folderID, name string, content []byte) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := uuid.NewString()
	a.entries[id] = &entry{
		meta: adapter.FileMetadata{
			ID:           id,
			Name:         name,
			ParentID:     folderID,
			VersionID:    "v1",
			ModifiedTime: time.Now(),
			Size:         int64(len(content)),
		},
		content:   content,
		revision:  1,
		reachable: true,
		canEdit:   true,
	}
	return id
}

// AddFolder seeds a folder and returns its id.
func (a *Adapter) AddFolder(parentID, name string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := uuid.NewString()
	a.entries[id] = &entry{
		meta: adapter.FileMetadata{
			ID:       id,
			Name:     name,
			ParentID: parentID,
			IsFolder: true,
		},
		reachable: true,
		canEdit:   true,
	}
	return id
}

// SetReachable marks a file as visible or gone (deleted/unshared/trashed).
func (a *Adapter) SetReachable(fileID string, reachable bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if e, ok := a.entries[fileID]; ok {
		e.reachable = reachable
	}
}

// SetEditable toggles the account's write rights on a file.
func (a *Adapter) SetEditable(fileID string, canEdit bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if e, ok := a.entries[fileID]; ok {
		e.canEdit = canEdit
	}
}

func (a *Adapter) IsFileReachable(_ context.Context, fileID string) (bool, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	e, ok := a.entries[fileID]
	return ok && e.reachable, nil
}

func (a *Adapter) CurrentRights(_ context.Context, fileID string) (adapter.Rights, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	e, ok := a.entries[fileID]
	if !ok || !e.reachable {
		return adapter.Rights{}, adapter.ErrNotFound
	}
	return adapter.Rights{CanEdit: e.canEdit}, nil
}

func (a *Adapter) FileInfo(_ context.Context, fileID string) (*adapter.FileMetadata, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	e, ok := a.entries[fileID]
	if !ok || !e.reachable {
		return nil, adapter.ErrNotFound
	}
	meta := e.meta
	return &meta, nil
}

func (a *Adapter) ListFolder(_ context.Context, folderID string) ([]adapter.FileMetadata, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	var out []adapter.FileMetadata
	for _, e := range a.entries {
		if e.reachable && e.meta.ParentID == folderID {
			out = append(out, e.meta)
		}
	}
	return out, nil
}

func (a *Adapter) UploadNew(_ context.Context, folderID, name string, content []byte) (*adapter.FileMetadata, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := uuid.NewString()
	e := &entry{
		meta: adapter.FileMetadata{
			ID:           id,
			Name:         name,
			ParentID:     folderID,
			VersionID:    "v1",
			ModifiedTime: time.Now(),
			Size:         int64(len(content)),
		},
		content:   append([]byte(nil), content...),
		revision:  1,
		reachable: true,
		canEdit:   true,
	}
	a.entries[id] = e
	meta := e.meta
	return &meta, nil
}

func (a *Adapter) UploadVersion(_ context.Context, fileID string, content []byte) (*adapter.FileMetadata, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	e, ok := a.entries[fileID]
	if !ok || !e.reachable {
		return nil, adapter.ErrNotFound
	}
	if !e.canEdit {
		return nil, adapter.ErrForbidden
	}
	e.content = append([]byte(nil), content...)
	e.revision++
	e.meta.VersionID = fmt.Sprintf("v%d", e.revision)
	e.meta.ModifiedTime = time.Now()
	e.meta.Size = int64(len(content))
	meta := e.meta
	return &meta, nil
}

func (a *Adapter) RequiresContainer() bool { return a.ContainerMode }

func (a *Adapter) CreateContainer(_ context.Context, name, parentID string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := uuid.NewString()
	a.entries[id] = &entry{
		meta: adapter.FileMetadata{
			ID:       id,
			Name:     name,
			ParentID: parentID,
			IsFolder: true,
		},
		reachable: true,
		canEdit:   true,
	}
	return id, nil
}

func (a *Adapter) EnsureRootFolder(_ context.Context, name string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for id, e := range a.entries {
		if e.meta.IsFolder && e.meta.ParentID == "" && e.meta.Name == name {
			return id, nil
		}
	}
	id := uuid.NewString()
	a.entries[id] = &entry{
		meta:      adapter.FileMetadata{ID: id, Name: name, IsFolder: true},
		reachable: true,
		canEdit:   true,
	}
	return id, nil
}

// Content returns a file's bytes, for assertions in tests.
func (a *Adapter) Content(fileID string) []byte {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if e, ok := a.entries[fileID]; ok {
		return append([]byte(nil), e.content...)
	}
	return nil
}
