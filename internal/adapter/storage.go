package adapter

import (
	"context"
	"time"
)

// FileMetadata is the vendor-independent view of one stored object.
type FileMetadata struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	ParentID     string    `json:"parentId,omitempty"`
	VersionID    string    `json:"versionId"`
	ModifiedTime time.Time `json:"modifiedTime"`
	Size         int64     `json:"size"`
	IsFolder     bool      `json:"isFolder"`
}

// Rights describes what the connected account may do with a file.
type Rights struct {
	CanEdit bool `json:"canEdit"`
}

// StorageAdapter is the narrow capability through which the write path talks
// to a vendor. The broker, detector and resolver never reference a vendor
// type directly; everything vendor-specific lives behind this interface.
type StorageAdapter interface {
	// Kind identifies the vendor ("googledrive", "memory", ...), used for
	// logging and as part of the version-bookkeeping key.
	Kind() string

	// IsFileReachable reports whether the file can still be seen by this
	// account. Deleted, unshared and trashed all count as unreachable.
	IsFileReachable(ctx context.Context, fileID string) (bool, error)

	// CurrentRights returns the account's rights on the file.
	CurrentRights(ctx context.Context, fileID string) (Rights, error)

	// FileInfo retrieves metadata for a single file.
	FileInfo(ctx context.Context, fileID string) (*FileMetadata, error)

	// ListFolder lists the direct children of a folder.
	ListFolder(ctx context.Context, folderID string) ([]FileMetadata, error)

	// UploadNew creates a new file in the given folder.
	UploadNew(ctx context.Context, folderID, name string, content []byte) (*FileMetadata, error)

	// UploadVersion overwrites an existing file's content in place.
	UploadVersion(ctx context.Context, fileID string, content []byte) (*FileMetadata, error)

	// RequiresContainer reports whether this vendor needs a container object
	// created before a file can be uploaded into a foreign location.
	RequiresContainer() bool

	// CreateContainer creates the container object and returns its id.
	// Only called when RequiresContainer is true.
	CreateContainer(ctx context.Context, name, parentID string) (string, error)

	// EnsureRootFolder ensures the well-known fallback folder exists and
	// returns its id.
	EnsureRootFolder(ctx context.Context, name string) (string, error)
}
