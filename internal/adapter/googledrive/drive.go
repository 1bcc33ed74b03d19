// Package googledrive implements adapter.StorageAdapter for Google Drive.
package googledrive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tkoide/editbridge/internal/adapter"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
)

const (
	folderMIME = "application/vnd.google-apps.folder"

	metadataFields = "id, name, parents, headRevisionId, modifiedTime, size, mimeType"
)

// DriveAdapter implements adapter.StorageAdapter for Google Drive.
type DriveAdapter struct {
	service *drive.Service
}

// NewDriveAdapter wraps an authenticated Drive service.
func NewDriveAdapter(service *drive.Service) *DriveAdapter {
	return &DriveAdapter{service: service}
}

func (d *DriveAdapter) Kind() string { return "googledrive" }

// isGone reports whether the API error means the file cannot be seen by
// this account. Drive answers 404 for deleted or never-shared files and
// 403 for revoked access.
func isGone(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusForbidden
	}
	return false
}

// IsFileReachable treats deleted, unshared and trashed files alike.
func (d *DriveAdapter) IsFileReachable(ctx context.Context, fileID string) (bool, error) {
	f, err := d.service.Files.Get(fileID).Fields("id, trashed").Context(ctx).Do()
	if err != nil {
		if isGone(err) {
			return false, nil
		}
		return false, fmt.Errorf("unable to stat file: %w", err)
	}
	return !f.Trashed, nil
}

// CurrentRights reads the account's capabilities on the file.
func (d *DriveAdapter) CurrentRights(ctx context.Context, fileID string) (adapter.Rights, error) {
	f, err := d.service.Files.Get(fileID).Fields("capabilities/canEdit").Context(ctx).Do()
	if err != nil {
		if isGone(err) {
			return adapter.Rights{}, adapter.ErrNotFound
		}
		return adapter.Rights{}, fmt.Errorf("unable to read capabilities: %w", err)
	}
	canEdit := f.Capabilities != nil && f.Capabilities.CanEdit
	return adapter.Rights{CanEdit: canEdit}, nil
}

func toMetadata(f *drive.File) *adapter.FileMetadata {
	modTime, _ := time.Parse(time.RFC3339, f.ModifiedTime)
	parent := ""
	if len(f.Parents) > 0 {
		parent = f.Parents[0]
	}
	return &adapter.FileMetadata{
		ID:           f.Id,
		Name:         f.Name,
		ParentID:     parent,
		VersionID:    f.HeadRevisionId,
		ModifiedTime: modTime,
		Size:         f.Size,
		IsFolder:     f.MimeType == folderMIME,
	}
}

func (d *DriveAdapter) FileInfo(ctx context.Context, fileID string) (*adapter.FileMetadata, error) {
	f, err := d.service.Files.Get(fileID).Fields(metadataFields).Context(ctx).Do()
	if err != nil {
		if isGone(err) {
			return nil, adapter.ErrNotFound
		}
		return nil, fmt.Errorf("unable to get file metadata: %w", err)
	}
	return toMetadata(f), nil
}

func (d *DriveAdapter) ListFolder(ctx context.Context, folderID string) ([]adapter.FileMetadata, error) {
	if folderID == "" {
		folderID = "root"
	}
	q := fmt.Sprintf("'%s' in parents and trashed = false", folderID)

	r, err := d.service.Files.List().
		Q(q).
		Fields(googleapi.Field("files(" + metadataFields + ")")).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("unable to list folder: %w", err)
	}

	files := make([]adapter.FileMetadata, 0, len(r.Files))
	for _, f := range r.Files {
		files = append(files, *toMetadata(f))
	}
	return files, nil
}

func (d *DriveAdapter) UploadNew(ctx context.Context, folderID, name string, content []byte) (*adapter.FileMetadata, error) {
	if folderID == "" {
		folderID = "root"
	}
	f := &drive.File{
		Name:    name,
		Parents: []string{folderID},
	}

	res, err := d.service.Files.Create(f).
		Media(bytes.NewReader(content)).
		Fields(metadataFields).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("unable to upload new file: %w", err)
	}
	return toMetadata(res), nil
}

func (d *DriveAdapter) UploadVersion(ctx context.Context, fileID string, content []byte) (*adapter.FileMetadata, error) {
	res, err := d.service.Files.Update(fileID, &drive.File{}).
		Media(bytes.NewReader(content)).
		Fields(metadataFields).
		Context(ctx).
		Do()
	if err != nil {
		if isGone(err) {
			return nil, adapter.ErrNotFound
		}
		return nil, fmt.Errorf("unable to upload new version: %w", err)
	}
	return toMetadata(res), nil
}

// RequiresContainer: Drive files live directly in folders.
func (d *DriveAdapter) RequiresContainer() bool { return false }

// CreateContainer creates a plain folder; present to satisfy the capability
// for vendors wired through the same interface.
func (d *DriveAdapter) CreateContainer(ctx context.Context, name, parentID string) (string, error) {
	if parentID == "" {
		parentID = "root"
	}
	f := &drive.File{
		Name:     name,
		MimeType: folderMIME,
		Parents:  []string{parentID},
	}
	res, err := d.service.Files.Create(f).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("unable to create folder: %w", err)
	}
	return res.Id, nil
}

// EnsureRootFolder finds or creates the named fallback folder under root.
func (d *DriveAdapter) EnsureRootFolder(ctx context.Context, name string) (string, error) {
	q := fmt.Sprintf("name = '%s' and 'root' in parents and mimeType = '%s' and trashed = false", name, folderMIME)
	r, err := d.service.Files.List().Q(q).Fields("files(id)").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("unable to look up fallback folder: %w", err)
	}
	if len(r.Files) > 0 {
		return r.Files[0].Id, nil
	}
	return d.CreateContainer(ctx, name, "root")
}
