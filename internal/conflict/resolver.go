package conflict

import (
	"context"
	"fmt"

	"github.com/tkoide/editbridge/internal/adapter"
	"github.com/tkoide/editbridge/internal/model"
)

// RootFolderName is the well-known fallback folder forks land in when the
// original's parent is unusable or unwritable.
const RootFolderName = "Editbridge"

// Resolver decides where a conflicted save lands and performs the fork
// upload. The caller notifies the editing session and repoints the version
// bookkeeping afterwards.
type Resolver struct {
	storage adapter.StorageAdapter
}

// NewResolver creates a Resolver over the given storage capability.
func NewResolver(storage adapter.StorageAdapter) *Resolver {
	return &Resolver{storage: storage}
}

// Resolve forks the upload content beside the original (or into the root
// fallback, depending on the reason) and returns the resulting mapping.
// lastKnownName is the bookkeeping fallback used when the live object's
// name is unrecoverable; candidateName is the client's declared name.
// A vendor failure during the fork upload fails the whole write; nothing
// is recorded implying success.
func (r *Resolver) Resolve(ctx context.Context, reason model.ConflictReason,
	originalFileID, candidateName, lastKnownName string, content []byte) (*model.ForkResult, error) {

	if reason == model.NoConflict {
		return nil, fmt.Errorf("nothing to resolve: no conflict declared")
	}

	// The original's parent and name, when the live object still exists.
	var originalParent, originalName string
	if info, err := r.storage.FileInfo(ctx, originalFileID); err == nil && info != nil {
		originalParent = info.ParentID
		originalName = info.Name
	}

	targetFolder, sameFolder, err := r.placement(ctx, reason, originalParent)
	if err != nil {
		return nil, err
	}

	name := originalName
	if name == "" {
		name = lastKnownName
	}
	if name == "" {
		name = candidateName
	}
	if name == "" {
		name = placeholderName
	}

	name, err = r.availableName(ctx, targetFolder, name)
	if err != nil {
		return nil, err
	}

	uploadFolder := targetFolder
	if r.storage.RequiresContainer() {
		containerID, err := r.storage.CreateContainer(ctx, name, targetFolder)
		if err != nil {
			return nil, fmt.Errorf("failed to create container for fork: %w", err)
		}
		uploadFolder = containerID
	}

	forked, err := r.storage.UploadNew(ctx, uploadFolder, name, content)
	if err != nil {
		return nil, fmt.Errorf("fork upload failed: %w", err)
	}

	return &model.ForkResult{
		OriginalFileID: originalFileID,
		NewFileID:      forked.ID,
		NewName:        name,
		NewFolderID:    uploadFolder,
		Reason:         reason,
		IsSameFolder:   sameFolder,
	}, nil
}

// placement picks the fork's target folder. NoEditingRights always goes to
// the root fallback, since the account provably cannot write into the
// original location; everything else lands beside the original when its
// parent is resolvable.
func (r *Resolver) placement(ctx context.Context, reason model.ConflictReason, originalParent string) (string, bool, error) {
	if reason != model.NoEditingRights && originalParent != "" {
		return originalParent, true, nil
	}
	root, err := r.storage.EnsureRootFolder(ctx, RootFolderName)
	if err != nil {
		return "", false, fmt.Errorf("failed to ensure fallback folder: %w", err)
	}
	return root, false, nil
}

// availableName applies the collision-avoiding suffix against the target
// folder's current listing.
func (r *Resolver) availableName(ctx context.Context, folderID, name string) (string, error) {
	siblings, err := r.storage.ListFolder(ctx, folderID)
	if err != nil {
		return "", fmt.Errorf("failed to list fork target folder: %w", err)
	}
	taken := make(map[string]bool, len(siblings))
	for _, s := range siblings {
		taken[s.Name] = true
	}
	return dedupName(name, taken), nil
}
