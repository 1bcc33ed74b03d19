// Package notify broadcasts new-version and conflict events to connected
// editing clients. The core only depends on the interface; the default
// implementation records events to the structured log, where a push
// transport can be attached.
package notify

import (
	"context"
	"log/slog"

	"github.com/tkoide/editbridge/internal/model"
)

// Notifier informs editing sessions about the outcome of a write.
type Notifier interface {
	// VersionSaved announces a successful in-place save.
	VersionSaved(ctx context.Context, storageKind, fileID, versionID string)

	// ConflictForked announces that a save was redirected to a fork.
	ConflictForked(ctx context.Context, storageKind string, fork *model.ForkResult)
}

// LogNotifier implements Notifier over slog.
type LogNotifier struct {
	Logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{Logger: logger}
}

func (n *LogNotifier) VersionSaved(_ context.Context, storageKind, fileID, versionID string) {
	n.Logger.Info("version saved",
		slog.String("storage", storageKind),
		slog.String("file_id", fileID),
		slog.String("version_id", versionID),
	)
}

func (n *LogNotifier) ConflictForked(_ context.Context, storageKind string, fork *model.ForkResult) {
	n.Logger.Info("conflict forked",
		slog.String("storage", storageKind),
		slog.String("original_file_id", fork.OriginalFileID),
		slog.String("new_file_id", fork.NewFileID),
		slog.String("reason", string(fork.Reason)),
		slog.Bool("same_folder", fork.IsSameFolder),
	)
}
