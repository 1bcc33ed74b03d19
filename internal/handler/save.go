package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/tkoide/editbridge/internal/adapter"
	"github.com/tkoide/editbridge/internal/broker"
	"github.com/tkoide/editbridge/internal/conflict"
	"github.com/tkoide/editbridge/internal/model"
	"github.com/tkoide/editbridge/internal/notify"
	"github.com/tkoide/editbridge/internal/versions"
)

// SaveHandler runs the write path: broker → conflict detection → in-place
// save or fork → notification.
type SaveHandler struct {
	broker    *broker.Broker
	provider  adapter.Provider
	versions  *versions.Tracker
	notifier  notify.Notifier
	jwtSecret string
	logger    *slog.Logger
}

// NewSaveHandler creates a SaveHandler.
func NewSaveHandler(b *broker.Broker, p adapter.Provider, v *versions.Tracker,
	n notify.Notifier, jwtSecret string, logger *slog.Logger) *SaveHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SaveHandler{broker: b, provider: p, versions: v, notifier: n, jwtSecret: jwtSecret, logger: logger}
}

// SaveRequest is one write attempt against an externally hosted document.
type SaveRequest struct {
	FileID                string `json:"fileId"`
	ExternalAccountID     string `json:"externalAccountId,omitempty"`
	LinkingMode           string `json:"linkingMode,omitempty"` // "persistent" (default) or "encapsulation"
	Code                  string `json:"code,omitempty"`        // one-time code, encapsulation mode
	BaseChangeID          string `json:"baseChangeId,omitempty"`
	ConflictingFileReason string `json:"conflictingFileReason,omitempty"` // caller-declared override
	CandidateName         string `json:"candidateName,omitempty"`
	Content               string `json:"content"`
}

// SaveResponse reports where the write landed. A classified conflict is a
// successful save with a redirected file id, not an error.
type SaveResponse struct {
	IsConflicted          bool   `json:"isConflicted"`
	ConflictingFileReason string `json:"conflictingFileReason,omitempty"`
	FileID                string `json:"fileId"`
	Name                  string `json:"name,omitempty"` // present only when the fork was renamed
	VersionID             string `json:"versionId"`
}

func (r *SaveRequest) mode() broker.LinkingMode {
	if r.LinkingMode == "encapsulation" {
		return broker.Encapsulation{Code: r.Code, AccountID: r.ExternalAccountID}
	}
	return broker.Persistent{AccountID: r.ExternalAccountID}
}

// statusForKind maps a broker failure class to a boundary status code.
func statusForKind(kind broker.Kind) (int, string) {
	switch kind {
	case broker.KindNoUserID:
		return http.StatusUnauthorized, "Missing user identity"
	case broker.KindNoExternalID:
		return http.StatusBadRequest, "No external account could be resolved"
	case broker.KindNoEntryInStore:
		return http.StatusForbidden, "Please reconnect this account"
	case broker.KindCannotRefreshTokens, broker.KindConnectionException:
		return http.StatusBadGateway, "The storage provider rejected the connection; please reconnect this account"
	default: // CannotDecryptTokens, CannotEncryptTokens
		return http.StatusInternalServerError, "Credential handling failed"
	}
}

// Save handles PUT /files/{id}/save.
func (h *SaveHandler) Save(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	userID, err := GetUserID(req, h.jwtSecret)
	if err != nil {
		return unauthorized(err), nil
	}

	var input SaveRequest
	if err := json.Unmarshal([]byte(req.Body), &input); err != nil {
		return textResponse(http.StatusBadRequest, "Invalid request body"), nil
	}
	if input.FileID == "" {
		input.FileID = req.PathParameters["id"]
	}
	if input.FileID == "" {
		return textResponse(http.StatusBadRequest, "Missing file ID"), nil
	}

	handle, err := h.broker.Connect(ctx, userID, input.mode())
	if err != nil {
		status, msg := statusForKind(broker.KindOf(err))
		return textResponse(status, msg), nil
	}

	storage, err := h.provider.Adapter(ctx, handle)
	if err != nil {
		h.logger.Error("failed to build storage adapter", slog.Any("error", err))
		return textResponse(http.StatusInternalServerError, "Failed to reach storage"), nil
	}

	return h.save(ctx, storage, &input)
}

func (h *SaveHandler) save(ctx context.Context, storage adapter.StorageAdapter, input *SaveRequest) (events.APIGatewayProxyResponse, error) {
	content := []byte(input.Content)

	reachable, err := storage.IsFileReachable(ctx, input.FileID)
	if err != nil {
		return vendorError("Failed to check file", err), nil
	}

	canEdit := false
	if reachable {
		rights, err := storage.CurrentRights(ctx, input.FileID)
		if err != nil {
			if errors.Is(err, adapter.ErrNotFound) {
				reachable = false
			} else {
				return vendorError("Failed to check rights", err), nil
			}
		} else {
			canEdit = rights.CanEdit
		}
	}

	var lastRecorded, lastKnownName string
	if row, err := h.versions.Get(ctx, storage.Kind(), input.FileID); err == nil && row != nil {
		lastRecorded = row.VersionID
		lastKnownName = row.LastKnownName
	}

	reason := conflict.Classify(conflict.Input{
		FoundRemotely:       reachable,
		CanStillEdit:        canEdit,
		BaseChangeID:        input.BaseChangeID,
		LastRecordedVersion: lastRecorded,
		DeclaredReason:      model.ConflictReason(input.ConflictingFileReason),
	})

	if reason == model.NoConflict {
		meta, err := storage.UploadVersion(ctx, input.FileID, content)
		if err != nil {
			return vendorError("Failed to save file", err), nil
		}
		if err := h.versions.Record(ctx, storage.Kind(), meta.ID, meta.VersionID, meta.Name); err != nil {
			h.logger.Error("failed to record version", slog.Any("error", err))
		}
		h.notifier.VersionSaved(ctx, storage.Kind(), meta.ID, meta.VersionID)

		return jsonResponse(http.StatusOK, SaveResponse{
			FileID:    meta.ID,
			VersionID: meta.VersionID,
		}), nil
	}

	resolver := conflict.NewResolver(storage)
	fork, err := resolver.Resolve(ctx, reason, input.FileID, input.CandidateName, lastKnownName, content)
	if err != nil {
		return vendorError("Failed to save conflicted file", err), nil
	}

	versionID := ""
	if meta, err := storage.FileInfo(ctx, fork.NewFileID); err == nil {
		versionID = meta.VersionID
	}
	if err := h.versions.Record(ctx, storage.Kind(), fork.NewFileID, versionID, fork.NewName); err != nil {
		h.logger.Error("failed to record fork version", slog.Any("error", err))
	}
	h.notifier.ConflictForked(ctx, storage.Kind(), fork)

	return jsonResponse(http.StatusOK, SaveResponse{
		IsConflicted:          true,
		ConflictingFileReason: string(fork.Reason),
		FileID:                fork.NewFileID,
		Name:                  fork.NewName,
		VersionID:             versionID,
	}), nil
}

// vendorError surfaces a vendor failure; no partial record implies success.
func vendorError(msg string, err error) events.APIGatewayProxyResponse {
	return textResponse(http.StatusBadGateway, msg+": "+err.Error())
}
