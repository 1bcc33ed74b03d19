package model

import "time"

// ExternalAccountRecord is one linked vendor account, stored in DynamoDB
// keyed by (user_id, account_id). The credential blob is encrypted at rest;
// the decrypted blob must restore a handle whose vendor-assigned identity
// equals AccountID.
type ExternalAccountRecord struct {
	UserID             string    `json:"user_id" dynamodbav:"user_id"`
	AccountID          string    `json:"account_id" dynamodbav:"account_id"`
	EncryptedBlob      string    `json:"encrypted_blob" dynamodbav:"encrypted_blob"`
	Email              string    `json:"email" dynamodbav:"email"`
	ExpiresAt          time.Time `json:"expires_at" dynamodbav:"expires_at"`
	ThumbnailsDisabled bool      `json:"thumbnails_disabled" dynamodbav:"thumbnails_disabled"`
	RefreshFailed      bool      `json:"refresh_failed" dynamodbav:"refresh_failed"`
	RootFolderID       string    `json:"root_folder_id" dynamodbav:"root_folder_id"`
	UpdatedAt          time.Time `json:"updated_at" dynamodbav:"updated_at"`
}

// EphemeralConnectionRecord has the same attribute shape as
// ExternalAccountRecord but is keyed by a one-time authorization code and
// expires via the table's TTL attribute. It is never promoted automatically
// into a persistent account.
type EphemeralConnectionRecord struct {
	Code          string    `json:"code" dynamodbav:"code"`
	UserID        string    `json:"user_id" dynamodbav:"user_id"`
	AccountID     string    `json:"account_id" dynamodbav:"account_id"`
	EncryptedBlob string    `json:"encrypted_blob" dynamodbav:"encrypted_blob"`
	Email         string    `json:"email" dynamodbav:"email"`
	ExpiresAt     time.Time `json:"expires_at" dynamodbav:"expires_at"`
	TTL           int64     `json:"ttl" dynamodbav:"ttl"`
}

// ConflictReason classifies why a save could not overwrite the original
// in place. The empty string means no conflict.
type ConflictReason string

const (
	NoConflict         ConflictReason = ""
	UnsharedOrDeleted  ConflictReason = "UnsharedOrDeleted"
	NoEditingRights    ConflictReason = "NoEditingRights"
	VersionsConflicted ConflictReason = "VersionsConflicted"
	SessionExpired     ConflictReason = "SessionExpired"
)

// ForkResult describes where a conflicted save landed.
type ForkResult struct {
	OriginalFileID string         `json:"originalFileId"`
	NewFileID      string         `json:"newFileId"`
	NewName        string         `json:"newName"`
	NewFolderID    string         `json:"newFolderId,omitempty"`
	Reason         ConflictReason `json:"reason"`
	IsSameFolder   bool           `json:"isSameFolder"`
}

// FileVersion is the server-side bookkeeping row consulted by conflict
// detection: the last version id this service recorded for a file, plus the
// last name it was seen under (used as the fork-name fallback when the live
// object is gone).
type FileVersion struct {
	Key           string    `json:"key" dynamodbav:"key"` // storageKind + "#" + fileID
	VersionID     string    `json:"version_id" dynamodbav:"version_id"`
	LastKnownName string    `json:"last_known_name" dynamodbav:"last_known_name"`
	UpdatedAt     time.Time `json:"updated_at" dynamodbav:"updated_at"`
}
