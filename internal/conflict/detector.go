// Package conflict classifies racing saves against externally hosted files
// and resolves them by forking a sibling copy when the original cannot be
// overwritten in place. Detection is optimistic and advisory: no locks are
// taken, and a classified conflict is data, not a failure.
package conflict

import "github.com/tkoide/editbridge/internal/model"

// Input is everything classification depends on. Classify is a pure
// function of this value; the "last recorded version" is server-side
// bookkeeping consulted by the caller, not owned here.
type Input struct {
	// FoundRemotely is false when the file is deleted, unshared or trashed.
	FoundRemotely bool

	// CanStillEdit reports whether the account holds write/co-own rights.
	CanStillEdit bool

	// BaseChangeID is the version the client last observed. Empty on a
	// first save, which exempts the version comparison entirely.
	BaseChangeID string

	// LastRecordedVersion is the version id this service recorded on the
	// previous successful write.
	LastRecordedVersion string

	// DeclaredReason is a caller-supplied override (e.g. a session already
	// flagged as expired); it passes through unchanged ahead of the
	// version comparison.
	DeclaredReason model.ConflictReason
}

// Classify derives exactly one reason from the input. First match wins:
// unreachable, then missing rights, then the declared override, then the
// version comparison.
func Classify(in Input) model.ConflictReason {
	if !in.FoundRemotely {
		return model.UnsharedOrDeleted
	}
	if !in.CanStillEdit {
		return model.NoEditingRights
	}
	if in.DeclaredReason != model.NoConflict {
		return in.DeclaredReason
	}
	if in.BaseChangeID != "" && in.BaseChangeID != in.LastRecordedVersion {
		return model.VersionsConflicted
	}
	return model.NoConflict
}
