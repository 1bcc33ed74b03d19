package conflict

import (
	"testing"

	"github.com/tkoide/editbridge/internal/model"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		in   Input
		want model.ConflictReason
	}{
		{
			name: "matching base version saves in place",
			in:   Input{FoundRemotely: true, CanStillEdit: true, BaseChangeID: "v3", LastRecordedVersion: "v3"},
			want: model.NoConflict,
		},
		{
			name: "stale base version conflicts",
			in:   Input{FoundRemotely: true, CanStillEdit: true, BaseChangeID: "v2", LastRecordedVersion: "v3"},
			want: model.VersionsConflicted,
		},
		{
			name: "missing base version is exempt from comparison",
			in:   Input{FoundRemotely: true, CanStillEdit: true, BaseChangeID: "", LastRecordedVersion: "v3"},
			want: model.NoConflict,
		},
		{
			name: "unreachable file wins over everything",
			in:   Input{FoundRemotely: false, CanStillEdit: true, BaseChangeID: "v2", LastRecordedVersion: "v3", DeclaredReason: model.SessionExpired},
			want: model.UnsharedOrDeleted,
		},
		{
			name: "lost rights win over version comparison",
			in:   Input{FoundRemotely: true, CanStillEdit: false, BaseChangeID: "v2", LastRecordedVersion: "v3"},
			want: model.NoEditingRights,
		},
		{
			name: "declared reason passes through ahead of version check",
			in:   Input{FoundRemotely: true, CanStillEdit: true, BaseChangeID: "v3", LastRecordedVersion: "v3", DeclaredReason: model.SessionExpired},
			want: model.SessionExpired,
		},
		{
			name: "first save with no bookkeeping",
			in:   Input{FoundRemotely: true, CanStillEdit: true},
			want: model.NoConflict,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.in); got != tc.want {
				t.Errorf("Classify(%+v) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestClassify_Deterministic(t *testing.T) {
	in := Input{FoundRemotely: true, CanStillEdit: true, BaseChangeID: "v2", LastRecordedVersion: "v3"}
	first := Classify(in)
	for i := 0; i < 10; i++ {
		if got := Classify(in); got != first {
			t.Fatalf("classification changed between calls: %q then %q", first, got)
		}
	}
}

func TestDedupName(t *testing.T) {
	taken := map[string]bool{
		"Drawing.dwg":     true,
		"Drawing (1).dwg": true,
	}
	if got := dedupName("Drawing.dwg", taken); got != "Drawing (2).dwg" {
		t.Errorf("expected 'Drawing (2).dwg', got %q", got)
	}
	if got := dedupName("Fresh.dwg", taken); got != "Fresh.dwg" {
		t.Errorf("expected untouched name, got %q", got)
	}
	if got := dedupName("NoExtension", map[string]bool{"NoExtension": true}); got != "NoExtension (1)" {
		t.Errorf("expected 'NoExtension (1)', got %q", got)
	}
}
