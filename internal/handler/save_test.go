package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"golang.org/x/oauth2"

	"github.com/tkoide/editbridge/internal/adapter/memory"
	"github.com/tkoide/editbridge/internal/broker"
	"github.com/tkoide/editbridge/internal/crypto"
	"github.com/tkoide/editbridge/internal/model"
	"github.com/tkoide/editbridge/internal/store"
	"github.com/tkoide/editbridge/internal/versions"
)

type noopRefresher struct{}

func (noopRefresher) Refresh(_ context.Context, _ string) (*oauth2.Token, error) {
	return &oauth2.Token{AccessToken: "refreshed", Expiry: time.Now().Add(time.Hour)}, nil
}

type recordingNotifier struct {
	saved  int
	forked int
	last   *model.ForkResult
}

func (n *recordingNotifier) VersionSaved(_ context.Context, _, _, _ string) { n.saved++ }
func (n *recordingNotifier) ConflictForked(_ context.Context, _ string, f *model.ForkResult) {
	n.forked++
	n.last = f
}

type saveFixture struct {
	handler  *SaveHandler
	vendor   *memory.Adapter
	tracker  *versions.Tracker
	notifier *recordingNotifier
}

func newSaveFixture(t *testing.T) *saveFixture {
	t.Helper()

	accounts := store.NewAccountStore(nil, "t")
	b := broker.New("memory", accounts, store.NewEphemeralCache(nil, "t"),
		crypto.NewMockCodec(), noopRefresher{}, nil, nil, slog.New(slog.DiscardHandler))

	// A live linked account for user1.
	h := &broker.Handle{
		AccountID:   "acct-1",
		Email:       "u@example.com",
		Token:       &oauth2.Token{AccessToken: "tok", RefreshToken: "r", Expiry: time.Now().Add(time.Hour)},
		RefreshedAt: time.Now(),
		ExpiresIn:   time.Hour,
	}
	if _, err := b.Link(context.Background(), "user1", broker.Identity{AccountID: "acct-1", Email: "u@example.com"}, h); err != nil {
		t.Fatalf("Link failed: %v", err)
	}

	provider := memory.NewProvider()
	tracker := versions.NewTracker(nil, "t")
	notifier := &recordingNotifier{}

	return &saveFixture{
		handler:  NewSaveHandler(b, provider, tracker, notifier, testJWTSecret, slog.New(slog.DiscardHandler)),
		vendor:   provider.Vendor,
		tracker:  tracker,
		notifier: notifier,
	}
}

func saveRequest(t *testing.T, body SaveRequest) events.APIGatewayProxyRequest {
	t.Helper()
	raw, _ := json.Marshal(body)
	return events.APIGatewayProxyRequest{
		Headers: map[string]string{"Authorization": "Bearer " + signedToken(t, "user1")},
		Body:    string(raw),
	}
}

func decodeSave(t *testing.T, resp events.APIGatewayProxyResponse) SaveResponse {
	t.Helper()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, resp.Body)
	}
	var out SaveResponse
	if err := json.Unmarshal([]byte(resp.Body), &out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return out
}

func TestSave_MatchingBaseVersion_InPlace(t *testing.T) {
	f := newSaveFixture(t)
	ctx := context.Background()

	fileID := f.vendor.AddFile("", "Drawing.dwg", []byte("old"))
	f.tracker.Record(ctx, "memory", fileID, "v1", "Drawing.dwg")

	resp, err := f.handler.Save(ctx, saveRequest(t, SaveRequest{
		FileID:            fileID,
		BaseChangeID:      "v1",
		CandidateName:     "Drawing.dwg",
		ExternalAccountID: "acct-1",
		Content:           "new bytes",
	}))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	out := decodeSave(t, resp)
	if out.IsConflicted {
		t.Fatalf("expected in-place save, got conflict %q", out.ConflictingFileReason)
	}
	if out.FileID != fileID || out.VersionID != "v2" {
		t.Errorf("unexpected response: %+v", out)
	}
	if string(f.vendor.Content(fileID)) != "new bytes" {
		t.Error("content not written in place")
	}
	if f.notifier.saved != 1 || f.notifier.forked != 0 {
		t.Errorf("expected one save notification, got %+v", f.notifier)
	}

	// Bookkeeping must follow the write.
	row, _ := f.tracker.Get(ctx, "memory", fileID)
	if row.VersionID != "v2" {
		t.Errorf("bookkeeping not repointed: %+v", row)
	}
}

func TestSave_FirstSave_NoBaseVersion(t *testing.T) {
	f := newSaveFixture(t)
	ctx := context.Background()

	fileID := f.vendor.AddFile("", "Drawing.dwg", []byte("old"))
	f.tracker.Record(ctx, "memory", fileID, "v7", "Drawing.dwg")

	// No baseChangeId: the client never observed a version, so the stale
	// bookkeeping must not produce a conflict.
	resp, _ := f.handler.Save(ctx, saveRequest(t, SaveRequest{
		FileID: fileID, ExternalAccountID: "acct-1", Content: "first save",
	}))
	out := decodeSave(t, resp)
	if out.IsConflicted {
		t.Errorf("missing base version must save in place, got %q", out.ConflictingFileReason)
	}
}

func TestSave_StaleBaseVersion_ForksBesideOriginal(t *testing.T) {
	f := newSaveFixture(t)
	ctx := context.Background()

	folder := f.vendor.AddFolder("", "Projects")
	fileID := f.vendor.AddFile(folder, "Drawing.dwg", []byte("theirs"))
	f.vendor.AddFile(folder, "Drawing (1).dwg", nil)
	f.tracker.Record(ctx, "memory", fileID, "v3", "Drawing.dwg")

	resp, _ := f.handler.Save(ctx, saveRequest(t, SaveRequest{
		FileID:            fileID,
		BaseChangeID:      "v2",
		CandidateName:     "Drawing.dwg",
		ExternalAccountID: "acct-1",
		Content:           "mine",
	}))
	out := decodeSave(t, resp)

	if !out.IsConflicted || out.ConflictingFileReason != string(model.VersionsConflicted) {
		t.Fatalf("expected VersionsConflicted, got %+v", out)
	}
	if out.FileID == fileID {
		t.Error("response must redirect to the forked file")
	}
	if out.Name != "Drawing (2).dwg" {
		t.Errorf("expected 'Drawing (2).dwg', got %q", out.Name)
	}
	if f.notifier.forked != 1 || f.notifier.last == nil || !f.notifier.last.IsSameFolder {
		t.Errorf("expected a same-folder fork notification, got %+v", f.notifier.last)
	}
	if string(f.vendor.Content(fileID)) != "theirs" {
		t.Error("original must not be overwritten")
	}
	if string(f.vendor.Content(out.FileID)) != "mine" {
		t.Error("fork must carry the new content")
	}
}

func TestSave_UnreachableFile_ForksToRootFallback(t *testing.T) {
	f := newSaveFixture(t)
	ctx := context.Background()

	fileID := f.vendor.AddFile("", "Drawing.dwg", []byte("theirs"))
	f.tracker.Record(ctx, "memory", fileID, "v1", "Drawing.dwg")
	f.vendor.SetReachable(fileID, false)

	resp, _ := f.handler.Save(ctx, saveRequest(t, SaveRequest{
		FileID:            fileID,
		BaseChangeID:      "v1",
		ExternalAccountID: "acct-1",
		Content:           "mine",
	}))
	out := decodeSave(t, resp)

	if out.ConflictingFileReason != string(model.UnsharedOrDeleted) {
		t.Fatalf("expected UnsharedOrDeleted, got %+v", out)
	}
	if f.notifier.last == nil || f.notifier.last.IsSameFolder {
		t.Error("fork of a vanished file must land in the root fallback")
	}
	// Name recovered from bookkeeping, not from the vanished object.
	if out.Name != "Drawing.dwg" {
		t.Errorf("expected last-known name, got %q", out.Name)
	}
}

func TestSave_NoEditingRights_ForksToRootFallback(t *testing.T) {
	f := newSaveFixture(t)
	ctx := context.Background()

	folder := f.vendor.AddFolder("", "Shared")
	fileID := f.vendor.AddFile(folder, "Drawing.dwg", nil)
	f.vendor.SetEditable(fileID, false)

	resp, _ := f.handler.Save(ctx, saveRequest(t, SaveRequest{
		FileID:            fileID,
		BaseChangeID:      "v1",
		ExternalAccountID: "acct-1",
		Content:           "mine",
	}))
	out := decodeSave(t, resp)

	if out.ConflictingFileReason != string(model.NoEditingRights) {
		t.Fatalf("expected NoEditingRights, got %+v", out)
	}
	if f.notifier.last == nil || f.notifier.last.IsSameFolder {
		t.Error("NoEditingRights fork must never be a same-folder fork")
	}
}

func TestSave_DeclaredSessionExpired_PassesThrough(t *testing.T) {
	f := newSaveFixture(t)
	ctx := context.Background()

	fileID := f.vendor.AddFile("", "Drawing.dwg", nil)
	f.tracker.Record(ctx, "memory", fileID, "v1", "Drawing.dwg")

	resp, _ := f.handler.Save(ctx, saveRequest(t, SaveRequest{
		FileID:                fileID,
		BaseChangeID:          "v1",
		ConflictingFileReason: string(model.SessionExpired),
		ExternalAccountID:     "acct-1",
		Content:               "mine",
	}))
	out := decodeSave(t, resp)

	if out.ConflictingFileReason != string(model.SessionExpired) {
		t.Errorf("declared reason must pass through unchanged, got %+v", out)
	}
}

func TestSave_Unauthorized(t *testing.T) {
	f := newSaveFixture(t)

	resp, _ := f.handler.Save(context.Background(), events.APIGatewayProxyRequest{Body: "{}"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", resp.StatusCode)
	}
}

func TestSave_UnlinkedAccount(t *testing.T) {
	f := newSaveFixture(t)

	req := events.APIGatewayProxyRequest{
		Headers: map[string]string{"Authorization": "Bearer " + signedToken(t, "someone-else")},
		Body:    `{"fileId":"f1","externalAccountId":"acct-1","content":"x"}`,
	}
	resp, _ := f.handler.Save(context.Background(), req)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 for a broken link, got %d: %s", resp.StatusCode, resp.Body)
	}
}

func TestSave_MissingFileID(t *testing.T) {
	f := newSaveFixture(t)

	resp, _ := f.handler.Save(context.Background(), saveRequest(t, SaveRequest{Content: "x", ExternalAccountID: "acct-1"}))
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}
