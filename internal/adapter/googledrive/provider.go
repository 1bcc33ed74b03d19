package googledrive

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/tkoide/editbridge/internal/adapter"
	"github.com/tkoide/editbridge/internal/broker"
)

// vendorTimeout bounds every Drive call. A timeout is a vendor error, never
// "undetermined", and is not retried here.
const vendorTimeout = 30 * time.Second

// Provider implements adapter.Provider for Google Drive.
type Provider struct{}

func NewProvider() *Provider {
	return &Provider{}
}

func newService(ctx context.Context, tok *oauth2.Token) (*drive.Service, error) {
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(tok))
	client.Timeout = vendorTimeout
	return drive.NewService(ctx, option.WithHTTPClient(client))
}

// Adapter builds a DriveAdapter over the handle's live token.
func (p *Provider) Adapter(ctx context.Context, h *broker.Handle) (adapter.StorageAdapter, error) {
	srv, err := newService(ctx, h.Token)
	if err != nil {
		return nil, fmt.Errorf("unable to create drive service: %w", err)
	}
	return NewDriveAdapter(srv), nil
}

// Identity resolves the vendor-assigned identity behind a token pair, for
// the broker's code-exchange path. Drive's permission id is the stable
// per-account identifier.
func Identity(ctx context.Context, tok *oauth2.Token) (broker.Identity, error) {
	srv, err := newService(ctx, tok)
	if err != nil {
		return broker.Identity{}, fmt.Errorf("unable to create drive service: %w", err)
	}
	about, err := srv.About.Get().Fields("user(permissionId, emailAddress)").Context(ctx).Do()
	if err != nil {
		return broker.Identity{}, fmt.Errorf("unable to resolve account identity: %w", err)
	}
	if about.User == nil || about.User.PermissionId == "" {
		return broker.Identity{}, fmt.Errorf("vendor returned no account identity")
	}
	return broker.Identity{
		AccountID: about.User.PermissionId,
		Email:     about.User.EmailAddress,
	}, nil
}
