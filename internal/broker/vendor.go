package broker

import (
	"context"
	"errors"

	"golang.org/x/oauth2"
)

// Identity is the vendor-assigned identity behind a token pair.
type Identity struct {
	AccountID string
	Email     string
}

// Refresher performs the vendor token-refresh exchange.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

// CodeExchanger trades a one-time authorization code for a token pair and
// the identity it belongs to. Used only in encapsulation mode and on link.
type CodeExchanger interface {
	Exchange(ctx context.Context, code string) (Identity, *oauth2.Token, error)
}

// IdentityResolver supplies an external account id when the caller did not
// declare one (e.g., derived from the file being acted on, or from the
// user's only linked account).
type IdentityResolver interface {
	ResolveAccountID(ctx context.Context, userID string) (string, error)
}

// IdentityFunc looks up who a token belongs to, vendor-specifically.
type IdentityFunc func(ctx context.Context, tok *oauth2.Token) (Identity, error)

// OAuthVendor implements Refresher and CodeExchanger on top of an
// oauth2.Config.
type OAuthVendor struct {
	Config   *oauth2.Config
	Identity IdentityFunc
}

// Refresh exchanges the refresh token for a new token generation. The
// token source is primed with an already-expired token so it always hits
// the vendor's refresh endpoint.
func (v *OAuthVendor) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	stale := &oauth2.Token{RefreshToken: refreshToken}
	tok, err := v.Config.TokenSource(ctx, stale).Token()
	if err != nil {
		return nil, err
	}
	if tok.RefreshToken == "" {
		// Some vendors omit the refresh token on rotation; keep the old one.
		tok.RefreshToken = refreshToken
	}
	return tok, nil
}

// Exchange trades the authorization code for tokens and resolves identity.
func (v *OAuthVendor) Exchange(ctx context.Context, code string) (Identity, *oauth2.Token, error) {
	tok, err := v.Config.Exchange(ctx, code)
	if err != nil {
		return Identity{}, nil, err
	}
	if v.Identity == nil {
		return Identity{}, nil, errors.New("no identity lookup configured")
	}
	id, err := v.Identity(ctx, tok)
	if err != nil {
		return Identity{}, nil, err
	}
	return id, tok, nil
}

// isVendorRejection reports whether err means the vendor examined and
// rejected the credentials, as opposed to a transport-level failure.
func isVendorRejection(err error) bool {
	var re *oauth2.RetrieveError
	return errors.As(err, &re)
}
