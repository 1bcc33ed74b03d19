package broker

import (
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/oauth2"
)

// refreshMargin is subtracted from a token's lifetime when deciding whether
// a refresh is due, covering clock skew and in-flight request latency.
const refreshMargin = 60 * time.Second

// Handle is the live credential material usable to call the vendor right
// now. It is owned by the request that asked for it and never shared.
type Handle struct {
	AccountID   string
	Email       string
	Token       *oauth2.Token
	RefreshedAt time.Time
	ExpiresIn   time.Duration
}

// ExpiresAt is the absolute instant the access token stops being usable.
func (h *Handle) ExpiresAt() time.Time {
	return h.RefreshedAt.Add(h.ExpiresIn)
}

// needsRefresh reports whether the handle is inside the safety margin.
func (h *Handle) needsRefresh(now time.Time) bool {
	return now.Sub(h.RefreshedAt) >= h.ExpiresIn-refreshMargin
}

// credentialBlob is the serialized form of a handle, encrypted at rest.
type credentialBlob struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type,omitempty"`
	AccountID    string    `json:"account_id"`
	Email        string    `json:"email"`
	RefreshedAt  time.Time `json:"refreshed_at"`
	ExpiresIn    int64     `json:"expires_in"` // seconds
}

func (b *credentialBlob) handle() *Handle {
	expiresIn := time.Duration(b.ExpiresIn) * time.Second
	return &Handle{
		AccountID: b.AccountID,
		Email:     b.Email,
		Token: &oauth2.Token{
			AccessToken:  b.AccessToken,
			RefreshToken: b.RefreshToken,
			TokenType:    b.TokenType,
			Expiry:       b.RefreshedAt.Add(expiresIn),
		},
		RefreshedAt: b.RefreshedAt,
		ExpiresIn:   expiresIn,
	}
}

func blobFromHandle(h *Handle) *credentialBlob {
	return &credentialBlob{
		AccessToken:  h.Token.AccessToken,
		RefreshToken: h.Token.RefreshToken,
		TokenType:    h.Token.TokenType,
		AccountID:    h.AccountID,
		Email:        h.Email,
		RefreshedAt:  h.RefreshedAt,
		ExpiresIn:    int64(h.ExpiresIn / time.Second),
	}
}

func marshalBlob(b *credentialBlob) (string, error) {
	raw, err := json.Marshal(b)
	if err != nil {
		return "", fmt.Errorf("failed to marshal credential blob: %w", err)
	}
	return string(raw), nil
}

func unmarshalBlob(raw string) (*credentialBlob, error) {
	var b credentialBlob
	if err := json.Unmarshal([]byte(raw), &b); err != nil {
		return nil, fmt.Errorf("failed to unmarshal credential blob: %w", err)
	}
	return &b, nil
}

// handleFromToken builds a fresh handle from a vendor token response.
func handleFromToken(id Identity, tok *oauth2.Token, now time.Time) *Handle {
	expiresIn := tok.Expiry.Sub(now)
	if expiresIn <= 0 {
		// Vendors that omit expiry get a conservative default lifetime.
		expiresIn = time.Hour
	}
	return &Handle{
		AccountID:   id.AccountID,
		Email:       id.Email,
		Token:       tok,
		RefreshedAt: now,
		ExpiresIn:   expiresIn,
	}
}
