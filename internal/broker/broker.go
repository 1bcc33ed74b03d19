// Package broker obtains live, non-expired authenticated handles to external
// vendor accounts, refreshing and re-persisting credential material as
// needed. Nothing here retries automatically: every failure class is
// terminal for the current call and the caller re-attempts or re-authorizes.
package broker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tkoide/editbridge/internal/crypto"
	"github.com/tkoide/editbridge/internal/model"
)

// ephemeralTTL bounds how long an encapsulation-mode record stays readable.
const ephemeralTTL = 10 * time.Minute

// AccountStore persists one record per linked vendor account, keyed by
// (user id, external account id). A miss is (nil, nil), not an error.
type AccountStore interface {
	Get(ctx context.Context, userID, accountID string) (*model.ExternalAccountRecord, error)
	Put(ctx context.Context, rec *model.ExternalAccountRecord) error
	Delete(ctx context.Context, userID, accountID string) error
	List(ctx context.Context, userID string) ([]model.ExternalAccountRecord, error)
}

// EphemeralCache holds short-lived connection records keyed by one-time
// authorization code. A miss is (nil, nil), not an error.
type EphemeralCache interface {
	Get(ctx context.Context, code string) (*model.EphemeralConnectionRecord, error)
	Put(ctx context.Context, rec *model.EphemeralConnectionRecord) error
}

// Broker yields a live handle for a (user, account, mode) triple.
type Broker struct {
	storage   string // storage kind, for diagnostics
	accounts  AccountStore
	ephemeral EphemeralCache
	codec     crypto.Codec
	refresher Refresher
	exchanger CodeExchanger
	identity  IdentityResolver
	logger    *slog.Logger
	now       func() time.Time
}

// New creates a Broker. exchanger and identity may be nil if encapsulation
// mode or implicit account resolution are not needed.
func New(storage string, accounts AccountStore, ephemeral EphemeralCache, codec crypto.Codec,
	refresher Refresher, exchanger CodeExchanger, identity IdentityResolver, logger *slog.Logger) *Broker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broker{
		storage:   storage,
		accounts:  accounts,
		ephemeral: ephemeral,
		codec:     codec,
		refresher: refresher,
		exchanger: exchanger,
		identity:  identity,
		logger:    logger,
		now:       time.Now,
	}
}

// Connect locates the credential record for the mode, restores a handle,
// refreshes it if it is inside the safety margin, and persists the new
// token generation if one was produced.
func (b *Broker) Connect(ctx context.Context, userID string, mode LinkingMode) (*Handle, error) {
	if userID == "" {
		return nil, b.fail(KindNoUserID, userID, "", nil)
	}

	switch m := mode.(type) {
	case Persistent:
		return b.connectPersistent(ctx, userID, m.AccountID)
	case Encapsulation:
		return b.connectEncapsulation(ctx, userID, m)
	default:
		return nil, b.fail(KindNoEntryInStore, userID, "", fmt.Errorf("unknown linking mode %T", mode))
	}
}

func (b *Broker) connectPersistent(ctx context.Context, userID, accountID string) (*Handle, error) {
	if accountID == "" {
		if b.identity == nil {
			return nil, b.fail(KindNoExternalID, userID, "", nil)
		}
		resolved, err := b.identity.ResolveAccountID(ctx, userID)
		if err != nil || resolved == "" {
			return nil, b.fail(KindNoExternalID, userID, "", err)
		}
		accountID = resolved
	}

	rec, err := b.accounts.Get(ctx, userID, accountID)
	if err != nil || rec == nil {
		return nil, b.fail(KindNoEntryInStore, userID, accountID, err)
	}

	return b.restore(ctx, userID, accountID, rec.EncryptedBlob, func(ctx context.Context, encrypted string, h *Handle) error {
		rec.EncryptedBlob = encrypted
		rec.Email = h.Email
		rec.ExpiresAt = h.ExpiresAt()
		rec.RefreshFailed = false
		rec.UpdatedAt = b.now()
		return b.accounts.Put(ctx, rec)
	})
}

func (b *Broker) connectEncapsulation(ctx context.Context, userID string, m Encapsulation) (*Handle, error) {
	// First choice: mint a fresh handle straight from the one-time code.
	if m.Code != "" && b.exchanger != nil {
		if id, tok, err := b.exchanger.Exchange(ctx, m.Code); err == nil {
			h := handleFromToken(id, tok, b.now())
			if err := b.putEphemeral(ctx, m.Code, userID, h); err != nil {
				return nil, err
			}
			return h, nil
		}
		// An already-consumed code is expected here; fall through.
	}

	// Second: a previously minted ephemeral record for the same code.
	if m.Code != "" {
		rec, err := b.ephemeral.Get(ctx, m.Code)
		if err == nil && rec != nil {
			return b.restore(ctx, userID, rec.AccountID, rec.EncryptedBlob, func(ctx context.Context, encrypted string, h *Handle) error {
				rec.EncryptedBlob = encrypted
				rec.ExpiresAt = h.ExpiresAt()
				rec.TTL = b.now().Add(ephemeralTTL).Unix()
				return b.ephemeral.Put(ctx, rec)
			})
		}
	}

	// Last: a persistent record for the same logical account.
	if m.AccountID != "" {
		if rec, err := b.accounts.Get(ctx, userID, m.AccountID); err == nil && rec != nil {
			return b.connectPersistent(ctx, userID, m.AccountID)
		}
	}

	return nil, b.fail(KindNoEntryInStore, userID, m.AccountID, nil)
}

// persistFunc writes a changed blob generation back to whichever store the
// mode reads from.
type persistFunc func(ctx context.Context, encrypted string, h *Handle) error

// restore decrypts a stored blob, rebuilds the handle, refreshes inside the
// safety margin, and persists only if the blob actually changed.
func (b *Broker) restore(ctx context.Context, userID, accountID, encrypted string, persist persistFunc) (*Handle, error) {
	plain, err := b.codec.Decrypt(ctx, encrypted)
	if err != nil {
		return nil, b.fail(KindCannotDecryptTokens, userID, accountID, err)
	}

	blob, err := unmarshalBlob(plain)
	if err != nil {
		return nil, b.fail(KindCannotDecryptTokens, userID, accountID, err)
	}

	h := blob.handle()
	if !h.needsRefresh(b.now()) {
		return h, nil
	}

	tok, err := b.refresher.Refresh(ctx, h.Token.RefreshToken)
	if err != nil {
		kind := KindCannotRefreshTokens
		if isVendorRejection(err) {
			kind = KindConnectionException
		}
		return nil, b.fail(kind, userID, accountID, err)
	}

	refreshed := handleFromToken(Identity{AccountID: h.AccountID, Email: h.Email}, tok, b.now())

	newPlain, err := marshalBlob(blobFromHandle(refreshed))
	if err != nil {
		return nil, b.fail(KindCannotEncryptTokens, userID, accountID, err)
	}
	if newPlain == plain {
		// Same token generation came back; skip the needless write.
		return refreshed, nil
	}

	newEncrypted, err := b.codec.Encrypt(ctx, newPlain)
	if err != nil {
		return nil, b.fail(KindCannotEncryptTokens, userID, accountID, err)
	}

	if err := persist(ctx, newEncrypted, refreshed); err != nil {
		// The handle is live regardless; the next call refreshes again.
		b.logIssue(KindCannotRefreshTokens, userID, accountID, fmt.Errorf("persist refreshed blob: %w", err))
	}

	return refreshed, nil
}

func (b *Broker) putEphemeral(ctx context.Context, code, userID string, h *Handle) error {
	plain, err := marshalBlob(blobFromHandle(h))
	if err != nil {
		return b.fail(KindCannotEncryptTokens, userID, h.AccountID, err)
	}
	encrypted, err := b.codec.Encrypt(ctx, plain)
	if err != nil {
		return b.fail(KindCannotEncryptTokens, userID, h.AccountID, err)
	}
	rec := &model.EphemeralConnectionRecord{
		Code:          code,
		UserID:        userID,
		AccountID:     h.AccountID,
		EncryptedBlob: encrypted,
		Email:         h.Email,
		ExpiresAt:     h.ExpiresAt(),
		TTL:           b.now().Add(ephemeralTTL).Unix(),
	}
	if err := b.ephemeral.Put(ctx, rec); err != nil {
		b.logIssue(KindCannotRefreshTokens, userID, h.AccountID, fmt.Errorf("persist ephemeral record: %w", err))
	}
	return nil
}

// Link creates or replaces the persistent record for a freshly authorized
// account. This is the only way an ephemeral connection becomes durable.
func (b *Broker) Link(ctx context.Context, userID string, id Identity, h *Handle) (*model.ExternalAccountRecord, error) {
	plain, err := marshalBlob(blobFromHandle(h))
	if err != nil {
		return nil, b.fail(KindCannotEncryptTokens, userID, id.AccountID, err)
	}
	encrypted, err := b.codec.Encrypt(ctx, plain)
	if err != nil {
		return nil, b.fail(KindCannotEncryptTokens, userID, id.AccountID, err)
	}

	rec := &model.ExternalAccountRecord{
		UserID:        userID,
		AccountID:     id.AccountID,
		EncryptedBlob: encrypted,
		Email:         id.Email,
		ExpiresAt:     h.ExpiresAt(),
		UpdatedAt:     b.now(),
	}

	// Preserve per-account settings across relinks.
	if existing, err := b.accounts.Get(ctx, userID, id.AccountID); err == nil && existing != nil {
		rec.ThumbnailsDisabled = existing.ThumbnailsDisabled
		rec.RootFolderID = existing.RootFolderID
	}

	if err := b.accounts.Put(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to persist account link: %w", err)
	}
	return rec, nil
}

// Unlink removes the persistent record. Explicit unlink is the only way a
// record is ever deleted.
func (b *Broker) Unlink(ctx context.Context, userID, accountID string) error {
	return b.accounts.Delete(ctx, userID, accountID)
}

// ExchangeCode runs the one-time code exchange for the link flow.
func (b *Broker) ExchangeCode(ctx context.Context, code string) (Identity, *Handle, error) {
	if b.exchanger == nil {
		return Identity{}, nil, fmt.Errorf("no code exchanger configured")
	}
	id, tok, err := b.exchanger.Exchange(ctx, code)
	if err != nil {
		kind := KindCannotRefreshTokens
		if isVendorRejection(err) {
			kind = KindConnectionException
		}
		return Identity{}, nil, b.fail(kind, "", "", err)
	}
	return id, handleFromToken(id, tok, b.now()), nil
}

func (b *Broker) fail(kind Kind, userID, accountID string, cause error) error {
	b.logIssue(kind, userID, accountID, cause)
	return &Error{
		Kind:      kind,
		Storage:   b.storage,
		UserID:    userID,
		AccountID: accountID,
		Err:       cause,
	}
}

// logIssue is the only retry/alerting signal operators get; every terminal
// branch goes through it.
func (b *Broker) logIssue(kind Kind, userID, accountID string, cause error) {
	b.logger.Error("connection issue",
		slog.String("storage", b.storage),
		slog.String("user_id", userID),
		slog.String("account_id", accountID),
		slog.String("kind", string(kind)),
		slog.Any("error", cause),
	)
}
