package broker

import (
	"errors"
	"fmt"
)

// Kind is the closed set of connection failure classes. Every terminal
// branch of Connect maps to exactly one Kind; none is retried inside the
// broker.
type Kind string

const (
	KindNoUserID            Kind = "NoUserId"
	KindNoExternalID        Kind = "NoExternalId"
	KindNoEntryInStore      Kind = "NoEntryInStore"
	KindCannotDecryptTokens Kind = "CannotDecryptTokens"
	KindCannotEncryptTokens Kind = "CannotEncryptTokens"
	KindCannotRefreshTokens Kind = "CannotRefreshTokens"
	KindConnectionException Kind = "ConnectionException"
)

// Error is a classified connection failure.
type Error struct {
	Kind      Kind
	Storage   string
	UserID    string
	AccountID string
	Err       error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("connection issue %s (storage=%s user=%s account=%s)",
		e.Kind, e.Storage, e.UserID, e.AccountID)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of err if it is (or wraps) a broker Error,
// otherwise the empty string.
func KindOf(err error) Kind {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	return ""
}
