package core

import (
	"errors"
	"fmt"
)

// Kind classifies ledger failures so transports can map them without
// parsing messages.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindAuthorization
	KindInsufficientBalance
	KindUnsupported
	KindLastWallet
	KindWalletInUse
	KindConflict
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation_error"
	case KindNotFound:
		return "not_found_error"
	case KindAuthorization:
		return "authorization_error"
	case KindInsufficientBalance:
		return "insufficient_balance_error"
	case KindUnsupported:
		return "unsupported_operation_error"
	case KindLastWallet:
		return "last_wallet_error"
	case KindWalletInUse:
		return "wallet_in_use_error"
	case KindConflict:
		return "conflict_error"
	case KindStorage:
		return "storage_error"
	}
	return "internal_error"
}

// Error is the typed error returned by every ledger operation.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind, so the sentinels below work with
// errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Op == "" && t.Msg == "" && t.Err == nil && t.Kind == e.Kind
}

var (
	ErrValidation          = &Error{Kind: KindValidation}
	ErrNotFound            = &Error{Kind: KindNotFound}
	ErrUnauthorized        = &Error{Kind: KindAuthorization}
	ErrInsufficientBalance = &Error{Kind: KindInsufficientBalance}
	ErrUnsupported         = &Error{Kind: KindUnsupported}
	ErrLastWallet          = &Error{Kind: KindLastWallet}
	ErrWalletInUse         = &Error{Kind: KindWalletInUse}
	ErrConflict            = &Error{Kind: KindConflict}
	ErrStorage             = &Error{Kind: KindStorage}
)

// E builds an error of kind for op.
func E(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}

// Errorf is E with a formatted message.
func Errorf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches kind and op to err. Errors that already carry a Kind keep it.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	var le *Error
	if errors.As(err, &le) {
		return err
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf reports the Kind of err, KindInternal when it carries none.
func KindOf(err error) Kind {
	var le *Error
	if errors.As(err, &le) {
		return le.Kind
	}
	return KindInternal
}
