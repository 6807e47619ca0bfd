package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrNotFound covers a missing target user, interest or grant. It is also
	// returned when the caller is not a party allowed to see the record.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is a duplicate interest send.
	ErrAlreadyExists = errors.New("already exists")
	// ErrUnauthorized means no caller identity was supplied.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrStoreUnavailable wraps transient Redis failures. Safe to retry.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrIndeterminate is returned by access checks that could not read the
	// store. Callers should deny.
	ErrIndeterminate   = errors.New("access decision indeterminate")
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrConflict is a lifecycle action on an interest that is no longer
	// pending, or a write that lost an optimistic race too many times.
	ErrConflict = errors.New("conflict")
	// ErrDeclined rejects a resend while the previous decline is in cooldown.
	ErrDeclined = errors.New("interest was declined")
	// ErrCorruptRecord is a stored record that cannot be parsed. Retrying
	// will not help.
	ErrCorruptRecord = errors.New("corrupt record")
)

// storeErr maps go-redis errors onto the service taxonomy.
func storeErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, redis.Nil):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrConflict), errors.Is(err, ErrAlreadyExists),
		errors.Is(err, ErrDeclined), errors.Is(err, ErrInvalidArgument), errors.Is(err, ErrCorruptRecord):
		return fmt.Errorf("%s: %w", op, err)
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}

func isNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
