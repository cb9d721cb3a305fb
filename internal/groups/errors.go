package groups

import "errors"

var (
	// ErrLimitExceeded is returned by CreateGroup once MaxGroups exist.
	ErrLimitExceeded = errors.New("groups: group limit reached")

	// ErrNotFound is returned for operations on an id that does not exist.
	ErrNotFound = errors.New("groups: group not found")

	// ErrImmutable is returned for mutations of a fixed, non-system group.
	ErrImmutable = errors.New("groups: group is immutable")

	// ErrInvalidCardID is returned when toggling an empty card id.
	ErrInvalidCardID = errors.New("groups: invalid card id")

	// ErrReentrantWrite is returned when a change listener tries to write
	// to the store that is notifying it.
	ErrReentrantWrite = errors.New("groups: write from inside a change listener")
)

// Reason maps an operation error to the short code used on the wire:
// "limit", "notfound", "immutable", "invalid" or "reentrant". Nil maps to "".
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrLimitExceeded):
		return "limit"
	case errors.Is(err, ErrNotFound):
		return "notfound"
	case errors.Is(err, ErrImmutable):
		return "immutable"
	case errors.Is(err, ErrInvalidCardID):
		return "invalid"
	case errors.Is(err, ErrReentrantWrite):
		return "reentrant"
	default:
		return "error"
	}
}
