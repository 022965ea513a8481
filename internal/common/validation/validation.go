package validation

import (
	"regexp"
	"strconv"
	"strings"

	apperrors "lara-bot/internal/common/errors"
)

const (
	MaxClientIDLength = 64
	MaxUserRefLength  = 64
)

// Client ids are opaque backend identifiers; letters, digits, '-' and '_'.
var clientIDRegex = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Points parses a point amount. Negative amounts deduct; zero is rejected.
func Points(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, apperrors.NewInvalidArgument("points", "cannot be empty")
	}

	points, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperrors.NewInvalidArgument("points", "must be an integer")
	}
	if points == 0 {
		return 0, apperrors.NewInvalidArgument("points", "cannot be zero")
	}
	return points, nil
}

// ClientID checks a client id before it is put into a request path.
func ClientID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", apperrors.NewInvalidArgument("client_id", "cannot be empty")
	}
	if len(raw) > MaxClientIDLength {
		return "", apperrors.NewInvalidArgument("client_id", "too long")
	}
	if !clientIDRegex.MatchString(raw) {
		return "", apperrors.NewInvalidArgument("client_id", "contains invalid characters")
	}
	return raw, nil
}

// UserRef checks a user argument: a mention, a Discord id or a Forte user id.
func UserRef(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", apperrors.NewInvalidArgument("user", "cannot be empty")
	}
	if len(raw) > MaxUserRefLength {
		return "", apperrors.NewInvalidArgument("user", "too long")
	}
	if strings.ContainsAny(raw, "/?#") {
		return "", apperrors.NewInvalidArgument("user", "contains invalid characters")
	}
	return raw, nil
}
