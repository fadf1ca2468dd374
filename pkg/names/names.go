package names

import (
	"errors"
	"regexp"
	"strings"
)

const maxDisplayNameLen = 64

var (
	// Gateway handles: word characters only, as chat platforms allow
	handleRegex = regexp.MustCompile(`^[A-Za-z0-9_]{3,32}$`)
	// External ids as the gateway mints them, e.g. "tg:900100"
	externalIDRegex = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,64}$`)
	// Collapses runs of whitespace inside display names
	spacesRegex = regexp.MustCompile(`\s+`)
)

// NormalizeHandle strips a leading "@" and validates the remainder against
// the handle charset.
func NormalizeHandle(handle string) (string, error) {
	if handle == "" {
		return "", errors.New("handle cannot be empty")
	}

	normalized := strings.TrimSpace(handle)
	normalized = strings.TrimPrefix(normalized, "@")

	if !handleRegex.MatchString(normalized) {
		return "", errors.New("invalid handle format")
	}

	return normalized, nil
}

// DisplayNameFrom derives the name the pool renders for a player: the
// trimmed display name when one was sent, otherwise the handle. Returns ""
// when neither is usable.
func DisplayNameFrom(displayName, handle string) string {
	name := strings.TrimSpace(displayName)
	name = spacesRegex.ReplaceAllString(name, " ")

	if name == "" {
		if normalized, err := NormalizeHandle(handle); err == nil {
			name = "@" + normalized
		}
	}

	if len(name) > maxDisplayNameLen {
		name = name[:maxDisplayNameLen]
	}

	return name
}

// ValidExternalID reports whether id is acceptable as a gateway player id.
func ValidExternalID(id string) bool {
	return externalIDRegex.MatchString(id)
}
