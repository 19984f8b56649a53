package household

import (
	"errors"
	"strings"
)

var ErrInvalidInviteCode = errors.New("invite code must be 6 to 12 letters or digits")

// NormalizeInviteCode trims and upper-cases an invite code typed by a user.
func NormalizeInviteCode(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) < 6 || len(code) > 12 {
		return "", ErrInvalidInviteCode
	}
	for _, r := range code {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return "", ErrInvalidInviteCode
		}
	}
	return code, nil
}
