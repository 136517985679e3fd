// Package validation holds input checks shared by client and server.
package validation

import (
	"fmt"
	"regexp"
)

// UsernamePattern allows latin letters, digits and underscores,
// 3 to 32 characters.
var UsernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,32}$`)

const (
	// MinUsernameLen is the minimal username length
	MinUsernameLen = 3
	// MaxUsernameLen is the maximal username length
	MaxUsernameLen = 32

	// minPasswordLen is the minimal password length
	minPasswordLen = 8
)

// ValidateUsername checks the username format: latin letters, digits
// and underscores only, 3-32 characters.
func ValidateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("username cannot be empty")
	}

	if len(username) < MinUsernameLen {
		return fmt.Errorf("username must be at least %d characters long", MinUsernameLen)
	}

	if len(username) > MaxUsernameLen {
		return fmt.Errorf("username must not exceed %d characters", MaxUsernameLen)
	}

	if !UsernamePattern.MatchString(username) {
		return fmt.Errorf("username can only contain letters (a-z, A-Z), numbers (0-9), and underscores (_)")
	}

	return nil
}

// ValidatePassword checks the minimal password requirements.
func ValidatePassword(password string) error {
	if password == "" {
		return fmt.Errorf("password cannot be empty")
	}

	if len(password) < minPasswordLen {
		return fmt.Errorf("password must be at least %d characters long", minPasswordLen)
	}

	return nil
}
