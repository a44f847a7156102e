// Package validate holds request-level input checks. Anything deeper
// (ownership, existence) belongs to the service layer.
package validate

import (
	"fmt"
	"regexp"
	"strings"
)

var emailRx = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

const (
	minPasswordLen    = 6
	maxPasswordLen    = 72 // bcrypt input limit
	maxSessionNameLen = 100
	maxMessageLen     = 2000
)

func Email(v string) error {
	if v == "" {
		return fmt.Errorf("email is required")
	}
	if len(v) > 320 || !emailRx.MatchString(v) {
		return fmt.Errorf("invalid email")
	}
	return nil
}

func Password(v string) error {
	if len(v) < minPasswordLen {
		return fmt.Errorf("password must be at least %d characters", minPasswordLen)
	}
	if len(v) > maxPasswordLen {
		return fmt.Errorf("password exceeds %d characters", maxPasswordLen)
	}
	return nil
}

// SessionName rejects empty or overlong display names. Leading and
// trailing whitespace does not count toward emptiness.
func SessionName(v string) error {
	if strings.TrimSpace(v) == "" {
		return fmt.Errorf("name is required")
	}
	if len(v) > maxSessionNameLen {
		return fmt.Errorf("name exceeds %d characters", maxSessionNameLen)
	}
	return nil
}

// MessageText bounds a user chat message. Blank input is legal at the
// transport level; the controller treats it as a no-op.
func MessageText(v string) error {
	if len(v) > maxMessageLen {
		return fmt.Errorf("message exceeds %d characters", maxMessageLen)
	}
	return nil
}

func MaxLen(field string, v *string, limit int) error {
	if v == nil {
		return nil
	}
	if len(*v) > limit {
		return fmt.Errorf("%s exceeds %d characters", field, limit)
	}
	return nil
}

// SignUp validates the registration payload.
func SignUp(email, password string, fullName *string) error {
	if err := Email(email); err != nil {
		return err
	}
	if err := Password(password); err != nil {
		return err
	}
	return MaxLen("fullName", fullName, 100)
}
