package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

const (
	// inviteCodeAlphabet avoids visually ambiguous characters (0/O, 1/I)
	// since codes are read from chat messages and typed by hand.
	inviteCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	inviteCodeLength   = 12

	passwordAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%^&*"
	passwordLength   = 12
)

// GenerateInviteCode returns a cryptographically random invite code of fixed
// length over the fixed upper-case alphabet.
func GenerateInviteCode() (string, error) {
	return randomString(inviteCodeAlphabet, inviteCodeLength)
}

// GeneratePassword returns a random 12-character password over a mixed
// alphanumeric-plus-symbols alphabet. Used when a registration supplies no
// password of its own.
func GeneratePassword() (string, error) {
	return randomString(passwordAlphabet, passwordLength)
}

// GenerateStateToken returns a high-entropy opaque value suitable for
// OAuth CSRF state parameters and session tokens: 32 random bytes, hex.
func GenerateStateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("error reading random bytes: %w", err)
	}

	return hex.EncodeToString(buf), nil
}

// randomString draws each character uniformly by rejecting bytes past the
// largest multiple of the alphabet size, so alphabets that do not divide
// 256 evenly stay unbiased.
func randomString(alphabet string, length int) (string, error) {
	limit := byte(256 - 256%len(alphabet))

	out := make([]byte, 0, length)
	buf := make([]byte, length)
	for len(out) < length {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("error reading random bytes: %w", err)
		}
		for _, b := range buf {
			if b >= limit && limit != 0 {
				continue
			}
			out = append(out, alphabet[int(b)%len(alphabet)])
			if len(out) == length {
				break
			}
		}
	}

	return string(out), nil
}
