package shortlink

import (
	"crypto/rand"
	"encoding/base64"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	DefaultCodeLength = 6
	MinCodeLength     = 3
	MaxCodeLength     = 20
)

var shortCodeRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateCode rejects codes that could never have been issued.
func ValidateCode(code string) error {
	if err := validation.Validate(code,
		validation.Required.Error("short code is required"),
		validation.Length(MinCodeLength, MaxCodeLength).Error("short code must be 3-20 characters"),
		validation.Match(shortCodeRegex).Error("short code must contain only alphanumeric characters, underscores, and hyphens"),
	); err != nil {
		return ErrInvalidCode
	}
	return nil
}

// GenerateCode returns a random URL-safe code of the given length.
func GenerateCode(length int) (string, error) {
	if length <= 0 {
		length = DefaultCodeLength
	}

	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	code := strings.TrimRight(base64.URLEncoding.EncodeToString(b), "=")
	if len(code) > length {
		code = code[:length]
	}
	return code, nil
}
