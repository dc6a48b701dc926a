package channel

import (
	"fmt"
	"strings"
)

const userServer = "@s.whatsapp.net"

// ToJID turns a phone number in any common notation into a user JID. Values
// that already carry a server suffix are returned unchanged.
func ToJID(s string) (string, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, "@") {
		return s, nil
	}

	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("%w: %q", ErrInvalidJID, s)
	}
	return b.String() + userServer, nil
}
