package parse

import (
	"strings"
)

// PairingCode trims and upper-cases a human-entered pairing code, dropping
// inner spaces and dashes people add when reading it off a screen.
func PairingCode(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "-", "")
	return s
}
