package httputil

import (
	"regexp"
	"strings"
)

// CID validation regex - basic IPFS CID pattern (v0 and v1)
// v0: Qm... (base58, 46 characters)
// v1: b... or z... (base32/base58, variable length)
var cidRegex = regexp.MustCompile(`^(Qm[1-9A-HJ-NP-Za-km-z]{44}|b[a-z2-7]{58,}|z[1-9A-HJ-NP-Za-km-z]{48,})$`)

// ValidateCID checks if a string is a valid IPFS CID.
func ValidateCID(cid string) bool {
	return cidRegex.MatchString(strings.TrimSpace(cid))
}
