package logging

import "strings"

// RedactSecret shortens a credential-bearing string (bearer token,
// credential-profile name, SigV4 access key) to a loggable fingerprint: the
// first 4 characters plus a length marker, never the full value.
func RedactSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return s[:4] + strings.Repeat("*", len(s)-4)
}
