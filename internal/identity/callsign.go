// Package identity resolves Discord members to the names and radio
// callsigns the bridge logs and announces.
package identity

import "strings"

// ExtractCallsign returns the first whitespace-separated token of nick that
// looks like an amateur radio callsign: longer than two characters, only
// ASCII uppercase letters and digits, ending in a letter.
func ExtractCallsign(nick string) (string, bool) {
	for _, tok := range strings.Fields(nick) {
		if isCallsign(tok) {
			return tok, true
		}
	}

	return "", false
}

func isCallsign(tok string) bool {
	if len(tok) <= 2 {
		return false
	}
	for i := 0; i < len(tok); i++ {
		c := tok[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}
	last := tok[len(tok)-1]

	return last >= 'A' && last <= 'Z'
}
