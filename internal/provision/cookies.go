package provision

import (
	"net/http"
	"strings"
)

// extractSessionCookies filters the cookies a backend response set down to
// the ones carrying session state and renders them as a single Cookie header
// value. Express-style backends split a session across a value cookie and a
// companion signature cookie ending in ".sig"; both must travel together or
// the session is rejected.
//
// Duplicate names keep their first occurrence so a later Set-Cookie cannot
// silently shadow the one the login response established.
func extractSessionCookies(cookies []*http.Cookie) string {
	var parts []string
	seen := make(map[string]struct{})

	for _, cookie := range cookies {
		name := strings.ToLower(cookie.Name)
		if !strings.Contains(name, "session-") && !strings.Contains(name, ".sig") {
			continue
		}
		if _, ok := seen[cookie.Name]; ok {
			continue
		}
		seen[cookie.Name] = struct{}{}
		parts = append(parts, cookie.Name+"="+cookie.Value)
	}

	return strings.Join(parts, "; ")
}
