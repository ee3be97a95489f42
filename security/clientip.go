package security

import (
	"os"
	"strings"
)

// proxy headers in trust order: CDN first, then reverse-proxy headers,
// generic forwarding headers, and the less common vendor ones last.
var ipHeaderPriority = []string{
	"CF-Connecting-IP",
	"X-Real-IP",
	"X-Forwarded-For",
	"X-Client-IP",
	"X-Forwarded",
	"X-Cluster-Client-IP",
	"Forwarded-For",
	"Forwarded",
	"True-Client-IP",
	"X-Original-Forwarded-For",
}

const DevClientSentinel = "dev-client"

// HeaderLookup abstracts the request so the resolver stays independent of
// the HTTP framework.
type HeaderLookup func(key string) string

// ResolveClientIP returns the best-effort real client address. Absence of
// signal is a valid degraded result: the development sentinel outside
// production, the literal "unknown" otherwise. Never fails.
func ResolveClientIP(header HeaderLookup) string {
	for _, name := range ipHeaderPriority {
		value := header(name)
		if value == "" {
			continue
		}
		ip := strings.TrimSpace(strings.Split(value, ",")[0])
		if acceptableIP(ip) {
			return ip
		}
	}

	if os.Getenv("APP_ENV") != "production" {
		return DevClientSentinel
	}
	return "unknown"
}

func acceptableIP(ip string) bool {
	if ip == "" || strings.EqualFold(ip, "unknown") {
		return false
	}
	if ip == "127.0.0.1" || ip == "::1" || strings.HasPrefix(ip, "127.") {
		return false
	}
	return true
}
