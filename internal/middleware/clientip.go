package middleware

import (
	"net"
	"strings"
)

// KeyFunc derives the rate limit key of a request from its headers and remote address.
type KeyFunc func(header func(name string) string, remoteAddr string) string

// ClientIP returns the client IP of a request, considering proxies: the first
// X-Forwarded-For entry, then X-Real-IP, then the host part of the remote address.
func ClientIP(header func(name string) string, remoteAddr string) string {
	if xff := header("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	if xri := strings.TrimSpace(header("X-Real-IP")); xri != "" {
		return xri
	}

	return RemoteIP(header, remoteAddr)
}

// RemoteIP returns the host part of the connection remote address and ignores
// proxy headers. Use it when the service is not behind a trusted proxy.
func RemoteIP(_ func(name string) string, remoteAddr string) string {
	ip, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}

	return ip
}
