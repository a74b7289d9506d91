// internal/app/system/ratelimit/clientip.go
package ratelimit

import (
	"errors"
	"net"
	"net/http"
	"strings"
)

// ErrNoClientIP is returned when no usable caller address can be found
// outside development mode.
var ErrNoClientIP = errors.New("unable to determine client IP address")

// devFallbackIP is used for every caller in development mode when nothing
// else resolves.
const devFallbackIP = "127.0.0.1"

// ClientIP resolves the caller identity used for rate limiting.
//
// Sources are tried in order: the connection's remote address, the first
// X-Forwarded-For entry, X-Real-IP, CF-Connecting-IP. Loopback addresses
// are skipped. Behind a reverse proxy, chi's middleware.RealIP runs first
// and replaces the remote address with the forwarded client address. If nothing resolves, dev mode falls back to 127.0.0.1 and
// any other mode fails.
func ClientIP(r *http.Request, dev bool) (string, error) {
	if ip := remoteHost(r.RemoteAddr); usable(ip) {
		return ip, nil
	}

	// X-Forwarded-For is comma-separated; the first entry is the client.
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); usable(ip) {
			return ip, nil
		}
	}

	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); usable(ip) {
		return ip, nil
	}

	if ip := strings.TrimSpace(r.Header.Get("CF-Connecting-IP")); usable(ip) {
		return ip, nil
	}

	if dev {
		return devFallbackIP, nil
	}
	return "", ErrNoClientIP
}

func remoteHost(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		// RemoteAddr might not have a port
		return strings.TrimSpace(addr)
	}
	return host
}

func usable(ip string) bool {
	if ip == "" {
		return false
	}
	if parsed := net.ParseIP(ip); parsed != nil && parsed.IsLoopback() {
		return false
	}
	return ip != "localhost"
}
