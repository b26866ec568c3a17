package ratelimit

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP извлекает идентификатор клиента из запроса.
// Порядок: первый адрес X-Forwarded-For, X-Real-IP, хост из RemoteAddr.
// Заголовкам доверяем как есть, сервер ожидается за reverse proxy.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}

	if r.RemoteAddr != "" {
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
			return host
		}
		return r.RemoteAddr
	}

	return "unknown"
}
