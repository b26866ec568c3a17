package ratelimit

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		headers    map[string]string
		name       string
		remoteAddr string
		want       string
	}{
		{
			name:       "X-Forwarded-For single",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.5"},
			remoteAddr: "10.0.0.1:1234",
			want:       "203.0.113.5",
		},
		{
			name:       "X-Forwarded-For chain takes first hop trimmed",
			headers:    map[string]string{"X-Forwarded-For": " 203.0.113.5 , 10.0.0.2, 10.0.0.3"},
			remoteAddr: "10.0.0.1:1234",
			want:       "203.0.113.5",
		},
		{
			name:       "X-Real-IP when no X-Forwarded-For",
			headers:    map[string]string{"X-Real-IP": "198.51.100.9"},
			remoteAddr: "10.0.0.1:1234",
			want:       "198.51.100.9",
		},
		{
			name:       "X-Forwarded-For wins over X-Real-IP",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.5", "X-Real-IP": "198.51.100.9"},
			remoteAddr: "10.0.0.1:1234",
			want:       "203.0.113.5",
		},
		{
			name:       "empty first hop falls through",
			headers:    map[string]string{"X-Forwarded-For": " , 10.0.0.2"},
			remoteAddr: "192.0.2.1:5555",
			want:       "192.0.2.1",
		},
		{
			name:       "RemoteAddr host",
			remoteAddr: "192.0.2.1:5555",
			want:       "192.0.2.1",
		},
		{
			name:       "RemoteAddr IPv6",
			remoteAddr: "[2001:db8::1]:443",
			want:       "2001:db8::1",
		},
		{
			name:       "RemoteAddr without port",
			remoteAddr: "192.0.2.1",
			want:       "192.0.2.1",
		},
		{
			name:       "nothing known",
			remoteAddr: "",
			want:       "unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIP(req))
		})
	}
}
