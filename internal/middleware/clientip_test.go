package middleware_test

import (
	"testing"

	"github.com/serroba/ip-rate-limiter/internal/middleware"
	"github.com/stretchr/testify/assert"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		want       string
	}{
		{
			name:       "remote address host",
			remoteAddr: "192.168.1.1:12345",
			want:       "192.168.1.1",
		},
		{
			name:       "ipv6 remote address",
			remoteAddr: "[::1]:8080",
			want:       "::1",
		},
		{
			name:       "remote address without port",
			remoteAddr: "192.168.1.1",
			want:       "192.168.1.1",
		},
		{
			name:       "single X-Forwarded-For",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.195"},
			remoteAddr: "10.0.0.1:1",
			want:       "203.0.113.195",
		},
		{
			name:       "first of multiple X-Forwarded-For",
			headers:    map[string]string{"X-Forwarded-For": " 203.0.113.195 , 70.41.3.18"},
			remoteAddr: "10.0.0.1:1",
			want:       "203.0.113.195",
		},
		{
			name:       "X-Real-IP",
			headers:    map[string]string{"X-Real-IP": "198.51.100.7"},
			remoteAddr: "10.0.0.1:1",
			want:       "198.51.100.7",
		},
		{
			name: "X-Forwarded-For wins over X-Real-IP",
			headers: map[string]string{
				"X-Forwarded-For": "203.0.113.195",
				"X-Real-IP":       "198.51.100.7",
			},
			remoteAddr: "10.0.0.1:1",
			want:       "203.0.113.195",
		},
		{
			name:       "empty X-Forwarded-For entry falls through",
			headers:    map[string]string{"X-Forwarded-For": ", 70.41.3.18"},
			remoteAddr: "10.0.0.1:1",
			want:       "10.0.0.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := func(name string) string { return tt.headers[name] }

			assert.Equal(t, tt.want, middleware.ClientIP(header, tt.remoteAddr))
		})
	}
}

func TestRemoteIP(t *testing.T) {
	header := func(name string) string {
		return map[string]string{
			"X-Forwarded-For": "203.0.113.195",
			"X-Real-IP":       "198.51.100.7",
		}[name]
	}

	t.Run("ignores proxy headers", func(t *testing.T) {
		assert.Equal(t, "10.0.0.1", middleware.RemoteIP(header, "10.0.0.1:4321"))
	})

	t.Run("remote address without port", func(t *testing.T) {
		assert.Equal(t, "10.0.0.1", middleware.RemoteIP(header, "10.0.0.1"))
	})
}
