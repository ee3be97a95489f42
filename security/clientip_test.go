package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func headerMap(h map[string]string) HeaderLookup {
	return func(key string) string { return h[key] }
}

func TestResolveClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{
			name:    "cloudflare header wins",
			headers: map[string]string{"CF-Connecting-IP": "203.0.113.7", "X-Forwarded-For": "198.51.100.1"},
			want:    "203.0.113.7",
		},
		{
			name:    "real ip before forwarded for",
			headers: map[string]string{"X-Real-IP": "203.0.113.8", "X-Forwarded-For": "198.51.100.1"},
			want:    "203.0.113.8",
		},
		{
			name:    "first token of forwarded chain",
			headers: map[string]string{"X-Forwarded-For": " 198.51.100.1 , 10.0.0.2, 10.0.0.3"},
			want:    "198.51.100.1",
		},
		{
			name:    "skips unknown literal",
			headers: map[string]string{"X-Forwarded-For": "unknown", "True-Client-IP": "203.0.113.9"},
			want:    "203.0.113.9",
		},
		{
			name:    "skips loopback",
			headers: map[string]string{"X-Real-IP": "127.0.0.1", "X-Client-IP": "203.0.113.10"},
			want:    "203.0.113.10",
		},
		{
			name:    "no signal degrades to dev sentinel",
			headers: map[string]string{},
			want:    DevClientSentinel,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ResolveClientIP(headerMap(tc.headers)))
		})
	}
}

func TestResolveClientIP_ProductionFallback(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	assert.Equal(t, "unknown", ResolveClientIP(headerMap(nil)))
}
