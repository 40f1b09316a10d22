package clientip

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromRequest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		remote  string
		xff     string
		trusted bool
		want    string
	}{
		{name: "remote addr with port", remote: "10.0.0.7:53211", want: "10.0.0.7"},
		{name: "remote addr without port", remote: "10.0.0.7", want: "10.0.0.7"},
		{name: "ipv6 remote", remote: "[::1]:8080", want: "::1"},
		{name: "forwarded ignored when untrusted", remote: "10.0.0.7:1", xff: "203.0.113.9", want: "10.0.0.7"},
		{name: "forwarded first hop when trusted", remote: "10.0.0.7:1", xff: "203.0.113.9, 10.0.0.1", trusted: true, want: "203.0.113.9"},
		{name: "garbage forwarded falls back", remote: "10.0.0.7:1", xff: "not-an-ip", trusted: true, want: "10.0.0.7"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			assert.Equal(t, tt.want, FromRequest(r, tt.trusted))
		})
	}
}
