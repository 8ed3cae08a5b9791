package utils

import (
	"net/http/httptest"
	"testing"
)

func TestParseHostNoPort(t *testing.T) {
	tests := map[string]string{
		"":                 "",
		"10.0.0.1":         "10.0.0.1",
		"10.0.0.1:4242":    "10.0.0.1",
		"[2001:db8::1]:80": "2001:db8::1",
		"2001:db8::1":      "2001:db8::1",
	}
	for in, want := range tests {
		if got := ParseHostNoPort(in); got != want {
			t.Errorf("ParseHostNoPort(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		header     string
		expected   string
	}{
		{
			name:       "platform header wins",
			remoteAddr: "172.16.0.2:5555",
			headers:    map[string]string{"Fly-Client-IP": "203.0.113.7"},
			header:     "Fly-Client-IP",
			expected:   "203.0.113.7",
		},
		{
			name:       "falls back to peer",
			remoteAddr: "172.16.0.2:5555",
			header:     "Fly-Client-IP",
			expected:   "172.16.0.2",
		},
		{
			name:       "x-forwarded-for ignored",
			remoteAddr: "172.16.0.2:5555",
			headers:    map[string]string{"X-Forwarded-For": "1.1.1.1"},
			header:     "Fly-Client-IP",
			expected:   "172.16.0.2",
		},
		{
			name:       "no header configured",
			remoteAddr: "[2001:db8::1]:443",
			headers:    map[string]string{"Fly-Client-IP": "203.0.113.7"},
			expected:   "2001:db8::1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := ClientIP(r, tt.header); got != tt.expected {
				t.Errorf("ClientIP() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestIPMatcher(t *testing.T) {
	m := NewIPMatcher([]string{"10.0.0.0/8", " 192.168.1.5 ", "garbage", ""})
	if m.IsEmpty() {
		t.Fatal("matcher should not be empty")
	}

	tests := map[string]bool{
		"10.1.2.3":    true,
		"192.168.1.5": true,
		"192.168.1.6": false,
		"not-an-ip":   false,
	}
	for ip, want := range tests {
		if got := m.Allow(ip); got != want {
			t.Errorf("Allow(%q) = %v, want %v", ip, got, want)
		}
	}

	if !NewIPMatcher(nil).IsEmpty() {
		t.Error("nil list should give an empty matcher")
	}
}
