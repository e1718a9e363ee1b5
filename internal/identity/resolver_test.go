package identity

import (
	"strings"
	"testing"
)

func TestResolvePriorityChain(t *testing.T) {
	tests := []struct {
		name       string
		meta       RequestMeta
		wantPrefix string
	}{
		{
			name:       "authorization wins over everything",
			meta:       RequestMeta{Authorization: "Bearer tok", Fingerprint: "ua", RemoteAddr: "10.0.0.1"},
			wantPrefix: "auth_",
		},
		{
			name:       "fingerprint plus addr",
			meta:       RequestMeta{Fingerprint: "Mozilla/5.0", RemoteAddr: "10.0.0.1"},
			wantPrefix: "ua_ip_",
		},
		{
			name:       "fingerprint alone is not enough",
			meta:       RequestMeta{Fingerprint: "Mozilla/5.0"},
			wantPrefix: DefaultKey,
		},
		{
			name:       "addr alone",
			meta:       RequestMeta{RemoteAddr: "10.0.0.1"},
			wantPrefix: "ip_",
		},
		{
			name:       "nothing at all",
			meta:       RequestMeta{},
			wantPrefix: DefaultKey,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.meta)
			if !strings.HasPrefix(got, tt.wantPrefix) {
				t.Errorf("Resolve() = %q, want prefix %q", got, tt.wantPrefix)
			}
			if got == "" {
				t.Error("Resolve() returned empty key")
			}
		})
	}
}

func TestResolveIsStable(t *testing.T) {
	meta := RequestMeta{Authorization: "Bearer tok"}
	if Resolve(meta) != Resolve(meta) {
		t.Error("same metadata produced different keys")
	}
}

func TestResolveDistinguishesCallers(t *testing.T) {
	a := Resolve(RequestMeta{Authorization: "token-a"})
	b := Resolve(RequestMeta{Authorization: "token-b"})
	if a == b {
		t.Errorf("distinct tokens mapped to the same key %q", a)
	}

	// The same address behind different fingerprints gets separate keys.
	x := Resolve(RequestMeta{Fingerprint: "ua-1", RemoteAddr: "10.0.0.1"})
	y := Resolve(RequestMeta{Fingerprint: "ua-2", RemoteAddr: "10.0.0.1"})
	if x == y {
		t.Errorf("distinct fingerprints mapped to the same key %q", x)
	}
}

func TestResolveKeyShape(t *testing.T) {
	got := Resolve(RequestMeta{RemoteAddr: "10.0.0.1"})

	// prefix + 12 hex characters
	hash := strings.TrimPrefix(got, "ip_")
	if len(hash) != 12 {
		t.Errorf("hash part %q has length %d, want 12", hash, len(hash))
	}
	for _, r := range hash {
		if !strings.ContainsRune("0123456789abcdef", r) {
			t.Errorf("hash part %q contains non-hex rune %q", hash, r)
		}
	}
}
