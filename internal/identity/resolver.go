// Package identity derives stable owner keys from request metadata.
//
// The owner key groups tasks believed to come from the same caller so the
// pool can reuse that caller's browser session. Derivation is best-effort
// grouping, not a security boundary: hashing only normalizes length and
// format, and collisions are an accepted trade-off of the scheme.
package identity

import (
	"crypto/md5"
	"encoding/hex"
)

// DefaultKey is the shared owner key for callers that present no
// identifying metadata at all.
const DefaultKey = "default_user"

// RequestMeta carries the identity-relevant parts of an incoming request.
// The surrounding transport layer fills this in; the resolver never sees
// the request itself.
type RequestMeta struct {
	// Authorization is the raw credential/authorization token, if any.
	Authorization string

	// Fingerprint is a client fingerprint header (typically User-Agent).
	Fingerprint string

	// RemoteAddr is the caller's source address.
	RemoteAddr string
}

// Resolve computes the owner key for the given metadata.
//
// Priority chain, first match wins:
//  1. authorization token        -> "auth_" + hash(token)
//  2. fingerprint + source addr  -> "ua_ip_" + hash(fingerprint + "_" + addr)
//  3. source addr alone          -> "ip_" + hash(addr)
//  4. DefaultKey
//
// Resolve is total: it never fails and always returns a non-empty key.
func Resolve(meta RequestMeta) string {
	if meta.Authorization != "" {
		return "auth_" + shortHash(meta.Authorization)
	}

	if meta.Fingerprint != "" && meta.RemoteAddr != "" {
		return "ua_ip_" + shortHash(meta.Fingerprint+"_"+meta.RemoteAddr)
	}

	if meta.RemoteAddr != "" {
		return "ip_" + shortHash(meta.RemoteAddr)
	}

	return DefaultKey
}

// shortHash returns the first 12 hex characters of the md5 of s.
// 48 bits is plenty for grouping; this is not used for secrecy.
func shortHash(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}
