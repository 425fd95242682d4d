package auth

import "crypto/subtle"

// AdminGate authorizes privileged ledger operations against a single
// process-wide shared secret configured at startup. There is no per-admin
// identity and no rate limiting; denied requests must be rejected before
// any service state is touched.
type AdminGate struct {
	key []byte
}

func NewAdminGate(key string) *AdminGate {
	return &AdminGate{key: []byte(key)}
}

// Authorize reports whether suppliedKey matches the configured secret.
// The comparison is constant-time. An empty configured key denies everything.
func (g *AdminGate) Authorize(suppliedKey string) bool {
	if len(g.key) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare(g.key, []byte(suppliedKey)) == 1
}
