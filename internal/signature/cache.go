package signature

import (
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"sync"
	"time"
)

// RevocationCache stores revocation verification results keyed by certificate
// SHA-256 thumbprint. It is shared across request-handling goroutines; a hit
// avoids repeating the network-bound revocation check.
type RevocationCache struct {
	mu      sync.RWMutex
	entries map[string]revocationEntry
	ttl     time.Duration
}

type revocationEntry struct {
	revoked   bool
	expiresAt time.Time
}

// NewRevocationCache creates a cache with the given entry TTL. A zero TTL
// keeps entries for the process lifetime.
func NewRevocationCache(ttl time.Duration) *RevocationCache {
	return &RevocationCache{
		entries: make(map[string]revocationEntry),
		ttl:     ttl,
	}
}

// Thumbprint computes the SHA-256 thumbprint of a certificate.
func Thumbprint(cert *x509.Certificate) string {
	sum := sha256.Sum256(cert.Raw)
	return hex.EncodeToString(sum[:])
}

// Get returns the cached revocation result for a thumbprint.
func (c *RevocationCache) Get(thumbprint string) (revoked, found bool) {
	c.mu.RLock()
	entry, ok := c.entries[thumbprint]
	c.mu.RUnlock()

	if !ok {
		return false, false
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, thumbprint)
		c.mu.Unlock()
		return false, false
	}
	return entry.revoked, true
}

// Put stores a revocation result for a thumbprint.
func (c *RevocationCache) Put(thumbprint string, revoked bool) {
	entry := revocationEntry{revoked: revoked}
	if c.ttl > 0 {
		entry.expiresAt = time.Now().Add(c.ttl)
	}
	c.mu.Lock()
	c.entries[thumbprint] = entry
	c.mu.Unlock()
}
