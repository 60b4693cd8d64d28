package service

import (
	"crypto/sha256"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/yndnr/meshview-go/internal/core/domain"
)

// DefaultAuthCacheTTL is how long a verified token skips bcrypt.
const DefaultAuthCacheTTL = time.Minute

// IngestAuth checks the bearer token of ingest requests against a bcrypt
// hash. Successful verifications are cached by token digest because bcrypt
// is deliberately slow.
type IngestAuth struct {
	hash []byte
	ttl  time.Duration
	now  func() time.Time

	mu       sync.Mutex
	verified map[[sha256.Size]byte]time.Time
}

// NewIngestAuth creates the checker. An empty hash disables authentication.
func NewIngestAuth(hash string, ttl time.Duration) *IngestAuth {
	if ttl <= 0 {
		ttl = DefaultAuthCacheTTL
	}
	return &IngestAuth{
		hash:     []byte(hash),
		ttl:      ttl,
		now:      time.Now,
		verified: make(map[[sha256.Size]byte]time.Time),
	}
}

// Enabled reports whether a token is required.
func (a *IngestAuth) Enabled() bool {
	return a != nil && len(a.hash) > 0
}

// Verify checks token. It returns nil when authentication is disabled.
func (a *IngestAuth) Verify(token string) error {
	if !a.Enabled() {
		return nil
	}
	if token == "" {
		return domain.ErrTokenMissing
	}

	digest := sha256.Sum256([]byte(token))
	now := a.now()

	a.mu.Lock()
	exp, ok := a.verified[digest]
	a.mu.Unlock()
	if ok && now.Before(exp) {
		return nil
	}

	if err := bcrypt.CompareHashAndPassword(a.hash, []byte(token)); err != nil {
		return domain.ErrTokenInvalid
	}

	a.mu.Lock()
	a.verified[digest] = now.Add(a.ttl)
	for k, e := range a.verified {
		if !now.Before(e) {
			delete(a.verified, k)
		}
	}
	a.mu.Unlock()
	return nil
}

// HashToken returns a bcrypt hash suitable for security.ingest_token_hash.
func HashToken(token string) (string, error) {
	if token == "" {
		return "", domain.ErrMissingArgument.WithDetails("token is empty")
	}
	h, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}
