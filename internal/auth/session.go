package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kidsquiz/quiz-server/internal/domain"
	"github.com/kidsquiz/quiz-server/internal/platform/cache"
)

// ErrNoSession is returned when a token is unknown or expired.
var ErrNoSession = &domain.AuthError{Msg: "session expired or unknown"}

const sessionKeyPrefix = "session:"

// SessionStore maps bearer tokens to identities for the session's lifetime.
type SessionStore interface {
	// Open mints a token for the identity, valid for ttl.
	Open(ctx context.Context, id domain.Identity, ttl time.Duration) (string, error)
	// Resolve returns the identity behind a token, or ErrNoSession.
	Resolve(ctx context.Context, token string) (domain.Identity, error)
	// Close invalidates a token. Closing an unknown token is not an error.
	Close(ctx context.Context, token string) error
}

// RedisSessions stores sessions in Redis so expiry rides on key TTLs and
// sessions survive server restarts.
type RedisSessions struct {
	cache *cache.Cache
}

// NewRedisSessions creates a Redis-backed session store.
func NewRedisSessions(c *cache.Cache) *RedisSessions {
	return &RedisSessions{cache: c}
}

func (s *RedisSessions) Open(ctx context.Context, id domain.Identity, ttl time.Duration) (string, error) {
	token, err := newToken()
	if err != nil {
		return "", err
	}
	payload, err := json.Marshal(id)
	if err != nil {
		return "", fmt.Errorf("encoding session: %w", err)
	}
	if err := s.cache.Set(ctx, sessionKeyPrefix+token, payload, ttl); err != nil {
		return "", domain.Storage("store session", err)
	}
	return token, nil
}

func (s *RedisSessions) Resolve(ctx context.Context, token string) (domain.Identity, error) {
	payload, err := s.cache.Get(ctx, sessionKeyPrefix+token)
	if errors.Is(err, redis.Nil) {
		return domain.Identity{}, ErrNoSession
	}
	if err != nil {
		return domain.Identity{}, domain.Storage("load session", err)
	}
	var id domain.Identity
	if err := json.Unmarshal(payload, &id); err != nil {
		return domain.Identity{}, domain.Storage("decode session", err)
	}
	return id, nil
}

func (s *RedisSessions) Close(ctx context.Context, token string) error {
	if err := s.cache.Delete(ctx, sessionKeyPrefix+token); err != nil {
		return domain.Storage("drop session", err)
	}
	return nil
}

// newToken returns 32 bytes of hex-encoded randomness.
func newToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating session token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// MemorySessions is an in-memory SessionStore for tests. Expiry is checked
// lazily on Resolve.
type MemorySessions struct {
	mu       sync.RWMutex
	sessions map[string]memorySession
	now      func() time.Time
}

type memorySession struct {
	id      domain.Identity
	expires time.Time
}

// NewMemorySessions creates an empty in-memory session store.
func NewMemorySessions() *MemorySessions {
	return &MemorySessions{sessions: make(map[string]memorySession), now: time.Now}
}

func (s *MemorySessions) Open(_ context.Context, id domain.Identity, ttl time.Duration) (string, error) {
	token, err := newToken()
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.sessions[token] = memorySession{id: id, expires: s.now().Add(ttl)}
	s.mu.Unlock()
	return token, nil
}

func (s *MemorySessions) Resolve(_ context.Context, token string) (domain.Identity, error) {
	s.mu.RLock()
	sess, ok := s.sessions[token]
	s.mu.RUnlock()
	if !ok || s.now().After(sess.expires) {
		return domain.Identity{}, ErrNoSession
	}
	return sess.id, nil
}

func (s *MemorySessions) Close(_ context.Context, token string) error {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
	return nil
}
