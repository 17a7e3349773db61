package authgate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
)

// IntentKey names the stored post-auth redirect.
const IntentKey = "postAuthRedirect"

var ErrNoIntent = errors.New("authgate: no redirect intent")

// IntentStore keeps one redirect path per visitor. Consume returns the
// value at most once and clears it; with nothing stored it returns
// ErrNoIntent. The gin context lets cookie-backed stores reach the response.
type IntentStore interface {
	Set(c *gin.Context, visitor, path string) error
	Consume(c *gin.Context, visitor string) (string, error)
}

// MemoryIntentStore is a process-local IntentStore.
type MemoryIntentStore struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	intents map[string]memoryIntent
}

type memoryIntent struct {
	path    string
	expires time.Time
}

func NewMemoryIntentStore(ttl time.Duration) *MemoryIntentStore {
	return &MemoryIntentStore{ttl: ttl, now: time.Now, intents: make(map[string]memoryIntent)}
}

func (m *MemoryIntentStore) Set(_ *gin.Context, visitor, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for k, v := range m.intents {
		if now.After(v.expires) {
			delete(m.intents, k)
		}
	}
	m.intents[visitor] = memoryIntent{path: path, expires: now.Add(m.ttl)}
	return nil
}

func (m *MemoryIntentStore) Consume(_ *gin.Context, visitor string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.intents[visitor]
	delete(m.intents, visitor)
	if !ok || m.now().After(v.expires) {
		return "", ErrNoIntent
	}
	return v.path, nil
}

// RedisIntentStore shares intents across instances. Consume uses GETDEL so
// two concurrent consumers cannot both read the value.
type RedisIntentStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisIntentStore(client *redis.Client, ttl time.Duration) *RedisIntentStore {
	return &RedisIntentStore{client: client, ttl: ttl}
}

func redisKey(visitor string) string {
	return "careerhub:" + IntentKey + ":" + visitor
}

func (r *RedisIntentStore) Set(c *gin.Context, visitor, path string) error {
	return r.client.Set(c.Request.Context(), redisKey(visitor), path, r.ttl).Err()
}

func (r *RedisIntentStore) Consume(c *gin.Context, visitor string) (string, error) {
	path, err := r.client.GetDel(c.Request.Context(), redisKey(visitor)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNoIntent
	}
	if err != nil {
		return "", fmt.Errorf("authgate: redis getdel: %w", err)
	}
	return path, nil
}

// Ping checks the Redis connection.
func (r *RedisIntentStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// CookieIntentStore keeps the intent in a short-lived signed cookie, so no
// server state is needed. The token is bound to the visitor ID.
type CookieIntentStore struct {
	key    []byte
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

const (
	intentCookie = "ch_redirect"
	// consumedKey marks the request cookie as spent for the rest of the request.
	consumedKey = "authgateIntentConsumed"
)

func NewCookieIntentStore(secret string, ttl time.Duration, secure bool) *CookieIntentStore {
	return &CookieIntentStore{key: []byte(secret), ttl: ttl, secure: secure, now: time.Now}
}

type intentClaims struct {
	Path string `json:"path"`
	jwt.RegisteredClaims
}

func (s *CookieIntentStore) Set(c *gin.Context, visitor, path string) error {
	now := s.now()
	claims := intentClaims{
		Path: path,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   visitor,
			Audience:  jwt.ClaimStrings{IntentKey},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return fmt.Errorf("authgate: sign intent: %w", err)
	}
	s.setCookie(c, token, int(s.ttl.Seconds()))
	return nil
}

func (s *CookieIntentStore) Consume(c *gin.Context, visitor string) (string, error) {
	if c.GetBool(consumedKey) {
		return "", ErrNoIntent
	}
	token, err := c.Cookie(intentCookie)
	if err != nil || token == "" {
		return "", ErrNoIntent
	}
	c.Set(consumedKey, true)
	s.setCookie(c, "", -1)

	claims := &intentClaims{}
	_, err = jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return s.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(IntentKey),
		jwt.WithSubject(visitor),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", ErrNoIntent
	}
	return claims.Path, nil
}

func (s *CookieIntentStore) setCookie(c *gin.Context, value string, maxAge int) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     intentCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

var (
	_ IntentStore = (*MemoryIntentStore)(nil)
	_ IntentStore = (*RedisIntentStore)(nil)
	_ IntentStore = (*CookieIntentStore)(nil)
)
