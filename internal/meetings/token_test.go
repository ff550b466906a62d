package meetings

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 2, 20, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type stubExchanger struct {
	mu    sync.Mutex
	calls int
	token string
	ttl   time.Duration
	err   error
}

func (s *stubExchanger) Exchange(ctx context.Context) (string, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return "", 0, s.err
	}
	return s.token, s.ttl, nil
}

func (s *stubExchanger) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestCredentialCache_ReusesTokenUntilSafetyMargin(t *testing.T) {
	clock := newFakeClock()
	ex := &stubExchanger{token: "tok-1", ttl: time.Hour}
	cache := NewCredentialCache(ex, nil, WithClock(clock.Now))
	ctx := context.Background()

	first := cache.Token(ctx)
	assert.Equal(t, "tok-1", first.Value)
	assert.False(t, first.Simulated)
	assert.Equal(t, clock.Now().Add(time.Hour), first.Expiry)

	clock.Advance(54 * time.Minute)
	assert.Equal(t, "tok-1", cache.Token(ctx).Value)
	assert.Equal(t, 1, ex.Calls())

	// inside the five minute safety margin
	clock.Advance(2 * time.Minute)
	ex.token = "tok-2"
	assert.Equal(t, "tok-2", cache.Token(ctx).Value)
	assert.Equal(t, 2, ex.Calls())
}

func TestCredentialCache_DegradesOnExchangeFailure(t *testing.T) {
	clock := newFakeClock()
	ex := &stubExchanger{err: errors.New("dial tcp: connection refused")}
	cache := NewCredentialCache(ex, nil, WithClock(clock.Now), WithSimulatedTTL(2*time.Minute))
	ctx := context.Background()

	tok := cache.Token(ctx)
	assert.True(t, tok.Simulated)
	assert.True(t, strings.HasPrefix(tok.Value, SimulatedTokenPrefix))
	assert.Equal(t, clock.Now().Add(2*time.Minute), tok.Expiry)

	// simulated token is reused for its own window
	clock.Advance(time.Minute)
	assert.Equal(t, tok.Value, cache.Token(ctx).Value)
	assert.Equal(t, 1, ex.Calls())

	// then the real exchange is retried
	clock.Advance(90 * time.Second)
	ex.mu.Lock()
	ex.err = nil
	ex.token = "recovered"
	ex.ttl = time.Hour
	ex.mu.Unlock()
	recovered := cache.Token(ctx)
	assert.False(t, recovered.Simulated)
	assert.Equal(t, "recovered", recovered.Value)
}

func TestCredentialCache_NilExchangerAlwaysSimulated(t *testing.T) {
	cache := NewCredentialCache(nil, nil)
	tok := cache.Token(context.Background())
	assert.True(t, tok.Simulated)
}

func TestCredentialCache_Invalidate(t *testing.T) {
	ex := &stubExchanger{token: "tok", ttl: time.Hour}
	cache := NewCredentialCache(ex, nil)
	ctx := context.Background()

	cache.Token(ctx)
	cache.Invalidate()
	cache.Token(ctx)
	assert.Equal(t, 2, ex.Calls())
}

func TestCredentialCache_ConcurrentRefreshTolerated(t *testing.T) {
	ex := &stubExchanger{token: "tok", ttl: time.Hour}
	cache := NewCredentialCache(ex, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, "tok", cache.Token(context.Background()).Value)
		}()
	}
	wg.Wait()
	assert.GreaterOrEqual(t, ex.Calls(), 1)
}

func TestClientCredentialsExchanger_AccountCredentialsGrant(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "client", user)
		assert.Equal(t, "secret", pass)
		assert.Equal(t, "account_credentials", r.PostForm.Get("grant_type"))
		assert.Equal(t, "acct-1", r.PostForm.Get("account_id"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "provider-token",
			"token_type":   "bearer",
			"expires_in":   3600,
		})
	}))
	defer server.Close()

	ex, err := NewClientCredentialsExchanger(ExchangerConfig{
		TokenURL:     server.URL,
		ClientID:     "client",
		ClientSecret: "secret",
		AccountID:    "acct-1",
	})
	require.NoError(t, err)

	value, ttl, err := ex.Exchange(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "provider-token", value)
	assert.InDelta(t, time.Hour.Seconds(), ttl.Seconds(), 5)
}

func TestClientCredentialsExchanger_UnauthorizedDegradesCache(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"reason":"Invalid client_id or client_secret","error":"invalid_client"}`))
	}))
	defer server.Close()

	ex, err := NewClientCredentialsExchanger(ExchangerConfig{
		TokenURL:     server.URL,
		ClientID:     "client",
		ClientSecret: "wrong",
	})
	require.NoError(t, err)

	_, _, exErr := ex.Exchange(context.Background())
	require.Error(t, exErr)
	assert.True(t, IsInvalidCredentials(exErr))

	tok := NewCredentialCache(ex, nil).Token(context.Background())
	assert.True(t, tok.Simulated)
}

func TestNewClientCredentialsExchanger_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  ExchangerConfig
	}{
		{"missing token url", ExchangerConfig{ClientID: "a", ClientSecret: "b"}},
		{"missing client id", ExchangerConfig{TokenURL: "https://x", ClientSecret: "b"}},
		{"missing client secret", ExchangerConfig{TokenURL: "https://x", ClientID: "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClientCredentialsExchanger(tt.cfg)
			assert.Error(t, err)
		})
	}
}

func setupTestRedis(t *testing.T) (*redis.Client, func()) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	return client, func() {
		client.Close()
		mr.Close()
	}
}

func TestCredentialCache_SharedRedisStore(t *testing.T) {
	redisClient, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()
	store := NewRedisTokenStore(redisClient, "")

	ex := &stubExchanger{token: "shared-tok", ttl: time.Hour}
	first := NewCredentialCache(ex, nil, WithTokenStore(store))
	assert.Equal(t, "shared-tok", first.Token(ctx).Value)

	// a second replica reads the stored token without exchanging
	otherEx := &stubExchanger{token: "other", ttl: time.Hour}
	second := NewCredentialCache(otherEx, nil, WithTokenStore(store))
	assert.Equal(t, "shared-tok", second.Token(ctx).Value)
	assert.Equal(t, 0, otherEx.Calls())

	ttl, err := redisClient.TTL(ctx, defaultTokenKey).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 50*time.Minute)
}

func TestRedisTokenStore_IgnoresSimulatedTokens(t *testing.T) {
	redisClient, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()
	store := NewRedisTokenStore(redisClient, "tokens:test")

	cache := NewCredentialCache(&stubExchanger{err: errors.New("boom")}, nil, WithTokenStore(store))
	assert.True(t, cache.Token(ctx).Simulated)

	_, ok, err := store.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}
