package meetings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenStore shares real provider tokens between API replicas so each one
// does not run its own exchange. Simulated tokens are never stored.
type TokenStore interface {
	Load(ctx context.Context) (Token, bool, error)
	Save(ctx context.Context, tok Token, ttl time.Duration) error
}

const defaultTokenKey = "telecare:meetings:access_token"

// RedisTokenStore keeps the token under a single key with a matching TTL.
type RedisTokenStore struct {
	client *redis.Client
	key    string
}

func NewRedisTokenStore(client *redis.Client, key string) *RedisTokenStore {
	if client == nil {
		panic("meetings: redis client required")
	}
	if key == "" {
		key = defaultTokenKey
	}
	return &RedisTokenStore{client: client, key: key}
}

type storedToken struct {
	AccessToken string    `json:"access_token"`
	Expiry      time.Time `json:"expiry"`
}

func (s *RedisTokenStore) Load(ctx context.Context) (Token, bool, error) {
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Token{}, false, nil
	}
	if err != nil {
		return Token{}, false, fmt.Errorf("meetings: load shared token: %w", err)
	}
	var st storedToken
	if err := json.Unmarshal(raw, &st); err != nil {
		return Token{}, false, fmt.Errorf("meetings: decode shared token: %w", err)
	}
	if st.AccessToken == "" {
		return Token{}, false, nil
	}
	return Token{Value: st.AccessToken, Expiry: st.Expiry}, true, nil
}

func (s *RedisTokenStore) Save(ctx context.Context, tok Token, ttl time.Duration) error {
	if tok.Simulated || tok.Value == "" || ttl <= 0 {
		return nil
	}
	raw, err := json.Marshal(storedToken{AccessToken: tok.Value, Expiry: tok.Expiry})
	if err != nil {
		return fmt.Errorf("meetings: encode shared token: %w", err)
	}
	if err := s.client.Set(ctx, s.key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("meetings: save shared token: %w", err)
	}
	return nil
}
