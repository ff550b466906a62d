package meetings

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/wolfman30/telecare-appointments/internal/observability/metrics"
	"github.com/wolfman30/telecare-appointments/pkg/logging"
)

// SimulatedTokenPrefix marks locally generated degraded-mode tokens.
const SimulatedTokenPrefix = "simulated_"

const (
	defaultSafetyMargin = 5 * time.Minute
	defaultSimulatedTTL = 10 * time.Minute
	defaultProviderTTL  = time.Hour
)

// Token is a provider access token and the instant it stops being valid.
type Token struct {
	Value     string
	Expiry    time.Time
	Simulated bool
}

// TokenExchanger performs the provider's client-credentials exchange.
type TokenExchanger interface {
	Exchange(ctx context.Context) (accessToken string, ttl time.Duration, err error)
}

// ExchangerConfig holds the provider OAuth settings.
type ExchangerConfig struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	// AccountID switches to Zoom's account_credentials grant.
	AccountID  string
	HTTPClient *http.Client
}

// ClientCredentialsExchanger exchanges client credentials for an access token.
type ClientCredentialsExchanger struct {
	conf       *clientcredentials.Config
	httpClient *http.Client
}

func NewClientCredentialsExchanger(cfg ExchangerConfig) (*ClientCredentialsExchanger, error) {
	if cfg.TokenURL == "" {
		return nil, fmt.Errorf("meetings: TokenURL is required")
	}
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("meetings: ClientID is required")
	}
	if cfg.ClientSecret == "" {
		return nil, fmt.Errorf("meetings: ClientSecret is required")
	}

	conf := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	if cfg.AccountID != "" {
		conf.EndpointParams = url.Values{
			"grant_type": {"account_credentials"},
			"account_id": {cfg.AccountID},
		}
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &ClientCredentialsExchanger{conf: conf, httpClient: httpClient}, nil
}

func (e *ClientCredentialsExchanger) Exchange(ctx context.Context) (string, time.Duration, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, e.httpClient)
	tok, err := e.conf.Token(ctx)
	if err != nil {
		return "", 0, fmt.Errorf("meetings: token exchange: %w", err)
	}
	ttl := defaultProviderTTL
	if !tok.Expiry.IsZero() {
		ttl = time.Until(tok.Expiry)
	}
	return tok.AccessToken, ttl, nil
}

// IsInvalidCredentials reports whether err is a 401 from the token endpoint.
func IsInvalidCredentials(err error) bool {
	var rErr *oauth2.RetrieveError
	if errors.As(err, &rErr) && rErr.Response != nil {
		return rErr.Response.StatusCode == http.StatusUnauthorized
	}
	return false
}

// CredentialCache hands out provider tokens, refreshing them ahead of expiry.
// It never fails: when the exchange fails it falls back to a short-lived
// simulated token so callers can switch to simulated meetings.
type CredentialCache struct {
	exchanger    TokenExchanger
	store        TokenStore
	safetyMargin time.Duration
	simulatedTTL time.Duration
	now          func() time.Time
	logger       *logging.Logger
	metrics      *metrics.ProvisioningMetrics

	mu    sync.Mutex
	token Token
}

// CacheOption customizes a CredentialCache.
type CacheOption func(*CredentialCache)

// WithSafetyMargin sets how long before expiry a token is refreshed.
func WithSafetyMargin(d time.Duration) CacheOption {
	return func(c *CredentialCache) {
		if d >= 0 {
			c.safetyMargin = d
		}
	}
}

// WithSimulatedTTL sets the validity of degraded-mode tokens.
func WithSimulatedTTL(d time.Duration) CacheOption {
	return func(c *CredentialCache) {
		if d > 0 {
			c.simulatedTTL = d
		}
	}
}

// WithTokenStore shares real tokens across processes.
func WithTokenStore(store TokenStore) CacheOption {
	return func(c *CredentialCache) {
		c.store = store
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) CacheOption {
	return func(c *CredentialCache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithCacheMetrics records token refresh outcomes.
func WithCacheMetrics(m *metrics.ProvisioningMetrics) CacheOption {
	return func(c *CredentialCache) {
		c.metrics = m
	}
}

// NewCredentialCache builds a cache around exchanger. A nil exchanger means
// every token is simulated.
func NewCredentialCache(exchanger TokenExchanger, logger *logging.Logger, opts ...CacheOption) *CredentialCache {
	if logger == nil {
		logger = logging.Default()
	}
	c := &CredentialCache{
		exchanger:    exchanger,
		safetyMargin: defaultSafetyMargin,
		simulatedTTL: defaultSimulatedTTL,
		now:          time.Now,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token returns a usable token. Concurrent refreshes are not deduplicated;
// the last exchange to finish wins.
func (c *CredentialCache) Token(ctx context.Context) Token {
	now := c.now()

	c.mu.Lock()
	cached := c.token
	c.mu.Unlock()
	if c.usable(cached, now) {
		return cached
	}

	if tok, ok := c.loadShared(ctx, now); ok {
		c.set(tok)
		return tok
	}

	if c.exchanger == nil {
		return c.degrade(now, errors.New("no token exchanger configured"))
	}

	value, ttl, err := c.exchanger.Exchange(ctx)
	if err != nil {
		return c.degrade(now, err)
	}
	if ttl <= 0 {
		ttl = defaultProviderTTL
	}

	tok := Token{Value: value, Expiry: now.Add(ttl)}
	c.set(tok)
	c.metrics.ObserveTokenRefresh("provider", metrics.OutcomeSuccess)

	if c.store != nil {
		if err := c.store.Save(ctx, tok, ttl); err != nil {
			c.logger.Warn("failed to share meeting provider token", "error", err)
		}
	}
	return tok
}

// Invalidate drops the cached token, e.g. after the provider answered 401.
func (c *CredentialCache) Invalidate() {
	c.mu.Lock()
	c.token = Token{}
	c.mu.Unlock()
}

func (c *CredentialCache) usable(tok Token, now time.Time) bool {
	if tok.Value == "" {
		return false
	}
	if tok.Simulated {
		return now.Before(tok.Expiry)
	}
	return now.Before(tok.Expiry.Add(-c.safetyMargin))
}

func (c *CredentialCache) loadShared(ctx context.Context, now time.Time) (Token, bool) {
	if c.store == nil {
		return Token{}, false
	}
	tok, ok, err := c.store.Load(ctx)
	if err != nil {
		c.logger.Warn("failed to read shared meeting provider token", "error", err)
		return Token{}, false
	}
	if !ok || !c.usable(tok, now) {
		return Token{}, false
	}
	c.metrics.ObserveTokenRefresh("shared", metrics.OutcomeSuccess)
	return tok, true
}

func (c *CredentialCache) degrade(now time.Time, cause error) Token {
	if IsInvalidCredentials(cause) {
		c.logger.Error("meeting provider rejected client credentials, using simulated meetings", "error", cause)
	} else {
		c.logger.Warn("meeting provider token exchange failed, using simulated meetings", "error", cause)
	}
	tok := Token{
		Value:     SimulatedTokenPrefix + strings.ReplaceAll(uuid.NewString(), "-", ""),
		Expiry:    now.Add(c.simulatedTTL),
		Simulated: true,
	}
	c.set(tok)
	c.metrics.ObserveTokenRefresh("provider", metrics.OutcomeSimulated)
	return tok
}

func (c *CredentialCache) set(tok Token) {
	c.mu.Lock()
	c.token = tok
	c.mu.Unlock()
}
