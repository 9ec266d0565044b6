package fcm

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"

	"github.com/olahtaxi/taxirelay/internal/provider/resilience"
)

// Token exchange constants.
const (
	// MessagingScope is the OAuth scope required by the FCM HTTP v1 API.
	MessagingScope = "https://www.googleapis.com/auth/firebase.messaging"

	// AssertionLifetime is the validity of the signed assertion presented to the token endpoint.
	AssertionLifetime = time.Hour

	// RefreshSkew is how long before expiry a cached token is considered stale.
	RefreshSkew = 60 * time.Second

	jwtBearerGrant = "urn:ietf:params:oauth:grant-type:jwt-bearer"
	maxTokenBody   = 64 << 10
)

// AccessToken is a bearer token returned by the token endpoint.
type AccessToken struct {
	Value     string
	ExpiresAt time.Time
}

// TokenProvider yields a bearer token for the messaging API.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// TokenSourceConfig holds configuration for the TokenSource.
type TokenSourceConfig struct {
	Account *ServiceAccount

	// Client performs the exchange. Required.
	Client *resilience.Client

	// Scope requested for the token.
	// Default: MessagingScope
	Scope string

	// Timeout bounds one exchange independently of the caller that triggered it.
	// Default: 5 seconds
	Timeout time.Duration

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// TokenSource caches an access token and refreshes it shortly before expiry.
// Concurrent callers needing a refresh share one exchange.
type TokenSource struct {
	account *ServiceAccount
	key     *rsa.PrivateKey
	client  *resilience.Client
	scope   string
	timeout time.Duration
	now     func() time.Time

	mu     sync.Mutex
	cached *AccessToken

	group     singleflight.Group
	exchanges atomic.Int64
}

// NewTokenSource validates the account and parses its signing key.
func NewTokenSource(cfg TokenSourceConfig) (*TokenSource, error) {
	if cfg.Account == nil {
		return nil, fmt.Errorf("token source: service account is required")
	}
	if err := cfg.Account.Validate(); err != nil {
		return nil, err
	}
	key, err := cfg.Account.RSAKey()
	if err != nil {
		return nil, err
	}
	if cfg.Client == nil {
		cfg.Client = resilience.NewClient(resilience.DefaultClientConfig("fcm-token"))
	}
	if cfg.Scope == "" {
		cfg.Scope = MessagingScope
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = resilience.DefaultTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &TokenSource{
		account: cfg.Account,
		key:     key,
		client:  cfg.Client,
		scope:   cfg.Scope,
		timeout: cfg.Timeout,
		now:     cfg.Now,
	}, nil
}

// Token returns a cached token or performs an exchange.
// Cancelling ctx abandons the wait but not an exchange other callers may be sharing.
func (s *TokenSource) Token(ctx context.Context) (string, error) {
	if tok, ok := s.fresh(); ok {
		return tok, nil
	}

	ch := s.group.DoChan("token", func() (any, error) {
		if tok, ok := s.fresh(); ok {
			return tok, nil
		}

		exCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()

		tok, err := s.exchange(exCtx)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		s.cached = tok
		s.mu.Unlock()
		return tok.Value, nil
	})

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %w", ErrAuthExchange, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// Exchanges returns how many token exchanges have been attempted.
func (s *TokenSource) Exchanges() int64 {
	return s.exchanges.Load()
}

func (s *TokenSource) fresh() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached == nil || !s.now().Add(RefreshSkew).Before(s.cached.ExpiresAt) {
		return "", false
	}
	return s.cached.Value, true
}

func (s *TokenSource) assertion(now time.Time) (string, error) {
	claims := jwt.MapClaims{
		"iss":   s.account.ClientEmail,
		"scope": s.scope,
		"aud":   s.account.TokenURI,
		"iat":   now.Unix(),
		"exp":   now.Add(AssertionLifetime).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(s.key)
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

func (s *TokenSource) exchange(ctx context.Context) (*AccessToken, error) {
	s.exchanges.Add(1)
	issuedAt := s.now()

	signed, err := s.assertion(issuedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: sign assertion: %w", ErrAuthExchange, err)
	}

	form := url.Values{
		"grant_type": {jwtBearerGrant},
		"assertion":  {signed},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.account.TokenURI, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", ErrAuthExchange, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAuthExchange, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenBody))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", ErrAuthExchange, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d: %s", ErrAuthExchange, resp.StatusCode, body)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", ErrAuthExchange, err)
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("%w: empty access_token", ErrAuthExchange)
	}

	lifetime := time.Duration(tr.ExpiresIn) * time.Second
	if lifetime <= 0 {
		lifetime = AssertionLifetime
	}
	return &AccessToken{Value: tr.AccessToken, ExpiresAt: issuedAt.Add(lifetime)}, nil
}
