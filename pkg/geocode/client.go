// Package geocode resolves free-form addresses to coordinates through the
// Google Geocoding API.
package geocode

import (
	"context"
	"crypto/sha256"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/tres-passos/marketplace/internal/resilience"
)

// Client geocodes addresses.
type Client interface {
	// Geocode resolves addr. An address Google cannot place returns
	// Result{Matched: false} and a nil error.
	Geocode(ctx context.Context, addr AddressInput) (*Result, error)
}

// AddressInput is an address to geocode.
type AddressInput struct {
	Line       string // "Rua X, 10, Centro, São Paulo, SP, 01001-000"
	PostalCode string // optional; narrows the search
}

// Result is a geocoding outcome.
type Result struct {
	Latitude         float64
	Longitude        float64
	FormattedAddress string
	Quality          string // "rooftop", "range", "centroid", "approximate"
	Matched          bool
}

// Outcome labels reported to the outcome hook.
const (
	OutcomeMatched   = "matched"
	OutcomeUnmatched = "unmatched"
	OutcomeError     = "error"
	OutcomeCached    = "cached"
)

// Option configures the geocoder.
type Option func(*geocoder)

// WithGoogleAPIKey sets the Geocoding API key. Without one every lookup fails.
func WithGoogleAPIKey(key string) Option {
	return func(g *geocoder) { g.googleKey = key }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(g *geocoder) { g.httpClient = hc }
}

// WithRateLimit caps outbound requests per second.
func WithRateLimit(rps float64) Option {
	return func(g *geocoder) {
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithRegion biases results toward a ccTLD region such as "br".
func WithRegion(region string) Option {
	return func(g *geocoder) { g.region = region }
}

// WithCacheTTL keeps results in memory for ttl. Zero disables caching.
func WithCacheTTL(ttl time.Duration) Option {
	return func(g *geocoder) { g.cacheTTL = ttl }
}

// WithRetry sets the retry policy for transient upstream failures.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(g *geocoder) { g.retry = cfg }
}

// WithBreaker replaces the default circuit breaker.
func WithBreaker(cb *resilience.CircuitBreaker) Option {
	return func(g *geocoder) { g.breaker = cb }
}

// WithOutcomeHook is called once per Geocode call with one of the Outcome
// labels.
func WithOutcomeHook(fn func(outcome string)) Option {
	return func(g *geocoder) { g.onOutcome = fn }
}

type geocoder struct {
	httpClient *http.Client
	googleKey  string
	region     string
	limiter    *rate.Limiter
	retry      resilience.RetryConfig
	breaker    *resilience.CircuitBreaker
	cacheTTL   time.Duration
	cache      *cache.Cache
	onOutcome  func(string)
}

// NewClient returns a Google-backed Client.
func NewClient(opts ...Option) Client {
	g := &geocoder{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(10, 10),
		retry:      resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.breaker == nil {
		g.breaker = resilience.NewCircuitBreaker(resilience.BreakerConfig{
			Threshold: 5,
			Cooldown:  30 * time.Second,
			OnStateChange: func(from, to resilience.CircuitState) {
				zap.L().Warn("geocode: circuit state changed",
					zap.String("from", from.String()),
					zap.String("to", to.String()),
				)
			},
		})
	}
	if g.retry.OnRetry == nil {
		g.retry.OnRetry = resilience.LogRetry("google", "geocode")
	}
	if g.cacheTTL > 0 {
		g.cache = cache.New(g.cacheTTL, 2*g.cacheTTL)
	}
	return g
}

func (g *geocoder) Geocode(ctx context.Context, addr AddressInput) (*Result, error) {
	if strings.TrimSpace(addr.Line) == "" {
		return nil, eris.New("geocode: empty address")
	}

	key := cacheKey(addr)
	if g.cache != nil {
		if v, ok := g.cache.Get(key); ok {
			g.report(OutcomeCached)
			r := v.(Result)
			return &r, nil
		}
	}

	result, err := resilience.ExecuteVal(ctx, g.breaker, func(ctx context.Context) (*Result, error) {
		return resilience.DoVal(ctx, g.retry, func(ctx context.Context) (*Result, error) {
			return g.geocodeGoogle(ctx, addr)
		})
	})
	if err != nil {
		g.report(OutcomeError)
		return nil, err
	}

	if result.Matched {
		g.report(OutcomeMatched)
	} else {
		g.report(OutcomeUnmatched)
	}
	if g.cache != nil {
		g.cache.SetDefault(key, *result)
	}
	return result, nil
}

func (g *geocoder) report(outcome string) {
	if g.onOutcome != nil {
		g.onOutcome(outcome)
	}
}

// cacheKey hashes the normalized address.
func cacheKey(addr AddressInput) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(addr.Line), " ")) +
		"|" + strings.TrimSpace(addr.PostalCode)
	return fmt.Sprintf("%x", sha256.Sum256([]byte(normalized)))
}
