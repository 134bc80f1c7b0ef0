// Package fetch provides the sources the leaderboard collection is loaded from.
package fetch

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/yourorg/trader-leaderboard/internal/config"
	"github.com/yourorg/trader-leaderboard/internal/model"
)

// Source defines the interface every trader source implements
type Source interface {
	// Fetch retrieves the full trader collection
	Fetch(ctx context.Context) ([]model.Trader, error)

	// Name identifies the source in logs and metrics
	Name() string
}

// NewSource picks a source from configuration: the embedded fixture when no
// location is set, an HTTP source for http(s) URLs, a file otherwise. With
// Fallback set a failing configured source falls back to the embedded
// fixture. A positive cache TTL wraps the result in a CachedSource.
func NewSource(cfg config.DataConfig) Source {
	var src Source
	switch loc := strings.TrimSpace(cfg.Source); {
	case loc == "":
		src = NewEmbeddedSource()
	case strings.HasPrefix(loc, "http://"), strings.HasPrefix(loc, "https://"):
		src = NewHTTPSource(loc, cfg.APIKey)
	default:
		src = NewFileSource(loc)
	}
	if cfg.Fallback && strings.TrimSpace(cfg.Source) != "" {
		src = NewFallbackSource(src, NewEmbeddedSource())
	}

	if cfg.CacheTTL > 0 {
		return NewCachedSource(src, cfg.CacheTTL)
	}
	return src
}

// newRetryClient creates a new HTTP client with retry capabilities
func newRetryClient() *retryablehttp.Client {
	c := retryablehttp.NewClient()
	c.RetryMax = 3
	c.RetryWaitMin = 500 * time.Millisecond
	c.RetryWaitMax = 3 * time.Second
	c.Logger = nil
	return c
}

// StandardClient converts a retryablehttp.Client to a standard http.Client
func StandardClient(retryClient *retryablehttp.Client) *http.Client {
	return retryClient.StandardClient()
}
