package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/yourorg/trader-leaderboard/internal/model"
)

// HTTPSource fetches the trader document from a remote endpoint with
// retries.
type HTTPSource struct {
	url        string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPSource creates a source for url. apiKey, when set, is sent as a
// bearer token.
func NewHTTPSource(url, apiKey string) *HTTPSource {
	return &HTTPSource{
		url:        url,
		apiKey:     apiKey,
		httpClient: StandardClient(newRetryClient()),
	}
}

// WithHTTPClient replaces the retrying client, mainly for tests.
func (s *HTTPSource) WithHTTPClient(c *http.Client) *HTTPSource {
	s.httpClient = c
	return s
}

// Fetch retrieves and decodes the remote document.
func (s *HTTPSource) Fetch(ctx context.Context) ([]model.Trader, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	logrus.Debugf("Fetching traders from %s", s.url)
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error fetching traders: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("trader source error: status %d, body: %s", resp.StatusCode, string(body))
	}

	return Decode(resp.Body)
}

func (s *HTTPSource) Name() string { return "http" }
