// Package clients holds the HTTP clients of the services the transcoder
// depends on.
package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	gocache "github.com/patrickmn/go-cache"

	"github.com/strmhub/transcoder/config"
	"github.com/strmhub/transcoder/log"
)

// ErrNotFound is returned when the API does not know the requested slug.
var ErrNotFound = errors.New("resource not found")

const (
	pathCacheExpiry = 5 * time.Minute
	maxRetries      = 3
	retryInterval   = 500 * time.Millisecond
	resolveTimeout  = 10 * time.Second
)

// APIClient resolves (resource, slug) pairs against the metadata API.
// Resolved paths are memoized, a playback session hits the same slug for
// every playlist and segment request.
type APIClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	pathCache  *gocache.Cache
}

func NewAPIClient(cli config.Cli) (*APIClient, error) {
	apiKey, err := cli.FirstAPIKey()
	if err != nil {
		return nil, err
	}
	return &APIClient{
		baseURL:    cli.APIURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: resolveTimeout},
		pathCache:  gocache.New(pathCacheExpiry, 2*pathCacheExpiry),
	}, nil
}

// GetPath asks the API where the file behind (resource, slug) lives on
// disk. Transient upstream failures are retried, a 404 is not.
func (c *APIClient) GetPath(ctx context.Context, requestID, resource, slug string) (string, error) {
	cacheKey := resource + "/" + slug
	if cached, ok := c.pathCache.Get(cacheKey); ok {
		return cached.(string), nil
	}

	endpoint := fmt.Sprintf("%s/%s/%s", c.baseURL, url.PathEscape(resource), url.PathEscape(slug))
	var resolved string
	resolve := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("X-API-KEY", c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			log.Log(requestID, "error resolving slug", "url", endpoint, "err", err)
			return err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return backoff.Permanent(ErrNotFound)
		case resp.StatusCode != http.StatusOK:
			return fmt.Errorf("unexpected status %d resolving %s", resp.StatusCode, cacheKey)
		}

		var body struct {
			Path string `json:"path"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return backoff.Permanent(fmt.Errorf("decoding resolve response: %w", err))
		}
		if body.Path == "" {
			return backoff.Permanent(fmt.Errorf("api returned no path for %s", cacheKey))
		}
		resolved = body.Path
		return nil
	}

	policy := backoff.WithMaxRetries(backoff.NewConstantBackOff(retryInterval), maxRetries)
	if err := backoff.Retry(resolve, backoff.WithContext(policy, ctx)); err != nil {
		return "", err
	}
	c.pathCache.SetDefault(cacheKey, resolved)
	return resolved, nil
}
