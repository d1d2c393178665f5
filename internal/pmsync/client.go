// Package pmsync reconciles externally-managed project data into local
// records. Merges are keyed on stable external IDs and resolved by
// last-modified comparison, which makes the whole process idempotent and safe
// to retry after partial failures.
package pmsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/sitepulse/sitepulse-backend-go/internal/config"
)

// ErrTokenExpired means the access credential could not be refreshed; the run
// fails and the next cadence tick retries from scratch.
var ErrTokenExpired = errors.New("external PM credential expired and refresh failed")

// ExternalRecord is one task as reported by the external PM system.
type ExternalRecord struct {
	ExternalID      string     `json:"external_id"`
	Name            string     `json:"name"`
	PlannedStart    time.Time  `json:"planned_start"`
	PlannedEnd      time.Time  `json:"planned_end"`
	ActualStart     *time.Time `json:"actual_start,omitempty"`
	ActualEnd       *time.Time `json:"actual_end,omitempty"`
	PercentComplete float64    `json:"percent_complete"`
	ResourceID      string     `json:"resource_id"`
	SiteLat         float64    `json:"site_lat"`
	SiteLng         float64    `json:"site_lng"`
	PlannedHours    float64    `json:"planned_hours"`
	ActualHours     float64    `json:"actual_hours"`
	ModifiedAt      time.Time  `json:"modified_at"`
}

// Page is one page of changed records plus the cursor for the next page.
// An empty NextCursor ends pagination.
type Page struct {
	Records    []ExternalRecord `json:"records"`
	NextCursor string           `json:"next_cursor"`
}

// Client fetches changed records from the external PM system.
type Client interface {
	FetchChangedSince(ctx context.Context, projectExternalID, cursor string) (*Page, error)
}

// HTTPClient talks to the external PM system over its REST API with an
// OAuth2 client-credentials token.
type HTTPClient struct {
	baseURL  string
	pageSize int
	http     *http.Client

	creds  *clientcredentials.Config
	source oauth2.TokenSource
}

// NewHTTPClient creates a client for the configured external PM system.
func NewHTTPClient(cfg config.SyncConfig) *HTTPClient {
	creds := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
	}

	return &HTTPClient{
		baseURL:  cfg.BaseURL,
		pageSize: cfg.PageSize,
		http:     &http.Client{Timeout: 30 * time.Second},
		creds:    creds,
		source:   creds.TokenSource(context.Background()),
	}
}

// FetchChangedSince fetches one page of changed records. On an auth failure
// it forces exactly one token refresh and retries once; a second auth failure
// returns ErrTokenExpired without looping.
func (c *HTTPClient) FetchChangedSince(ctx context.Context, projectExternalID, cursor string) (*Page, error) {
	page, status, err := c.fetch(ctx, projectExternalID, cursor)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized {
		// Drop the cached token and mint a fresh one
		c.source = c.creds.TokenSource(ctx)

		page, status, err = c.fetch(ctx, projectExternalID, cursor)
		if err != nil {
			return nil, err
		}
		if status == http.StatusUnauthorized {
			return nil, ErrTokenExpired
		}
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("external PM system returned status %d", status)
	}

	return page, nil
}

func (c *HTTPClient) fetch(ctx context.Context, projectExternalID, cursor string) (*Page, int, error) {
	token, err := c.source.Token()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to obtain access token: %w", err)
	}

	endpoint := fmt.Sprintf("%s/projects/%s/tasks/changes", c.baseURL, url.PathEscape(projectExternalID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build request: %w", err)
	}

	q := req.URL.Query()
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	q.Set("limit", fmt.Sprintf("%d", c.pageSize))
	req.URL.RawQuery = q.Encode()
	token.SetAuthHeader(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch changes: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, nil
	}

	var page Page
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, 0, fmt.Errorf("failed to decode page: %w", err)
	}

	return &page, resp.StatusCode, nil
}
