// Package search is the client for the external route-search service, which
// owns computed multi-leg routes and their precomputed pricing. The booking
// core only ever asks it to expand a computed identifier into its ordered
// leg list and per-seat price.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrRouteNotFound is returned when the service does not know the
// identifier.
var ErrRouteNotFound = errors.New("search: route not found")

// Route is a computed route expansion.
type Route struct {
	RouteID   string   `json:"route_id"`
	Legs      []string `json:"legs"`
	UnitPrice float64  `json:"unit_price"`
}

// Config holds configuration for the search client
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client calls the route-search service.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a search client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// ResolveRoute expands a computed route identifier into its leg list and
// per-seat price.
func (c *Client) ResolveRoute(ctx context.Context, routeID string) (*Route, error) {
	url := fmt.Sprintf("%s/v1/routes/%s", c.baseURL, routeID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build route request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrRouteNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search service returned status %d", resp.StatusCode)
	}

	var route Route
	if err := json.NewDecoder(resp.Body).Decode(&route); err != nil {
		return nil, fmt.Errorf("failed to decode route response: %w", err)
	}
	if len(route.Legs) == 0 {
		return nil, fmt.Errorf("search service returned route %s with no legs", routeID)
	}
	return &route, nil
}
