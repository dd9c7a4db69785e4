// Package catalog provides the HTTP client for the restaurant back-office
// catalog collaborator: authoritative items, option sets and toppings.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tablelink/ordergate/internal/models"
)

// DefaultTimeout bounds every catalog call; a hung back-office must surface
// as a retryable failure, not a stuck conversation.
const DefaultTimeout = 15 * time.Second

// Provider is the catalog contract consumed by the engine.
type Provider interface {
	// GetItems returns the catalog for a revenue center; when itemIDs is
	// non-empty only those items are returned.
	GetItems(ctx context.Context, restaurantID, revenueCenterID string, itemIDs []string) ([]models.CatalogItem, error)

	// GetToppings returns the toppings of a topping class at a revenue
	// center.
	GetToppings(ctx context.Context, toppingClassID, revenueCenterID string) ([]models.ToppingItem, error)

	// GetRevenueCenters returns the selectable locations of a restaurant.
	GetRevenueCenters(ctx context.Context, restaurantID string) ([]models.RevenueCenter, error)
}

// Opts holds configuration options for the catalog client.
type Opts struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Option defines a configuration option for the catalog client.
type Option func(*Opts)

// WithBaseURL sets the back-office base URL.
func WithBaseURL(u string) Option {
	return func(o *Opts) { o.BaseURL = u }
}

// WithAPIKey sets the back-office API key.
func WithAPIKey(k string) Option {
	return func(o *Opts) { o.APIKey = k }
}

// WithTimeout overrides the request timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *Opts) { o.Timeout = d }
}

// Client is the HTTP implementation of Provider.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a catalog client.
func NewClient(opts ...Option) (*Client, error) {
	cfg := Opts{Timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("catalog base URL not set")
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// GetItems fetches catalog items for a revenue center.
func (c *Client) GetItems(ctx context.Context, restaurantID, revenueCenterID string, itemIDs []string) ([]models.CatalogItem, error) {
	q := url.Values{}
	q.Set("revenue_center_id", revenueCenterID)
	if len(itemIDs) > 0 {
		q.Set("item_ids", strings.Join(itemIDs, ","))
	}
	endpoint := fmt.Sprintf("%s/restaurants/%s/items?%s", c.baseURL, url.PathEscape(restaurantID), q.Encode())

	var items []models.CatalogItem
	if err := c.getJSON(ctx, endpoint, &items); err != nil {
		slog.Error("Catalog GetItems failed", "error", err, "restaurantID", restaurantID, "revenueCenterID", revenueCenterID)
		return nil, fmt.Errorf("failed to fetch catalog items: %w", err)
	}
	slog.Debug("Catalog GetItems succeeded", "restaurantID", restaurantID, "count", len(items))
	return items, nil
}

// GetToppings fetches the toppings of a topping class.
func (c *Client) GetToppings(ctx context.Context, toppingClassID, revenueCenterID string) ([]models.ToppingItem, error) {
	q := url.Values{}
	q.Set("revenue_center_id", revenueCenterID)
	endpoint := fmt.Sprintf("%s/topping-classes/%s/toppings?%s", c.baseURL, url.PathEscape(toppingClassID), q.Encode())

	var toppings []models.ToppingItem
	if err := c.getJSON(ctx, endpoint, &toppings); err != nil {
		slog.Error("Catalog GetToppings failed", "error", err, "toppingClassID", toppingClassID)
		return nil, fmt.Errorf("failed to fetch toppings: %w", err)
	}
	return toppings, nil
}

// GetRevenueCenters fetches the selectable locations of a restaurant.
func (c *Client) GetRevenueCenters(ctx context.Context, restaurantID string) ([]models.RevenueCenter, error) {
	endpoint := fmt.Sprintf("%s/restaurants/%s/revenue-centers", c.baseURL, url.PathEscape(restaurantID))

	var centers []models.RevenueCenter
	if err := c.getJSON(ctx, endpoint, &centers); err != nil {
		slog.Error("Catalog GetRevenueCenters failed", "error", err, "restaurantID", restaurantID)
		return nil, fmt.Errorf("failed to fetch revenue centers: %w", err)
	}
	return centers, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("back-office returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
