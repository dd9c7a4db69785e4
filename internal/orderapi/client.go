// Package orderapi provides the HTTP clients for the order-submission,
// discount-validation and delivery-charge collaborators.
package orderapi

import (
	"bytes"
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

// DefaultTimeout bounds every collaborator call.
const DefaultTimeout = 15 * time.Second

// Provider is the order-side collaborator contract consumed by the engine.
type Provider interface {
	// CreateOrder submits a completed order and returns the order id and
	// optional checkout link.
	CreateOrder(ctx context.Context, req models.OrderRequest, authToken string) (*models.OrderResult, error)

	// ValidateDiscountCode checks a discount code for a restaurant.
	ValidateDiscountCode(ctx context.Context, code, restaurantID string) (*models.DiscountResult, error)

	// GetCharges returns the delivery zone/charge options for a revenue
	// center and service type.
	GetCharges(ctx context.Context, restaurantID, revenueCenterID, serviceType string) ([]models.ChargeInfo, error)
}

// Opts holds configuration options for the order client.
type Opts struct {
	BaseURL string
	Timeout time.Duration
}

// Option defines a configuration option for the order client.
type Option func(*Opts)

// WithBaseURL sets the order service base URL.
func WithBaseURL(u string) Option {
	return func(o *Opts) { o.BaseURL = u }
}

// WithTimeout overrides the request timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *Opts) { o.Timeout = d }
}

// Client is the HTTP implementation of Provider.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates an order service client.
func NewClient(opts ...Option) (*Client, error) {
	cfg := Opts{Timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("order service base URL not set")
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// CreateOrder submits the order to the back office.
func (c *Client) CreateOrder(ctx context.Context, orderReq models.OrderRequest, authToken string) (*models.OrderResult, error) {
	payload, err := json.Marshal(orderReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/orders", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Error("OrderAPI CreateOrder failed", "error", err, "restaurantID", orderReq.RestaurantID)
		return nil, fmt.Errorf("failed to submit order: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		slog.Error("OrderAPI CreateOrder rejected", "status", resp.StatusCode, "restaurantID", orderReq.RestaurantID)
		return nil, fmt.Errorf("order service returned status %d", resp.StatusCode)
	}

	var result models.OrderResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode order result: %w", err)
	}
	slog.Info("OrderAPI order submitted", "orderID", result.OrderID, "restaurantID", orderReq.RestaurantID)
	return &result, nil
}

// ValidateDiscountCode checks a discount code against the back office.
func (c *Client) ValidateDiscountCode(ctx context.Context, code, restaurantID string) (*models.DiscountResult, error) {
	q := url.Values{}
	q.Set("code", code)
	q.Set("restaurant_id", restaurantID)
	endpoint := c.baseURL + "/discounts/validate?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Error("OrderAPI ValidateDiscountCode failed", "error", err, "restaurantID", restaurantID)
		return nil, fmt.Errorf("failed to validate discount code: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("discount service returned status %d", resp.StatusCode)
	}

	var result models.DiscountResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode discount result: %w", err)
	}
	return &result, nil
}

// GetCharges returns the delivery charge options for a revenue center.
func (c *Client) GetCharges(ctx context.Context, restaurantID, revenueCenterID, serviceType string) ([]models.ChargeInfo, error) {
	q := url.Values{}
	q.Set("revenue_center_id", revenueCenterID)
	q.Set("service_type", serviceType)
	endpoint := fmt.Sprintf("%s/restaurants/%s/charges?%s", c.baseURL, url.PathEscape(restaurantID), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Error("OrderAPI GetCharges failed", "error", err, "restaurantID", restaurantID)
		return nil, fmt.Errorf("failed to fetch charges: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("charge service returned status %d", resp.StatusCode)
	}

	var charges []models.ChargeInfo
	if err := json.NewDecoder(resp.Body).Decode(&charges); err != nil {
		return nil, fmt.Errorf("failed to decode charges: %w", err)
	}
	return charges, nil
}
