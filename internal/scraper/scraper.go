// Package scraper resolves marketplace listing URLs into structured
// product data by calling an external scraping service over HTTP.
package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/dealsense/negotiator/internal/core/domain"
	"github.com/dealsense/negotiator/internal/core/ports"
)

const defaultTimeout = 30 * time.Second

// Client calls a scraping service that returns listing JSON. The
// service owns the anti-bot machinery; this client only speaks its
// result format.
type Client struct {
	baseURL string
	http    *http.Client
}

var _ ports.Scraper = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// New builds a scraper client against baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type scrapeResponse struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Price       int    `json:"price"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Condition   string `json:"condition"`
	Success     bool   `json:"scraped_successfully"`
	Error       string `json:"error,omitempty"`
}

// Scrape implements ports.Scraper.
func (c *Client) Scrape(ctx context.Context, listingURL string) (domain.ProductData, error) {
	endpoint := fmt.Sprintf("%s/scrape?url=%s", c.baseURL, url.QueryEscape(listingURL))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.ProductData{}, domain.ErrCollaborator("build scrape request").Wrap(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.ProductData{}, domain.ErrCollaborator("scrape listing").Wrap(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.ProductData{}, domain.ErrCollaborator(fmt.Sprintf("scraper returned status %d", resp.StatusCode))
	}

	var body scrapeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return domain.ProductData{}, domain.ErrCollaborator("decode scrape response").Wrap(err)
	}
	if !body.Success {
		msg := body.Error
		if msg == "" {
			msg = "listing could not be scraped"
		}
		return domain.ProductData{}, domain.ErrCollaborator(msg)
	}
	if body.Price <= 0 {
		return domain.ProductData{}, domain.ErrCollaborator("scraped listing has no usable price")
	}

	return domain.ProductData{
		ID:          body.ID,
		URL:         listingURL,
		Title:       body.Title,
		Price:       body.Price,
		Description: body.Description,
		Category:    body.Category,
		Condition:   body.Condition,
	}, nil
}
