// Package location resolves a coarse "City, Country" string for
// attendance records via an ipinfo-style endpoint. Lookups are strictly
// best-effort: any failure, timeout included, resolves to the Unknown
// sentinel so attendance marking never blocks on geolocation.
package location

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const (
	defaultURL     = "https://ipinfo.io/json"
	defaultTimeout = 4 * time.Second
)

// Unknown is the sentinel recorded when the lookup fails.
const Unknown = "Unknown"

// Client performs best-effort location lookups.
type Client struct {
	url    string
	client *http.Client
}

// New creates a location client. Empty url and zero timeout fall back
// to the ipinfo default and 4s.
func New(url string, timeout time.Duration) *Client {
	if url == "" {
		url = defaultURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

type ipinfoResponse struct {
	City    string `json:"city"`
	Country string `json:"country"`
}

// Lookup returns "City, Country" for the server's public IP, or
// Unknown on any failure.
func (c *Client) Lookup(ctx context.Context) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return Unknown
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Unknown
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Unknown
	}

	var info ipinfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return Unknown
	}
	if info.City == "" || info.Country == "" {
		return Unknown
	}
	return fmt.Sprintf("%s, %s", info.City, info.Country)
}
