// Package geoip resolves a submitter IP to a country via ipapi.co. Lookups
// are best-effort enrichment: any failure yields "Unknown" and the intake
// pipeline carries on.
package geoip

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"
)

const lookupTimeout = 5 * time.Second

// Unknown is returned for both code and name when the lookup fails.
const Unknown = "Unknown"

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: lookupTimeout},
	}
}

type lookupResponse struct {
	CountryCode string `json:"country_code"`
	CountryName string `json:"country_name"`
}

// Lookup returns the country code and name for an IP. Private and loopback
// addresses short-circuit to the UAE, matching the deployment's own traffic.
func (c *Client) Lookup(ctx context.Context, ip string) (code, name string) {
	if isLocalAddress(ip) {
		return "AE", "United Arab Emirates"
	}

	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/%s/json/", c.baseURL, ip), nil)
	if err != nil {
		return Unknown, Unknown
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Unknown, Unknown
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Unknown, Unknown
	}
	var payload lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Unknown, Unknown
	}
	if payload.CountryCode == "" {
		return Unknown, Unknown
	}
	if payload.CountryName == "" {
		payload.CountryName = Unknown
	}
	return payload.CountryCode, payload.CountryName
}

func isLocalAddress(ip string) bool {
	if ip == "localhost" {
		return true
	}
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	return parsed.IsLoopback() || parsed.IsPrivate()
}
