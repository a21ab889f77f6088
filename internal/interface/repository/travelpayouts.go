package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"fareanomaly-service/internal/domain/entity"
	"fareanomaly-service/internal/domain/repository"
	"fareanomaly-service/pkg/logger"
)

// PricesDataClient talks to the prices-data API: city autocomplete,
// historical average prices and the link shortener. One client implements
// CityLookup, PricingRepository and LinkShortener.
type PricesDataClient struct {
	logger logger.Logger
	domain string
	client *http.Client
}

// NewPricesDataClient creates a new prices-data API client
func NewPricesDataClient(domain string, logger logger.Logger) *PricesDataClient {
	return &PricesDataClient{
		logger: logger,
		domain: domain,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// autocompleteItem is one match from the autocomplete endpoint. Cities
// carry city_name/city_code, airports carry name/code.
type autocompleteItem struct {
	Code        string `json:"code"`
	CityCode    string `json:"city_code"`
	Name        string `json:"name"`
	CityName    string `json:"city_name"`
	CountryCode string `json:"country_code"`
	Coordinates struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"coordinates"`
}

// Resolve looks up a 3-letter IATA code
func (c *PricesDataClient) Resolve(ctx context.Context, code string) (*repository.CityInfo, error) {
	endpoint := fmt.Sprintf("https://%s/api/autocomplete?q=%s", c.domain, url.QueryEscape(code))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create autocomplete request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch autocomplete data for %s: %w", code, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("autocomplete returned status %d for %s", resp.StatusCode, code)
	}

	var items []autocompleteItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("failed to decode autocomplete response for %s: %w", code, err)
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("no autocomplete match for %s", code)
	}

	item := items[0]
	info := &repository.CityInfo{
		Name:        item.Name,
		CityCode:    item.Code,
		CountryCode: item.CountryCode,
		Coordinates: entity.Coordinates{
			Lat: item.Coordinates.Lat,
			Lon: item.Coordinates.Lon,
		},
	}
	if item.CityName != "" {
		info.Name = item.CityName
	}
	if item.CityCode != "" {
		info.CityCode = item.CityCode
	}

	return info, nil
}

// AveragePrice fetches the historical average price for a route and month
func (c *PricesDataClient) AveragePrice(ctx context.Context, origin, destination string, period time.Time) (int, error) {
	endpoint := fmt.Sprintf("https://%s/api/average?origin=%s&destination=%s&month=%s",
		c.domain, url.QueryEscape(origin), url.QueryEscape(destination), period.UTC().Format("2006-01"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create average price request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch average price: %w", err)
	}
	defer resp.Body.Close()

	var response struct {
		Result string  `json:"result"`
		X      float64 `json:"x"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return 0, fmt.Errorf("failed to decode average price response: %w", err)
	}

	if response.Result != "success" {
		return 0, fmt.Errorf("no pricing data for %s-%s in %s", origin, destination, period.UTC().Format("2006-01"))
	}

	return int(response.X), nil
}

// Shorten requests a shortened link expiring at the given unix timestamp
func (c *PricesDataClient) Shorten(ctx context.Context, longURL string, expiresAt int64) (string, error) {
	body, err := json.Marshal(map[string]interface{}{
		"url":        longURL,
		"expiration": expiresAt,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal shortener request: %w", err)
	}

	endpoint := fmt.Sprintf("https://%s/api/shortener", c.domain)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("failed to create shortener request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call shortener: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("shortener returned status %d", resp.StatusCode)
	}

	var response struct {
		Shortened string `json:"shortened"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("failed to decode shortener response: %w", err)
	}

	if response.Shortened == "" {
		return "", fmt.Errorf("shortener returned an empty link")
	}

	c.logger.Debug("Link shortened", "expiresAt", strconv.FormatInt(expiresAt, 10))

	return response.Shortened, nil
}
