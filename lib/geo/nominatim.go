package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// DefaultNominatimEndpoint is the public OpenStreetMap Nominatim instance
const DefaultNominatimEndpoint = "https://nominatim.openstreetmap.org"

// NominatimOptions configures the Nominatim provider
type NominatimOptions struct {
	Endpoint  string        // Base URL without the /search path
	UserAgent string        // Required by the Nominatim usage policy
	Timeout   time.Duration // Per request timeout (0 = 10s)
}

type nominatimProvider struct {
	endpoint  *url.URL
	userAgent string
	client    *http.Client
}

// nominatimResult is the subset of a jsonv2 search result used here
type nominatimResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// NewNominatimProvider creates a provider querying the Nominatim search API
func NewNominatimProvider(opts NominatimOptions) (IProvider, error) {
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = DefaultNominatimEndpoint
	}
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid nominatim endpoint %q: %w", endpoint, err)
	}
	if opts.UserAgent == "" {
		return nil, errors.New("nominatim requires a user agent")
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &nominatimProvider{
		endpoint:  parsed,
		userAgent: opts.UserAgent,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}, nil
}

func (p *nominatimProvider) Geocode(ctx context.Context, address string) (float64, float64, error) {
	query := url.Values{}
	query.Set("q", address)
	query.Set("format", "jsonv2")
	query.Set("limit", "1")

	requestURL := p.endpoint.JoinPath("search")
	requestURL.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL.String(), nil)
	if err != nil {
		return 0, 0, err
	}
	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, 0, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Errorf("Failed to close response body: %v", err)
		}
	}()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return 0, 0, fmt.Errorf("%w: http %s", ErrProviderTimeout, resp.Status)
	default:
		return 0, 0, fmt.Errorf("nominatim http error: %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, 0, err
	}

	var results []nominatimResult
	if err := json.Unmarshal(body, &results); err != nil {
		return 0, 0, fmt.Errorf("failed to decode nominatim response: %w", err)
	}
	if len(results) == 0 {
		return 0, 0, ErrAddressNotFound
	}

	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid longitude %q: %w", results[0].Lon, err)
	}
	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid latitude %q: %w", results[0].Lat, err)
	}
	return lon, lat, nil
}
