// Package geocoder talks to a Google-style geocoding API and expands short
// map links.
package geocoder

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"estate_distribution/internal/adapters/httpclient"
	"estate_distribution/internal/adapters/observability"
	"estate_distribution/internal/domain"
)

type response struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		FormattedAddress string `json:"formatted_address"`
		Geometry         struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

type Config struct {
	BaseURL  string
	APIKey   string
	Region   string
	Language string
	RPS      int
	Timeout  time.Duration
}

// Client implements domain.Geocoder. It makes a single attempt per call;
// the resolver owns retries.
type Client struct {
	cl  *httpclient.Client
	cfg Config
}

func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("geocoder API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://maps.googleapis.com/maps/api"
	}
	if cfg.Region == "" {
		cfg.Region = "jp"
	}
	if cfg.Language == "" {
		cfg.Language = "ja"
	}
	cl, err := httpclient.New(cfg.BaseURL, httpclient.Options{
		Service:  "geocoder",
		RPS:      cfg.RPS,
		Timeout:  cfg.Timeout,
		Attempts: 1,
	})
	if err != nil {
		return nil, err
	}
	return &Client{cl: cl, cfg: cfg}, nil
}

func (c *Client) Geocode(ctx context.Context, address string) (domain.Coordinate, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return domain.Coordinate{}, domain.ErrNoResult
	}
	q := url.Values{
		"address":  {address},
		"key":      {c.cfg.APIKey},
		"region":   {c.cfg.Region},
		"language": {c.cfg.Language},
	}
	var resp response
	if err := c.cl.GetJSON(ctx, "geocode", "/geocode/json", q, &resp); err != nil {
		switch {
		case errors.Is(err, httpclient.ErrUnauthorized), errors.Is(err, httpclient.ErrForbidden):
			return domain.Coordinate{}, fmt.Errorf("%w: %v", domain.ErrGeocodeRejected, err)
		}
		var se *httpclient.StatusError
		if errors.As(err, &se) && se.Code == http.StatusTooManyRequests {
			return domain.Coordinate{}, fmt.Errorf("%w: %v", domain.ErrQuotaExceeded, err)
		}
		return domain.Coordinate{}, err
	}

	switch resp.Status {
	case "OK":
	case "ZERO_RESULTS":
		return domain.Coordinate{}, domain.ErrNoResult
	case "OVER_QUERY_LIMIT", "OVER_DAILY_LIMIT":
		return domain.Coordinate{}, domain.ErrQuotaExceeded
	case "REQUEST_DENIED", "INVALID_REQUEST":
		return domain.Coordinate{}, fmt.Errorf("%w: %s %s", domain.ErrGeocodeRejected, resp.Status, resp.ErrorMessage)
	default:
		// UNKNOWN_ERROR and friends are worth retrying
		return domain.Coordinate{}, fmt.Errorf("geocoder status %s", resp.Status)
	}
	if len(resp.Results) == 0 {
		return domain.Coordinate{}, domain.ErrNoResult
	}
	loc := resp.Results[0].Geometry.Location
	return domain.Coordinate{Lat: loc.Lat, Lng: loc.Lng}, nil
}

// Expander implements domain.LinkExpander with one HEAD request whose
// redirect is read but not followed.
type Expander struct {
	hc *http.Client
}

func NewExpander(timeout time.Duration) *Expander {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Expander{hc: &http.Client{
		Timeout: timeout,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}}
}

func (e *Expander) Expand(ctx context.Context, link string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, link, nil)
	if err != nil {
		return "", err
	}
	start := time.Now()
	resp, err := e.hc.Do(req)
	if err != nil {
		observability.ObserveExternal("shortlink", "expand", 0, time.Since(start))
		return "", err
	}
	resp.Body.Close()
	observability.ObserveExternal("shortlink", "expand", resp.StatusCode, time.Since(start))

	if resp.StatusCode < 300 || resp.StatusCode >= 400 {
		return "", fmt.Errorf("short link %s: status %d, no redirect", link, resp.StatusCode)
	}
	loc, err := resp.Location()
	if err != nil {
		return "", fmt.Errorf("short link %s: %w", link, err)
	}
	return loc.String(), nil
}
