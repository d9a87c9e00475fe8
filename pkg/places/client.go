// Package places is a minimal client for the Places text-search API.
package places

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const searchTextPath = "/places:searchText"

// LatLng is a latitude/longitude pair in API wire format.
type LatLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Rectangle is the low/high corner pair restricting search results.
type Rectangle struct {
	Low  LatLng `json:"low"`
	High LatLng `json:"high"`
}

type locationRestriction struct {
	Rectangle Rectangle `json:"rectangle"`
}

type searchTextRequest struct {
	TextQuery           string              `json:"textQuery"`
	RegionCode          string              `json:"regionCode"`
	LocationRestriction locationRestriction `json:"locationRestriction"`
	MaxResultCount      int                 `json:"maxResultCount"`
}

type searchTextResponse struct {
	Places []struct {
		Location *LatLng `json:"location"`
	} `json:"places"`
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimit sets the requests-per-second limit for search calls.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// Client calls the Places text-search endpoint with an API key.
type Client struct {
	baseURL    string
	apiKey     string
	regionCode string
	rect       Rectangle
	bounds     *geom.Bounds
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a Places client restricted to the given region and
// bounding rectangle.
func NewClient(baseURL, apiKey, regionCode string, rect Rectangle, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		regionCode: regionCode,
		rect:       rect,
		bounds: geom.NewBounds(geom.XY).Set(
			rect.Low.Longitude, rect.Low.Latitude,
			rect.High.Longitude, rect.High.Latitude,
		),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(5, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SearchText resolves a free-text query to the single best-matching place
// location. Returns (nil, nil) when the API finds no place, or when the
// returned point falls outside the configured rectangle.
func (c *Client) SearchText(ctx context.Context, query string) (*LatLng, error) {
	if c.apiKey == "" {
		return nil, eris.New("places: api key not configured")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "places: rate limit")
	}

	reqBody := searchTextRequest{
		TextQuery:           query,
		RegionCode:          c.regionCode,
		LocationRestriction: locationRestriction{Rectangle: c.rect},
		MaxResultCount:      1,
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, eris.Wrap(err, "places: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+searchTextPath, bytes.NewReader(payload))
	if err != nil {
		return nil, eris.Wrap(err, "places: build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	req.Header.Set("X-Goog-FieldMask", "places.location")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "places: search request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("places: search returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "places: read body")
	}

	var sr searchTextResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, eris.Wrap(err, "places: parse response")
	}

	if len(sr.Places) == 0 || sr.Places[0].Location == nil {
		return nil, nil
	}

	loc := sr.Places[0].Location
	if !c.bounds.OverlapsPoint(geom.XY, geom.Coord{loc.Longitude, loc.Latitude}) {
		zap.L().Debug("places: result outside bounding rectangle",
			zap.String("query", query),
			zap.Float64("lat", loc.Latitude),
			zap.Float64("lng", loc.Longitude),
		)
		return nil, nil
	}
	return loc, nil
}
