// Package coveo is a minimal client for a Coveo REST search endpoint.
package coveo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// SearchResponse is the subset of the Coveo search response we consume.
type SearchResponse struct {
	TotalCount int      `json:"totalCount"`
	Results    []Result `json:"results"`
}

// Result is a single search hit. Raw carries the source-specific fields.
type Result struct {
	Title    string `json:"title"`
	ClickURI string `json:"clickUri"`
	Raw      Raw    `json:"raw"`
}

// Raw holds the event fields indexed by the source. Datetimes arrive as
// millisecond timestamps but are typed loosely because the index also emits
// string markers for unscheduled events.
type Raw struct {
	StartDatetime any     `json:"ua__event_start_datetime"`
	EndDatetime   any     `json:"ua__event_end_datetime"`
	Location      *string `json:"ua__event_location"`
	DateRange     *string `json:"ua__event_date_range"`
	Teaser        *string `json:"ua__event_teaser"`
	Image         *string `json:"ua__event_img"`
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

// WithSearchHub sets the searchHub form field.
func WithSearchHub(hub string) Option {
	return func(c *Client) { c.searchHub = hub }
}

// WithPipeline sets the query pipeline form field.
func WithPipeline(pipeline string) Option {
	return func(c *Client) { c.pipeline = pipeline }
}

// Client calls a Coveo search endpoint with bearer-token auth.
type Client struct {
	baseURL    string
	token      string
	searchHub  string
	pipeline   string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a search client for the given endpoint URL and token.
func NewClient(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(5, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search runs one paged query. The advanced query and sort criteria are
// passed through verbatim; firstResult is the running offset.
func (c *Client) Search(ctx context.Context, aq, sortCriteria string, firstResult, numberOfResults int) (*SearchResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "coveo: rate limit")
	}

	// Request values are built fresh per call; nothing is shared between
	// invocations.
	form := url.Values{
		"aq":              {aq},
		"searchHub":       {c.searchHub},
		"pipeline":        {c.pipeline},
		"firstResult":     {strconv.Itoa(firstResult)},
		"numberOfResults": {strconv.Itoa(numberOfResults)},
		"sortCriteria":    {sortCriteria},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, eris.Wrap(err, "coveo: build request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	req.Header.Set("Authorization", bearer(c.token))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "coveo: search request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("coveo: search returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "coveo: read body")
	}

	var sr SearchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, eris.Wrap(err, "coveo: parse response")
	}
	return &sr, nil
}

func bearer(token string) string {
	if strings.HasPrefix(token, "Bearer ") {
		return token
	}
	return fmt.Sprintf("Bearer %s", token)
}
