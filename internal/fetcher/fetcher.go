// Package fetcher pages through the events search API and normalizes raw
// search hits into event records.
package fetcher

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/campus-pulse/events-sync/internal/model"
	"github.com/campus-pulse/events-sync/pkg/coveo"
)

// DefaultBeginDate is the earliest start date fetched when no override is
// given.
const DefaultBeginDate = "2025/01/01"

// DefaultPageSize matches the upstream search page size.
const DefaultPageSize = 24

// SearchClient is the slice of the coveo client the fetcher needs.
type SearchClient interface {
	Search(ctx context.Context, aq, sortCriteria string, firstResult, numberOfResults int) (*coveo.SearchResponse, error)
}

// Option configures the Fetcher.
type Option func(*Fetcher)

// WithPageSize overrides the page size.
func WithPageSize(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.pageSize = n
		}
	}
}

// WithBeginDate overrides the default start date (YYYY/MM/DD).
func WithBeginDate(date string) Option {
	return func(f *Fetcher) {
		if date != "" {
			f.beginDate = date
		}
	}
}

// WithSortField overrides the datetime field used for filtering and sorting.
func WithSortField(field string) Option {
	return func(f *Fetcher) {
		if field != "" {
			f.sortField = field
		}
	}
}

// Fetcher retrieves the full ordered event sequence from the search API.
type Fetcher struct {
	client    SearchClient
	sortField string
	pageSize  int
	beginDate string
}

// New creates a Fetcher over the given search client.
func New(client SearchClient, opts ...Option) *Fetcher {
	f := &Fetcher{
		client:    client,
		sortField: "ua__event_start_datetime",
		pageSize:  DefaultPageSize,
		beginDate: DefaultBeginDate,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch returns all events starting at or after fromDate (YYYY/MM/DD,
// default DefaultBeginDate), in ascending start-datetime order. A request
// error mid-pagination terminates the loop and returns what was accumulated
// so far; partial results are not a failure.
func (f *Fetcher) Fetch(ctx context.Context, fromDate string) []model.Event {
	if fromDate == "" {
		fromDate = f.beginDate
	}
	aq := fmt.Sprintf(`@%s>="%s"`, f.sortField, fromDate)
	sortCriteria := fmt.Sprintf("@%s ascending", f.sortField)

	log := zap.L().With(zap.String("component", "fetcher"))

	var events []model.Event
	for offset := 0; ; offset += f.pageSize {
		resp, err := f.client.Search(ctx, aq, sortCriteria, offset, f.pageSize)
		if err != nil {
			log.Error("search request failed, returning partial results",
				zap.Int("offset", offset),
				zap.Int("accumulated", len(events)),
				zap.Error(err),
			)
			break
		}

		if resp.TotalCount == 0 || len(resp.Results) == 0 {
			break
		}

		for _, r := range resp.Results {
			events = append(events, Normalize(r))
		}

		if offset+f.pageSize >= resp.TotalCount {
			break
		}
	}

	log.Info("fetch complete", zap.String("from", fromDate), zap.Int("events", len(events)))
	return events
}

// Normalize converts a raw search hit into a canonical event record.
func Normalize(r coveo.Result) model.Event {
	var rangeStr string
	if r.Raw.DateRange != nil {
		rangeStr = *r.Raw.DateRange
	}
	startDate, endDate := ParseDateRange(rangeStr)

	ev := model.Event{
		Title:       r.Title,
		Description: r.Raw.Teaser,
		StartDate:   startDate,
		EndDate:     endDate,
		StartTime:   ConvertClockTime(r.Raw.StartDatetime),
		EndTime:     ConvertClockTime(r.Raw.EndDatetime),
		Location:    r.Raw.Location,
		ImageURL:    model.DefaultImageURL,
		Link:        model.DefaultLink,
	}
	if r.Raw.Image != nil && *r.Raw.Image != "" {
		ev.ImageURL = *r.Raw.Image
	}
	if r.ClickURI != "" {
		ev.Link = r.ClickURI
	}
	return ev
}
