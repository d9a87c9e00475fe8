package fetcher

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-pulse/events-sync/internal/model"
	"github.com/campus-pulse/events-sync/pkg/coveo"
)

// fakeSearch serves canned pages and records the offsets requested.
type fakeSearch struct {
	totalCount int
	pages      map[int][]coveo.Result
	errAt      int // offset at which to fail; -1 disables
	offsets    []int
	lastAQ     string
	lastSort   string
}

func (f *fakeSearch) Search(_ context.Context, aq, sortCriteria string, firstResult, _ int) (*coveo.SearchResponse, error) {
	f.offsets = append(f.offsets, firstResult)
	f.lastAQ = aq
	f.lastSort = sortCriteria
	if f.errAt >= 0 && firstResult == f.errAt {
		return nil, eris.New("boom")
	}
	return &coveo.SearchResponse{
		TotalCount: f.totalCount,
		Results:    f.pages[firstResult],
	}, nil
}

func resultsNamed(names ...string) []coveo.Result {
	out := make([]coveo.Result, 0, len(names))
	for _, n := range names {
		out = append(out, coveo.Result{Title: n, ClickURI: "https://example.org/" + n})
	}
	return out
}

func TestFetch_PaginationTermination(t *testing.T) {
	// totalCount 30 with page size 24: exactly two pages, offsets 0 and 24.
	fs := &fakeSearch{
		totalCount: 30,
		errAt:      -1,
		pages: map[int][]coveo.Result{
			0:  resultsNamed(make24()...),
			24: resultsNamed("e25", "e26", "e27", "e28", "e29", "e30"),
		},
	}

	events := New(fs).Fetch(context.Background(), "")
	assert.Equal(t, []int{0, 24}, fs.offsets)
	assert.Len(t, events, 30)
}

func make24() []string {
	names := make([]string, 24)
	for i := range names {
		names[i] = "e" + string(rune('a'+i))
	}
	return names
}

func TestFetch_EmptyFeed(t *testing.T) {
	fs := &fakeSearch{totalCount: 0, errAt: -1}

	events := New(fs).Fetch(context.Background(), "")
	assert.Empty(t, events)
	assert.Equal(t, []int{0}, fs.offsets)
}

func TestFetch_DefaultQueryShape(t *testing.T) {
	fs := &fakeSearch{totalCount: 0, errAt: -1}

	New(fs).Fetch(context.Background(), "")
	assert.Equal(t, `@ua__event_start_datetime>="2025/01/01"`, fs.lastAQ)
	assert.Equal(t, "@ua__event_start_datetime ascending", fs.lastSort)
}

func TestFetch_FromDateOverride(t *testing.T) {
	fs := &fakeSearch{totalCount: 0, errAt: -1}

	New(fs).Fetch(context.Background(), "2025/06/01")
	assert.Equal(t, `@ua__event_start_datetime>="2025/06/01"`, fs.lastAQ)
}

func TestFetch_PartialResultsOnError(t *testing.T) {
	fs := &fakeSearch{
		totalCount: 72,
		errAt:      24,
		pages: map[int][]coveo.Result{
			0: resultsNamed(make24()...),
		},
	}

	events := New(fs).Fetch(context.Background(), "")
	// first page accumulated, second page failed, no third attempt
	assert.Len(t, events, 24)
	assert.Equal(t, []int{0, 24}, fs.offsets)
}

func TestNormalize_Defaults(t *testing.T) {
	ev := Normalize(coveo.Result{Title: "Bare"})
	assert.Equal(t, "Bare", ev.Title)
	assert.Nil(t, ev.Description)
	assert.Nil(t, ev.StartDate)
	assert.Nil(t, ev.StartTime)
	assert.Nil(t, ev.Location)
	assert.Nil(t, ev.Coordinates)
	assert.Equal(t, model.DefaultImageURL, ev.ImageURL)
	assert.Equal(t, model.DefaultLink, ev.Link)
}

func TestNormalize_FullRecord(t *testing.T) {
	loc := "CCIS 1-430"
	dateRange := "2025/03/01 - 2025/03/03"
	teaser := "A seminar."
	img := "https://example.org/img.png"

	ev := Normalize(coveo.Result{
		Title:    "Seminar",
		ClickURI: "https://example.org/e/2",
		Raw: coveo.Raw{
			StartDatetime: float64(1740841200000), // 2025-03-01T15:00:00Z
			EndDatetime:   "TBA",
			Location:      &loc,
			DateRange:     &dateRange,
			Teaser:        &teaser,
			Image:         &img,
		},
	})

	assert.Equal(t, "Seminar", ev.Title)
	require.NotNil(t, ev.Description)
	assert.Equal(t, "A seminar.", *ev.Description)
	require.NotNil(t, ev.StartDate)
	require.NotNil(t, ev.EndDate)
	require.NotNil(t, ev.StartTime)
	assert.Equal(t, "15:00:00", *ev.StartTime)
	assert.Nil(t, ev.EndTime)
	assert.Equal(t, "https://example.org/img.png", ev.ImageURL)
	assert.Equal(t, "https://example.org/e/2", ev.Link)
}
