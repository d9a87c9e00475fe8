package reconcile

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-pulse/events-sync/internal/model"
)

// memStore is an in-memory EventStore recording update payloads.
type memStore struct {
	events    map[string]model.Event
	updates   []map[string]any
	insertErr error
}

func newMemStore() *memStore {
	return &memStore{events: map[string]model.Event{}}
}

func (m *memStore) FindEventByTitle(_ context.Context, title string) (*model.Event, error) {
	if ev, ok := m.events[title]; ok {
		return &ev, nil
	}
	return nil, nil
}

func (m *memStore) InsertEvent(_ context.Context, ev model.Event) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.events[ev.Title] = ev
	return nil
}

func (m *memStore) UpdateEventFields(_ context.Context, title string, fields map[string]any) error {
	m.updates = append(m.updates, fields)
	ev := m.events[title]
	if v, ok := fields["location"]; ok {
		ev.Location = v.(*string)
	}
	if v, ok := fields["description"]; ok {
		ev.Description = v.(*string)
	}
	if v, ok := fields["link"]; ok {
		ev.Link = v.(string)
	}
	m.events[title] = ev
	return nil
}

// fakeResolver resolves every non-virtual name to a fixed point.
type fakeResolver struct {
	calls  int
	coords *model.Coordinates
}

func (f *fakeResolver) Resolve(context.Context, string) *model.Coordinates {
	f.calls++
	return f.coords
}

func strPtr(s string) *string { return &s }

func fetched(title, location string) model.Event {
	ev := model.Event{Title: title, ImageURL: model.DefaultImageURL, Link: model.DefaultLink}
	if location != "" {
		ev.Location = strPtr(location)
	}
	return ev
}

func TestSync_InsertsNewEvents(t *testing.T) {
	store := newMemStore()
	geo := &fakeResolver{coords: &model.Coordinates{Lat: 53.5, Lng: -113.5}}
	s := New(store, geo)

	counts, err := s.Sync(context.Background(), []model.Event{
		fetched("A", "Main Quad"),
		fetched("B", "CCIS"),
	})
	require.NoError(t, err)

	assert.Equal(t, Counts{Processed: 2, Added: 2}, counts)
	assert.Equal(t, 2, geo.calls)
	require.Contains(t, store.events, "A")
	require.NotNil(t, store.events["A"].Coordinates)
	assert.InDelta(t, 53.5, store.events["A"].Coordinates.Lat, 1e-9)
}

func TestSync_NoLocationSkipsGeocoder(t *testing.T) {
	store := newMemStore()
	geo := &fakeResolver{}
	s := New(store, geo)

	counts, err := s.Sync(context.Background(), []model.Event{fetched("A", "")})
	require.NoError(t, err)

	assert.Equal(t, Counts{Processed: 1, Added: 1}, counts)
	assert.Zero(t, geo.calls)
	assert.Nil(t, store.events["A"].Coordinates)
}

func TestSync_SecondRunIsIdempotent(t *testing.T) {
	store := newMemStore()
	geo := &fakeResolver{coords: &model.Coordinates{Lat: 1, Lng: 2}}
	s := New(store, geo)

	events := []model.Event{fetched("A", "Main Quad"), fetched("B", "CCIS")}

	first, err := s.Sync(context.Background(), events)
	require.NoError(t, err)
	assert.Equal(t, Counts{Processed: 2, Added: 2}, first)

	second, err := s.Sync(context.Background(), events)
	require.NoError(t, err)
	assert.Equal(t, Counts{Processed: 2, Skipped: 2}, second)
	assert.Equal(t, 2, geo.calls, "geocoder must not run on skip paths")
	assert.Empty(t, store.updates)
}

func TestSync_PartialFieldUpdate(t *testing.T) {
	store := newMemStore()
	geo := &fakeResolver{coords: &model.Coordinates{Lat: 1, Lng: 2}}
	s := New(store, geo)

	_, err := s.Sync(context.Background(), []model.Event{fetched("X", "A")})
	require.NoError(t, err)
	geocodeCallsAfterInsert := geo.calls

	counts, err := s.Sync(context.Background(), []model.Event{fetched("X", "B")})
	require.NoError(t, err)

	assert.Equal(t, Counts{Processed: 1, Updated: 1}, counts)
	require.Len(t, store.updates, 1)
	assert.Len(t, store.updates[0], 1, "only the changed field is written")
	assert.Equal(t, strPtr("B"), store.updates[0]["location"])
	assert.Equal(t, geocodeCallsAfterInsert, geo.calls,
		"a changed location is not re-geocoded on the update path")
}

func TestSync_StoreErrorAborts(t *testing.T) {
	store := newMemStore()
	s := New(store, &fakeResolver{})

	_, err := s.Sync(context.Background(), []model.Event{fetched("A", "")})
	require.NoError(t, err)

	store.insertErr = eris.New("store down")
	counts, err := s.Sync(context.Background(), []model.Event{
		fetched("A", ""), // skip
		fetched("B", ""), // insert fails
		fetched("C", ""),
	})
	require.Error(t, err)
	assert.Equal(t, Counts{Processed: 1, Skipped: 1}, counts)
}

func TestSync_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := New(newMemStore(), &fakeResolver{})
	_, err := s.Sync(ctx, []model.Event{fetched("A", "")})
	assert.ErrorIs(t, err, context.Canceled)
}
