package model

import "time"

// Default placeholder values persisted when the feed omits a field.
const (
	DefaultImageURL = "No image available."
	DefaultLink     = "No link available."
)

// Coordinates is a latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Event is a normalized event record as persisted in the store.
// Title is the reconciliation key: two upstream events with the same title
// collide on the same record, since the feed exposes no stable unique ID.
type Event struct {
	Title       string       `json:"title"`
	Description *string      `json:"description"`
	StartDate   *time.Time   `json:"startDate"`
	EndDate     *time.Time   `json:"endDate"`
	StartTime   *string      `json:"start_time"`
	EndTime     *string      `json:"end_time"`
	Location    *string      `json:"location"`
	Coordinates *Coordinates `json:"coordinates"`
	ImageURL    string       `json:"imageUrl"`
	Link        string       `json:"link"`
}

// LocationCacheEntry is a cached geocoding result keyed by location name.
// Entries are insert-only; lookups take the first match by name.
type LocationCacheEntry struct {
	Name        string      `json:"name"`
	Coordinates Coordinates `json:"coordinates"`
}

// Diff compares a freshly fetched event against the stored version and
// returns the columns whose values differ, mapped to the new values.
// Coordinates are deliberately not compared: fetched events never carry
// them, so including them would flag every geocoded record as changed on
// every run.
func (e Event) Diff(stored Event) map[string]any {
	fields := map[string]any{}

	if e.Title != stored.Title {
		fields["title"] = e.Title
	}
	if !equalStringPtr(e.Description, stored.Description) {
		fields["description"] = e.Description
	}
	if !equalTimePtr(e.StartDate, stored.StartDate) {
		fields["start_date"] = e.StartDate
	}
	if !equalTimePtr(e.EndDate, stored.EndDate) {
		fields["end_date"] = e.EndDate
	}
	if !equalStringPtr(e.StartTime, stored.StartTime) {
		fields["start_time"] = e.StartTime
	}
	if !equalStringPtr(e.EndTime, stored.EndTime) {
		fields["end_time"] = e.EndTime
	}
	if !equalStringPtr(e.Location, stored.Location) {
		fields["location"] = e.Location
	}
	if e.ImageURL != stored.ImageURL {
		fields["image_url"] = e.ImageURL
	}
	if e.Link != stored.Link {
		fields["link"] = e.Link
	}

	return fields
}

func equalStringPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalTimePtr(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
