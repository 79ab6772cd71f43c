package domain

import (
	"fmt"
	"strings"
	"time"
)

// RecordKind identifies which of the two upstream domains a record or
// dataset belongs to.
type RecordKind string

const (
	KindIncident   RecordKind = "incident"
	KindStopSearch RecordKind = "stop-search"
)

// ParseRecordKind validates a kind string from an external caller.
func ParseRecordKind(s string) (RecordKind, error) {
	switch RecordKind(s) {
	case KindIncident, KindStopSearch:
		return RecordKind(s), nil
	default:
		return "", fmt.Errorf("unknown record kind %q", s)
	}
}

// Coordinates is a WGS-84 longitude/latitude pair, produced once per
// location resolution.
type Coordinates struct {
	Longitude float64
	Latitude  float64
}

// NormalizeLocationKey converts a postcode into the canonical cache key:
// lower-cased with all whitespace removed, so "NW5 1TU" and "nw51tu" hit
// the same entry.
func NormalizeLocationKey(postcode string) string {
	return strings.ToLower(strings.Join(strings.Fields(postcode), ""))
}

// RawRecord carries one undecoded upstream record from the fetch adapter to
// the normalization boundary.
type RawRecord struct {
	Kind   RecordKind
	Window MonthWindow
	Value  []byte
}

// IncidentRecord is the fixed-shape projection of a street-level crime.
type IncidentRecord struct {
	Category string      `json:"category"`
	Street   string      `json:"street"`
	Outcome  string      `json:"outcome"`
	Date     MonthWindow `json:"date"`
}

// StopSearchRecord is the fixed-shape projection of a stop-and-search event.
type StopSearchRecord struct {
	AgeRange       string      `json:"age_range"`
	Gender         string      `json:"gender"`
	Legislation    string      `json:"legislation"`
	ObjectOfSearch string      `json:"object_of_search"`
	Street         string      `json:"street"`
	Type           string      `json:"type"`
	InvolvedPerson bool        `json:"involved_person"`
	Outcome        string      `json:"outcome"`
	Date           MonthWindow `json:"date"`
	Time           string      `json:"time"` // "HH:MM"
	Hour           string      `json:"hour"` // first two characters of Time
}

// Dataset is an ordered collection of normalized records of a single kind,
// tagged with the location it was fetched for and the window range it covers.
// Datasets are immutable once built; cache readers share the same value.
type Dataset struct {
	Kind        RecordKind  `json:"kind"`
	LocationKey string      `json:"location"`
	From        MonthWindow `json:"from"`
	To          MonthWindow `json:"to"`
	FetchedAt   time.Time   `json:"fetched_at"`

	Incidents    []IncidentRecord   `json:"incidents,omitempty"`
	StopSearches []StopSearchRecord `json:"stop_searches,omitempty"`
}

// Len returns the number of records in the dataset.
func (d *Dataset) Len() int {
	if d.Kind == KindStopSearch {
		return len(d.StopSearches)
	}
	return len(d.Incidents)
}
