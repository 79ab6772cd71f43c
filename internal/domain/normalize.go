package domain

import (
	"encoding/json"
	"errors"
	"log/slog"
	"time"
)

// OutcomeUnknown is the outcome assigned to incidents whose outcome_status
// has not been published yet (null in the upstream payload).
const OutcomeUnknown = "Unknown"

// Upstream wire shapes. Only the fields the projections need are declared;
// everything else in the payload is ignored.

type rawIncident struct {
	Category string `json:"category"`
	Month    string `json:"month"`
	Location struct {
		Street struct {
			Name string `json:"name"`
		} `json:"street"`
	} `json:"location"`
	OutcomeStatus *struct {
		Category string `json:"category"`
	} `json:"outcome_status"`
}

type rawStopSearch struct {
	AgeRange       string `json:"age_range"`
	Gender         string `json:"gender"`
	Legislation    string `json:"legislation"`
	ObjectOfSearch string `json:"object_of_search"`
	Type           string `json:"type"`
	InvolvedPerson bool   `json:"involved_person"`
	Outcome        string `json:"outcome"`
	Datetime       string `json:"datetime"`
	Location       struct {
		Street struct {
			Name string `json:"name"`
		} `json:"street"`
	} `json:"location"`
}

// NormalizeIncident projects a raw crime payload into an IncidentRecord.
// Category, street name, and month are mandatory; a null or absent
// outcome_status normalizes to OutcomeUnknown.
func NormalizeIncident(raw RawRecord) (IncidentRecord, error) {
	var rec rawIncident
	if err := json.Unmarshal(raw.Value, &rec); err != nil {
		return IncidentRecord{}, &MalformedRecordError{Kind: KindIncident, Window: raw.Window, Err: err}
	}

	if rec.Category == "" {
		return IncidentRecord{}, &MalformedRecordError{Kind: KindIncident, Window: raw.Window, Field: "category"}
	}
	if rec.Location.Street.Name == "" {
		return IncidentRecord{}, &MalformedRecordError{Kind: KindIncident, Window: raw.Window, Field: "location.street.name"}
	}
	date, err := ParseMonth(rec.Month)
	if err != nil {
		return IncidentRecord{}, &MalformedRecordError{Kind: KindIncident, Window: raw.Window, Field: "month", Err: err}
	}

	outcome := OutcomeUnknown
	if rec.OutcomeStatus != nil && rec.OutcomeStatus.Category != "" {
		outcome = rec.OutcomeStatus.Category
	}

	return IncidentRecord{
		Category: rec.Category,
		Street:   rec.Location.Street.Name,
		Outcome:  outcome,
		Date:     date,
	}, nil
}

// NormalizeStopSearch projects a raw stop-and-search payload into a
// StopSearchRecord. The datetime and street name are mandatory; the
// demographic fields pass through as-is (the upstream frequently leaves
// them empty). The timestamp is truncated to "HH:MM" and the hour is the
// first two characters of that.
func NormalizeStopSearch(raw RawRecord) (StopSearchRecord, error) {
	var rec rawStopSearch
	if err := json.Unmarshal(raw.Value, &rec); err != nil {
		return StopSearchRecord{}, &MalformedRecordError{Kind: KindStopSearch, Window: raw.Window, Err: err}
	}

	if rec.Location.Street.Name == "" {
		return StopSearchRecord{}, &MalformedRecordError{Kind: KindStopSearch, Window: raw.Window, Field: "location.street.name"}
	}
	// "2023-01-14T11:30:00+00:00": date is [0:7), time-of-day starts at 11.
	if len(rec.Datetime) < 16 {
		return StopSearchRecord{}, &MalformedRecordError{Kind: KindStopSearch, Window: raw.Window, Field: "datetime"}
	}
	date, err := ParseMonth(rec.Datetime[:7])
	if err != nil {
		return StopSearchRecord{}, &MalformedRecordError{Kind: KindStopSearch, Window: raw.Window, Field: "datetime", Err: err}
	}

	timeOfDay := rec.Datetime[11:16]
	return StopSearchRecord{
		AgeRange:       rec.AgeRange,
		Gender:         rec.Gender,
		Legislation:    rec.Legislation,
		ObjectOfSearch: rec.ObjectOfSearch,
		Street:         rec.Location.Street.Name,
		Type:           rec.Type,
		InvolvedPerson: rec.InvolvedPerson,
		Outcome:        rec.Outcome,
		Date:           date,
		Time:           timeOfDay,
		Hour:           timeOfDay[:2],
	}, nil
}

// BuildDataset normalizes a merged raw record sequence into a Dataset
// covering the given window range. Malformed records are logged, counted,
// and dropped; a window whose every record is malformed fails the build.
// Returns the dataset, the number of dropped records, and any error.
func BuildDataset(locationKey string, kind RecordKind, windows []MonthWindow, raws []RawRecord, fetchedAt time.Time, logger *slog.Logger) (*Dataset, int, error) {
	ds := &Dataset{
		Kind:        kind,
		LocationKey: locationKey,
		FetchedAt:   fetchedAt,
	}
	if len(windows) > 0 {
		ds.From = windows[0]
		ds.To = windows[len(windows)-1]
	}

	rawPerWindow := make(map[MonthWindow]int, len(windows))
	okPerWindow := make(map[MonthWindow]int, len(windows))
	dropped := 0

	for _, raw := range raws {
		rawPerWindow[raw.Window]++

		var err error
		switch kind {
		case KindStopSearch:
			var rec StopSearchRecord
			if rec, err = NormalizeStopSearch(raw); err == nil {
				ds.StopSearches = append(ds.StopSearches, rec)
			}
		default:
			var rec IncidentRecord
			if rec, err = NormalizeIncident(raw); err == nil {
				ds.Incidents = append(ds.Incidents, rec)
			}
		}
		if err != nil {
			dropped++
			logger.Warn("dropping malformed record",
				"kind", kind,
				"window", raw.Window.String(),
				"error", err,
			)
			continue
		}
		okPerWindow[raw.Window]++
	}

	for window, total := range rawPerWindow {
		if total > 0 && okPerWindow[window] == 0 {
			return nil, dropped, &MalformedRecordError{Kind: kind, Window: window, Err: errAllRecordsMalformed}
		}
	}

	return ds, dropped, nil
}

var errAllRecordsMalformed = errors.New("every record in window is malformed")
