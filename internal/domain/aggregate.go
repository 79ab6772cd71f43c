package domain

import (
	"sort"
	"strings"
)

// Categorical field sets per record kind. Aggregation validates requested
// field names against these closed sets so downstream consumers can never
// group by a field the fixed-shape records do not carry.
var (
	incidentFields   = []string{"category", "street", "outcome", "date"}
	stopSearchFields = []string{"age range", "gender", "legislation", "object of search", "street", "type", "time", "hour", "date"}
)

// CategoricalFields returns the recognized grouping fields for a record kind.
func CategoricalFields(kind RecordKind) []string {
	if kind == KindStopSearch {
		return append([]string(nil), stopSearchFields...)
	}
	return append([]string(nil), incidentFields...)
}

// GroupCount is one aggregation group: the tuple of field values shared by
// Count records, in the same order as the requested fields.
type GroupCount struct {
	Values []string `json:"values"`
	Count  int      `json:"count"`
}

// CountBy groups the dataset's records by the tuple of the given field
// values and returns the per-tuple counts in first-seen insertion order.
// Field names are matched case-insensitively; any name outside the kind's
// categorical set fails with *UnknownCategoryError before any grouping work.
// The counts always sum to the dataset length.
func CountBy(d *Dataset, fields []string) ([]GroupCount, error) {
	normalized := make([]string, len(fields))
	for i, field := range fields {
		normalized[i] = strings.ToLower(strings.TrimSpace(field))
		if !isCategoricalField(d.Kind, normalized[i]) {
			return nil, &UnknownCategoryError{Field: field, Kind: d.Kind}
		}
	}

	var groups []GroupCount
	index := make(map[string]int)

	for i := range d.Len() {
		values := make([]string, len(normalized))
		for j, field := range normalized {
			values[j] = d.fieldValue(i, field)
		}
		key := strings.Join(values, "\x1f")
		if at, ok := index[key]; ok {
			groups[at].Count++
			continue
		}
		index[key] = len(groups)
		groups = append(groups, GroupCount{Values: values, Count: 1})
	}

	return groups, nil
}

// SortByCount reorders groups by descending count, stably, so equal counts
// keep their insertion order. Used for "most frequent" views.
func SortByCount(groups []GroupCount) {
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Count > groups[j].Count
	})
}

// FilterByDateRange returns a new dataset holding the records whose date
// falls inside the inclusive [from, to] bound. An inverted bound yields an
// empty dataset rather than an error.
func FilterByDateRange(d *Dataset, from, to MonthWindow) *Dataset {
	out := &Dataset{
		Kind:        d.Kind,
		LocationKey: d.LocationKey,
		From:        from,
		To:          to,
		FetchedAt:   d.FetchedAt,
	}
	if to.Before(from) {
		return out
	}

	inRange := func(w MonthWindow) bool {
		return !w.Before(from) && !w.After(to)
	}

	if d.Kind == KindStopSearch {
		for _, rec := range d.StopSearches {
			if inRange(rec.Date) {
				out.StopSearches = append(out.StopSearches, rec)
			}
		}
		return out
	}
	for _, rec := range d.Incidents {
		if inRange(rec.Date) {
			out.Incidents = append(out.Incidents, rec)
		}
	}
	return out
}

func isCategoricalField(kind RecordKind, field string) bool {
	for _, known := range CategoricalFields(kind) {
		if field == known {
			return true
		}
	}
	return false
}

// fieldValue extracts one categorical field from the record at index i.
// Callers validate the field name first; an unknown field returns "".
func (d *Dataset) fieldValue(i int, field string) string {
	if d.Kind == KindStopSearch {
		rec := d.StopSearches[i]
		switch field {
		case "age range":
			return rec.AgeRange
		case "gender":
			return rec.Gender
		case "legislation":
			return rec.Legislation
		case "object of search":
			return rec.ObjectOfSearch
		case "street":
			return rec.Street
		case "type":
			return rec.Type
		case "time":
			return rec.Time
		case "hour":
			return rec.Hour
		case "date":
			return rec.Date.String()
		}
		return ""
	}

	rec := d.Incidents[i]
	switch field {
	case "category":
		return rec.Category
	case "street":
		return rec.Street
	case "outcome":
		return rec.Outcome
	case "date":
		return rec.Date.String()
	}
	return ""
}
