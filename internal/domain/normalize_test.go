package domain

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testStreet = "On or near Shopping Area"

var testWindow = MonthWindow{Year: 2023, Month: 1}

func rawIncidentRecord(payload string) RawRecord {
	return RawRecord{Kind: KindIncident, Window: testWindow, Value: []byte(payload)}
}

func rawStopSearchRecord(payload string) RawRecord {
	return RawRecord{Kind: KindStopSearch, Window: testWindow, Value: []byte(payload)}
}

func TestNormalizeIncident(t *testing.T) {
	t.Run("full payload", func(t *testing.T) {
		raw := rawIncidentRecord(`{
			"category": "bicycle-theft",
			"month": "2023-01",
			"location": {"street": {"name": "On or near Shopping Area"}},
			"outcome_status": {"category": "Under investigation"}
		}`)

		rec, err := NormalizeIncident(raw)

		require.NoError(t, err)
		assert.Equal(t, "bicycle-theft", rec.Category)
		assert.Equal(t, testStreet, rec.Street)
		assert.Equal(t, "Under investigation", rec.Outcome)
		assert.Equal(t, MonthWindow{Year: 2023, Month: 1}, rec.Date)
	})

	t.Run("null outcome becomes Unknown", func(t *testing.T) {
		raw := rawIncidentRecord(`{
			"category": "drugs",
			"month": "2023-01",
			"location": {"street": {"name": "On or near Shopping Area"}},
			"outcome_status": null
		}`)

		rec, err := NormalizeIncident(raw)

		require.NoError(t, err)
		assert.Equal(t, OutcomeUnknown, rec.Outcome)
	})

	t.Run("absent outcome becomes Unknown", func(t *testing.T) {
		raw := rawIncidentRecord(`{
			"category": "drugs",
			"month": "2023-01",
			"location": {"street": {"name": "On or near Shopping Area"}}
		}`)

		rec, err := NormalizeIncident(raw)

		require.NoError(t, err)
		assert.Equal(t, OutcomeUnknown, rec.Outcome)
	})

	t.Run("missing mandatory fields", func(t *testing.T) {
		tests := []struct {
			name    string
			payload string
			field   string
		}{
			{"no category", `{"month":"2023-01","location":{"street":{"name":"x"}}}`, "category"},
			{"no street", `{"category":"drugs","month":"2023-01"}`, "location.street.name"},
			{"no month", `{"category":"drugs","location":{"street":{"name":"x"}}}`, "month"},
			{"bad month", `{"category":"drugs","month":"январь","location":{"street":{"name":"x"}}}`, "month"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := NormalizeIncident(rawIncidentRecord(tt.payload))

				var malformed *MalformedRecordError
				require.ErrorAs(t, err, &malformed)
				assert.Equal(t, tt.field, malformed.Field)
				assert.Equal(t, KindIncident, malformed.Kind)
				assert.Equal(t, testWindow, malformed.Window)
			})
		}
	})

	t.Run("invalid JSON", func(t *testing.T) {
		_, err := NormalizeIncident(rawIncidentRecord(`{not json`))

		var malformed *MalformedRecordError
		require.ErrorAs(t, err, &malformed)
	})
}

func TestNormalizeStopSearch(t *testing.T) {
	t.Run("full payload", func(t *testing.T) {
		raw := rawStopSearchRecord(`{
			"age_range": "18-24",
			"gender": "Male",
			"legislation": "Misuse of Drugs Act 1971 (section 23)",
			"object_of_search": "Controlled drugs",
			"type": "Person search",
			"involved_person": true,
			"outcome": "Arrest",
			"datetime": "2023-01-14T11:30:00+00:00",
			"location": {"street": {"name": "On or near Shopping Area"}}
		}`)

		rec, err := NormalizeStopSearch(raw)

		require.NoError(t, err)
		assert.Equal(t, "18-24", rec.AgeRange)
		assert.Equal(t, "Male", rec.Gender)
		assert.Equal(t, "Controlled drugs", rec.ObjectOfSearch)
		assert.Equal(t, testStreet, rec.Street)
		assert.True(t, rec.InvolvedPerson)
		assert.Equal(t, "Arrest", rec.Outcome)
		assert.Equal(t, MonthWindow{Year: 2023, Month: 1}, rec.Date)
		assert.Equal(t, "11:30", rec.Time)
		assert.Equal(t, "11", rec.Hour)
	})

	t.Run("empty demographics pass through", func(t *testing.T) {
		raw := rawStopSearchRecord(`{
			"datetime": "2023-01-14T09:05:00+00:00",
			"location": {"street": {"name": "On or near Shopping Area"}}
		}`)

		rec, err := NormalizeStopSearch(raw)

		require.NoError(t, err)
		assert.Empty(t, rec.AgeRange)
		assert.Empty(t, rec.Gender)
		assert.Equal(t, "09:05", rec.Time)
		assert.Equal(t, "09", rec.Hour)
	})

	t.Run("missing street", func(t *testing.T) {
		raw := rawStopSearchRecord(`{"datetime": "2023-01-14T11:30:00+00:00"}`)

		_, err := NormalizeStopSearch(raw)

		var malformed *MalformedRecordError
		require.ErrorAs(t, err, &malformed)
		assert.Equal(t, "location.street.name", malformed.Field)
	})

	t.Run("short datetime", func(t *testing.T) {
		raw := rawStopSearchRecord(`{
			"datetime": "2023-01-14",
			"location": {"street": {"name": "On or near Shopping Area"}}
		}`)

		_, err := NormalizeStopSearch(raw)

		var malformed *MalformedRecordError
		require.ErrorAs(t, err, &malformed)
		assert.Equal(t, "datetime", malformed.Field)
	})

	t.Run("unparseable month in datetime", func(t *testing.T) {
		raw := rawStopSearchRecord(`{
			"datetime": "2023-99-14T11:30:00+00:00",
			"location": {"street": {"name": "On or near Shopping Area"}}
		}`)

		_, err := NormalizeStopSearch(raw)

		var malformed *MalformedRecordError
		require.ErrorAs(t, err, &malformed)
		assert.Equal(t, "datetime", malformed.Field)
	})
}

func TestBuildDataset(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	fetchedAt := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	windows := []MonthWindow{
		{Year: 2023, Month: 1},
		{Year: 2023, Month: 2},
	}
	good := `{"category":"drugs","month":"2023-01","location":{"street":{"name":"x"}}}`
	bad := `{"month":"2023-01"}`

	t.Run("builds range metadata", func(t *testing.T) {
		raws := []RawRecord{
			{Kind: KindIncident, Window: windows[0], Value: []byte(good)},
		}

		ds, dropped, err := BuildDataset("sw1a1aa", KindIncident, windows, raws, fetchedAt, logger)

		require.NoError(t, err)
		assert.Zero(t, dropped)
		assert.Equal(t, "sw1a1aa", ds.LocationKey)
		assert.Equal(t, KindIncident, ds.Kind)
		assert.Equal(t, windows[0], ds.From)
		assert.Equal(t, windows[1], ds.To)
		assert.Equal(t, fetchedAt, ds.FetchedAt)
		assert.Equal(t, 1, ds.Len())
	})

	t.Run("drops malformed records and counts them", func(t *testing.T) {
		raws := []RawRecord{
			{Kind: KindIncident, Window: windows[0], Value: []byte(good)},
			{Kind: KindIncident, Window: windows[0], Value: []byte(bad)},
			{Kind: KindIncident, Window: windows[0], Value: []byte(good)},
		}

		ds, dropped, err := BuildDataset("sw1a1aa", KindIncident, windows, raws, fetchedAt, logger)

		require.NoError(t, err)
		assert.Equal(t, 1, dropped)
		assert.Equal(t, 2, ds.Len())
	})

	t.Run("window with only malformed records fails", func(t *testing.T) {
		raws := []RawRecord{
			{Kind: KindIncident, Window: windows[0], Value: []byte(good)},
			{Kind: KindIncident, Window: windows[1], Value: []byte(bad)},
			{Kind: KindIncident, Window: windows[1], Value: []byte(bad)},
		}

		_, dropped, err := BuildDataset("sw1a1aa", KindIncident, windows, raws, fetchedAt, logger)

		require.Error(t, err)
		assert.Equal(t, 2, dropped)

		var malformed *MalformedRecordError
		require.ErrorAs(t, err, &malformed)
		assert.Equal(t, windows[1], malformed.Window)
	})

	t.Run("empty window is fine", func(t *testing.T) {
		// A quiet month legitimately returns zero records.
		ds, dropped, err := BuildDataset("sw1a1aa", KindIncident, windows, nil, fetchedAt, logger)

		require.NoError(t, err)
		assert.Zero(t, dropped)
		assert.Zero(t, ds.Len())
	})

	t.Run("stop-search kind fills StopSearches", func(t *testing.T) {
		ss := `{"datetime":"2023-01-14T11:30:00+00:00","location":{"street":{"name":"x"}}}`
		raws := []RawRecord{
			{Kind: KindStopSearch, Window: windows[0], Value: []byte(ss)},
		}

		ds, _, err := BuildDataset("sw1a1aa", KindStopSearch, windows, raws, fetchedAt, logger)

		require.NoError(t, err)
		require.Len(t, ds.StopSearches, 1)
		assert.Empty(t, ds.Incidents)
		assert.Equal(t, 1, ds.Len())
	})
}

func TestBuildDatasetErrorIsMalformed(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	raws := []RawRecord{
		{Kind: KindIncident, Window: testWindow, Value: []byte(`{}`)},
	}

	_, _, err := BuildDataset("k", KindIncident, []MonthWindow{testWindow}, raws, time.Now(), logger)

	var malformed *MalformedRecordError
	assert.True(t, errors.As(err, &malformed))
}
