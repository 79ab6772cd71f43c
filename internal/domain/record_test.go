package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRecordKind(t *testing.T) {
	t.Run("valid kinds", func(t *testing.T) {
		kind, err := ParseRecordKind("incident")
		require.NoError(t, err)
		assert.Equal(t, KindIncident, kind)

		kind, err = ParseRecordKind("stop-search")
		require.NoError(t, err)
		assert.Equal(t, KindStopSearch, kind)
	})

	t.Run("invalid kinds", func(t *testing.T) {
		for _, s := range []string{"", "Incident", "stopsearch", "crimes"} {
			_, err := ParseRecordKind(s)
			assert.Error(t, err, "input %q", s)
		}
	})
}

func TestNormalizeLocationKey(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"spaced postcode", "NW5 1TU", "nw51tu"},
		{"already compact", "nw51tu", "nw51tu"},
		{"surrounding whitespace", "  SW1A 1AA  ", "sw1a1aa"},
		{"tabs and doubled spaces", "SW1A\t 1AA", "sw1a1aa"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeLocationKey(tt.input))
		})
	}
}

func TestDatasetLen(t *testing.T) {
	incident := &Dataset{Kind: KindIncident, Incidents: make([]IncidentRecord, 3)}
	assert.Equal(t, 3, incident.Len())

	stopSearch := &Dataset{Kind: KindStopSearch, StopSearches: make([]StopSearchRecord, 2)}
	assert.Equal(t, 2, stopSearch.Len())

	empty := &Dataset{Kind: KindIncident}
	assert.Zero(t, empty.Len())
}
