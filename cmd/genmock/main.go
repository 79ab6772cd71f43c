// Command genmock serves fake postcodes.io and data.police.uk endpoints
// with deterministic generated payloads, so the service can be exercised
// locally without touching the real APIs or their rate limit.
//
// Usage:
//
//	go run ./cmd/genmock -addr :9090 -records 25
//
// then point the service at it:
//
//	POSTCODES_BASE_URL=http://localhost:9090 \
//	POLICE_BASE_URL=http://localhost:9090/api \
//	go run ./cmd/crimedata
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"hash/fnv"
	"log"
	"math/rand"
	"net/http"
	"time"

	"github.com/couchcryptid/crime-data-service/internal/domain"
)

var (
	categories = []string{"anti-social-behaviour", "bicycle-theft", "burglary", "drugs", "public-order", "vehicle-crime", "violent-crime"}
	streets    = []string{"On or near Shopping Area", "On or near High Street", "On or near Park Road", "On or near Station Approach", "On or near Church Lane"}
	outcomes   = []string{"Investigation complete; no suspect identified", "Under investigation", "Local resolution", ""}

	ageRanges    = []string{"under 10", "10-17", "18-24", "25-34", "over 34"}
	genders      = []string{"Male", "Female", ""}
	legislations = []string{"Police and Criminal Evidence Act 1984 (section 1)", "Misuse of Drugs Act 1971 (section 23)"}
	objects      = []string{"Controlled drugs", "Offensive weapons", "Stolen goods", "Article for use in theft"}
	ssTypes      = []string{"Person search", "Person and Vehicle search", "Vehicle search"}
	ssOutcomes   = []string{"A no further action disposal", "Arrest", "Community resolution"}
)

func main() {
	addr := flag.String("addr", ":9090", "listen address")
	records := flag.Int("records", 25, "records generated per month window")
	seed := flag.Int64("seed", 1, "base seed for deterministic payloads")
	flag.Parse()

	if err := selfCheck(*records, *seed); err != nil {
		log.Fatalf("generated payloads do not survive normalization: %v", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /postcodes/{postcode}", handlePostcode)
	mux.HandleFunc("GET /api/crimes-street/all-crime", handleCrimes(*records, *seed))
	mux.HandleFunc("GET /api/stops-street", handleStopSearches(*records, *seed))

	log.Printf("mock upstream listening on %s (%d records per window, seed %d)", *addr, *records, *seed)
	log.Fatal(http.ListenAndServe(*addr, mux))
}

// selfCheck runs one generated window of each kind through the real
// normalizer, so a drifting mock shape fails loudly at startup instead of
// silently producing empty datasets.
func selfCheck(records int, seed int64) error {
	window := domain.MonthWindow{Year: 2023, Month: 1}
	for _, item := range generateCrimes(window, records, seed) {
		raw, err := json.Marshal(item)
		if err != nil {
			return err
		}
		if _, err := domain.NormalizeIncident(domain.RawRecord{Kind: domain.KindIncident, Window: window, Value: raw}); err != nil {
			return err
		}
	}
	for _, item := range generateStopSearches(window, records, seed) {
		raw, err := json.Marshal(item)
		if err != nil {
			return err
		}
		if _, err := domain.NormalizeStopSearch(domain.RawRecord{Kind: domain.KindStopSearch, Window: window, Value: raw}); err != nil {
			return err
		}
	}
	return nil
}

func handlePostcode(w http.ResponseWriter, r *http.Request) {
	postcode := r.PathValue("postcode")
	// Coordinates derived from the postcode hash: stable per postcode,
	// spread across Greater London.
	h := hashOf(postcode)
	writeJSON(w, map[string]any{
		"status": 200,
		"result": map[string]any{
			"longitude": -0.2 + float64(h%1000)/5000.0,
			"latitude":  51.4 + float64(h/1000%1000)/5000.0,
		},
	})
}

func handleCrimes(records int, seed int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		window, ok := parseWindow(w, r)
		if !ok {
			return
		}
		writeJSON(w, generateCrimes(window, records, seed))
	}
}

func handleStopSearches(records int, seed int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		window, ok := parseWindow(w, r)
		if !ok {
			return
		}
		writeJSON(w, generateStopSearches(window, records, seed))
	}
}

func generateCrimes(window domain.MonthWindow, records int, seed int64) []map[string]any {
	rng := rand.New(rand.NewSource(seed + int64(hashOf("crimes|"+window.String()))))
	items := make([]map[string]any, 0, records)
	for range records {
		item := map[string]any{
			"category": pick(rng, categories),
			"month":    window.String(),
			"location": map[string]any{
				"street": map[string]any{"name": pick(rng, streets)},
			},
		}
		// Roughly a quarter of crimes have no published outcome yet.
		if outcome := pick(rng, outcomes); outcome != "" {
			item["outcome_status"] = map[string]any{"category": outcome}
		} else {
			item["outcome_status"] = nil
		}
		items = append(items, item)
	}
	return items
}

func generateStopSearches(window domain.MonthWindow, records int, seed int64) []map[string]any {
	rng := rand.New(rand.NewSource(seed + int64(hashOf("stops|"+window.String()))))
	items := make([]map[string]any, 0, records)
	for range records {
		day := 1 + rng.Intn(28)
		hour := rng.Intn(24)
		minute := rng.Intn(60)
		items = append(items, map[string]any{
			"age_range":        pick(rng, ageRanges),
			"gender":           pick(rng, genders),
			"legislation":      pick(rng, legislations),
			"object_of_search": pick(rng, objects),
			"type":             pick(rng, ssTypes),
			"involved_person":  rng.Intn(10) > 1,
			"outcome":          pick(rng, ssOutcomes),
			"datetime":         fmt.Sprintf("%s-%02dT%02d:%02d:00+00:00", window.String(), day, hour, minute),
			"location": map[string]any{
				"street": map[string]any{"name": pick(rng, streets)},
			},
		})
	}
	return items
}

func parseWindow(w http.ResponseWriter, r *http.Request) (domain.MonthWindow, bool) {
	date := r.URL.Query().Get("date")
	var year, month int
	if _, err := fmt.Sscanf(date, "%d-%d", &year, &month); err != nil || month < 1 || month > 12 {
		http.Error(w, fmt.Sprintf("bad date parameter %q", date), http.StatusBadRequest)
		return domain.MonthWindow{}, false
	}
	return domain.MonthWindow{Year: year, Month: time.Month(month)}, true
}

func pick(rng *rand.Rand, values []string) string {
	return values[rng.Intn(len(values))]
}

func hashOf(s string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(s)) //nolint:errcheck // fnv never fails
	return h.Sum32()
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort mock response
}
