// Package domain models UK street-level policing data.
//
// # Data Sources
//
// Records come from the data.police.uk open-data API, which serves street-level
// crime and stop-and-search events within a one-mile radius of a coordinate
// pair, paginated by calendar month. Postcodes are resolved to coordinates via
// the postcodes.io lookup API.
//
// # Upstream Conventions
//
// Date parameter:
//
//	The API takes "YYYY-M" with no zero padding ("2024-3"), while record
//	payloads carry a zero-padded "YYYY-MM" month. [MonthWindow.QueryValue]
//	renders the former, [MonthWindow.String] the latter.
//
// Publication lag:
//
//	Monthly data is published roughly two months behind. Window enumeration
//	therefore excludes the current month and the one before it; requesting
//	them typically returns empty or partial data.
//
// Rate limit:
//
//	The API allows short bursts of up to 15 concurrent requests, after which
//	it responds 429. Acquisition fans out in batches of at most 15 with a
//	cooldown pause between batches.
//
// Crime payload shape (one JSON object per incident):
//
//	category              crime category slug, e.g. "bicycle-theft"
//	location.street.name  nearest street, e.g. "On or near Shopping Area"
//	outcome_status        nullable; null means no outcome has been published,
//	                      which normalizes to the literal "Unknown"
//	month                 "YYYY-MM"
//
// Stop-and-search payload shape:
//
//	age_range, gender, legislation, object_of_search, type, outcome are flat
//	strings (possibly empty); involved_person is a boolean; datetime is an
//	ISO-8601 timestamp like "2023-01-14T11:30:00+00:00", from which the
//	normalizer derives date ("2023-01"), time ("11:30") and hour ("11").
//
// Records are validated and projected into fixed-shape structs at this
// package's normalization boundary; downstream aggregation relies on the
// closed categorical field sets in [CategoricalFields] rather than runtime
// lookups into loose maps.
package domain
