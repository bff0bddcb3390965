// Package runs extracts run records from the paginated "my runs" listing.
package runs

// Record is one run as shown in the listing.
type Record struct {
	Date     string
	Distance float64 // kilometers
	Duration int     // seconds
}

// RawEntry holds the rendered text of one run entry's fields.
// A nil field means the element was not found inside the entry.
type RawEntry struct {
	Date     *string `json:"date"`
	Distance *string `json:"distance"`
	Duration *string `json:"duration"`
}

// Snapshot is a single read of the listing view.
type Snapshot struct {
	Controls []string   `json:"controls"`
	Entries  []RawEntry `json:"entries"`
}
