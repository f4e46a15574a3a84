package models

import (
	"strconv"
	"time"
)

// ListingItem holds the data extracted for a single catalog listing.
// Identity is ID alone; every other field is descriptive payload.
type ListingItem struct {
	ID              string     `json:"id"`
	URL             string     `json:"url"`
	Title           string     `json:"title"`
	Price           *int       `json:"price,omitempty"`
	Location        string     `json:"location,omitempty"`
	Bedrooms        *int       `json:"bedrooms,omitempty"`
	PropertyType    string     `json:"property_type,omitempty"`
	PublicationDate *time.Time `json:"publication_date,omitempty"`
}

// NumericID parses the listing ID as an integer for cursor arithmetic.
// Hash-derived and other non-numeric IDs report ok=false; such items
// still carry a usable identity but never advance a cursor.
func (l ListingItem) NumericID() (int64, bool) {
	n, err := strconv.ParseInt(l.ID, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// PageFetchResult is the outcome of a single page/cursor step.
type PageFetchResult struct {
	Items     []ListingItem
	Transport string
	Terminal  bool
}

// TargetResult is produced by the runner for each crawled target.
type TargetResult struct {
	Site         string        `json:"site"`
	IdentityKey  string        `json:"identity_key"`
	CanonicalURL string        `json:"canonical_url"`
	Email        string        `json:"email"`
	Index        int           `json:"-"` // original position in the batch
	Observed     int           `json:"observed"`
	Seed         bool          `json:"seed"`
	NewItems     []ListingItem `json:"new_items,omitempty"`
	Renotified   []string      `json:"renotified,omitempty"`
	Err          error         `json:"-"`
}
