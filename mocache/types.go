package mocache

import (
	"time"

	"mosync/store"
)

// Entry is one cached manufacturing order.
type Entry struct {
	MONumber        string    `json:"mo_number"`
	SKUName         string    `json:"sku_name"`
	Quantity        *float64  `json:"quantity"`
	UoM             string    `json:"uom"`
	Note            string    `json:"note"`
	SourceCreatedAt time.Time `json:"source_created_at"`
	FetchedAt       time.Time `json:"fetched_at"`
	LastUpdated     time.Time `json:"last_updated"`
}

// Attrs are the mutable fields written by an upsert.
type Attrs struct {
	SKUName         string
	Quantity        *float64
	UoM             string
	Note            string
	SourceCreatedAt time.Time
}

// Field names the timestamp an eviction compares against.
type Field string

const (
	FieldSourceCreatedAt Field = "source_created_at"
	FieldFetchedAt       Field = "fetched_at"
)

// Query selects cached entries. Category resolves to note patterns; a zero
// Since applies no time bound.
type Query struct {
	Category string
	Since    time.Time
	Limit    int
}

type Stats struct {
	Total         int `json:"total"`
	WithinWindow  int `json:"within_window"`
	OutsideWindow int `json:"outside_window"`
}

// Inspection is the operator view of the cache.
type Inspection struct {
	Stats
	OldestSourceCreatedAt *time.Time `json:"oldest_source_created_at"`
	NewestSourceCreatedAt *time.Time `json:"newest_source_created_at"`
	FetchedLast24h        int        `json:"fetched_last_24h"`
	RetentionDays         int        `json:"retention_days"`
}

func entryFromRow(r *store.MOEntry) Entry {
	return Entry{
		MONumber:        r.MONumber,
		SKUName:         r.SKUName,
		Quantity:        r.Quantity,
		UoM:             r.UoM,
		Note:            r.Note,
		SourceCreatedAt: r.SourceCreatedAt,
		FetchedAt:       r.FetchedAt,
		LastUpdated:     r.LastUpdated,
	}
}
