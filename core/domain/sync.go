package domain

// SyncOptions are per-run parameters, read at invocation and never persisted.
type SyncOptions struct {
	// Limit caps how many candidates are processed. Zero means the
	// configured default; values are clamped to the configured maximum.
	Limit int `json:"limit"`

	// DryRun performs extraction and counts outcomes but writes nothing.
	DryRun bool `json:"dry_run"`

	// Backfill ignores the stored watermark and scans the full base query.
	Backfill bool `json:"backfill"`
}

// SyncReport summarizes one sync run. It exists only for the duration of the
// run and is returned to the caller.
type SyncReport struct {
	TotalFound    int `json:"total_found"`
	Processed     int `json:"processed"`
	Inserted      int `json:"inserted"`
	Skipped       int `json:"skipped"`
	ParseFailed   int `json:"parse_failed"`
	FetchFailed   int `json:"fetch_failed"`
	ExtractFailed int `json:"extract_failed"`
	StoreFailed   int `json:"store_failed"`

	Query     string `json:"query"`
	Watermark string `json:"watermark,omitempty"` // YYYY-MM-DD, empty on first run or backfill
	DryRun    bool   `json:"dry_run"`
}
