package model

// DefaultPageSize is used when a page request carries no limit.
const DefaultPageSize = 500

// PageRequest selects one page of scan events. Cursor is opaque to callers;
// an empty cursor starts from the beginning of the log.
type PageRequest struct {
	Cursor string
	Limit  int
}

// ScanEventPage is one page of an order's event log. NextCursor is empty on
// the final page.
type ScanEventPage struct {
	Events     []ScanEvent
	NextCursor string
}

// InspectionFilter selects inspection records by order, bundle, or both.
type InspectionFilter struct {
	OrderID  string
	BundleID string
}
