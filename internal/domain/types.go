package domain

// Pagination is the caller supplied cursor request shared across list queries.
type Pagination struct {
	PageSize  int
	PageToken string
}

// SortOrder indicates ascending or descending ordering for list queries.
type SortOrder string

const (
	// SortAsc sorts results in ascending order.
	SortAsc SortOrder = "asc"
	// SortDesc sorts results in descending order.
	SortDesc SortOrder = "desc"
)

// RangeQuery bounds a filter between optional from/to values.
type RangeQuery[T comparable] struct {
	From *T
	To   *T
}

// CursorPage carries one page of results plus the token for the next page.
type CursorPage[T any] struct {
	Items         []T
	NextPageToken string
}
