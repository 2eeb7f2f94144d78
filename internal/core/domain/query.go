package domain

// StatusFilter is the tri-state enabled filter of a user search.
type StatusFilter string

const (
	StatusAny      StatusFilter = ""
	StatusEnabled  StatusFilter = "enabled"
	StatusDisabled StatusFilter = "disabled"
)

// Enabled returns the server-side "enabled" parameter, or nil for any.
func (f StatusFilter) Enabled() *bool {
	switch f {
	case StatusEnabled:
		v := true
		return &v
	case StatusDisabled:
		v := false
		return &v
	default:
		return nil
	}
}

// SortDirection is asc or desc.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// Flip returns the opposite direction.
func (d SortDirection) Flip() SortDirection {
	if d == SortAsc {
		return SortDesc
	}
	return SortAsc
}

const DefaultPageSize = 10

// SearchQuery is the single active query of a list view. Page is 0-based.
type SearchQuery struct {
	SearchTerm     string        `json:"searchTerm"`
	RoleFilter     string        `json:"roleFilter"`
	StatusFilter   StatusFilter  `json:"statusFilter"`
	IncludeDeleted bool          `json:"includeDeleted"`
	SortField      string        `json:"sortField,omitempty"`
	SortDirection  SortDirection `json:"sortDirection,omitempty"`
	Page           int           `json:"page"`
	PageSize       int           `json:"pageSize"`
}

// Sort renders the "field,dir" parameter, or "" when unsorted.
func (q SearchQuery) Sort() string {
	if q.SortField == "" {
		return ""
	}
	dir := q.SortDirection
	if dir == "" {
		dir = SortAsc
	}
	return q.SortField + "," + string(dir)
}

// Page is one server-authoritative page of a collection.
type Page[T any] struct {
	Content       []T   `json:"content"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
	Size          int   `json:"size"`
	Number        int   `json:"number"`
}

// HasPage reports whether n addresses an existing page.
func (p *Page[T]) HasPage(n int) bool {
	return p != nil && n >= 0 && n < p.TotalPages
}

// BulkResult is the server's informational outcome of a batch mutation.
type BulkResult struct {
	Affected int    `json:"affected"`
	Message  string `json:"message"`
}
