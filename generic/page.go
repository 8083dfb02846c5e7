package generic

const (
	DefaultPageSize = 25
	MaxPageSize     = 200
)

// PageRequest is a 1-based page number plus page size.
type PageRequest struct {
	Page     int
	PageSize int
}

// Normalize clamps the request into valid bounds.
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	return p
}

// Offset is the number of rows to skip.
func (p PageRequest) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.PageSize
}

// Page is one page of results.
type Page[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
	TotalPages int `json:"total_pages"`
}

// NewPage slices items (already sorted, complete) into the requested page.
func NewPage[T any](items []T, req PageRequest) Page[T] {
	req = req.Normalize()
	total := len(items)
	start := req.Offset()
	if start > total {
		start = total
	}
	end := start + req.PageSize
	if end > total {
		end = total
	}
	pages := (total + req.PageSize - 1) / req.PageSize
	out := make([]T, end-start)
	copy(out, items[start:end])
	return Page[T]{
		Items:      out,
		Page:       req.Page,
		PageSize:   req.PageSize,
		TotalCount: total,
		TotalPages: pages,
	}
}

// PageOf wraps one already-fetched page of a larger result set.
func PageOf[T any](items []T, total int, req PageRequest) Page[T] {
	req = req.Normalize()
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Items:      items,
		Page:       req.Page,
		PageSize:   req.PageSize,
		TotalCount: total,
		TotalPages: (total + req.PageSize - 1) / req.PageSize,
	}
}
