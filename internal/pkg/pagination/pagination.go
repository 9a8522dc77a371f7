// Package pagination pages through in-memory listings by offset.
package pagination

import "math"

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// OffsetRequest represents offset-based pagination request
type OffsetRequest struct {
	Page     int `json:"page,omitempty"`
	PageSize int `json:"page_size,omitempty"`
}

// OffsetResponse represents offset-based pagination response
type OffsetResponse[T any] struct {
	Items      []T   `json:"items"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// NewOffsetRequest creates a new offset request with defaults
func NewOffsetRequest(page, pageSize int) *OffsetRequest {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > MaxLimit {
		pageSize = DefaultLimit
	}
	return &OffsetRequest{
		Page:     page,
		PageSize: pageSize,
	}
}

// GetOffset returns the index of the first item on the page.
// Offsets past math.MaxInt saturate instead of wrapping.
func (r *OffsetRequest) GetOffset() int {
	page, size := r.GetPage(), r.GetPageSize()
	if page-1 > math.MaxInt/size {
		return math.MaxInt
	}
	return (page - 1) * size
}

// GetPage returns validated page
func (r *OffsetRequest) GetPage() int {
	if r.Page <= 0 {
		return 1
	}
	return r.Page
}

// GetPageSize returns validated page size
func (r *OffsetRequest) GetPageSize() int {
	if r.PageSize <= 0 || r.PageSize > MaxLimit {
		return DefaultLimit
	}
	return r.PageSize
}

// BuildOffsetResponse builds an offset response from items and total count
func BuildOffsetResponse[T any](items []T, req *OffsetRequest, total int64) *OffsetResponse[T] {
	totalPages := int((total + int64(req.GetPageSize()) - 1) / int64(req.GetPageSize()))

	return &OffsetResponse[T]{
		Items:      items,
		Page:       req.GetPage(),
		PageSize:   req.GetPageSize(),
		TotalItems: total,
		TotalPages: totalPages,
		HasNext:    req.GetPage() < totalPages,
		HasPrev:    req.GetPage() > 1,
	}
}

// Paginate cuts the requested page out of all and builds the response.
func Paginate[T any](all []T, req *OffsetRequest) *OffsetResponse[T] {
	start := req.GetOffset()
	if start < 0 || start > len(all) {
		start = len(all)
	}
	end := len(all)
	if len(all)-start > req.GetPageSize() {
		end = start + req.GetPageSize()
	}
	items := make([]T, end-start)
	copy(items, all[start:end])
	return BuildOffsetResponse(items, req, int64(len(all)))
}
