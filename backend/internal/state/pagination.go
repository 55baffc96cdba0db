package state

import (
	"math"

	"studyhub/backend/internal/constants"
)

// Pagination is the page block shared by every paginated response
type Pagination struct {
	Page       int  `json:"page"`
	PageSize   int  `json:"page_size"`
	TotalItems int  `json:"total_items"`
	TotalPages int  `json:"total_pages"`
	HasMore    bool `json:"has_more"`
}

// ClampPage forces page >= 1 and 1 <= pageSize <= maxPageSize.
// A non-positive pageSize means "unset" and gets the default. page is also
// capped so page*pageSize never overflows.
func ClampPage(page, pageSize, maxPageSize int) (int, int) {
	if pageSize < 1 {
		pageSize = constants.DefaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	if page < 1 {
		page = 1
	}
	if maxPage := math.MaxInt / pageSize; page > maxPage {
		page = maxPage
	}
	return page, pageSize
}

// Skip is the number of items before page
func Skip(page, pageSize int) int {
	if page < 1 || pageSize < 1 {
		return 0
	}
	if page-1 > math.MaxInt/pageSize {
		return math.MaxInt
	}
	return (page - 1) * pageSize
}

// NewPagination fills the page block for an already clamped page
func NewPagination(page, pageSize, totalItems int) Pagination {
	totalPages := 0
	if totalItems > 0 {
		totalPages = (totalItems + pageSize - 1) / pageSize
	}
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		TotalItems: totalItems,
		TotalPages: totalPages,
		HasMore:    page < totalPages,
	}
}

// Window returns the [start, end) slice bounds of a page over total items
func Window(totalItems, page, pageSize int) (int, int) {
	start := Skip(page, pageSize)
	if start > totalItems {
		start = totalItems
	}
	end := totalItems
	if pageSize < totalItems-start {
		end = start + pageSize
	}
	return start, end
}
