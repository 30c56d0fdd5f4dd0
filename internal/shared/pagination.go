package shared

import (
	"math"
	"net/http"
	"strconv"
)

const (
	defaultPerPage = 20
	maxPerPage     = 200
)

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"perPage"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// NewPagination computes pagination metadata.
func NewPagination(page, perPage, total int) Pagination {
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	if page <= 0 {
		page = 1
	}
	totalPages := int(math.Ceil(float64(total) / float64(perPage)))
	return Pagination{Page: page, PerPage: perPage, Total: total, TotalPages: totalPages}
}

// PageRequest is the limit/offset window requested by a list endpoint.
type PageRequest struct {
	Page    int
	PerPage int
}

// PageRequestFromQuery reads ?page=&per_page= with sane bounds.
func PageRequestFromQuery(r *http.Request) PageRequest {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	return PageRequest{Page: page, PerPage: perPage}
}

// Limit returns the SQL LIMIT.
func (p PageRequest) Limit() int { return p.PerPage }

// Offset returns the SQL OFFSET.
func (p PageRequest) Offset() int { return (p.Page - 1) * p.PerPage }

// PagedResult wraps one page of items with its metadata.
type PagedResult[T any] struct {
	Items      []T        `json:"items"`
	Pagination Pagination `json:"pagination"`
}

// NewPagedResult builds a PagedResult for req. A nil items slice is
// rendered as an empty list.
func NewPagedResult[T any](items []T, req PageRequest, total int) PagedResult[T] {
	if items == nil {
		items = []T{}
	}
	return PagedResult[T]{Items: items, Pagination: NewPagination(req.Page, req.PerPage, total)}
}
