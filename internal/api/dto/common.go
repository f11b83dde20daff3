package dto

import (
	"net/http"
	"strconv"
)

type ErrorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

type SuccessResponse struct {
	Message string `json:"message"`
}

type CountResponse struct {
	Count int64 `json:"count"`
}

type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PerPage    int         `json:"perPage"`
	TotalPages int         `json:"totalPages"`
}

type PaginationParams struct {
	Page    int
	PerPage int
}

// PaginationFromQuery reads page and limit (or perPage) from the query string.
func PaginationFromQuery(r *http.Request) PaginationParams {
	q := r.URL.Query()
	p := PaginationParams{}
	p.Page, _ = strconv.Atoi(q.Get("page"))
	if limit := q.Get("limit"); limit != "" {
		p.PerPage, _ = strconv.Atoi(limit)
	} else {
		p.PerPage, _ = strconv.Atoi(q.Get("perPage"))
	}
	p.Normalize()
	return p
}

func (p *PaginationParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage < 1 {
		p.PerPage = 20
	}
	if p.PerPage > 100 {
		p.PerPage = 100
	}
}

func (p *PaginationParams) Offset() int {
	return (p.Page - 1) * p.PerPage
}

func NewPaginated(data interface{}, total int64, p PaginationParams) PaginatedResponse {
	pages := 0
	if p.PerPage > 0 {
		pages = int((total + int64(p.PerPage) - 1) / int64(p.PerPage))
	}
	return PaginatedResponse{
		Data:       data,
		Total:      total,
		Page:       p.Page,
		PerPage:    p.PerPage,
		TotalPages: pages,
	}
}
