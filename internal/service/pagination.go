package service

import "github.com/stemsi/speaking-backend/internal/response"

const maxPerPage = 100

// normalizePage clamps page/perPage and returns the SQL limit and offset.
func normalizePage(page, perPage int) (int, int, int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	return page, perPage, perPage, (page - 1) * perPage
}

func newPagination(page, perPage, total int) *response.Pagination {
	return response.NewPagination(page, perPage, total)
}
