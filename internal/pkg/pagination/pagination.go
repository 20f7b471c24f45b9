package pagination

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// Params represents offset-based pagination parameters
type Params struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// Meta represents pagination metadata
type Meta struct {
	Total   int64 `json:"total"`
	Limit   int   `json:"limit"`
	Offset  int   `json:"offset"`
	HasMore bool  `json:"has_more"`
}

// DefaultLimit is the default number of items per page
const DefaultLimit = 50

// MaxLimit is the maximum number of items per page
const MaxLimit = 100

// GetParams extracts limit/offset from the query string. A page parameter
// is accepted as an alternative to offset.
func GetParams(c *fiber.Ctx) *Params {
	limit, err := strconv.Atoi(c.Query("limit", strconv.Itoa(DefaultLimit)))
	if err != nil {
		limit = DefaultLimit
	}
	offset, _ := strconv.Atoi(c.Query("offset", "0"))
	if page, err := strconv.Atoi(c.Query("page")); err == nil && c.Query("offset") == "" && page > 1 {
		offset = (page - 1) * normalizeLimit(limit)
	}
	return New(limit, offset)
}

// New clamps limit and offset into range
func New(limit, offset int) *Params {
	if offset < 0 {
		offset = 0
	}
	return &Params{
		Limit:  normalizeLimit(limit),
		Offset: offset,
	}
}

func normalizeLimit(limit int) int {
	if limit < 1 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// GetMeta calculates pagination metadata
func GetMeta(params *Params, total int64) *Meta {
	return &Meta{
		Total:   total,
		Limit:   params.Limit,
		Offset:  params.Offset,
		HasMore: int64(params.Offset+params.Limit) < total,
	}
}
