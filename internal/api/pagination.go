package api

import (
	"net/url"
	"strconv"
)

const (
	DefaultPage     = 0
	DefaultPageSize = 10
)

// PageRequest selects one page of a list endpoint. The zero value asks for
// the first page of DefaultPageSize items.
type PageRequest struct {
	Page int
	Size int
}

// Normalize replaces out-of-range values with the defaults.
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 0 {
		p.Page = DefaultPage
	}
	if p.Size <= 0 {
		p.Size = DefaultPageSize
	}
	return p
}

// Query encodes the normalized page as page and size parameters.
func (p PageRequest) Query() url.Values {
	p = p.Normalize()
	return url.Values{
		"page": {strconv.Itoa(p.Page)},
		"size": {strconv.Itoa(p.Size)},
	}
}
