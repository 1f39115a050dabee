// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data:
// form or JSON bodies into domain values, and list filters from query strings.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"finsight/internal/api"
	"finsight/internal/core"
)

const (
	maxBodyBytes = 1 << 20
	maxPageSize  = 100
)

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data, commonly used with HTMX.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]interface{}
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}

	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if p.body[0] == '{' {
		p.jsonData = make(map[string]interface{})
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return strings.TrimSpace(sanitizeInput(stringValue(val)))
		}
	}
	if p.formData != nil {
		return strings.TrimSpace(sanitizeInput(p.formData.Get(key)))
	}
	return ""
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// stringValue converts an interface{} to string.
func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// FormError is a client-side validation failure on one field.
type FormError struct {
	Field string
	Err   error
}

func (e *FormError) Error() string { return e.Err.Error() }
func (e *FormError) Unwrap() error { return e.Err }

func fieldErr(field string, err error) error {
	return &FormError{Field: field, Err: err}
}

// ParseUserUpdate reads the profile form (name, email).
func ParseUserUpdate(p *RequestBodyParser) (core.UserUpdate, error) {
	u := core.UserUpdate{
		Name:  p.Get("name"),
		Email: p.Get("email"),
	}
	if err := u.Validate(); err != nil {
		field := "name"
		if errors.Is(err, core.ErrEmptyEmail) || errors.Is(err, core.ErrInvalidEmail) {
			field = "email"
		}
		return u, fieldErr(field, err)
	}
	return u, nil
}

// ParseTransaction reads the transaction form: description, amount, date,
// type, categoryId and notes.
func ParseTransaction(p *RequestBodyParser) (core.Transaction, error) {
	tx := core.Transaction{
		Description: p.Get("description"),
		Notes:       p.Get("notes"),
	}

	cents, err := core.ParseDecimalToCents(p.Get("amount"))
	if err != nil {
		return tx, fieldErr("amount", err)
	}
	tx.Amount = core.Money{Cents: cents}

	date, err := parseFormDate(p.Get("date"))
	if err != nil {
		return tx, fieldErr("date", err)
	}
	tx.Date = date

	txType, err := core.ParseTransactionType(p.Get("type"))
	if err != nil {
		return tx, fieldErr("type", err)
	}
	tx.Type = txType

	if raw := p.Get("categoryId"); raw != "" {
		id, err := parseID(raw)
		if err != nil {
			return tx, fieldErr("categoryId", fmt.Errorf("invalid category"))
		}
		tx.CategoryID = &id
	}

	if err := tx.Validate(); err != nil {
		field := "description"
		switch {
		case errors.Is(err, core.ErrInvalidAmount):
			field = "amount"
		case errors.Is(err, core.ErrInvalidDate):
			field = "date"
		case errors.Is(err, core.ErrInvalidType):
			field = "type"
		}
		return tx, fieldErr(field, err)
	}
	return tx, nil
}

// ParseCategory reads the category form (name, description).
func ParseCategory(p *RequestBodyParser) (core.Category, error) {
	c := core.Category{
		Name:        p.Get("name"),
		Description: p.Get("description"),
	}
	if err := c.Validate(); err != nil {
		return c, fieldErr("name", err)
	}
	return c, nil
}

// parseFormDate accepts HTML date and datetime-local values as well as the
// backend's own format. An empty value means today.
func parseFormDate(raw string) (core.DateTime, error) {
	if raw == "" {
		now := time.Now()
		return core.NewDateTime(now.Year(), int(now.Month()), now.Day()), nil
	}
	d, err := core.ParseDateTime(raw)
	if err != nil {
		return core.DateTime{}, core.ErrInvalidDate
	}
	return d, nil
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

// ParsePageRequest reads page and size from the query. Missing or invalid
// values fall back to the defaults; size is capped.
func ParsePageRequest(query url.Values) api.PageRequest {
	var p api.PageRequest
	if v, err := strconv.Atoi(strings.TrimSpace(query.Get("page"))); err == nil {
		p.Page = v
	}
	if v, err := strconv.Atoi(strings.TrimSpace(query.Get("size"))); err == nil {
		p.Size = v
	}
	p = p.Normalize()
	if p.Size > maxPageSize {
		p.Size = maxPageSize
	}
	return p
}

// TransactionFilter selects which listing endpoint serves the transactions page.
type TransactionFilter struct {
	Type       core.TransactionType
	CategoryID int64
	Start      core.DateTime
	End        core.DateTime
	Page       api.PageRequest
}

// ParseTransactionFilter reads type, category, start, end, page and size.
// Unusable values are dropped rather than rejected.
func ParseTransactionFilter(query url.Values) TransactionFilter {
	f := TransactionFilter{Page: ParsePageRequest(query)}

	if t, err := core.ParseTransactionType(query.Get("type")); err == nil {
		f.Type = t
	}
	if id, err := parseID(query.Get("category")); err == nil {
		f.CategoryID = id
	}
	start, errStart := core.ParseDateTime(strings.TrimSpace(query.Get("start")))
	end, errEnd := core.ParseDateTime(strings.TrimSpace(query.Get("end")))
	if errStart == nil && errEnd == nil && !end.Before(start.Time) {
		f.Start = start
		// A bare end date includes the whole day.
		if end.Hour() == 0 && end.Minute() == 0 && end.Second() == 0 {
			end = core.DateTime{Time: end.Add(24*time.Hour - time.Second)}
		}
		f.End = end
	}
	return f
}

// HasDateRange reports whether both bounds are set.
func (f TransactionFilter) HasDateRange() bool {
	return !f.Start.IsZero() && !f.End.IsZero()
}

// Query encodes the filter back into query parameters, page included.
func (f TransactionFilter) Query() url.Values {
	q := url.Values{}
	if f.Type != "" {
		q.Set("type", f.Type.String())
	}
	if f.CategoryID > 0 {
		q.Set("category", strconv.FormatInt(f.CategoryID, 10))
	}
	if f.HasDateRange() {
		q.Set("start", f.Start.DateString())
		q.Set("end", f.End.DateString())
	}
	q.Set("page", strconv.Itoa(f.Page.Page))
	q.Set("size", strconv.Itoa(f.Page.Size))
	return q
}

// WithPage returns a copy of the filter pointing at another page.
func (f TransactionFilter) WithPage(page int) TransactionFilter {
	f.Page.Page = page
	return f
}
