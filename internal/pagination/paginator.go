package pagination

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// Paginator slices in-memory listings into pages addressed by opaque cursor
// tokens
type Paginator struct {
	DefaultPageSize int
	MaxPageSize     int
}

// PageRequest represents pagination parameters
type PageRequest struct {
	PageSize  int    `json:"page_size"`
	PageToken string `json:"page_token,omitempty"`
	SortOrder string `json:"sort_order,omitempty"`
}

// Page is one slice of a listing
type Page[T any] struct {
	Items         []T    `json:"items"`
	NextPageToken string `json:"next_page_token,omitempty"`
	PrevPageToken string `json:"prev_page_token,omitempty"`
	TotalCount    int    `json:"total_count"`
	PageSize      int    `json:"page_size"`
	HasMore       bool   `json:"has_more"`
}

// CursorToken represents pagination cursor information
type CursorToken struct {
	Offset int `json:"offset"`
}

// NewPaginator creates a new paginator
func NewPaginator(defaultSize, maxSize int) *Paginator {
	return &Paginator{
		DefaultPageSize: defaultSize,
		MaxPageSize:     maxSize,
	}
}

// RequestFromQuery reads page_size, page_token and sort_order from a URL query
func RequestFromQuery(r *http.Request) (PageRequest, error) {
	q := r.URL.Query()
	req := PageRequest{
		PageToken: q.Get("page_token"),
		SortOrder: q.Get("sort_order"),
	}
	if raw := q.Get("page_size"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil {
			return req, fmt.Errorf("invalid page size: %q", raw)
		}
		req.PageSize = size
	}
	return req, nil
}

// ValidateRequest validates and normalizes pagination request
func (p *Paginator) ValidateRequest(req *PageRequest) error {
	if req.PageSize <= 0 {
		req.PageSize = p.DefaultPageSize
	}
	if req.PageSize > p.MaxPageSize {
		req.PageSize = p.MaxPageSize
	}

	// Listings are chronological, so ascending is the natural order
	if req.SortOrder == "" {
		req.SortOrder = "ASC"
	} else {
		req.SortOrder = strings.ToUpper(req.SortOrder)
		if req.SortOrder != "ASC" && req.SortOrder != "DESC" {
			return fmt.Errorf("invalid sort order: %s", req.SortOrder)
		}
	}

	if req.PageToken != "" {
		token, err := p.DecodeToken(req.PageToken)
		if err != nil {
			return fmt.Errorf("invalid page token: %w", err)
		}
		if token.Offset < 0 {
			return fmt.Errorf("invalid page token: negative offset")
		}
	}

	return nil
}

// Paginate validates req and returns the requested page of items. The input
// slice is not modified.
func Paginate[T any](p *Paginator, items []T, req PageRequest) (Page[T], error) {
	if err := p.ValidateRequest(&req); err != nil {
		return Page[T]{}, err
	}

	offset := 0
	if req.PageToken != "" {
		token, _ := p.DecodeToken(req.PageToken)
		offset = token.Offset
	}

	ordered := items
	if req.SortOrder == "DESC" {
		ordered = make([]T, len(items))
		for i, item := range items {
			ordered[len(items)-1-i] = item
		}
	}

	page := Page[T]{
		Items:      []T{},
		TotalCount: len(items),
		PageSize:   req.PageSize,
	}
	if offset < len(ordered) {
		end := offset + req.PageSize
		if end > len(ordered) {
			end = len(ordered)
		}
		page.Items = append(page.Items, ordered[offset:end]...)
		page.HasMore = end < len(ordered)
	}

	if page.HasMore {
		page.NextPageToken = p.EncodeToken(&CursorToken{Offset: offset + req.PageSize})
	}
	if offset > 0 {
		prev := offset - req.PageSize
		if prev < 0 {
			prev = 0
		}
		page.PrevPageToken = p.EncodeToken(&CursorToken{Offset: prev})
	}

	return page, nil
}

// EncodeToken encodes cursor token to string
func (p *Paginator) EncodeToken(token *CursorToken) string {
	data, _ := json.Marshal(token)
	return base64.URLEncoding.EncodeToString(data)
}

// DecodeToken decodes cursor token from string
func (p *Paginator) DecodeToken(tokenStr string) (*CursorToken, error) {
	data, err := base64.URLEncoding.DecodeString(tokenStr)
	if err != nil {
		return nil, err
	}

	var token CursorToken
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, err
	}

	return &token, nil
}
