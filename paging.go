package span

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// Paging query parameters and response header names.
const (
	ParamPagingOffset = "paging-offset"
	ParamPagingLimit  = "paging-limit"

	HeaderPagingOffset      = "paging-offset"
	HeaderPagingLimit       = "paging-limit"
	HeaderPagingTotalItems  = "paging-total-items"
	HeaderPagingTotalPages  = "paging-total-pages"
	HeaderPagingCurrentPage = "paging-current-page"
	HeaderPagingPrevious    = "paging-previous"
	HeaderPagingNext        = "paging-next"
)

// Paging is the per-request paging state for routes registered with
// WithPaging. Offset and Limit are resolved from the request query before
// the handler runs; the handler sets TotalItems so the response headers can
// be derived.
type Paging struct {
	Offset     int
	Limit      int
	TotalItems int
}

// PagingFromContext returns the paging state for the current request.
// Returns false on routes not registered with WithPaging.
func PagingFromContext(ctx context.Context) (*Paging, bool) {
	return GetValue[*Paging](ctx)
}

// PagingReq is the paging window requested by a client.
type PagingReq struct {
	Offset int
	Limit  int
}

// PagingResp describes the paging state of a response, as reported through
// the paging-* headers. Previous and Next are full request URLs; they are
// empty on the first and last page respectively.
type PagingResp struct {
	Offset      int
	Limit       int
	TotalItems  int
	TotalPages  int
	CurrentPage int
	Previous    string
	Next        string
}

// parsePaging resolves the request's paging window against the route limit.
// The route limit is both the default and the maximum: asking for more is a
// limit violation.
func parsePaging(r *http.Request, routeLimit int) (*Paging, error) {
	query := r.URL.Query()

	offset, err := pagingParam(query, ParamPagingOffset, 0)
	if err != nil {
		return nil, err
	}

	limit, err := pagingParam(query, ParamPagingLimit, routeLimit)
	if err != nil {
		return nil, err
	}

	if limit > routeLimit {
		return nil, ErrLimitExceeded.Newf(
			"requested %s of %d exceeds route maximum of %d", ParamPagingLimit, limit, routeLimit,
		)
	}
	if limit < 1 {
		return nil, ErrRequestValidation.Newf("%s must be positive", ParamPagingLimit)
	}

	return &Paging{Offset: offset, Limit: limit}, nil
}

func pagingParam(query url.Values, name string, fallback int) (int, error) {
	raw := query.Get(name)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, ErrRequestValidation.Newf("%s must be an integer, got %q", name, raw)
	}
	if value < 0 {
		return 0, ErrRequestValidation.Newf("%s must not be negative", name)
	}
	return value, nil
}

// buildPagingResp derives the full paging response from the handler's
// paging state and the request URL. Page count is ceiling division of total
// items by limit; the previous link is omitted at offset 0 and the next
// link once the window reaches the total.
func buildPagingResp(p *Paging, r *http.Request) PagingResp {
	resp := PagingResp{
		Offset:      p.Offset,
		Limit:       p.Limit,
		TotalItems:  p.TotalItems,
		TotalPages:  (p.TotalItems + p.Limit - 1) / p.Limit,
		CurrentPage: p.Offset/p.Limit + 1,
	}

	if p.Offset > 0 {
		resp.Previous = pagingURL(r, max(0, p.Offset-p.Limit), p.Limit)
	}
	if p.Offset+p.Limit < p.TotalItems {
		resp.Next = pagingURL(r, p.Offset+p.Limit, p.Limit)
	}

	return resp
}

// pagingURL rewrites the request URL with the given paging window,
// preserving all other query parameters.
func pagingURL(r *http.Request, offset, limit int) string {
	u := *r.URL
	if u.Scheme == "" {
		u.Scheme = "http"
		if r.TLS != nil {
			u.Scheme = "https"
		}
	}
	if u.Host == "" {
		u.Host = r.Host
	}

	query := u.Query()
	query.Set(ParamPagingOffset, strconv.Itoa(offset))
	query.Set(ParamPagingLimit, strconv.Itoa(limit))
	u.RawQuery = query.Encode()

	return u.String()
}

// setPagingHeaders writes the paging-* response headers. Previous and next
// links are only set when present.
func setPagingHeaders(h http.Header, pr PagingResp) {
	h.Set(HeaderPagingOffset, strconv.Itoa(pr.Offset))
	h.Set(HeaderPagingLimit, strconv.Itoa(pr.Limit))
	h.Set(HeaderPagingTotalItems, strconv.Itoa(pr.TotalItems))
	h.Set(HeaderPagingTotalPages, strconv.Itoa(pr.TotalPages))
	h.Set(HeaderPagingCurrentPage, strconv.Itoa(pr.CurrentPage))

	if pr.Previous != "" {
		h.Set(HeaderPagingPrevious, pr.Previous)
	}
	if pr.Next != "" {
		h.Set(HeaderPagingNext, pr.Next)
	}
}

// PagingRespFromHeaders reconstructs paging state from response headers,
// for client-side use.
func PagingRespFromHeaders(h http.Header) (PagingResp, error) {
	var (
		resp PagingResp
		err  error
	)

	for _, field := range []struct {
		name   string
		target *int
	}{
		{HeaderPagingOffset, &resp.Offset},
		{HeaderPagingLimit, &resp.Limit},
		{HeaderPagingTotalItems, &resp.TotalItems},
		{HeaderPagingTotalPages, &resp.TotalPages},
		{HeaderPagingCurrentPage, &resp.CurrentPage},
	} {
		raw := h.Get(field.name)
		if raw == "" {
			return PagingResp{}, fmt.Errorf("missing %s header", field.name)
		}
		if *field.target, err = strconv.Atoi(raw); err != nil {
			return PagingResp{}, fmt.Errorf("parse %s header: %w", field.name, err)
		}
	}

	resp.Previous = h.Get(HeaderPagingPrevious)
	resp.Next = h.Get(HeaderPagingNext)

	return resp, nil
}
