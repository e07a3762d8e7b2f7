// Package apitest provides typed test helpers for the span framework:
// a client wrapper around httptest.Server plus response and error
// validators that understand the error-* and paging-* header contracts.
package apitest

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"

	"github.com/illuscio-dev/span"
)

// Client wraps an httptest.Server for convenient API testing.
type Client struct {
	Server *httptest.Server
}

// NewClient creates a test client from a router.
func NewClient(t testing.TB, r *span.Router) *Client {
	t.Helper()
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &Client{Server: srv}
}

// Response holds a decoded API response.
type Response[T any] struct {
	Status  int
	Headers http.Header
	Body    *T
	Raw     []byte
}

// Option customizes a single test request.
type Option func(*http.Request)

// WithHeader sets a request header.
func WithHeader(key, value string) Option {
	return func(r *http.Request) {
		r.Header.Set(key, value)
	}
}

// WithAccept sets the Accept header to the given mime type.
func WithAccept(mt span.MimeType) Option {
	return func(r *http.Request) {
		r.Header.Set("Accept", string(mt))
	}
}

// Get sends a typed GET request.
func Get[Resp any](t testing.TB, c *Client, path string, opts ...Option) *Response[Resp] {
	t.Helper()
	return do[Resp](t, c, http.MethodGet, path, nil, span.MimeNone, opts...)
}

// Post sends a typed POST request with a body encoded as mt.
func Post[Req, Resp any](t testing.TB, c *Client, path string, body *Req, mt span.MimeType, opts ...Option) *Response[Resp] {
	t.Helper()
	return do[Resp](t, c, http.MethodPost, path, encodeBody(t, body, mt), mt, opts...)
}

// Put sends a typed PUT request with a body encoded as mt.
func Put[Req, Resp any](t testing.TB, c *Client, path string, body *Req, mt span.MimeType, opts ...Option) *Response[Resp] {
	t.Helper()
	return do[Resp](t, c, http.MethodPut, path, encodeBody(t, body, mt), mt, opts...)
}

// Patch sends a typed PATCH request with a body encoded as mt.
func Patch[Req, Resp any](t testing.TB, c *Client, path string, body *Req, mt span.MimeType, opts ...Option) *Response[Resp] {
	t.Helper()
	return do[Resp](t, c, http.MethodPatch, path, encodeBody(t, body, mt), mt, opts...)
}

// Delete sends a typed DELETE request.
func Delete[Resp any](t testing.TB, c *Client, path string, opts ...Option) *Response[Resp] {
	t.Helper()
	return do[Resp](t, c, http.MethodDelete, path, nil, span.MimeNone, opts...)
}

func encodeBody(t testing.TB, body any, mt span.MimeType) io.Reader {
	t.Helper()
	if body == nil {
		return nil
	}

	enc, ok := span.EncoderFor(mt)
	if !ok {
		t.Fatalf("apitest: no codec for mime type %q", mt)
	}

	var buf bytes.Buffer
	if err := enc.Encode(&buf, body); err != nil {
		t.Fatalf("apitest: encode request body: %v", err)
	}
	return &buf
}

func do[Resp any](t testing.TB, c *Client, method, path string, body io.Reader, mt span.MimeType, opts ...Option) *Response[Resp] {
	t.Helper()

	req, err := http.NewRequestWithContext(context.Background(), method, c.Server.URL+path, body)
	if err != nil {
		t.Fatalf("apitest: create request: %v", err)
	}

	if body != nil {
		mt.AddToHeader(req.Header)
	}
	for _, opt := range opts {
		opt(req)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("apitest: execute request: %v", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			t.Errorf("apitest: close body: %v", closeErr)
		}
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("apitest: read body: %v", err)
	}

	result := &Response[Resp]{
		Status:  resp.StatusCode,
		Headers: resp.Header,
		Raw:     raw,
	}

	if len(raw) > 0 {
		respMT := span.ParseMimeType(resp.Header.Get("Content-Type"))
		dec, ok := span.DecoderFor(respMT)
		if ok {
			var decoded Resp
			if decodeErr := dec.Decode(raw, &decoded); decodeErr == nil {
				result.Body = &decoded
			}
		}
	}

	return result
}

// ValidateResponse asserts that a response succeeded: its status is in
// validStatuses (default: just 200) and it carries no error headers.
func (r *Response[T]) ValidateResponse(t testing.TB, validStatuses ...int) *Response[T] {
	t.Helper()

	if len(validStatuses) == 0 {
		validStatuses = []int{http.StatusOK}
	}

	if name := r.Headers.Get(span.HeaderErrorName); name != "" {
		t.Fatalf(
			"apitest: response carries error %s (%s): %s",
			name, r.Headers.Get(span.HeaderErrorCode), r.Headers.Get(span.HeaderErrorMessage),
		)
	}

	if !slices.Contains(validStatuses, r.Status) {
		t.Fatalf("apitest: status %d not in %v", r.Status, validStatuses)
	}

	return r
}

// ValidateHeaders asserts that every expected header is present with the
// expected value.
func (r *Response[T]) ValidateHeaders(t testing.TB, expected map[string]string) *Response[T] {
	t.Helper()

	for key, want := range expected {
		if got := r.Headers.Get(key); got != want {
			t.Fatalf("apitest: header %s = %q, want %q", key, got, want)
		}
	}
	return r
}

// ValidateText asserts the raw response body equals the expected text.
func (r *Response[T]) ValidateText(t testing.TB, expected string) *Response[T] {
	t.Helper()

	if string(r.Raw) != expected {
		t.Fatalf("apitest: body %q, want %q", string(r.Raw), expected)
	}
	return r
}

// ValidateError asserts that the response reports an error of the given
// kind through its headers, with the kind's HTTP status, and returns the
// reconstructed error.
func (r *Response[T]) ValidateError(t testing.TB, kind *span.ErrorKind) *span.APIError {
	t.Helper()

	apiErr, ok := span.APIErrorFromHeaders(r.Headers, r.Status)
	if !ok {
		t.Fatalf("apitest: response carries no error headers (status %d)", r.Status)
	}

	if apiErr.Kind().Name() != kind.Name() {
		t.Fatalf("apitest: error name %q, want %q", apiErr.Kind().Name(), kind.Name())
	}
	if apiErr.Kind().APICode() != kind.APICode() {
		t.Fatalf("apitest: error code %d, want %d", apiErr.Kind().APICode(), kind.APICode())
	}
	if r.Status != kind.HTTPCode() {
		t.Fatalf("apitest: status %d, want %d", r.Status, kind.HTTPCode())
	}

	return apiErr
}

// ValidatePaging asserts the response's paging headers parse and returns
// the reconstructed paging state.
func (r *Response[T]) ValidatePaging(t testing.TB) span.PagingResp {
	t.Helper()

	paging, err := span.PagingRespFromHeaders(r.Headers)
	if err != nil {
		t.Fatalf("apitest: paging headers: %v", err)
	}
	return paging
}
