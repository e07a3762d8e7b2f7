package span_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/illuscio-dev/span"
)

func doRequest(t *testing.T, srv *httptest.Server, method, path string, body io.Reader, headers map[string]string) *http.Response {
	t.Helper()

	req, err := http.NewRequestWithContext(context.Background(), method, srv.URL+path, body)
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, resp.Body.Close()) })
	return resp
}

func TestParamBinding(t *testing.T) {
	t.Parallel()

	type Req struct {
		ID      uuid.UUID     `path:"id"`
		Count   int           `query:"count" default:"7"`
		Ratio   float64       `query:"ratio"`
		Active  bool          `query:"active"`
		Wait    time.Duration `query:"wait"`
		Token   string        `header:"X-Token"`
		Session string        `cookie:"session"`
	}

	var captured Req

	r := span.New()
	span.Get(r, "/items/{id}", func(_ context.Context, req *Req) (*map[string]any, error) {
		captured = *req
		return &map[string]any{"ok": true}, nil
	})

	srv := httptest.NewServer(r)
	defer srv.Close()

	id := uuid.New()
	req, err := http.NewRequestWithContext(
		context.Background(), http.MethodGet,
		srv.URL+"/items/"+id.String()+"?ratio=2.5&active=TRUE&wait=3s", nil,
	)
	require.NoError(t, err)
	req.Header.Set("X-Token", "secret")
	req.AddCookie(&http.Cookie{Name: "session", Value: "abc123"})

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { require.NoError(t, resp.Body.Close()) }()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, id, captured.ID)
	assert.Equal(t, 7, captured.Count, "default applies when the param is absent")
	assert.InDelta(t, 2.5, captured.Ratio, 0.001)
	assert.True(t, captured.Active)
	assert.Equal(t, 3*time.Second, captured.Wait)
	assert.Equal(t, "secret", captured.Token)
	assert.Equal(t, "abc123", captured.Session)
}

func TestParamBinding_boolVariants(t *testing.T) {
	t.Parallel()

	type Req struct {
		Flag bool `query:"flag"`
	}

	var captured bool

	r := span.New()
	span.Get(r, "/flags", func(_ context.Context, req *Req) (*map[string]any, error) {
		captured = req.Flag
		return &map[string]any{"flag": req.Flag}, nil
	})

	srv := httptest.NewServer(r)
	defer srv.Close()

	for value, expect := range map[string]bool{
		"1": true, "0": false, "true": true, "TRUE": true, "False": false,
	} {
		resp := doRequest(t, srv, http.MethodGet, "/flags?flag="+value, nil, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode, "flag=%s", value)
		assert.Equal(t, expect, captured, "flag=%s", value)
	}
}

func TestParamBinding_sliceParams(t *testing.T) {
	t.Parallel()

	type Req struct {
		Tags   []string `query:"tag"`
		Scores []int    `query:"score"`
	}

	var captured Req

	r := span.New()
	span.Get(r, "/items", func(_ context.Context, req *Req) (*map[string]any, error) {
		captured = *req
		return &map[string]any{"ok": true}, nil
	})

	srv := httptest.NewServer(r)
	defer srv.Close()

	resp := doRequest(t, srv, http.MethodGet, "/items?tag=one&tag=two&score=3&score=5", nil, nil)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"one", "two"}, captured.Tags)
	assert.Equal(t, []int{3, 5}, captured.Scores)
}

func TestParamBinding_coercionFailure(t *testing.T) {
	t.Parallel()

	type Req struct {
		Count int `query:"count"`
	}

	r := span.New()
	span.Get(r, "/items", func(_ context.Context, _ *Req) (*map[string]any, error) {
		return &map[string]any{"ok": true}, nil
	})

	srv := httptest.NewServer(r)
	defer srv.Close()

	resp := doRequest(t, srv, http.MethodGet, "/items?count=notanumber", nil, nil)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "RequestValidationError", resp.Header.Get(span.HeaderErrorName))
	assert.Equal(t, "1003", resp.Header.Get(span.HeaderErrorCode))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Empty(t, body, "error responses carry no body")
}

func TestBodyDecoding_mixedRequest(t *testing.T) {
	t.Parallel()

	type Req struct {
		ID   string `path:"id"`
		Body struct {
			Name string `json:"name"`
		}
	}

	var captured Req

	r := span.New()
	span.Put(r, "/items/{id}", func(_ context.Context, req *Req) (*map[string]any, error) {
		captured = *req
		return &map[string]any{"ok": true}, nil
	})

	srv := httptest.NewServer(r)
	defer srv.Close()

	resp := doRequest(t, srv, http.MethodPut, "/items/42",
		bytes.NewBufferString(`{"name": "renamed"}`),
		map[string]string{"Content-Type": "application/json"},
	)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "42", captured.ID)
	assert.Equal(t, "renamed", captured.Body.Name)
}

func TestBodyDecoding_undecodableBody(t *testing.T) {
	t.Parallel()

	type Req struct {
		Name string `json:"name"`
	}

	r := span.New()
	span.Post(r, "/items", func(_ context.Context, _ *Req) (*map[string]any, error) {
		return &map[string]any{"ok": true}, nil
	})

	srv := httptest.NewServer(r)
	defer srv.Close()

	resp := doRequest(t, srv, http.MethodPost, "/items",
		bytes.NewBufferString(`{"name": broken`),
		map[string]string{"Content-Type": "application/json"},
	)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "RequestValidationError", resp.Header.Get(span.HeaderErrorName))
}

func TestBodyDecoding_sniffsMissingContentType(t *testing.T) {
	t.Parallel()

	type Req struct {
		Name string `json:"name" yaml:"name"`
	}

	var captured string

	r := span.New()
	span.Post(r, "/items", func(_ context.Context, req *Req) (*map[string]any, error) {
		captured = req.Name
		return &map[string]any{"ok": true}, nil
	})

	srv := httptest.NewServer(r)
	defer srv.Close()

	// JSON body without a Content-Type header.
	resp := doRequest(t, srv, http.MethodPost, "/items",
		bytes.NewBufferString(`{"name": "sniffed json"}`), nil,
	)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "sniffed json", captured)

	// YAML body without a Content-Type header.
	resp = doRequest(t, srv, http.MethodPost, "/items",
		bytes.NewBufferString("name: sniffed yaml\n"), nil,
	)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "sniffed yaml", captured)
}

func TestLoadOptions_validateOnly(t *testing.T) {
	t.Parallel()

	type Req struct {
		Name string `json:"name" validate:"required"`
	}

	var (
		handlerReq   Req
		contextMedia any
	)

	r := span.New()
	span.Post(r, "/items", func(ctx context.Context, req *Req) (*map[string]any, error) {
		handlerReq = *req
		contextMedia, _ = span.Media(ctx)
		return &map[string]any{"ok": true}, nil
	}, span.WithReqLoad(span.LoadValidateOnly))

	srv := httptest.NewServer(r)
	defer srv.Close()

	resp := doRequest(t, srv, http.MethodPost, "/items",
		bytes.NewBufferString(`{"name": "checked"}`),
		map[string]string{"Content-Type": "application/json"},
	)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, handlerReq.Name, "validate-only leaves the typed request unloaded")

	obj, ok := contextMedia.(map[string]any)
	require.True(t, ok, "the decoded media stays reachable from the context")
	assert.Equal(t, "checked", obj["name"])

	// Validation still runs against the shadow copy.
	resp = doRequest(t, srv, http.MethodPost, "/items",
		bytes.NewBufferString(`{}`),
		map[string]string{"Content-Type": "application/json"},
	)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "RequestValidationError", resp.Header.Get(span.HeaderErrorName))
}

func TestLoadOptions_ignore(t *testing.T) {
	t.Parallel()

	type Req struct {
		Name string `json:"name" validate:"required"`
	}

	var handlerReq Req

	r := span.New()
	span.Post(r, "/items", func(_ context.Context, req *Req) (*map[string]any, error) {
		handlerReq = *req
		return &map[string]any{"ok": true}, nil
	}, span.WithReqLoad(span.LoadIgnore))

	srv := httptest.NewServer(r)
	defer srv.Close()

	// An invalid body passes untouched: no decode, no validation.
	resp := doRequest(t, srv, http.MethodPost, "/items",
		bytes.NewBufferString(`{}`),
		map[string]string{"Content-Type": "application/json"},
	)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, handlerReq.Name)
}

func TestRawMedia(t *testing.T) {
	t.Parallel()

	var (
		rawBody []byte
		rawMime span.MimeType
	)

	r := span.New()
	span.Post(r, "/items", func(ctx context.Context, _ *span.Void) (*map[string]any, error) {
		rawBody, rawMime, _ = span.RawMedia(ctx)
		return &map[string]any{"ok": true}, nil
	})

	srv := httptest.NewServer(r)
	defer srv.Close()

	payload := `{"keep": "bytes"}`
	resp := doRequest(t, srv, http.MethodPost, "/items",
		bytes.NewBufferString(payload),
		map[string]string{"Content-Type": "application/json"},
	)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, payload, string(rawBody))
	assert.Equal(t, span.MimeJSON, rawMime)
}

func TestSelfValidator(t *testing.T) {
	t.Parallel()

	r := span.New()
	span.Post(r, "/items", func(_ context.Context, _ *selfValidatedReq) (*map[string]any, error) {
		return &map[string]any{"ok": true}, nil
	})

	srv := httptest.NewServer(r)
	defer srv.Close()

	good, err := json.Marshal(map[string]any{"pages": 10})
	require.NoError(t, err)
	resp := doRequest(t, srv, http.MethodPost, "/items",
		bytes.NewBuffer(good), map[string]string{"Content-Type": "application/json"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	bad, err := json.Marshal(map[string]any{"pages": -1})
	require.NoError(t, err)
	resp = doRequest(t, srv, http.MethodPost, "/items",
		bytes.NewBuffer(bad), map[string]string{"Content-Type": "application/json"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "RequestValidationError", resp.Header.Get(span.HeaderErrorName))
}

type selfValidatedReq struct {
	Pages int `json:"pages"`
}

func (r *selfValidatedReq) Validate() error {
	if r.Pages < 0 {
		return span.ErrRequestValidation.New("pages must not be negative")
	}
	return nil
}
