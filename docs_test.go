package span_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/illuscio-dev/span"
)

func TestServeDocs(t *testing.T) {
	t.Parallel()

	r := span.New(span.WithTitle("Docs API"))
	r.ServeDocs("/docs",
		span.WithDocsTitle("Custom Docs"),
		span.WithDocsSpecURL("/spec.json"),
	)

	srv := httptest.NewServer(r)
	defer srv.Close()

	resp := doRequest(t, srv, http.MethodGet, "/docs", nil, nil)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "<title>Custom Docs</title>")
	assert.Contains(t, string(body), `apiDescriptionUrl="/spec.json"`)
	assert.Contains(t, string(body), "elements-api")
}
