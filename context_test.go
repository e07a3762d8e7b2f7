package span_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/illuscio-dev/span"
)

func TestSetValueGetValue(t *testing.T) {
	t.Parallel()

	type tenant struct {
		Name string
	}

	var captured tenant

	r := span.New()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			req = span.SetValue(req, tenant{Name: "acme"})
			next.ServeHTTP(w, req)
		})
	})
	span.Get(r, "/whoami", func(ctx context.Context, _ *span.Void) (*map[string]any, error) {
		got, ok := span.GetValue[tenant](ctx)
		if !ok {
			return nil, span.ErrUnknown.New("tenant missing")
		}
		captured = got
		return &map[string]any{"tenant": got.Name}, nil
	})

	srv := httptest.NewServer(r)
	defer srv.Close()

	resp := doRequest(t, srv, http.MethodGet, "/whoami", nil, nil)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "acme", captured.Name)
}

func TestGetValue_missing(t *testing.T) {
	t.Parallel()

	type marker struct{}

	_, ok := span.GetValue[marker](context.Background())
	assert.False(t, ok)
}
