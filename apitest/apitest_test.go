package apitest_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/illuscio-dev/span"
	"github.com/illuscio-dev/span/apitest"
)

type widget struct {
	Name  string `json:"name" bson:"name" yaml:"name"`
	Count int    `json:"count" bson:"count" yaml:"count"`
}

func newWidgetRouter() *span.Router {
	notFound := span.NewErrorKind("WidgetNotFoundError", http.StatusNotFound, 2500)

	r := span.New()
	span.Get(r, "/widgets/{name}", func(_ context.Context, req *struct {
		Name string `path:"name"`
	}) (*widget, error) {
		if req.Name != "sprocket" {
			return nil, notFound.Newf("no widget named %q", req.Name)
		}
		return &widget{Name: "sprocket", Count: 3}, nil
	})
	span.Post(r, "/widgets", func(_ context.Context, req *widget) (*widget, error) {
		return req, nil
	}, span.WithStatus(http.StatusCreated))
	span.Get(r, "/widgets", func(ctx context.Context, _ *span.Void) (*[]widget, error) {
		paging, _ := span.PagingFromContext(ctx)
		paging.TotalItems = 2
		return &[]widget{{Name: "a"}, {Name: "b"}}, nil
	}, span.WithPaging(10))

	return r
}

func TestClient_getAndValidate(t *testing.T) {
	t.Parallel()

	c := apitest.NewClient(t, newWidgetRouter())

	resp := apitest.Get[widget](t, c, "/widgets/sprocket")
	resp.ValidateResponse(t)

	require.NotNil(t, resp.Body)
	assert.Equal(t, widget{Name: "sprocket", Count: 3}, *resp.Body)
}

func TestClient_postEncodesBody(t *testing.T) {
	t.Parallel()

	c := apitest.NewClient(t, newWidgetRouter())

	body := widget{Name: "gear", Count: 9}

	for _, mt := range []span.MimeType{span.MimeJSON, span.MimeYAML, span.MimeBSON} {
		resp := apitest.Post[widget, widget](t, c, "/widgets", &body, mt,
			apitest.WithAccept(span.MimeJSON))
		resp.ValidateResponse(t, http.StatusCreated)

		require.NotNil(t, resp.Body, "mime %s", mt)
		assert.Equal(t, body, *resp.Body, "mime %s", mt)
	}
}

func TestClient_validateError(t *testing.T) {
	t.Parallel()

	c := apitest.NewClient(t, newWidgetRouter())
	notFound := span.NewErrorKind("WidgetNotFoundError", http.StatusNotFound, 2500)

	resp := apitest.Get[widget](t, c, "/widgets/ghost")
	apiErr := resp.ValidateError(t, notFound)

	assert.Equal(t, `no widget named "ghost"`, apiErr.Message())
	assert.Empty(t, resp.Raw, "error responses carry no body")
}

func TestClient_validatePaging(t *testing.T) {
	t.Parallel()

	c := apitest.NewClient(t, newWidgetRouter())

	resp := apitest.Get[[]widget](t, c, "/widgets")
	resp.ValidateResponse(t)

	paging := resp.ValidatePaging(t)
	assert.Equal(t, 0, paging.Offset)
	assert.Equal(t, 10, paging.Limit)
	assert.Equal(t, 2, paging.TotalItems)
	assert.Equal(t, 1, paging.CurrentPage)
}
