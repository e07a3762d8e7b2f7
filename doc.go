// Package span is a convenience layer for building HTTP APIs on net/http.
// It adds uniform error-to-header mapping, request/response schema
// validation, offset/limit paging conventions, response field projection,
// URL parameter type coercion, content negotiation across pluggable codecs
// (JSON, YAML, BSON, plain text), and automatic OpenAPI 3.1 generation —
// all derived from typed handlers:
//
//	type Handler[Req, Resp any] func(ctx context.Context, req *Req) (*Resp, error)
//
// Routes are registered with package-level generic functions:
//
//	r := span.New(span.WithTitle("My API"), span.WithVersion("1.0.0"))
//	span.Get[ListReq, ListResp](r, "/items", listItems, span.WithPaging(50))
//	span.Post[CreateReq, Item](r, "/items", createItem, span.WithStatus(http.StatusCreated))
//
// Request types use struct tags for parameter binding and a Body field for
// request bodies:
//
//	type CreateReq struct {
//	    OrgID string `path:"org_id"`
//	    Body  struct {
//	        Name string `json:"name" validate:"required"`
//	    }
//	}
//
// Errors raised by handlers are reported through response headers
// (error-name, error-message, error-id, error-code, error-data) rather than
// the body, so error metadata survives regardless of which codec a client
// negotiated. Paging state is likewise exchanged through paging-* query
// parameters and response headers.
//
// Middleware uses the standard func(http.Handler) http.Handler signature,
// so the entire Go middleware ecosystem works natively.
package span
