package span

import (
	"net/http"
	"reflect"
)

// register is the internal generic registration function.
func register[Req, Resp any](rt *Router, method, pattern string, h Handler[Req, Resp], opts ...RouteOption) {
	ri := routeInfo{
		method:   method,
		pattern:  pattern,
		reqType:  reflect.TypeFor[Req](),
		respType: reflect.TypeFor[Resp](),
	}

	for _, opt := range opts {
		opt(&ri)
	}

	// Default status: Void response → 204, otherwise 200.
	if ri.status == 0 {
		if ri.respType == reflect.TypeFor[Void]() {
			ri.status = http.StatusNoContent
		} else {
			ri.status = http.StatusOK
		}
	}

	ri.handler = buildHandler(h, ri, rt)
	rt.addRoute(ri)
}

// buildHandler wraps a typed Handler into an http.Handler running the full
// request pipeline: media decode (negotiated or sniffed), projection and
// paging parsing, request binding per the route's load options, the handler
// itself, the nothing-to-return check, response validation per the dump
// options, and negotiated encoding. Any failure is reported through the
// error-* headers.
func buildHandler[Req, Resp any](h Handler[Req, Resp], ri routeInfo, rt *Router) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		codecs := rt.codecs
		ctx := r.Context()

		rec, err := readMedia(r, codecs)
		if err != nil {
			rt.writeErr(w, r, err, nil)
			return
		}
		ctx = withValue(ctx, rec)

		pj, err := parseProjection(r.URL.Query())
		if err != nil {
			rt.writeErr(w, r, err, nil)
			return
		}
		if pj != nil {
			ctx = withValue(ctx, pj)
		}

		if ri.pagingLimit > 0 {
			paging, pagingErr := parsePaging(r, ri.pagingLimit)
			if pagingErr != nil {
				rt.writeErr(w, r, pagingErr, nil)
				return
			}
			ctx = withValue(ctx, paging)
		}

		r = r.WithContext(ctx)

		req, err := decodeRequest[Req](r, rec, ri.reqLoad, codecs, rt.validator)
		if err != nil {
			rt.writeErr(w, r, err, nil)
			return
		}

		resp, err := h(r.Context(), req)

		// Paging headers apply to success and error responses alike, so
		// clients can recover their window either way.
		if paging, ok := GetValue[*Paging](r.Context()); ok {
			setPagingHeaders(w.Header(), buildPagingResp(paging, r))
		}

		if err != nil {
			var media any
			if resp != nil {
				media = resp
			}
			rt.writeErr(w, r, err, media)
			return
		}

		if _, ok := any(resp).(*Void); ok {
			w.WriteHeader(ri.status)
			return
		}

		if emptyMedia(resp) {
			rt.writeErr(w, r, ErrNothingToReturn.New(
				"route declares a response but the handler returned no media",
			), nil)
			return
		}

		if ri.respDump == DumpAndValidate && rt.validator != nil {
			if verr := rt.validator.Validate(resp); verr != nil {
				rt.writeErr(w, r, ErrResponseValidation.New(verr.Error()).WithCause(verr), nil)
				return
			}
		}

		if encodeErr := writeMedia(w, r, resp, ri.status, &ri, codecs); encodeErr != nil {
			rt.writeErr(w, r, encodeErr, nil)
		}
	})
}

// emptyMedia reports whether a non-Void handler produced nothing: a nil
// response, or one whose value is a zero-length collection.
func emptyMedia(resp any) bool {
	rv := reflect.ValueOf(resp)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return true
		}
		rv = rv.Elem()
	}

	//exhaustive:ignore
	switch rv.Kind() {
	case reflect.Slice, reflect.Map:
		return rv.Len() == 0
	default:
		return false
	}
}

// Get registers a GET handler.
func Get[Req, Resp any](rt *Router, pattern string, h Handler[Req, Resp], opts ...RouteOption) {
	register(rt, http.MethodGet, pattern, h, opts...)
}

// Post registers a POST handler.
func Post[Req, Resp any](rt *Router, pattern string, h Handler[Req, Resp], opts ...RouteOption) {
	register(rt, http.MethodPost, pattern, h, opts...)
}

// Put registers a PUT handler.
func Put[Req, Resp any](rt *Router, pattern string, h Handler[Req, Resp], opts ...RouteOption) {
	register(rt, http.MethodPut, pattern, h, opts...)
}

// Patch registers a PATCH handler.
func Patch[Req, Resp any](rt *Router, pattern string, h Handler[Req, Resp], opts ...RouteOption) {
	register(rt, http.MethodPatch, pattern, h, opts...)
}

// Delete registers a DELETE handler.
func Delete[Req, Resp any](rt *Router, pattern string, h Handler[Req, Resp], opts ...RouteOption) {
	register(rt, http.MethodDelete, pattern, h, opts...)
}

// Raw registers a raw http.Handler with manual OperationInfo for the
// OpenAPI spec. Raw routes bypass the pipeline entirely.
func Raw(rt *Router, method, pattern string, h RawHandler, info OperationInfo) {
	rt.addRoute(routeInfo{
		method:  method,
		pattern: pattern,
		summary: info.Summary,
		desc:    info.Description,
		tags:    info.Tags,
		status:  info.Status,
		handler: http.HandlerFunc(h),
	})
}

// OperationInfo is manual OpenAPI metadata for raw routes.
type OperationInfo struct {
	Summary     string
	Description string
	Tags        []string
	Status      int
}
