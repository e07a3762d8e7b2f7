package span

import (
	"net/http"
	"reflect"
)

// routeInfo holds metadata for a registered route, used for both
// request dispatch and OpenAPI spec generation.
type routeInfo struct {
	method  string
	pattern string
	summary string
	desc    string
	tags    []string

	status     int
	deprecated bool

	operationID string

	reqLoad  LoadOptions
	respDump DumpOptions

	pagingLimit int

	errorKinds []*ErrorKind

	textOnly bool

	reqType  reflect.Type
	respType reflect.Type

	handler http.Handler
}

// RouteOption configures a route at registration time.
type RouteOption func(*routeInfo)

// WithStatus sets the default HTTP status code for the response.
func WithStatus(code int) RouteOption {
	return func(ri *routeInfo) {
		ri.status = code
	}
}

// WithSummary sets the OpenAPI summary for the route.
func WithSummary(s string) RouteOption {
	return func(ri *routeInfo) {
		ri.summary = s
	}
}

// WithDescription sets the OpenAPI description for the route.
func WithDescription(d string) RouteOption {
	return func(ri *routeInfo) {
		ri.desc = d
	}
}

// WithTags adds OpenAPI tags to the route.
func WithTags(tags ...string) RouteOption {
	return func(ri *routeInfo) {
		ri.tags = append(ri.tags, tags...)
	}
}

// WithDeprecated marks the route as deprecated in the OpenAPI spec.
func WithDeprecated() RouteOption {
	return func(ri *routeInfo) {
		ri.deprecated = true
	}
}

// WithOperationID sets a custom OpenAPI operationId.
func WithOperationID(id string) RouteOption {
	return func(ri *routeInfo) {
		ri.operationID = id
	}
}

// WithReqLoad selects how the request body is bound and validated.
func WithReqLoad(opt LoadOptions) RouteOption {
	return func(ri *routeInfo) {
		ri.reqLoad = opt
	}
}

// WithRespDump selects how the response media is validated and serialized.
func WithRespDump(opt DumpOptions) RouteOption {
	return func(ri *routeInfo) {
		ri.respDump = opt
	}
}

// WithPaging enables offset/limit paging on the route. The limit is both
// the default page size and the maximum a client may request; asking for
// more yields a limit-exceeded error. Paged handlers reach their paging
// state through PagingFromContext and set TotalItems on it.
func WithPaging(limit int) RouteOption {
	return func(ri *routeInfo) {
		ri.pagingLimit = limit
	}
}

// WithErrorKinds declares error kinds this route is known to raise, so
// their statuses and header layout appear in the OpenAPI spec.
func WithErrorKinds(kinds ...*ErrorKind) RouteOption {
	return func(ri *routeInfo) {
		ri.errorKinds = append(ri.errorKinds, kinds...)
	}
}

// WithTextMedia marks the route as exchanging plain text rather than
// structured media. Request bodies bind to string fields and responses
// encode through the text codec by default.
func WithTextMedia() RouteOption {
	return func(ri *routeInfo) {
		ri.textOnly = true
	}
}
