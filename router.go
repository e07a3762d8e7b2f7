package span

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// Router is the central type that holds routes, middleware, codecs, and
// configuration. It implements http.Handler.
type Router struct {
	mux        *http.ServeMux
	middleware []Middleware
	routes     []routeInfo

	// patterns tracks which methods each pattern serves, so unserved
	// methods can be given invalid-method fallbacks before serving starts.
	patterns     map[string]map[string]bool
	fallbackOnce sync.Once

	title   string
	version string

	validator    Validator
	errorHandler ErrorHandler

	codecs *codecRegistry

	userEncoders []Encoder
	userDecoders []Decoder

	mu sync.Mutex
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithTitle sets the API title (used in OpenAPI spec).
func WithTitle(title string) RouterOption {
	return func(rt *Router) {
		rt.title = title
	}
}

// WithVersion sets the API version (used in OpenAPI spec).
func WithVersion(version string) RouterOption {
	return func(rt *Router) {
		rt.version = version
	}
}

// WithValidator replaces the default go-playground validator. Passing nil
// disables request and response validation entirely.
func WithValidator(v Validator) RouterOption {
	return func(rt *Router) {
		rt.validator = v
	}
}

// ErrorHandler is a custom error response writer. When set it replaces the
// default error-to-header translation.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// WithErrorHandler sets a custom error handler for the router.
func WithErrorHandler(h ErrorHandler) RouterOption {
	return func(rt *Router) {
		rt.errorHandler = h
	}
}

// WithEncoder registers an additional response encoder.
func WithEncoder(enc Encoder) RouterOption {
	return func(rt *Router) {
		rt.userEncoders = append(rt.userEncoders, enc)
	}
}

// WithDecoder registers an additional request body decoder.
func WithDecoder(dec Decoder) RouterOption {
	return func(rt *Router) {
		rt.userDecoders = append(rt.userDecoders, dec)
	}
}

// New creates a new Router with the given options.
func New(opts ...RouterOption) *Router {
	rt := &Router{
		mux:       http.NewServeMux(),
		patterns:  make(map[string]map[string]bool),
		validator: NewValidator(),
	}
	for _, opt := range opts {
		opt(rt)
	}
	rt.codecs = newCodecRegistry(rt.userEncoders, rt.userDecoders)
	return rt
}

// RegisterMimeType registers an encoder/decoder pair for a custom mime
// type after construction. Either side may be nil.
func (rt *Router) RegisterMimeType(enc Encoder, dec Decoder) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if enc != nil {
		rt.codecs.encoders = append(rt.codecs.encoders, enc)
	}
	if dec != nil {
		rt.codecs.decoders = append(rt.codecs.decoders, dec)
	}
}

// Use adds middleware to the router. Middleware is applied in the order added.
func (rt *Router) Use(mw ...Middleware) {
	rt.middleware = append(rt.middleware, mw...)
}

// ServeHTTP implements http.Handler. All routes must be registered before
// the first request is served.
func (rt *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	rt.fallbackOnce.Do(rt.installMethodFallbacks)

	handler := http.Handler(rt.mux)
	for i := len(rt.middleware) - 1; i >= 0; i-- {
		handler = rt.middleware[i](handler)
	}
	handler.ServeHTTP(w, req)
}

// ListenAndServe starts an HTTP server on the given address.
// It blocks until the context is cancelled, then shuts down gracefully.
func (rt *Router) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           rt,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// writeErr reports a pipeline error, honoring a custom error handler when
// one is configured.
func (rt *Router) writeErr(w http.ResponseWriter, r *http.Request, err error, media any) {
	if rt.errorHandler != nil {
		rt.errorHandler(w, r, err)
		return
	}
	writeAPIError(w, r, err, media, rt.codecs)
}

// addRoute registers a routeInfo with the router's mux and stores it for
// OpenAPI generation.
func (rt *Router) addRoute(ri routeInfo) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	rt.mux.Handle(ri.method+" "+ri.pattern, ri.handler)
	rt.routes = append(rt.routes, ri)

	if rt.patterns[ri.pattern] == nil {
		rt.patterns[ri.pattern] = make(map[string]bool)
	}
	rt.patterns[ri.pattern][ri.method] = true
}

// handleRaw registers a plain handler with the mux, recording the pattern so
// unserved methods on it get invalid-method fallbacks like any other route.
func (rt *Router) handleRaw(method, pattern string, h http.HandlerFunc) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	rt.mux.Handle(method+" "+pattern, h)

	if rt.patterns[pattern] == nil {
		rt.patterns[pattern] = make(map[string]bool)
	}
	rt.patterns[pattern][method] = true
}

// fallbackMethods are the methods that get an invalid-method fallback when
// a pattern does not serve them. HEAD is excluded: the mux routes HEAD
// through GET patterns, and a HEAD fallback would shadow that.
var fallbackMethods = []string{
	http.MethodGet,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
	http.MethodOptions,
}

// installMethodFallbacks registers, for every known pattern, a handler on
// each unserved method emitting the invalid-method error headers instead of
// the mux's bare 405. Per-method registration avoids pattern conflicts a
// catch-all registration would cause on sibling literal and wildcard paths.
func (rt *Router) installMethodFallbacks() {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	for pattern, served := range rt.patterns {
		for _, method := range fallbackMethods {
			if served[method] {
				continue
			}
			rt.mux.Handle(method+" "+pattern, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				rt.writeErr(w, r, ErrInvalidMethod.Newf("method %s is not supported by this route", r.Method), nil)
			}))
		}
	}
}

// WriteError translates err and writes its error-* headers and status with
// no body. For use from middleware and raw handlers.
func WriteError(w http.ResponseWriter, err error) {
	apiErr := translateError(err)
	writeErrorHeaders(w.Header(), apiErr)
	w.WriteHeader(apiErr.StatusCode())
}
