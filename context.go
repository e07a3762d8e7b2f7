package span

import (
	"context"
	"net/http"
)

type contextKey[T any] struct{}

// SetValue stores a typed value in the request context. For use in middleware.
func SetValue[T any](r *http.Request, val T) *http.Request {
	ctx := context.WithValue(r.Context(), contextKey[T]{}, val)
	return r.WithContext(ctx)
}

// GetValue retrieves a typed value from the request context. For use in handlers.
func GetValue[T any](ctx context.Context) (T, bool) {
	val, ok := ctx.Value(contextKey[T]{}).(T)
	return val, ok
}

func withValue[T any](ctx context.Context, val T) context.Context {
	return context.WithValue(ctx, contextKey[T]{}, val)
}

// Media returns the request body decoded through the negotiated (or
// sniffed) codec as generic values: maps, slices, and scalars. It is
// populated for every request that carries a body, independent of how the
// typed request struct was loaded. Returns false when the request had no
// body.
func Media(ctx context.Context) (any, bool) {
	rec, ok := GetValue[*mediaRecord](ctx)
	if !ok || !rec.present {
		return nil, false
	}
	return rec.decoded, true
}

// RawMedia returns the raw request body bytes and their mime type. Returns
// false when the request had no body.
func RawMedia(ctx context.Context) ([]byte, MimeType, bool) {
	rec, ok := GetValue[*mediaRecord](ctx)
	if !ok || !rec.present {
		return nil, MimeNone, false
	}
	return rec.raw, rec.mime, true
}

// mediaRecord carries the request body through the pipeline: raw bytes,
// the resolved mime type, and the generically decoded form.
type mediaRecord struct {
	present bool
	raw     []byte
	mime    MimeType
	decoded any
}
