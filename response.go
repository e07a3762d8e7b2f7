package span

import (
	"bytes"
	"encoding/json"
	"net/http"

	"go.mongodb.org/mongo-driver/bson"
)

// CookieSetter is optionally implemented by response types to set cookies.
type CookieSetter interface {
	Cookies() []*http.Cookie
}

// HeaderSetter is optionally implemented by response types to set response headers.
type HeaderSetter interface {
	SetHeaders(h http.Header)
}

// writeMedia negotiates an encoder from the Accept header and writes the
// response media. Encoding happens into a buffer first so failures can
// still be reported through error headers instead of a half-written body.
func writeMedia(w http.ResponseWriter, r *http.Request, resp any, status int, ri *routeInfo, codecs *codecRegistry) error {
	if cs, ok := resp.(CookieSetter); ok {
		for _, c := range cs.Cookies() {
			http.SetCookie(w, c)
		}
	}
	if hs, ok := resp.(HeaderSetter); ok {
		hs.SetHeaders(w.Header())
	}

	if sc, ok := resp.(StatusCoder); ok {
		status = sc.StatusCode()
	}

	enc, ok := codecs.negotiate(r.Header.Get("Accept"))
	if !ok {
		enc = codecs.encoders[0]
	}
	if ri.textOnly && r.Header.Get("Accept") == "" {
		if textEnc, found := codecs.encoderFor(MimeTEXT); found {
			enc = textEnc
		}
	}

	media := any(resp)
	if rawPtr, isRawPtr := media.(*bson.Raw); isRawPtr {
		media = *rawPtr
	}

	// Pre-encoded byte and string payloads on DUMP_IGNORE routes pass
	// through as-is.
	if ri.respDump == DumpIgnore {
		switch v := media.(type) {
		case *[]byte:
			media = *v
		case *string:
			media = []byte(*v)
		case string:
			media = []byte(v)
		}
		if raw, isBytes := media.([]byte); isBytes {
			enc.MimeType().AddToHeader(w.Header())
			w.WriteHeader(status)
			//nolint:errcheck,gosec // best-effort after WriteHeader
			w.Write(raw)
			return nil
		}
	}

	// Pre-encoded BSON headed for another codec is inflated first.
	if raw, isRaw := media.(bson.Raw); isRaw && enc.MimeType() != MimeBSON {
		var inflated any
		if err := (bsonCodec{}).Decode(raw, &inflated); err != nil {
			return ErrResponseValidation.Newf("decode raw bson media: %s", err).WithCause(err)
		}
		media = inflated
	}

	if pj, found := ProjectionFromContext(r.Context()); found && pj.Enabled() {
		generic, err := toGeneric(media)
		if err != nil {
			return err
		}
		if media, err = applyProjection(generic, pj); err != nil {
			return err
		}
	}

	var buf bytes.Buffer
	if err := enc.Encode(&buf, media); err != nil {
		return ErrResponseValidation.Newf("encode %s response: %s", enc.MimeType(), err).WithCause(err)
	}

	enc.MimeType().AddToHeader(w.Header())
	w.WriteHeader(status)
	//nolint:errcheck,gosec // best-effort after WriteHeader
	w.Write(buf.Bytes())
	return nil
}

// toGeneric converts response media to generic maps, slices, and scalars
// so projection can filter fields by name.
func toGeneric(v any) (any, error) {
	switch t := v.(type) {
	case map[string]any, []any:
		return t, nil
	case bson.Raw:
		var generic any
		if err := (bsonCodec{}).Decode(t, &generic); err != nil {
			return nil, ErrResponseValidation.Newf("decode raw bson media: %s", err).WithCause(err)
		}
		return generic, nil
	}

	encoded, err := json.Marshal(v)
	if err != nil {
		return nil, ErrResponseValidation.Newf("encode response media: %s", err).WithCause(err)
	}
	var generic any
	if err := json.Unmarshal(encoded, &generic); err != nil {
		return nil, ErrResponseValidation.Newf("decode response media: %s", err).WithCause(err)
	}
	return generic, nil
}

// writeAPIError reports an error through the error-* response headers. The
// body is suppressed unless the error opts into sending the handler's media
// and that media can be encoded; an encode failure leaves the body empty
// rather than replacing the error.
func writeAPIError(w http.ResponseWriter, r *http.Request, err error, media any, codecs *codecRegistry) {
	apiErr := translateError(err)
	writeErrorHeaders(w.Header(), apiErr)

	var body []byte
	if apiErr.SendBody() && media != nil {
		enc, ok := codecs.negotiate(r.Header.Get("Accept"))
		if !ok {
			enc = codecs.encoders[0]
		}
		var buf bytes.Buffer
		if encodeErr := enc.Encode(&buf, media); encodeErr == nil {
			body = buf.Bytes()
			enc.MimeType().AddToHeader(w.Header())
		}
	}

	w.WriteHeader(apiErr.StatusCode())
	if len(body) > 0 {
		//nolint:errcheck,gosec // best-effort after WriteHeader
		w.Write(body)
	}
}
