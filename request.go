package span

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Sentinel errors for request binding. They are translated to
// ErrRequestValidation at the response boundary.
var (
	ErrBindPath   = errors.New("bind path")
	ErrBindQuery  = errors.New("bind query")
	ErrBindHeader = errors.New("bind header")
	ErrBindCookie = errors.New("bind cookie")
	ErrBindBody   = errors.New("bind body")
)

// requestCategory describes how a request type should be decoded.
type requestCategory int

const (
	catVoid     requestCategory = iota // Void — no params, no body
	catBodyOnly                        // entire value is the body (no param tags, no Body field)
	catParams                          // has param tags but no Body field
	catMixed                           // has Body field (params from tagged fields, body from Body)
)

// classifyRequest determines how a request type should be decoded.
func classifyRequest(t reflect.Type) requestCategory {
	if t == reflect.TypeFor[Void]() {
		return catVoid
	}
	if hasBodyField(t) {
		return catMixed
	}
	if hasParamTags(t) {
		return catParams
	}
	return catBodyOnly
}

// readMedia drains the request body and decodes it generically through the
// codec matching the Content-Type header, or by sniffing registered
// decoders in order when no Content-Type is given.
func readMedia(r *http.Request, codecs *codecRegistry) (*mediaRecord, error) {
	if r.Body == nil {
		return &mediaRecord{}, nil
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, ErrRequestValidation.Newf("read request body: %s", err).WithCause(err)
	}
	if len(data) == 0 {
		return &mediaRecord{}, nil
	}

	mt := MimeTypeFromHeader(r.Header)
	if mt == MimeNone {
		media, dec, err := codecs.sniff(data)
		if err != nil {
			return nil, ErrRequestValidation.New(err.Error()).WithCause(err)
		}
		return &mediaRecord{present: true, raw: data, mime: dec.MimeType(), decoded: media}, nil
	}

	dec, ok := codecs.decoderFor(mt)
	if !ok {
		return nil, ErrRequestValidation.Newf("no decoder registered for content type %q", mt)
	}

	var media any
	if err := dec.Decode(data, &media); err != nil {
		return nil, ErrRequestValidation.Newf("decode %s body: %s", mt, err).WithCause(err)
	}

	return &mediaRecord{present: true, raw: data, mime: mt, decoded: media}, nil
}

// decodeRequest creates a new Req value and populates it from the HTTP
// request per the route's load options.
func decodeRequest[Req any](r *http.Request, rec *mediaRecord, load LoadOptions, codecs *codecRegistry, validator Validator) (*Req, error) {
	req := new(Req)
	t := reflect.TypeFor[Req]()
	cat := classifyRequest(t)

	if cat == catVoid {
		return req, nil
	}

	if err := bindParams(req, r); err != nil {
		return nil, ErrRequestValidation.New(err.Error()).WithCause(err)
	}

	if load == LoadIgnore {
		return req, nil
	}

	// Resolve the body target: the whole struct or its Body field. For
	// validate-only loads a shadow copy is decoded so the handler's view of
	// the body stays zero.
	target := any(req)
	shadow := req
	if load == LoadValidateOnly {
		shadow = new(Req)
		target = any(shadow)
	}
	if cat == catMixed {
		target = reflect.ValueOf(target).Elem().FieldByName("Body").Addr().Interface()
	}

	if rec.present && cat != catParams {
		dec, ok := codecs.decoderFor(rec.mime)
		if !ok {
			return nil, ErrRequestValidation.Newf("no decoder registered for content type %q", rec.mime)
		}
		if err := dec.Decode(rec.raw, target); err != nil {
			return nil, ErrRequestValidation.Newf("%s: %s", ErrBindBody, err).WithCause(err)
		}
	}

	validated := any(req)
	if load == LoadValidateOnly {
		// Param bindings still validate against the live request.
		if cat == catMixed || cat == catParams {
			copyParamFields(shadow, req)
		}
		validated = any(shadow)
	}

	if sv, ok := validated.(SelfValidator); ok {
		if err := sv.Validate(); err != nil {
			return nil, ErrRequestValidation.New(err.Error()).WithCause(err)
		}
	}

	if validator != nil {
		if err := validator.Validate(validated); err != nil {
			return nil, ErrRequestValidation.New(err.Error()).WithCause(err)
		}
	}

	return req, nil
}

// copyParamFields copies every non-Body exported field from src into dst.
func copyParamFields[Req any](dst, src *Req) {
	dv := reflect.ValueOf(dst).Elem()
	sv := reflect.ValueOf(src).Elem()
	if dv.Kind() != reflect.Struct {
		return
	}

	t := dv.Type()
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() || f.Name == "Body" {
			continue
		}
		dv.Field(i).Set(sv.Field(i))
	}
}

// bindParams binds path, query, header, and cookie values to struct fields.
func bindParams(target any, r *http.Request) error {
	v := reflect.ValueOf(target)
	if v.Kind() == reflect.Pointer {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil
	}

	t := v.Type()
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}

		// Skip the Body field — it's decoded separately.
		if f.Name == "Body" {
			continue
		}

		field := v.Field(i)

		if name := f.Tag.Get("path"); name != "" {
			val := r.PathValue(name)
			if val != "" {
				if err := setFieldValue(field, val); err != nil {
					return fmt.Errorf("%w: %s: %w", ErrBindPath, name, err)
				}
			}
		}

		if name := f.Tag.Get("query"); name != "" {
			// Repeated query params bind to slice fields element-wise.
			if field.Kind() == reflect.Slice && field.Type().Elem().Kind() != reflect.Uint8 {
				vals := r.URL.Query()[name]
				if len(vals) > 0 {
					out := reflect.MakeSlice(field.Type(), len(vals), len(vals))
					for vi, val := range vals {
						if err := setFieldValue(out.Index(vi), val); err != nil {
							return fmt.Errorf("%w: %s: %w", ErrBindQuery, name, err)
						}
					}
					field.Set(out)
				}
				continue
			}

			val := r.URL.Query().Get(name)
			if val == "" {
				val = f.Tag.Get("default")
			}
			if val != "" {
				if err := setFieldValue(field, val); err != nil {
					return fmt.Errorf("%w: %s: %w", ErrBindQuery, name, err)
				}
			}
		}

		if name := f.Tag.Get("header"); name != "" {
			val := r.Header.Get(name)
			if val == "" {
				val = f.Tag.Get("default")
			}
			if val != "" {
				if err := setFieldValue(field, val); err != nil {
					return fmt.Errorf("%w: %s: %w", ErrBindHeader, name, err)
				}
			}
		}

		if name := f.Tag.Get("cookie"); name != "" {
			var val string
			if c, err := r.Cookie(name); err == nil {
				val = c.Value
			}
			if val == "" {
				val = f.Tag.Get("default")
			}
			if val != "" {
				if err := setFieldValue(field, val); err != nil {
					return fmt.Errorf("%w: %s: %w", ErrBindCookie, name, err)
				}
			}
		}
	}

	return nil
}

// setFieldValue sets a reflect.Value from a string, supporting common types.
func setFieldValue(field reflect.Value, value string) error {
	switch field.Type() {
	case reflect.TypeFor[time.Duration]():
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		field.Set(reflect.ValueOf(d))
		return nil
	case reflect.TypeFor[uuid.UUID]():
		id, err := uuid.Parse(value)
		if err != nil {
			return err
		}
		field.Set(reflect.ValueOf(id))
		return nil
	}

	//exhaustive:ignore
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(n)
	case reflect.Float64:
		n, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(n)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	default:
		return fmt.Errorf("unsupported type: %s", field.Type())
	}
	return nil
}
