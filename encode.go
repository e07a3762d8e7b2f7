package span

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson"
	"gopkg.in/yaml.v3"
)

// Encoder encodes response media to a wire format.
type Encoder interface {
	MimeType() MimeType
	Encode(w io.Writer, v any) error
}

// Decoder decodes request bodies from a wire format.
type Decoder interface {
	MimeType() MimeType
	Decode(data []byte, v any) error
}

// jsonCodec implements both Encoder and Decoder for JSON.
type jsonCodec struct{}

func (jsonCodec) MimeType() MimeType { return MimeJSON }

func (jsonCodec) Encode(w io.Writer, v any) error {
	return json.NewEncoder(w).Encode(v)
}

func (jsonCodec) Decode(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// yamlCodec implements both Encoder and Decoder for YAML.
type yamlCodec struct{}

func (yamlCodec) MimeType() MimeType { return MimeYAML }

func (yamlCodec) Encode(w io.Writer, v any) error {
	return yaml.NewEncoder(w).Encode(v)
}

func (yamlCodec) Decode(data []byte, v any) error {
	if !utf8.Valid(data) {
		return errors.New("yaml: invalid utf-8")
	}
	return yaml.Unmarshal(data, v)
}

// bsonCodec implements both Encoder and Decoder for BSON. Lists are encoded
// as back-to-back documents, each carrying its own length prefix, and split
// back apart on decode.
type bsonCodec struct{}

func (bsonCodec) MimeType() MimeType { return MimeBSON }

func (bsonCodec) Encode(w io.Writer, v any) error {
	if raw, ok := v.(bson.Raw); ok {
		_, err := w.Write(raw)
		return err
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}

	if (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) && rv.Type().Elem().Kind() != reflect.Uint8 {
		for i := range rv.Len() {
			doc, err := bson.Marshal(rv.Index(i).Interface())
			if err != nil {
				return err
			}
			if _, err := w.Write(doc); err != nil {
				return err
			}
		}
		return nil
	}

	doc, err := bson.Marshal(v)
	if err != nil {
		return err
	}
	_, err = w.Write(doc)
	return err
}

func (bsonCodec) Decode(data []byte, v any) error {
	docs, err := splitBSONDocs(data)
	if err != nil {
		return err
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("bson: decode target must be a non-nil pointer, got %T", v)
	}
	elem := rv.Elem()

	// Slice targets consume every document.
	if elem.Kind() == reflect.Slice && elem.Type().Elem().Kind() != reflect.Uint8 {
		out := reflect.MakeSlice(elem.Type(), len(docs), len(docs))
		for i, doc := range docs {
			if err := bson.Unmarshal(doc, out.Index(i).Addr().Interface()); err != nil {
				return err
			}
		}
		elem.Set(out)
		return nil
	}

	if elem.Kind() == reflect.Interface && elem.NumMethod() == 0 {
		if len(docs) == 1 {
			var m bson.M
			if err := bson.Unmarshal(docs[0], &m); err != nil {
				return err
			}
			elem.Set(reflect.ValueOf(map[string]any(m)))
			return nil
		}
		out := make([]any, len(docs))
		for i, doc := range docs {
			var m bson.M
			if err := bson.Unmarshal(doc, &m); err != nil {
				return err
			}
			out[i] = map[string]any(m)
		}
		elem.Set(reflect.ValueOf(out))
		return nil
	}

	if len(docs) != 1 {
		return fmt.Errorf("bson: cannot decode %d documents into %T", len(docs), v)
	}
	return bson.Unmarshal(docs[0], v)
}

// splitBSONDocs splits a byte stream of concatenated BSON documents on
// their length prefixes.
func splitBSONDocs(data []byte) ([][]byte, error) {
	var docs [][]byte
	for len(data) > 0 {
		if len(data) < 5 {
			return nil, errors.New("bson: truncated document")
		}
		size := int(binary.LittleEndian.Uint32(data))
		if size < 5 || size > len(data) {
			return nil, errors.New("bson: invalid document length")
		}
		if data[size-1] != 0 {
			return nil, errors.New("bson: missing document terminator")
		}
		docs = append(docs, data[:size])
		data = data[size:]
	}
	if len(docs) == 0 {
		return nil, errors.New("bson: empty input")
	}
	return docs, nil
}

// textCodec implements both Encoder and Decoder for plain text.
type textCodec struct{}

func (textCodec) MimeType() MimeType { return MimeTEXT }

func (textCodec) Encode(w io.Writer, v any) error {
	switch t := v.(type) {
	case string:
		_, err := io.WriteString(w, t)
		return err
	case *string:
		_, err := io.WriteString(w, *t)
		return err
	case []byte:
		_, err := w.Write(t)
		return err
	case fmt.Stringer:
		_, err := io.WriteString(w, t.String())
		return err
	default:
		return fmt.Errorf("text codec: cannot encode %T", v)
	}
}

func (textCodec) Decode(data []byte, v any) error {
	if !utf8.Valid(data) {
		return errors.New("text codec: invalid utf-8")
	}
	switch t := v.(type) {
	case *string:
		*t = string(data)
	case *[]byte:
		*t = data
	case *any:
		*t = string(data)
	default:
		return fmt.Errorf("text codec: cannot decode into %T", v)
	}
	return nil
}

// EncoderFor returns the built-in encoder for the given mime type, if one
// exists. User codecs registered on a router are not consulted.
func EncoderFor(mt MimeType) (Encoder, bool) {
	return builtinCodecs.encoderFor(mt)
}

// DecoderFor returns the built-in decoder for the given mime type, if one
// exists. MimeNone resolves to the JSON decoder.
func DecoderFor(mt MimeType) (Decoder, bool) {
	return builtinCodecs.decoderFor(mt)
}

var builtinCodecs = newCodecRegistry(nil, nil)

// codecRegistry holds all registered encoders and decoders in registration
// order. JSON is always index 0 (the default); BSON, YAML, and TEXT follow,
// then any user-registered codecs.
type codecRegistry struct {
	encoders []Encoder
	decoders []Decoder
}

func newCodecRegistry(userEncoders []Encoder, userDecoders []Decoder) *codecRegistry {
	cr := &codecRegistry{
		encoders: make([]Encoder, 0, 4+len(userEncoders)),
		decoders: make([]Decoder, 0, 4+len(userDecoders)),
	}
	cr.encoders = append(cr.encoders, jsonCodec{}, bsonCodec{}, yamlCodec{}, textCodec{})
	cr.encoders = append(cr.encoders, userEncoders...)
	cr.decoders = append(cr.decoders, jsonCodec{}, bsonCodec{}, yamlCodec{}, textCodec{})
	cr.decoders = append(cr.decoders, userDecoders...)
	return cr
}

// encoderFor returns the encoder registered for the given mime type.
func (cr *codecRegistry) encoderFor(mt MimeType) (Encoder, bool) {
	for _, enc := range cr.encoders {
		if enc.MimeType() == mt {
			return enc, true
		}
	}
	return nil, false
}

// decoderFor returns the decoder registered for the given mime type.
// Returns (JSON decoder, true) for MimeNone.
func (cr *codecRegistry) decoderFor(mt MimeType) (Decoder, bool) {
	if mt == MimeNone {
		return cr.decoders[0], true
	}
	for _, dec := range cr.decoders {
		if dec.MimeType() == mt {
			return dec, true
		}
	}
	return nil, false
}

// negotiate picks an encoder based on the Accept header value.
// Returns (JSON, true) for empty or */* accept values.
// Returns (nil, false) if an explicit Accept has no match.
func (cr *codecRegistry) negotiate(accept string) (Encoder, bool) {
	if accept == "" {
		return cr.encoders[0], true
	}

	type candidate struct {
		encoder Encoder
		quality float64
	}

	var best candidate
	best.quality = -1

	for part := range strings.SplitSeq(accept, ",") {
		part = strings.TrimSpace(part)

		q := 1.0
		if media, params, ok := strings.Cut(part, ";"); ok {
			part = strings.TrimSpace(media)
			for param := range strings.SplitSeq(params, ";") {
				key, val, _ := strings.Cut(strings.TrimSpace(param), "=")
				if key != "q" {
					continue
				}
				if parsed, err := strconv.ParseFloat(val, 64); err == nil {
					q = parsed
				}
			}
		}

		if q <= best.quality {
			continue
		}

		if part == "*/*" {
			best = candidate{encoder: cr.encoders[0], quality: q}
			continue
		}

		mt := ParseMimeType(part)
		if enc, ok := cr.encoderFor(mt); ok {
			best = candidate{encoder: enc, quality: q}
		}
	}

	if best.encoder == nil {
		return nil, false
	}
	return best.encoder, true
}

// sniff attempts each registered decoder in registration order against a
// body with no declared Content-Type. The first decoder that succeeds wins.
func (cr *codecRegistry) sniff(data []byte) (any, Decoder, error) {
	for _, dec := range cr.decoders {
		var media any
		if err := dec.Decode(data, &media); err == nil {
			return media, dec, nil
		}
	}
	return nil, nil, errors.New("no registered decoder could decode the request body")
}

// contentTypes returns all encoder content types (for OpenAPI).
func (cr *codecRegistry) contentTypes() []string {
	cts := make([]string, len(cr.encoders))
	for i, enc := range cr.encoders {
		cts[i] = string(enc.MimeType())
	}
	return cts
}
