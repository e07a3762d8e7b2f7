package span

import (
	"mime"
	"net/http"
	"strings"
)

// MimeType identifies a wire format for request and response media. The
// package recognizes a closed set of types (JSON, YAML, BSON, TEXT); any
// other Content-Type value passes through as an opaque string so custom
// codecs can be keyed on it.
type MimeType string

// Recognized mime types.
const (
	MimeJSON MimeType = "application/json"
	MimeYAML MimeType = "application/yaml"
	MimeBSON MimeType = "application/bson"
	MimeTEXT MimeType = "text/plain"
)

// MimeNone is returned when no Content-Type is present.
const MimeNone MimeType = ""

// ParseMimeType normalizes a Content-Type header value to a MimeType.
// Matching is case-insensitive and tolerant of vendor prefixes and bare
// names: "application/JSON", "application/x-json", "text/json", and "json"
// all resolve to MimeJSON. Unrecognized values are returned verbatim
// (lowercased, parameters stripped) so they can match custom codecs.
func ParseMimeType(value string) MimeType {
	value = strings.TrimSpace(value)
	if value == "" {
		return MimeNone
	}

	mediaType, _, err := mime.ParseMediaType(value)
	if err != nil {
		mediaType = strings.ToLower(value)
	}

	name := mediaType
	for _, prefix := range []string{"application/", "text/"} {
		if rest, ok := strings.CutPrefix(name, prefix); ok {
			name = rest
			break
		}
	}
	name = strings.TrimPrefix(name, "x-")

	switch name {
	case "json":
		return MimeJSON
	case "yaml", "yml":
		return MimeYAML
	case "bson":
		return MimeBSON
	case "text", "plain":
		return MimeTEXT
	}

	return MimeType(mediaType)
}

// MimeTypeFromHeader reads and normalizes the Content-Type of a header set.
// Returns MimeNone when no Content-Type is present.
func MimeTypeFromHeader(h http.Header) MimeType {
	return ParseMimeType(h.Get("Content-Type"))
}

// AddToHeader sets the Content-Type of a header set to this mime type.
func (mt MimeType) AddToHeader(h http.Header) {
	h.Set("Content-Type", string(mt))
}

// String returns the mime type as a Content-Type header value.
func (mt MimeType) String() string { return string(mt) }
