package span

// Test-only exports for internal functions.
var (
	ParsePaging     = parsePaging
	BuildPagingResp = buildPagingResp

	ParseProjection = parseProjection
	ApplyProjection = applyProjection

	SplitBSONDocs = splitBSONDocs

	TypeToSchema   = typeToSchema
	StructToSchema = structToSchema
	JSONFieldName  = jsonFieldName

	EmptyMedia = emptyMedia
)

// NewProjection builds a projection directly for tests that bypass query
// parsing.
func NewProjection(fields map[string]bool, include bool) *Projection {
	return &Projection{fields: fields, include: include, enabled: true}
}

// TestCodecs wraps a codecRegistry for external tests.
type TestCodecs struct {
	reg *codecRegistry
}

// NewTestCodecs creates a registry holding the built-in codecs plus any
// extras.
func NewTestCodecs(extraEnc []Encoder, extraDec []Decoder) *TestCodecs {
	return &TestCodecs{reg: newCodecRegistry(extraEnc, extraDec)}
}

// Negotiate delegates to the internal registry.
func (tc *TestCodecs) Negotiate(accept string) (Encoder, bool) {
	return tc.reg.negotiate(accept)
}

// Sniff delegates to the internal registry.
func (tc *TestCodecs) Sniff(data []byte) (any, Decoder, error) {
	return tc.reg.sniff(data)
}
