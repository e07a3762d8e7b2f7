package span

import (
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
)

// OpenAPISpec is the top-level OpenAPI 3.1 document.
type OpenAPISpec struct {
	OpenAPI string              `json:"openapi" yaml:"openapi"`
	Info    OpenAPIInfo         `json:"info" yaml:"info"`
	Paths   map[string]PathItem `json:"paths" yaml:"paths"`
}

// OpenAPIInfo holds API metadata.
type OpenAPIInfo struct {
	Title   string `json:"title" yaml:"title"`
	Version string `json:"version" yaml:"version"`
}

// PathItem maps HTTP methods to operations.
type PathItem map[string]Operation

// Operation describes a single API operation on a path.
type Operation struct {
	Summary     string        `json:"summary,omitempty" yaml:"summary,omitempty"`
	Description string        `json:"description,omitempty" yaml:"description,omitempty"`
	Tags        []string      `json:"tags,omitempty" yaml:"tags,omitempty"`
	OperationID string        `json:"operationId,omitempty" yaml:"operationId,omitempty"`
	Parameters  []Parameter   `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	RequestBody *RequestBody  `json:"requestBody,omitempty" yaml:"requestBody,omitempty"`
	Responses   OperationResp `json:"responses" yaml:"responses"`
	Deprecated  bool          `json:"deprecated,omitempty" yaml:"deprecated,omitempty"`
}

// Parameter describes a single operation parameter.
type Parameter struct {
	Name        string     `json:"name" yaml:"name"`
	In          string     `json:"in" yaml:"in"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Required    bool       `json:"required,omitempty" yaml:"required,omitempty"`
	Schema      JSONSchema `json:"schema" yaml:"schema"`
}

// RequestBody describes the request body.
type RequestBody struct {
	Required bool                `json:"required" yaml:"required"`
	Content  map[string]MediaObj `json:"content" yaml:"content"`
}

// MediaObj is a media type object with an optional schema.
type MediaObj struct {
	Schema *JSONSchema `json:"schema,omitempty" yaml:"schema,omitempty"`
}

// OperationResp maps HTTP status codes to response objects.
type OperationResp map[string]ResponseObj

// ResponseObj describes a single response.
type ResponseObj struct {
	Description string               `json:"description" yaml:"description"`
	Headers     map[string]HeaderObj `json:"headers,omitempty" yaml:"headers,omitempty"`
	Content     map[string]MediaObj  `json:"content,omitempty" yaml:"content,omitempty"`
}

// HeaderObj describes a response header.
type HeaderObj struct {
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Schema      JSONSchema `json:"schema" yaml:"schema"`
}

// Spec generates the full OpenAPI 3.1 specification from registered routes.
func (rt *Router) Spec() OpenAPISpec {
	spec := OpenAPISpec{
		OpenAPI: "3.1.0",
		Info: OpenAPIInfo{
			Title:   rt.title,
			Version: rt.version,
		},
		Paths: make(map[string]PathItem),
	}

	for i := range rt.routes {
		ri := &rt.routes[i]
		path := toOpenAPIPath(ri.pattern)
		method := strings.ToLower(ri.method)

		op := buildOperation(ri, rt.codecs)

		if spec.Paths[path] == nil {
			spec.Paths[path] = make(PathItem)
		}
		spec.Paths[path][method] = op
	}

	return spec
}

// buildOperation creates an Operation from a routeInfo.
func buildOperation(ri *routeInfo, codecs *codecRegistry) Operation {
	op := Operation{
		Summary:     ri.summary,
		Description: ri.desc,
		Tags:        ri.tags,
		OperationID: ri.operationID,
		Deprecated:  ri.deprecated,
		Responses:   make(OperationResp),
	}

	// Build parameters and request body from Req type.
	if ri.reqType != nil && ri.reqType != reflect.TypeFor[Void]() {
		op.Parameters = extractParameters(ri.reqType)
		op.RequestBody = extractRequestBody(ri.reqType, ri.method, codecs)
	}

	if ri.pagingLimit > 0 {
		op.Parameters = append(op.Parameters, pagingParameters(ri.pagingLimit)...)
	}

	// Build the success response.
	status := ri.status
	if status == 0 {
		status = http.StatusOK
	}

	switch {
	case ri.respType == nil || ri.respType == reflect.TypeFor[Void]():
		if status == http.StatusOK {
			status = http.StatusNoContent
		}
		op.Responses[statusToString(status)] = ResponseObj{
			Description: "No content",
		}

	default:
		respSchema := typeToSchema(ri.respType)
		success := ResponseObj{
			Description: "Successful response",
			Content:     mediaContent(&respSchema, codecs),
		}
		if ri.pagingLimit > 0 {
			success.Headers = pagingHeaders()
		}
		op.Responses[statusToString(status)] = success
	}

	// Declared error kinds are documented with the error header layout.
	for _, kind := range ri.errorKinds {
		op.Responses[statusToString(kind.HTTPCode())] = ResponseObj{
			Description: kind.Name(),
			Headers:     errorHeaders(kind),
		}
	}

	return op
}

// mediaContent lists a schema under every registered encoder content type.
func mediaContent(schema *JSONSchema, codecs *codecRegistry) map[string]MediaObj {
	content := make(map[string]MediaObj, len(codecs.encoders))
	for _, ct := range codecs.contentTypes() {
		content[ct] = MediaObj{Schema: schema}
	}
	return content
}

// pagingParameters documents the paging query parameters on a paged route.
func pagingParameters(limit int) []Parameter {
	return []Parameter{
		{
			Name:        ParamPagingOffset,
			In:          "query",
			Description: "Index of the first item to return.",
			Schema:      JSONSchema{Type: "integer"},
		},
		{
			Name:        ParamPagingLimit,
			In:          "query",
			Description: fmt.Sprintf("Items per page. Defaults to %d, which is also the maximum.", limit),
			Schema:      JSONSchema{Type: "integer"},
		},
	}
}

// pagingHeaders documents the paging response headers on a paged route.
func pagingHeaders() map[string]HeaderObj {
	intSchema := JSONSchema{Type: "integer"}
	urlSchema := JSONSchema{Type: "string", Format: "uri"}
	return map[string]HeaderObj{
		HeaderPagingOffset:      {Description: "Offset of the returned window.", Schema: intSchema},
		HeaderPagingLimit:       {Description: "Limit of the returned window.", Schema: intSchema},
		HeaderPagingTotalItems:  {Description: "Total items in the collection.", Schema: intSchema},
		HeaderPagingTotalPages:  {Description: "Total pages at the returned limit.", Schema: intSchema},
		HeaderPagingCurrentPage: {Description: "Page number of the returned window.", Schema: intSchema},
		HeaderPagingPrevious:    {Description: "URL of the previous page. Absent on the first page.", Schema: urlSchema},
		HeaderPagingNext:        {Description: "URL of the next page. Absent on the last page.", Schema: urlSchema},
	}
}

// errorHeaders documents the error-* headers for a declared error kind.
func errorHeaders(kind *ErrorKind) map[string]HeaderObj {
	return map[string]HeaderObj{
		HeaderErrorName: {
			Description: "Error kind name.",
			Schema:      JSONSchema{Type: "string", Enum: []string{kind.Name()}},
		},
		HeaderErrorMessage: {
			Description: "Human-readable error message.",
			Schema:      JSONSchema{Type: "string"},
		},
		HeaderErrorID: {
			Description: "Unique identifier of this error occurrence.",
			Schema:      JSONSchema{Type: "string", Format: "uuid"},
		},
		HeaderErrorCode: {
			Description: "Numeric API error code.",
			Schema:      JSONSchema{Type: "integer", Enum: []string{strconv.Itoa(kind.APICode())}},
		},
		HeaderErrorData: {
			Description: "Optional JSON-encoded structured error data.",
			Schema:      JSONSchema{Type: "string"},
		},
	}
}

// extractParameters builds OpenAPI parameters from param-tagged fields.
func extractParameters(t reflect.Type) []Parameter {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}

	var params []Parameter
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}

		for _, tagName := range paramTags {
			val := f.Tag.Get(tagName)
			if val == "" {
				continue
			}

			p := Parameter{
				Name:   val,
				In:     tagName,
				Schema: typeToSchema(f.Type),
			}

			if doc := f.Tag.Get("doc"); doc != "" {
				p.Description = doc
			}

			if isRequiredField(f) || tagName == "path" {
				p.Required = true
			}

			params = append(params, p)
		}
	}

	return params
}

// extractRequestBody builds an OpenAPI RequestBody if the request type has a body.
func extractRequestBody(t reflect.Type, method string, codecs *codecRegistry) *RequestBody {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	// Has Body field → body is the Body field's type.
	if t.Kind() == reflect.Struct {
		if bodyField, ok := t.FieldByName("Body"); ok {
			schema := typeToSchema(bodyField.Type)
			return &RequestBody{
				Required: true,
				Content:  mediaContent(&schema, codecs),
			}
		}
	}

	// No param tags → entire type is the body (only for POST/PUT/PATCH).
	if !hasParamTags(t) && (method == "POST" || method == "PUT" || method == "PATCH") {
		schema := typeToSchema(t)
		return &RequestBody{
			Required: true,
			Content:  mediaContent(&schema, codecs),
		}
	}

	return nil
}

// toOpenAPIPath converts a Go 1.22 pattern like "/users/{id}" to
// an OpenAPI path. Strips wildcard suffixes.
func toOpenAPIPath(pattern string) string {
	// Go's mux patterns can include {name...} for wildcards.
	// OpenAPI uses {name} without the ellipsis.
	return strings.ReplaceAll(pattern, "...", "")
}

// statusToString converts an HTTP status code to its string representation.
func statusToString(code int) string {
	return strconv.Itoa(code)
}
