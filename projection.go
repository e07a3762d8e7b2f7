package span

import (
	"context"
	"net/url"
	"strings"
)

// ProjectionPrefix marks query parameters that request response field
// trimming: project.<field>=1 keeps only the listed fields, project.<field>=0
// drops them. The two modes cannot be mixed in one request.
const ProjectionPrefix = "project."

// Projection is the per-request field projection state. Handlers may call
// Disable to suppress application for a single response.
type Projection struct {
	fields  map[string]bool
	include bool
	enabled bool
}

// ProjectionFromContext returns the projection requested by the client.
// Returns false when the request carried no project.* parameters.
func ProjectionFromContext(ctx context.Context) (*Projection, bool) {
	return GetValue[*Projection](ctx)
}

// Disable suppresses projection for the current response.
func (p *Projection) Disable() { p.enabled = false }

// Enabled reports whether the projection will be applied.
func (p *Projection) Enabled() bool { return p.enabled }

// Fields returns the projected field names.
func (p *Projection) Fields() []string {
	names := make([]string, 0, len(p.fields))
	for name := range p.fields {
		names = append(names, name)
	}
	return names
}

// parseProjection extracts project.<field> parameters from the query.
// Returns nil when none are present. Values other than 0 and 1, and
// requests mixing keeps with drops, are validation failures.
func parseProjection(query url.Values) (*Projection, error) {
	var (
		keeps = make(map[string]bool)
		drops = make(map[string]bool)
	)

	for key, values := range query {
		field, ok := strings.CutPrefix(key, ProjectionPrefix)
		if !ok {
			continue
		}
		if field == "" {
			return nil, ErrRequestValidation.Newf("projection parameter %q names no field", key)
		}

		for _, value := range values {
			switch value {
			case "1":
				keeps[field] = true
			case "0":
				drops[field] = true
			default:
				return nil, ErrRequestValidation.Newf(
					"projection parameter %q must be 0 or 1, got %q", key, value,
				)
			}
		}
	}

	if len(keeps) == 0 && len(drops) == 0 {
		return nil, nil
	}
	if len(keeps) > 0 && len(drops) > 0 {
		return nil, ErrRequestValidation.New("projection cannot mix kept and dropped fields")
	}

	p := &Projection{enabled: true}
	if len(keeps) > 0 {
		p.fields = keeps
		p.include = true
	} else {
		p.fields = drops
	}
	return p, nil
}

// applyProjection trims the generically-decoded response media. Objects are
// filtered directly; lists are filtered element-wise. Projecting a field
// the response does not carry, or media that is not object-shaped, is a
// request validation failure.
func applyProjection(media any, p *Projection) (any, error) {
	switch m := media.(type) {
	case map[string]any:
		return projectObject(m, p)

	case []any:
		out := make([]any, len(m))
		for i, item := range m {
			obj, ok := item.(map[string]any)
			if !ok {
				return nil, ErrRequestValidation.New("response items do not support projection")
			}
			projected, err := projectObject(obj, p)
			if err != nil {
				return nil, err
			}
			out[i] = projected
		}
		return out, nil

	default:
		return nil, ErrRequestValidation.New("response does not support projection")
	}
}

func projectObject(obj map[string]any, p *Projection) (map[string]any, error) {
	for field := range p.fields {
		if _, ok := obj[field]; !ok {
			return nil, ErrRequestValidation.Newf("field %q is not supported for projection", field)
		}
	}

	out := make(map[string]any, len(obj))
	for key, value := range obj {
		if p.fields[key] == p.include {
			out[key] = value
		}
	}
	return out, nil
}
