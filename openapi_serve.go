package span

import (
	"encoding/json"
	"io"
	"net/http"

	"gopkg.in/yaml.v3"
)

// ServeSpec registers a GET handler at the given path that serves
// the OpenAPI spec as JSON.
func (rt *Router) ServeSpec(pattern string) {
	rt.handleRaw(http.MethodGet, pattern, func(w http.ResponseWriter, _ *http.Request) {
		spec := rt.Spec()
		MimeJSON.AddToHeader(w.Header())
		//nolint:errcheck,gosec // best-effort after WriteHeader
		json.NewEncoder(w).Encode(spec)
	})
}

// ServeSpecYAML registers a GET handler at the given path that serves
// the OpenAPI spec as YAML.
func (rt *Router) ServeSpecYAML(pattern string) {
	rt.handleRaw(http.MethodGet, pattern, func(w http.ResponseWriter, _ *http.Request) {
		spec := rt.Spec()
		MimeYAML.AddToHeader(w.Header())
		//nolint:errcheck,gosec // best-effort after WriteHeader
		yaml.NewEncoder(w).Encode(spec)
	})
}

// WriteSpec writes the OpenAPI spec as indented JSON to w.
func (rt *Router) WriteSpec(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rt.Spec())
}

// WriteSpecYAML writes the OpenAPI spec as YAML to w.
func (rt *Router) WriteSpecYAML(w io.Writer) error {
	return yaml.NewEncoder(w).Encode(rt.Spec())
}
