package span_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/illuscio-dev/span"
)

func TestNewValidator(t *testing.T) {
	t.Parallel()

	type record struct {
		Title string `validate:"required"`
		Pages int    `validate:"gte=0"`
	}

	v := span.NewValidator()

	require.NoError(t, v.Validate(&record{Title: "ok", Pages: 1}))

	err := v.Validate(&record{Pages: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Title")

	err = v.Validate(&record{Title: "ok", Pages: -1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Pages")
}

func TestNewValidator_nonStruct(t *testing.T) {
	t.Parallel()

	v := span.NewValidator()

	// Non-struct values have nothing to validate.
	assert.NoError(t, v.Validate(map[string]any{"any": "thing"}))
	assert.NoError(t, v.Validate("scalar"))
	assert.NoError(t, v.Validate(nil))
}
