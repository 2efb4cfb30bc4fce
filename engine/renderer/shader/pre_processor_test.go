package shader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreProcessorExpandsOnce(t *testing.T) {
	pp := NewPreProcessor(map[string]string{
		"a": "struct A { x: f32, }",
		"b": "//!include a\nstruct B { a: A, }",
	})

	out, err := pp.Process("//!include b\n  //!include a\nfn main() {}")
	require.NoError(t, err)
	assert.Equal(t, "struct A { x: f32, }\nstruct B { a: A, }\nfn main() {}", out)
	assert.Equal(t, []string{"b", "a"}, pp.Included())
}

func TestPreProcessorPassThrough(t *testing.T) {
	pp := NewPreProcessor(nil)
	src := "// a comment\nfn main() {}"
	out, err := pp.Process(src)
	require.NoError(t, err)
	assert.Equal(t, src, out)
	assert.Empty(t, pp.Included())
}

func TestPreProcessorErrors(t *testing.T) {
	tests := []struct {
		name     string
		includes map[string]string
		source   string
		msg      string
	}{
		{"unknown", nil, "//!include missing", `unknown include "missing"`},
		{"no name", nil, "//!include", "exactly one name"},
		{"two names", nil, "//!include a b", "exactly one name"},
		{"cycle", map[string]string{"a": "//!include b", "b": "//!include a"}, "//!include a", "include cycle"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPreProcessor(tt.includes).Process(tt.source)
			assert.ErrorContains(t, err, tt.msg)
		})
	}
}
