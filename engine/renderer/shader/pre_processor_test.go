package shader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreProcessorExpandsIncludes(t *testing.T) {
	pp := NewPreProcessor(map[string]string{
		"vertex": "struct Vertex { position: vec2<f32>, }",
	})

	out, err := pp.Process("//@oxy:include vertex\nfn main() {}")
	require.NoError(t, err)
	assert.Equal(t, "struct Vertex { position: vec2<f32>, }\nfn main() {}", out)
	assert.Equal(t, []string{"vertex"}, pp.Included())
}

func TestPreProcessorNestedAndRepeated(t *testing.T) {
	pp := NewPreProcessor(map[string]string{
		"a": "//@oxy:include b\nstruct A { b: B, }",
		"b": "struct B { x: f32, }",
	})

	out, err := pp.Process("  //@oxy:include a\n//@oxy:include b\n")
	require.NoError(t, err)
	assert.Equal(t, "struct B { x: f32, }\nstruct A { b: B, }\n", out)
	assert.Equal(t, []string{"b", "a"}, pp.Included())
}

func TestPreProcessorErrors(t *testing.T) {
	pp := NewPreProcessor(map[string]string{
		"loop": "//@oxy:include loop",
	})

	tests := map[string]string{
		"unknown include":   "//@oxy:include camera",
		"malformed":         "//@oxy:include",
		"unknown directive": "//@oxy:group 0 0 uniform camera camera",
		"cycle":             "//@oxy:include loop",
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := pp.Process(src)
			assert.Error(t, err)
		})
	}
}

func TestPreProcessorPassesPlainComments(t *testing.T) {
	pp := NewPreProcessor(nil)
	out, err := pp.Process("// plain comment\nfn f() {}")
	require.NoError(t, err)
	assert.Equal(t, "// plain comment\nfn f() {}", out)
	assert.Empty(t, pp.Included())
}
