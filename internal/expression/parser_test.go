package expression

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Precedence(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"1 + 2 - 3", "((1 + 2) - 3)"},
		{"a or b and c", ""},
		{"true or false and false", "(true or (false and false))"},
		{"not true and false", "((not true) and false)"},
		{"1 + 2 > 2", "((1 + 2) > 2)"},
		{"-1 + 2", "(-1 + 2)"},
		{"--1", "1"},
		{"true ? 1 : false ? 2 : 3", "(true ? 1 : (false ? 2 : 3))"},
		{"count(streams) > 0 and count(previousStreams) < 5", "((count(streams) > 0) and (count(previousStreams) < 5))"},
		{"(1 + 2) == 3", "((1 + 2) == 3)"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			p, err := Parse(tt.input)
			if tt.want == "" {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Root.String())
			assert.Equal(t, tt.input, p.Source)
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"whitespace only", "   "},
		{"unknown function", "popular(streams)"},
		{"unknown identifier", "count(items)"},
		{"too few arguments", "type(streams)"},
		{"too many arguments", "count(streams, streams)"},
		{"chained comparison", "1 < 2 < 3"},
		{"missing paren", "count(streams"},
		{"missing colon", "true ? 1"},
		{"trailing tokens", "1 2"},
		{"dangling operator", "1 +"},
		{"lexer failure", "a = b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input)
			assert.Error(t, err)
		})
	}
}

func TestParse_ErrorPosition(t *testing.T) {
	_, err := Parse("count(streams) and\n  bogus(streams)")
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 2, pe.Line)
	assert.Equal(t, 3, pe.Column)
	assert.Contains(t, pe.Error(), `unknown function "bogus"`)
}

func TestParse_References(t *testing.T) {
	p := MustParse("count(previousStreams) > 2 and totalTimeTaken < 500")

	assert.True(t, p.References(BindPreviousStreams))
	assert.True(t, p.References(BindTotalTimeTaken))
	assert.False(t, p.References(BindStreams))
	assert.Equal(t, []string{"count"}, p.Functions)
}

func TestMustParse_Panics(t *testing.T) {
	assert.Panics(t, func() { MustParse("count(") })
}

func TestFunctions_Registry(t *testing.T) {
	fns := Functions()
	require.NotEmpty(t, fns)
	for i := 1; i < len(fns); i++ {
		assert.Less(t, fns[i-1].Name, fns[i].Name)
	}

	for _, name := range []string{
		"type", "resolution", "quality", "encode", "visualTag", "audioTag", "audioChannels",
		"language", "seeders", "size", "service", "cached", "uncached", "releaseGroup", "addon",
		"library", "count", "negate", "merge", "indexer", "regexMatched", "regexMatchedInRange",
		"keywordMatched", "passthrough", "slice",
	} {
		fn, ok := LookupFunction(name)
		if assert.True(t, ok, name) {
			assert.NotEmpty(t, fn.Signature)
			assert.NotEmpty(t, fn.Description)
		}
	}
}
