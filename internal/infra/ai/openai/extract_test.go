package openai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/whatif-lab/internal/apperrors"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "plain array", input: `[{"a":1}]`, expected: `[{"a":1}]`},
		{name: "surrounding whitespace", input: "\n  [1,2]  \n", expected: `[1,2]`},
		{name: "json fence", input: "```json\n[{\"a\":1}]\n```", expected: `[{"a":1}]`},
		{name: "bare fence", input: "```\n{\"a\":1}\n```", expected: `{"a":1}`},
		{name: "prose around array", input: `Here you go: [{"a":"x]"}] Hope this helps.`, expected: `[{"a":"x]"}]`},
		{name: "prose around object", input: `Result: {"entities":[{"a":1}]} done`, expected: `{"entities":[{"a":1}]}`},
		{name: "escaped quote in string", input: `note [{"a":"say \"hi\" ]"}]`, expected: `[{"a":"say \"hi\" ]"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.input)
			require.NoError(t, err)
			assert.JSONEq(t, tt.expected, string(got))
		})
	}
}

func TestExtractJSONFailure(t *testing.T) {
	for _, input := range []string{"", "I cannot comply", "[unterminated", "```json\n```"} {
		_, err := ExtractJSON(input)
		var pe *apperrors.ParseError
		require.ErrorAs(t, err, &pe, "input %q", input)
		assert.Equal(t, input, pe.Raw)
	}
}
