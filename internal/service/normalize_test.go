package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeHandle(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "display name with space and digits", input: "Alice 01", want: "alice-01"},
		{name: "already canonical", input: "alice-01", want: "alice-01"},
		{name: "camel case is only lowered", input: "JohnDoe", want: "johndoe"},
		{name: "letter digit boundary", input: "foo1bar", want: "foo-1-bar"},
		{name: "upper run is only lowered", input: "HTTPServer", want: "httpserver"},
		{name: "digits inside upper run still split", input: "AB12CD", want: "ab-12-cd"},
		{name: "punctuation runs collapse", input: "a!!b??c", want: "a-b-c"},
		{name: "leading and trailing separators", input: "--hello--", want: "hello"},
		{name: "only separators", input: "!!!", want: ""},
		{name: "empty", input: "", want: ""},
		{name: "unicode stripped to words", input: "héllo wörld", want: "héllo-wörld"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeHandle(tt.input))
		})
	}
}

// TestNormalizeHandle_Idempotent checks that normalizing an already
// normalized value is a no-op, which the returning-login shortcut relies on.
func TestNormalizeHandle_Idempotent(t *testing.T) {
	inputs := []string{"Alice 01", "JohnDoe", "foo1bar", "HTTPServer", "a!!b??c", "héllo wörld"}

	for _, input := range inputs {
		once := NormalizeHandle(input)
		twice := NormalizeHandle(once)
		assert.Equal(t, once, twice, "input %q", input)
	}
}
