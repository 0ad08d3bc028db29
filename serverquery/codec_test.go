package serverquery

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Slash", "/", `\/`},
		{"Backslash", `\`, `\\`},
		{"Space", " ", `\s`},
		{"Pipe", "|", `\p`},
		{"Bell", "\a", `\a`},
		{"Backspace", "\b", `\b`},
		{"Formfeed", "\f", `\f`},
		{"Newline", "\n", `\n`},
		{"Carriage return", "\r", `\r`},
		{"Horizontal tab", "\t", `\t`},
		{"Vertical tab", "\v", `\v`},
		{"Plain text", "serveradmin", "serveradmin"},
		{"Mixed", "Hello World|a/b", `Hello\sWorld\pa\/b`},
		{"Backslash before s", `\s`, `\\s`},
		{"Empty", "", ""},
		{"Unicode untouched", "grüße äöü", `grüße\säöü`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Encode(tt.input))
		})
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Backslash", `\\`, `\`},
		{"Slash", `\/`, "/"},
		{"Whitespace", `\s`, " "},
		{"Pipe", `\p`, "|"},
		{"Bell", `\a`, "\a"},
		{"Backspace", `\b`, "\b"},
		{"Formfeed", `\f`, "\f"},
		{"Newline", `\n`, "\n"},
		{"Carriage return", `\r`, "\r"},
		{"Horizontal tab", `\t`, "\t"},
		{"Vertical tab", `\v`, "\v"},
		{"Escaped backslash then s", `\\s`, `\s`},
		{"Message", `invalid\sclientID`, "invalid clientID"},
		{"Unknown escape kept", `\x`, `\x`},
		{"Trailing backslash kept", `abc\`, `abc\`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Decode(tt.input))
		})
	}
}

func TestCodecRoundTrip(t *testing.T) {
	reserved := []rune{'\\', '/', ' ', '|', '\a', '\b', '\f', '\n', '\r', '\t', '\v'}

	// Every ordered pair and triple of reserved characters.
	var inputs []string
	for _, a := range reserved {
		inputs = append(inputs, string(a))
		for _, b := range reserved {
			inputs = append(inputs, string([]rune{a, b}))
			for _, c := range reserved {
				inputs = append(inputs, string([]rune{a, b, c}))
			}
		}
	}
	inputs = append(inputs,
		`\s\p\\`,
		"client nickname | with \\ slashes / and\ttabs\n",
		`\\\\ss`,
	)

	for _, input := range inputs {
		assert.Equal(t, input, Decode(Encode(input)), "round trip of %q", input)
	}
}
