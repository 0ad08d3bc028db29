package serverquery

import "strings"

// encoder escapes reserved characters. Backslash comes first so the
// backslashes produced by later pairs are not escaped again.
var encoder = strings.NewReplacer(
	`\`, `\\`,
	`/`, `\/`,
	` `, `\s`,
	`|`, `\p`,
	"\a", `\a`,
	"\b", `\b`,
	"\f", `\f`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
	"\v", `\v`,
)

// decoder is the inverse of encoder. strings.Replacer scans left to right
// without re-reading its output, so `\\s` decodes to `\s` and not to `\ `.
var decoder = strings.NewReplacer(
	`\\`, `\`,
	`\/`, `/`,
	`\s`, ` `,
	`\p`, `|`,
	`\a`, "\a",
	`\b`, "\b",
	`\f`, "\f",
	`\n`, "\n",
	`\r`, "\r",
	`\t`, "\t",
	`\v`, "\v",
)

// Encode escapes a field value for transmission.
func Encode(value string) string {
	return encoder.Replace(value)
}

// Decode reverses Encode. Unknown escape sequences are left as they are.
func Decode(value string) string {
	return decoder.Replace(value)
}
