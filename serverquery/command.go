package serverquery

import (
	"fmt"
	"sort"
	"strings"
)

// Fields holds the parameters of a command. A bool value is sent as a
// bare flag ("--key") whatever its value; any other value is formatted
// with fmt and sent as an encoded key=value pair.
type Fields map[string]any

// FormatCommand builds the command line without its terminator. Flags
// come first, then key=value pairs, each group in key order. The command
// itself is sent as is, so a caller may pass a complete raw line and nil
// fields.
func FormatCommand(command string, fields Fields) string {
	var flags, params []string
	for key, value := range fields {
		if _, ok := value.(bool); ok {
			flags = append(flags, key)
			continue
		}
		params = append(params, key)
	}
	sort.Strings(flags)
	sort.Strings(params)

	var sb strings.Builder
	sb.WriteString(command)
	for _, key := range flags {
		sb.WriteString(" --")
		sb.WriteString(key)
	}
	for _, key := range params {
		sb.WriteByte(' ')
		sb.WriteString(key)
		sb.WriteByte('=')
		sb.WriteString(Encode(stringify(fields[key])))
	}
	return sb.String()
}

// FormatLine returns the command line ready to write, with LineTerminator.
func FormatLine(command string, fields Fields) string {
	return FormatCommand(command, fields) + LineTerminator
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case nil:
		return ""
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
