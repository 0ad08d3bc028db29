package serverquery

import (
	"regexp"
	"strconv"
	"strings"
)

// statusPattern matches a status line. The message is a run of word
// characters and backslash escapes, so it stops before any trailing
// fields such as extra_msg.
var statusPattern = regexp.MustCompile(`error id=(\d+) msg=((?:\w|\\)+)`)

// Record is one key/value record of a data line, with decoded values.
type Record map[string]string

// Status is the status line that ends every response unit.
type Status struct {
	Code    int
	Message string

	// Extra and FailedPermID carry the optional extra_msg and failed_permid
	// fields some errors include.
	Extra        string
	FailedPermID int
}

// OK reports whether the status is the success status.
func (s Status) OK() bool {
	return s.Code == 0 && s.Message == StatusOK
}

// Response is the parsed reply to one command.
type Response struct {
	// Data is nil when the reply had no data line, a Record when the data
	// line held exactly one record and a []Record otherwise.
	Data any

	Status Status
}

// HasData reports whether the reply carried a data line.
func (r *Response) HasData() bool {
	return r.Data != nil
}

// Records returns the data records as a slice regardless of how many
// there were.
func (r *Response) Records() []Record {
	switch d := r.Data.(type) {
	case Record:
		return []Record{d}
	case []Record:
		return d
	default:
		return nil
	}
}

// OK reports whether the response status is the success status.
func (r *Response) OK() bool {
	return r.Status.OK()
}

// Parse parses one completed response unit: an optional data line
// followed by a status line, each ended by LineTerminator.
//
// When more than two lines are present the first is taken as the data
// line and the last as the status line.
func Parse(raw string) *Response {
	lines := splitLines(raw)
	switch len(lines) {
	case 0:
		return &Response{Status: ParseStatus("")}
	case 1:
		return &Response{Status: ParseStatus(lines[0])}
	default:
		return &Response{
			Data:   ParseData(lines[0]),
			Status: ParseStatus(lines[len(lines)-1]),
		}
	}
}

// splitLines splits on LineTerminator and drops empty segments.
func splitLines(raw string) []string {
	parts := strings.Split(raw, LineTerminator)
	lines := parts[:0]
	for _, p := range parts {
		if p != "" {
			lines = append(lines, p)
		}
	}
	return lines
}

// ParseStatus parses a status line. A line that does not match yields the
// ParseErrorCode status instead of an error, so one bad line never
// discards an otherwise valid data line.
func ParseStatus(line string) Status {
	m := statusPattern.FindStringSubmatchIndex(line)
	if m == nil {
		return Status{Code: ParseErrorCode, Message: ParseErrorMessage}
	}

	code, err := strconv.Atoi(line[m[2]:m[3]])
	if err != nil {
		return Status{Code: ParseErrorCode, Message: ParseErrorMessage}
	}

	status := Status{
		Code:    code,
		Message: Decode(line[m[4]:m[5]]),
	}

	for _, token := range strings.Fields(line[m[1]:]) {
		key, value, _ := strings.Cut(token, "=")
		switch key {
		case "extra_msg":
			status.Extra = Decode(value)
		case "failed_permid":
			if id, err := strconv.Atoi(value); err == nil {
				status.FailedPermID = id
			}
		}
	}

	return status
}

// ParseData parses a data line into records and collapses the result
// with Collapse.
func ParseData(line string) any {
	return Collapse(ParseRecords(line))
}

// ParseRecords parses a data line into its records. Records are separated
// by "|", fields by " ". Each field is split on its first "="; the rest,
// including any further "=", is the encoded value. A field without "="
// maps to an empty value.
func ParseRecords(line string) []Record {
	chunks := strings.Split(line, "|")
	records := make([]Record, 0, len(chunks))
	for _, chunk := range chunks {
		record := make(Record)
		for _, token := range strings.Split(chunk, " ") {
			if token == "" {
				continue
			}
			key, value, _ := strings.Cut(token, "=")
			record[key] = Decode(value)
		}
		records = append(records, record)
	}
	return records
}

// Collapse returns the single record itself when records has exactly one
// element, and records unchanged otherwise. Replies to ServerQuery
// commands are shaped this way on the wire: a one-record reply is a
// mapping, not a list of one.
func Collapse(records []Record) any {
	if len(records) == 1 {
		return records[0]
	}
	return records
}
