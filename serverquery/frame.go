package serverquery

import (
	"regexp"
	"strings"
)

// statusLinePattern recognises the line that completes a response unit.
var statusLinePattern = regexp.MustCompile(`^error id=\d+ msg=`)

// FrameKind tells a response frame from an event frame.
type FrameKind int

const (
	// FrameResponse is a completed response unit.
	FrameResponse FrameKind = iota
	// FrameEvent is a single event notification line.
	FrameEvent
)

// Frame is a unit of inbound data ready for parsing.
type Frame struct {
	Kind FrameKind

	// Text is the raw text. For responses it is the whole accumulated unit
	// including line terminators; for events it is the line without its
	// terminator.
	Text string
}

// Framer splits the inbound byte stream into frames. The transport may
// deliver a line split over several chunks, or several lines and units in
// one chunk; Framer holds partial lines until they are complete.
//
// Framer is not safe for concurrent use. A session feeds it from its
// reader goroutine only.
type Framer struct {
	partial  strings.Builder // incomplete trailing line
	response strings.Builder // lines of the response unit in progress
}

// NewFramer creates an empty framer.
func NewFramer() *Framer {
	return &Framer{}
}

// Feed appends a chunk and returns the frames it completed, in stream
// order.
func (f *Framer) Feed(chunk []byte) []Frame {
	f.partial.Write(chunk)
	data := f.partial.String()

	var frames []Frame
	for {
		idx := strings.Index(data, LineTerminator)
		if idx < 0 {
			break
		}
		line := data[:idx]
		data = data[idx+len(LineTerminator):]

		if frame, ok := f.line(line); ok {
			frames = append(frames, frame)
		}
	}

	f.partial.Reset()
	f.partial.WriteString(data)
	return frames
}

// line classifies one complete line.
func (f *Framer) line(line string) (Frame, bool) {
	if line == "" {
		return Frame{}, false
	}

	if IsEventLine(line) {
		return Frame{Kind: FrameEvent, Text: line}, true
	}

	f.response.WriteString(line)
	f.response.WriteString(LineTerminator)
	if !IsStatusLine(line) {
		return Frame{}, false
	}

	text := f.response.String()
	f.response.Reset()
	return Frame{Kind: FrameResponse, Text: text}, true
}

// Buffered returns the response text accumulated so far, including any
// incomplete trailing line.
func (f *Framer) Buffered() string {
	return f.response.String() + f.partial.String()
}

// Reset discards all buffered data.
func (f *Framer) Reset() {
	f.partial.Reset()
	f.response.Reset()
}

// IsEventLine reports whether line is an event notification: its first
// token is a name containing EventMarker rather than a key=value field.
func IsEventLine(line string) bool {
	name, _, _ := strings.Cut(line, " ")
	return strings.Contains(name, EventMarker) && !strings.Contains(name, "=")
}

// IsStatusLine reports whether line is a status line.
func IsStatusLine(line string) bool {
	return statusLinePattern.MatchString(line)
}
