package main

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLineEditorNonInteractive(t *testing.T) {
	le := NewLineEditor(strings.NewReader(""), io.Discard, "", 0)
	defer le.Close()

	assert.False(t, le.IsInteractive())
	assert.Nil(t, le.rl)
}

func TestGetLineReadsLines(t *testing.T) {
	var out bytes.Buffer
	le := newPipedEditor(strings.NewReader("version\n  whoami  \n\nclientlist -uid\n"), &out)

	var lines []string
	for {
		line, err := le.GetLine(prompt)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		lines = append(lines, line)
	}

	assert.Equal(t, []string{"version", "  whoami  ", "", "clientlist -uid"}, lines)
	assert.Equal(t, strings.Repeat(prompt, 5), out.String())
}

func TestGetLineHandlesCRLF(t *testing.T) {
	le := newPipedEditor(strings.NewReader("version\r\n"), io.Discard)
	line, err := le.GetLine("")
	require.NoError(t, err)
	assert.Equal(t, "version", line)
}

func TestGetLineEOFOnEmptyInput(t *testing.T) {
	le := newPipedEditor(strings.NewReader(""), io.Discard)
	_, err := le.GetLine(prompt)
	assert.ErrorIs(t, err, io.EOF)
}

func TestGetLinePreservesEscapes(t *testing.T) {
	le := newPipedEditor(strings.NewReader(`sendtextmessage msg=a\sb\pc`+"\n"), io.Discard)
	line, err := le.GetLine("")
	require.NoError(t, err)
	assert.Equal(t, `sendtextmessage msg=a\sb\pc`, line)
}

func TestCloseIsIdempotent(t *testing.T) {
	le := newPipedEditor(strings.NewReader(""), io.Discard)
	le.Close()
	le.Close()
}

func TestIsInteractiveRejectsNonFiles(t *testing.T) {
	assert.False(t, isInteractive(strings.NewReader("")))
	assert.False(t, isInteractive(&bytes.Buffer{}))
}
