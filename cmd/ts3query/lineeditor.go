// =============================================================================
// lineeditor.go - Line Editor with Dual-Mode Operation
// =============================================================================
//
// The REPL reads its input through a LineEditor, which picks one of two
// input methods:
//
//   - Interactive mode: ergochat/readline with Emacs keybindings, Ctrl-R
//     history search and a persistent history file.
//   - Non-interactive mode: a bufio.Scanner over the input, with the
//     prompt written by hand. Used for piped input and dumb terminals.
//
// =============================================================================

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ergochat/readline"
	"golang.org/x/term"
)

// LineEditor wraps line editing with dual-mode operation.
type LineEditor struct {
	interactive bool

	// rl is nil in non-interactive mode.
	rl *readline.Instance

	// scanner and out are only used in non-interactive mode.
	scanner *bufio.Scanner
	out     io.Writer
}

// NewLineEditor creates an editor for in. Readline is used only when in is
// a terminal; any readline failure falls back to plain line reading.
func NewLineEditor(in io.Reader, out io.Writer, historyPath string, historySize int) *LineEditor {
	if !isInteractive(in) {
		return newPipedEditor(in, out)
	}

	rl, err := readline.NewFromConfig(&readline.Config{
		HistoryFile:  historyPath,
		HistoryLimit: historySize,

		// Only non-empty lines are saved, see getInteractiveLine.
		DisableAutoSaveHistory: true,

		// Set before every read.
		Prompt: "",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: readline init failed (%v), using basic input\n", err)
		return newPipedEditor(in, out)
	}

	return &LineEditor{
		interactive: true,
		rl:          rl,
	}
}

func newPipedEditor(in io.Reader, out io.Writer) *LineEditor {
	return &LineEditor{
		interactive: false,
		scanner:     bufio.NewScanner(in),
		out:         out,
	}
}

// isInteractive reports whether in is a real terminal that can handle
// readline's escape sequences.
func isInteractive(in io.Reader) bool {
	f, ok := in.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return false
	}
	return os.Getenv("TERM") != "dumb" && os.Getenv("INSIDE_EMACS") == ""
}

// GetLine displays prompt and reads one line. It returns io.EOF when the
// input ends or the user presses Ctrl-D or Ctrl-C.
func (le *LineEditor) GetLine(prompt string) (string, error) {
	if le.interactive {
		return le.getInteractiveLine(prompt)
	}
	return le.getNonInteractiveLine(prompt)
}

func (le *LineEditor) getInteractiveLine(prompt string) (string, error) {
	le.rl.SetPrompt(prompt)

	line, err := le.rl.Readline()
	if err != nil {
		if errors.Is(err, readline.ErrInterrupt) {
			return "", io.EOF
		}
		return "", err
	}

	if trimmed := strings.TrimSpace(line); trimmed != "" {
		le.rl.SaveToHistory(trimmed)
	}
	return line, nil
}

func (le *LineEditor) getNonInteractiveLine(prompt string) (string, error) {
	fmt.Fprint(le.out, prompt)

	if !le.scanner.Scan() {
		if err := le.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return le.scanner.Text(), nil
}

// Close releases the terminal and writes the history file. It is safe to
// call more than once.
func (le *LineEditor) Close() {
	if le.rl != nil {
		le.rl.Close()
		le.rl = nil
	}
}

// IsInteractive reports whether readline is in use.
func (le *LineEditor) IsInteractive() bool {
	return le.interactive
}
