package tui

import (
	"fmt"
	"io"
)

// FallbackRunner handles non-TTY execution by pointing users at the CLI
// commands that do not need a terminal.
type FallbackRunner struct {
	out io.Writer
}

// NewFallbackRunner creates a FallbackRunner writing to out.
func NewFallbackRunner(out io.Writer) *FallbackRunner {
	return &FallbackRunner{out: out}
}

// Run prints the non-interactive alternatives.
func (f *FallbackRunner) Run() error {
	fmt.Fprintln(f.out, "Non-TTY environment detected.")
	fmt.Fprintln(f.out, "Use the non-interactive commands instead:")
	fmt.Fprintln(f.out, "  threadline login                      sign in")
	fmt.Fprintln(f.out, "  threadline threads [--filter q]       list chats")
	fmt.Fprintln(f.out, "  threadline new [title]                start a chat")
	fmt.Fprintln(f.out, "  threadline send --thread <id> <text>  send and wait for the reply")
	fmt.Fprintln(f.out, "  threadline watch --thread <id>        stream a chat")
	return nil
}
