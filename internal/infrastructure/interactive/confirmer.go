// Package interactive provides terminal prompts for approving transactions.
package interactive

import (
	"errors"
	"io"
	"os"

	"github.com/manifoldco/promptui"
	"golang.org/x/term"

	"github.com/altuslabsxyz/stakekit/internal/application/ports"
	"github.com/altuslabsxyz/stakekit/internal/output"
)

// ErrCancelled is returned when the user interrupts a prompt.
var ErrCancelled = errors.New("operation cancelled")

// PromptConfirmer asks for confirmation with promptui.
type PromptConfirmer struct{}

// Confirm implements ports.Confirmer.
func (PromptConfirmer) Confirm(message string) (bool, error) {
	prompt := promptui.Prompt{
		Label:     message,
		IsConfirm: true,
	}

	_, err := prompt.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrAbort) {
			return false, nil
		}
		return false, handleInterruptError(err)
	}
	return true, nil
}

// LineConfirmer reads a y/N answer from a plain reader, for piped input.
type LineConfirmer struct {
	In  io.Reader
	Out io.Writer
}

// Confirm implements ports.Confirmer.
func (c LineConfirmer) Confirm(message string) (bool, error) {
	return output.ConfirmPrompt(c.In, c.Out, message)
}

// AutoConfirmer approves everything. Used for --yes.
type AutoConfirmer struct{}

// Confirm implements ports.Confirmer.
func (AutoConfirmer) Confirm(string) (bool, error) {
	return true, nil
}

// NewConfirmer picks the prompt for the current terminal.
func NewConfirmer(assumeYes bool) ports.Confirmer {
	if assumeYes {
		return AutoConfirmer{}
	}
	if IsTerminalInteractive() {
		return PromptConfirmer{}
	}
	return LineConfirmer{In: os.Stdin, Out: os.Stderr}
}

// IsTerminalInteractive reports whether stdin is a TTY. promptui reads from
// stdin, so stdout is not checked.
func IsTerminalInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

func handleInterruptError(err error) error {
	if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
		return ErrCancelled
	}
	return err
}

var (
	_ ports.Confirmer = PromptConfirmer{}
	_ ports.Confirmer = LineConfirmer{}
	_ ports.Confirmer = AutoConfirmer{}
)
