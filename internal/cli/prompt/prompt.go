// Package prompt provides interactive terminal confirmations for
// destructive CLI commands.
package prompt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
)

// ErrAborted reports that the user cancelled an interactive prompt
// with Ctrl+C.
var ErrAborted = errors.New("prompt aborted")

// IsAborted reports whether err means the user backed out rather than
// a real failure.
func IsAborted(err error) bool {
	return errors.Is(err, ErrAborted) ||
		errors.Is(err, promptui.ErrInterrupt) ||
		errors.Is(err, promptui.ErrAbort)
}

// Confirm asks a yes/no question. An explicit "n" declines without error;
// Ctrl+C reports ErrAborted.
func Confirm(label string, defYes bool) (bool, error) {
	hint := "y/N"
	if defYes {
		hint = "Y/n"
	}

	p := promptui.Prompt{Label: fmt.Sprintf("%s [%s]", label, hint), IsConfirm: true}

	answer, err := p.Run()
	switch {
	case err == nil:
		return isYes(answer), nil
	case errors.Is(err, promptui.ErrAbort):
		// promptui signals any non-yes answer as ErrAbort.
		return false, nil
	case errors.Is(err, promptui.ErrInterrupt):
		return false, ErrAborted
	case answer == "":
		// Bare Enter falls back to the default.
		return defYes, nil
	}
	return false, err
}

func isYes(answer string) bool {
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true
	}
	return false
}

// ConfirmDanger demands the confirmation word be typed back before a
// destructive operation proceeds. Ctrl+C reports ErrAborted.
func ConfirmDanger(label, word string) (bool, error) {
	p := promptui.Prompt{
		Label: fmt.Sprintf("%s (type %q to confirm)", label, word),
		Validate: func(input string) error {
			if input != word {
				return fmt.Errorf("type %q to confirm", word)
			}
			return nil
		},
	}

	answer, err := p.Run()
	switch {
	case err == nil:
		return answer == word, nil
	case errors.Is(err, promptui.ErrAbort):
		return false, nil
	case errors.Is(err, promptui.ErrInterrupt):
		return false, ErrAborted
	}
	return false, err
}

// ConfirmWithForce skips the prompt entirely under --force; otherwise it
// asks with a defaulted-no Confirm.
func ConfirmWithForce(label string, force bool) (bool, error) {
	if force {
		return true, nil
	}
	return Confirm(label, false)
}
