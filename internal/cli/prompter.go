package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

// Prompter asks questions on the terminal. Reads honor context
// cancellation so an interrupt during a prompt exits cleanly instead of
// blocking on stdin.
type Prompter struct {
	reader *NonBlockingReader
	writer io.Writer
}

// NewPrompter creates a prompter over the given reader and writer,
// defaulting to stdin and stdout.
func NewPrompter(reader io.Reader, writer io.Writer) *Prompter {
	if reader == nil {
		reader = os.Stdin
	}
	if writer == nil {
		writer = os.Stdout
	}

	return &Prompter{
		reader: NewNonBlockingReader(reader),
		writer: writer,
	}
}

// Confirm asks a yes/no question. Empty input selects the default.
func (p *Prompter) Confirm(ctx context.Context, question string, defaultYes bool) (bool, error) {
	hint := "y/N"
	if defaultYes {
		hint = "Y/n"
	}

	if _, err := fmt.Fprint(p.writer, FormatPrompt(fmt.Sprintf("%s [%s]", question, hint))); err != nil {
		return false, fmt.Errorf("failed to write prompt: %w", err)
	}

	line, err := p.reader.ReadLine(ctx)
	if err != nil {
		return false, err
	}

	switch strings.ToLower(line) {
	case "":
		return defaultYes, nil
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// Choose asks the user to pick one of choices, reprompting until the
// answer matches one of them.
func (p *Prompter) Choose(ctx context.Context, label string, choices []string) (string, error) {
	for {
		if _, err := fmt.Fprint(p.writer, FormatPrompt(fmt.Sprintf("%s [%s]", label, strings.Join(choices, "/")))); err != nil {
			return "", fmt.Errorf("failed to write prompt: %w", err)
		}

		line, err := p.reader.ReadLine(ctx)
		if err != nil {
			return "", err
		}

		line = strings.ToLower(line)
		for _, choice := range choices {
			if line == choice {
				return choice, nil
			}
		}

		if _, err := fmt.Fprintln(p.writer, FormatWarning("Please answer one of: "+strings.Join(choices, ", "))); err != nil {
			return "", fmt.Errorf("failed to write prompt: %w", err)
		}
	}
}

// Input asks for a free-form line of text.
func (p *Prompter) Input(ctx context.Context, label string) (string, error) {
	if _, err := fmt.Fprint(p.writer, FormatPrompt(label)); err != nil {
		return "", fmt.Errorf("failed to write prompt: %w", err)
	}
	return p.reader.ReadLine(ctx)
}
