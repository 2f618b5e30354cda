package control

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
)

// Decision is one choice offered by a startup prompt.
type Decision int

const (
	// DecisionRetry re-runs the whole startup sequence from the top.
	DecisionRetry Decision = iota
	// DecisionExit abandons startup.
	DecisionExit
	// DecisionContinue enters Ready despite failed services.
	DecisionContinue
	// DecisionReport writes a failure report, then exits.
	DecisionReport
)

func (d Decision) String() string {
	switch d {
	case DecisionRetry:
		return "Retry"
	case DecisionExit:
		return "Exit"
	case DecisionContinue:
		return "Continue Anyway"
	case DecisionReport:
		return "Report"
	default:
		return fmt.Sprintf("Decision(%d)", int(d))
	}
}

// Prompt is one blocking decision put to the user. Options carries the
// choices in display order; the prompter returns one of them.
type Prompt struct {
	Title   string
	Message string
	Detail  string
	Options []Decision
}

// Prompter presents a prompt and returns the chosen option.
type Prompter interface {
	Choose(ctx context.Context, p Prompt) (Decision, error)
}

// fallbackDecision is the safe default for a prompt: degraded starts
// continue, fatal ones exit.
func fallbackDecision(p Prompt) Decision {
	for _, o := range p.Options {
		if o == DecisionContinue {
			return DecisionContinue
		}
	}
	return DecisionExit
}

// AutoPrompter decides without a user so headless runs stay
// deterministic. It always picks the fallback decision.
type AutoPrompter struct {
	log *slog.Logger
}

func NewAutoPrompter() *AutoPrompter {
	return &AutoPrompter{log: slog.Default()}
}

func (a *AutoPrompter) Choose(_ context.Context, p Prompt) (Decision, error) {
	d := fallbackDecision(p)
	a.log.Info("Non-interactive decision", "prompt", p.Title, "decision", d.String())
	return d, nil
}

// TerminalPrompter asks on an interactive terminal. Invalid input is
// re-asked; a closed input stream surfaces as an error so the shell
// falls back to its default decision.
type TerminalPrompter struct {
	in  *bufio.Scanner
	out io.Writer
}

func NewTerminalPrompter(in io.Reader, out io.Writer) *TerminalPrompter {
	return &TerminalPrompter{in: bufio.NewScanner(in), out: out}
}

func (t *TerminalPrompter) Choose(ctx context.Context, p Prompt) (Decision, error) {
	fmt.Fprintf(t.out, "\n%s\n%s\n", p.Title, p.Message)
	if p.Detail != "" {
		fmt.Fprintf(t.out, "%s\n", p.Detail)
	}
	for i, o := range p.Options {
		fmt.Fprintf(t.out, "  [%d] %s\n", i+1, o)
	}

	for {
		if err := ctx.Err(); err != nil {
			return DecisionExit, err
		}
		fmt.Fprintf(t.out, "Choose [1-%d]: ", len(p.Options))
		if !t.in.Scan() {
			if err := t.in.Err(); err != nil {
				return DecisionExit, err
			}
			return DecisionExit, io.EOF
		}
		choice, err := strconv.Atoi(strings.TrimSpace(t.in.Text()))
		if err != nil || choice < 1 || choice > len(p.Options) {
			fmt.Fprintln(t.out, "Invalid choice")
			continue
		}
		return p.Options[choice-1], nil
	}
}
