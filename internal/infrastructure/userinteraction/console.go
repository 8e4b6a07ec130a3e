package userinteraction

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"vision-crawler/internal/application/port/output"

	"github.com/fatih/color"
)

var _ output.UserInteractionPort = (*ConsoleUserInteraction)(nil)

type ConsoleUserInteraction struct {
	reader *bufio.Reader
	out    io.Writer

	assistant *color.Color
	notice    *color.Color
	errColor  *color.Color
	prompt    *color.Color
}

func NewConsoleUserInteraction() *ConsoleUserInteraction {
	return NewConsoleUserInteractionWithIO(os.Stdin, color.Output)
}

func NewConsoleUserInteractionWithIO(in io.Reader, out io.Writer) *ConsoleUserInteraction {
	return &ConsoleUserInteraction{
		reader:    bufio.NewReader(in),
		out:       out,
		assistant: color.New(color.FgGreen),
		notice:    color.New(color.FgCyan),
		errColor:  color.New(color.FgRed),
		prompt:    color.New(color.FgYellow, color.Bold),
	}
}

type readResult struct {
	line string
	err  error
}

// AskQuestion prints prompt and reads one line. A final line without a
// newline is still returned; io.EOF only comes back once input is exhausted.
// If ctx ends first the pending read is abandoned.
func (u *ConsoleUserInteraction) AskQuestion(ctx context.Context, prompt string) (string, error) {
	u.prompt.Fprint(u.out, prompt)

	ch := make(chan readResult, 1)
	go func() {
		line, err := u.reader.ReadString('\n')
		ch <- readResult{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(u.out)
		return "", ctx.Err()
	case res := <-ch:
		fmt.Fprintln(u.out)
		if res.err != nil {
			if res.err == io.EOF && res.line != "" {
				return strings.TrimRight(res.line, "\r\n"), nil
			}
			return "", fmt.Errorf("failed to read user input: %w", res.err)
		}
		return strings.TrimRight(res.line, "\r\n"), nil
	}
}

func (u *ConsoleUserInteraction) ShowGreeting(ctx context.Context, text string) {
	u.assistant.Fprintf(u.out, "GPT: %s\n", text)
}

func (u *ConsoleUserInteraction) ShowReply(ctx context.Context, text string) {
	u.assistant.Fprintf(u.out, "GPT: %s\n", text)
}

func (u *ConsoleUserInteraction) ShowNavigation(ctx context.Context, url string) {
	u.notice.Fprintf(u.out, "Navigating to %s\n", url)
}

func (u *ConsoleUserInteraction) ShowClick(ctx context.Context, label string) {
	u.notice.Fprintf(u.out, "Clicking on %s\n", label)
}

func (u *ConsoleUserInteraction) ShowError(ctx context.Context, message string) {
	u.errColor.Fprintf(u.out, "ERROR: %s\n", truncate(message, 500))
}

// truncate keeps at most maxLen runes of s.
func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen]) + "..."
}
