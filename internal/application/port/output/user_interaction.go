package output

import "context"

type UserInteractionPort interface {
	// AskQuestion prints the prompt and blocks for one line of operator input.
	AskQuestion(ctx context.Context, prompt string) (string, error)

	ShowGreeting(ctx context.Context, text string)
	ShowReply(ctx context.Context, text string)
	ShowNavigation(ctx context.Context, url string)
	ShowClick(ctx context.Context, label string)
	ShowError(ctx context.Context, message string)
}
