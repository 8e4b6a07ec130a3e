package input

import "context"

// SessionRunner runs the interactive crawl session until ctx is cancelled
// or the operator closes stdin.
type SessionRunner interface {
	Run(ctx context.Context) error
}
