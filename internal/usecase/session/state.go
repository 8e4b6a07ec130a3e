package session

import (
	"fmt"

	"vision-crawler/internal/domain/entity"
)

type Phase int

const (
	AwaitingUserInput Phase = iota
	Navigating
	AnnotatingAndCapturing
	ExchangingWithModel
	DispatchingClick
	DispatchingNavigate
)

func (p Phase) String() string {
	switch p {
	case AwaitingUserInput:
		return "awaiting_user_input"
	case Navigating:
		return "navigating"
	case AnnotatingAndCapturing:
		return "annotating_and_capturing"
	case ExchangingWithModel:
		return "exchanging_with_model"
	case DispatchingClick:
		return "dispatching_click"
	case DispatchingNavigate:
		return "dispatching_navigate"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// State is threaded through every transition of the loop.
type State struct {
	Phase Phase

	// CurrentURL is the pending navigation target; empty means none.
	CurrentURL string

	// ScreenshotPending is set while Outbound holds a capture the model has not seen.
	ScreenshotPending bool
	Outbound          *entity.Message

	Action entity.PendingAction

	ConsecutiveFailures int
}

// check enforces that a navigation and an unsent screenshot are never pending together.
func (s *State) check() error {
	if s.CurrentURL != "" && s.ScreenshotPending {
		return fmt.Errorf("session state corrupted: navigation to %q pending while a screenshot is unsent", s.CurrentURL)
	}
	if s.ScreenshotPending && s.Outbound == nil {
		return fmt.Errorf("session state corrupted: screenshot pending without outbound entry")
	}
	return nil
}
