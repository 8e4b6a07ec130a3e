package entity

import "fmt"

type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionNavigate
	ActionClick
)

func (k ActionKind) String() string {
	switch k {
	case ActionNavigate:
		return "navigate"
	case ActionClick:
		return "click"
	default:
		return "none"
	}
}

// PendingAction is the directive extracted from the latest assistant reply.
type PendingAction struct {
	Kind  ActionKind
	URL   string
	Label string
}

func NoAction() PendingAction {
	return PendingAction{Kind: ActionNone}
}

func NavigateTo(url string) PendingAction {
	return PendingAction{Kind: ActionNavigate, URL: url}
}

func ClickOn(label string) PendingAction {
	return PendingAction{Kind: ActionClick, Label: label}
}

func (a PendingAction) String() string {
	switch a.Kind {
	case ActionNavigate:
		return fmt.Sprintf("Navigate(%q)", a.URL)
	case ActionClick:
		return fmt.Sprintf("Click(%q)", a.Label)
	default:
		return "None"
	}
}
