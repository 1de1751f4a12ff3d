package conversation

import (
	"strings"

	"github.com/issuetracker/tracker-bot-go/internal/model"
)

// Action is the kind of request a user starts from the menu or a slash command.
type Action string

const (
	ActionProblem      Action = "problem"
	ActionSolution     Action = "solution"
	ActionStatus       Action = "status"
	ActionOpenProblems Action = "open_problems"
)

// Actions lists the actions in menu order.
var Actions = []Action{ActionProblem, ActionSolution, ActionStatus, ActionOpenProblems}

var actionLabels = map[Action]string{
	ActionProblem:      "Проблема",
	ActionSolution:     "Рішення",
	ActionStatus:       "Статус",
	ActionOpenProblems: "Відкриті проблеми",
}

func ParseAction(s string) (Action, bool) {
	a := Action(strings.ToLower(strings.TrimSpace(s)))
	_, ok := actionLabels[a]
	return a, ok
}

func (a Action) Label() string {
	if label, ok := actionLabels[a]; ok {
		return label
	}
	return string(a)
}

// ReportKind maps actions that produce a record to the record kind.
func (a Action) ReportKind() (model.ReportKind, bool) {
	switch a {
	case ActionProblem:
		return model.ReportKindProblem, true
	case ActionSolution:
		return model.ReportKindSolution, true
	default:
		return "", false
	}
}

// SelectsDevice reports whether the action continues with a device menu.
func (a Action) SelectsDevice() bool {
	return a == ActionProblem || a == ActionSolution || a == ActionStatus
}
