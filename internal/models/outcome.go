package models

import (
	"fmt"
	"strings"
)

// Action is what the synchronizer intends to do with one page on one target.
type Action int

const (
	ActionCreate Action = iota
	ActionUpdate
	ActionSkip
)

func (a Action) String() string {
	switch a {
	case ActionCreate:
		return "create"
	case ActionUpdate:
		return "update"
	case ActionSkip:
		return "skip"
	default:
		return "unknown"
	}
}

// Outcome is the reported result of syncing one page to one target.
type Outcome string

const (
	OutcomeCreated   Outcome = "created"
	OutcomeUpdated   Outcome = "updated"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeFailed    Outcome = "failed"
)

// Outcomes lists every outcome in report order.
var Outcomes = []Outcome{OutcomeCreated, OutcomeUpdated, OutcomeUnchanged, OutcomeFailed}

func (o Outcome) String() string {
	return string(o)
}

// ParseOutcome parses a stored outcome name.
func ParseOutcome(s string) (Outcome, error) {
	for _, o := range Outcomes {
		if string(o) == strings.ToLower(strings.TrimSpace(s)) {
			return o, nil
		}
	}
	return "", fmt.Errorf("unknown outcome %q", s)
}

// Outcome maps a successful action to the outcome it reports.
func (a Action) Outcome() Outcome {
	switch a {
	case ActionCreate:
		return OutcomeCreated
	case ActionUpdate:
		return OutcomeUpdated
	default:
		return OutcomeUnchanged
	}
}

// Decide applies the sync decision table.
//
//	target missing                                  -> create
//	Normalize(target) == Normalize(source)          -> skip
//	otherwise                                       -> update (whole-content overwrite)
func Decide(target Lookup, source string) Action {
	if !target.Exists {
		return ActionCreate
	}
	if Normalize(target.Content) == Normalize(source) {
		return ActionSkip
	}
	return ActionUpdate
}
