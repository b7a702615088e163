package models

import "testing"

func TestDecide(t *testing.T) {
	tc := []struct {
		name   string
		target Lookup
		source string
		want   Action
	}{
		{name: "missing target", target: Missing, source: "X", want: ActionCreate},
		{name: "missing source and target", target: Missing, source: "", want: ActionCreate},
		{name: "identical", target: Found("X"), source: "X", want: ActionSkip},
		{name: "different", target: Found("X"), source: "Y", want: ActionUpdate},
		{name: "line endings only", target: Found("a\r\nb\r\n"), source: "a\nb", want: ActionSkip},
		{name: "trailing whitespace only", target: Found("X\n\n"), source: "  X", want: ActionSkip},
		{name: "case differs", target: Found("hello"), source: "Hello", want: ActionUpdate},
		{name: "internal whitespace differs", target: Found("a b"), source: "a  b", want: ActionUpdate},
		{name: "existing empty page", target: Found(""), source: "", want: ActionSkip},
		{name: "existing empty page with source", target: Found(""), source: "text", want: ActionUpdate},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := Decide(tt.target, tt.source); got != tt.want {
				t.Errorf("Decide() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestActionOutcome(t *testing.T) {
	tc := map[Action]Outcome{
		ActionCreate: OutcomeCreated,
		ActionUpdate: OutcomeUpdated,
		ActionSkip:   OutcomeUnchanged,
	}
	for action, want := range tc {
		if got := action.Outcome(); got != want {
			t.Errorf("%v.Outcome() = %v, want %v", action, got, want)
		}
	}

	if Action(42).String() != "unknown" {
		t.Errorf("unexpected string for unknown action")
	}
}

func TestParseOutcome(t *testing.T) {
	for _, o := range Outcomes {
		got, err := ParseOutcome(o.String())
		if err != nil || got != o {
			t.Errorf("ParseOutcome(%q) = %v, %v", o, got, err)
		}
	}

	if got, err := ParseOutcome(" Created "); err != nil || got != OutcomeCreated {
		t.Errorf("expected case-insensitive parse, got %v, %v", got, err)
	}
	if _, err := ParseOutcome("merged"); err == nil {
		t.Error("expected error for unknown outcome")
	}
}
