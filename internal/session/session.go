// Package session keeps the per-user "what text do we expect next" state
// that drives multi-step chat input.
package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
)

type Step string

const (
	StepNone                    Step = ""
	StepAwaitingNumbers         Step = "awaiting_numbers"
	StepAwaitingCode            Step = "awaiting_code"
	StepAwaitingCheckLink       Step = "awaiting_check_link"
	StepAwaitingModeratorAdd    Step = "awaiting_moderator_add"
	StepAwaitingModeratorRemove Step = "awaiting_moderator_remove"
	StepAwaitingBroadcast       Step = "awaiting_broadcast"
	StepAwaitingPrice           Step = "awaiting_price"
	StepAwaitingHoldTime        Step = "awaiting_hold_time"
)

// State is the expected input plus its argument (a number, a withdrawal id).
type State struct {
	Step    Step   `json:"step"`
	Payload string `json:"payload,omitempty"`
}

var ErrTransition = errors.New("недопустимый переход состояния")

type Store interface {
	Get(ctx context.Context, userID int64) (State, error)
	Set(ctx context.Context, userID int64, state State) error
	Clear(ctx context.Context, userID int64) error
}

var adminSteps = []Step{
	StepAwaitingCheckLink,
	StepAwaitingModeratorAdd,
	StepAwaitingModeratorRemove,
	StepAwaitingBroadcast,
	StepAwaitingPrice,
	StepAwaitingHoldTime,
}

// transitions lists moves between two non-empty steps. Admin prompts replace
// each other freely; a pending code entry is never replaced by another prompt.
var transitions = map[Step][]Step{
	StepAwaitingNumbers: {},
	StepAwaitingCode:    {},
}

func init() {
	for _, step := range adminSteps {
		transitions[step] = adminSteps
	}
}

// CanTransition reports whether a user in step from may move to step to.
// Leaving to StepNone, staying in place and being asked for a code are always allowed.
func CanTransition(from, to Step) bool {
	if from == StepNone || to == StepNone || from == to || to == StepAwaitingCode {
		return true
	}
	return slices.Contains(transitions[from], to)
}

func checkTransition(from, to Step) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %q -> %q", ErrTransition, from, to)
	}
	return nil
}
