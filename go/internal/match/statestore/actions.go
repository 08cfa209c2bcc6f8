package statestore

import "github.com/mcdev12/futsal/go/internal/models"

// ActionType is the wire name of an action.
type ActionType string

const (
	ActionAddEvent             ActionType = "ADD_EVENT"
	ActionToggleActivePlayer   ActionType = "TOGGLE_ACTIVE_PLAYER"
	ActionInitiateSubstitution ActionType = "INITIATE_SUBSTITUTION"
	ActionCompleteSubstitution ActionType = "COMPLETE_SUBSTITUTION"
	ActionCancelSubstitution   ActionType = "CANCEL_SUBSTITUTION"
	ActionSetPeriod            ActionType = "SET_PERIOD"
	ActionSetStatus            ActionType = "SET_STATUS"
	ActionResetState           ActionType = "RESET_STATE"
	ActionStartClock           ActionType = "START_CLOCK"
	ActionStopClock            ActionType = "STOP_CLOCK"
	ActionTick                 ActionType = "TICK"
	ActionSetTime              ActionType = "SET_TIME"
)

// Action is a state transition request. The set of actions is closed: the
// unexported apply method means every variant has to carry its own handler,
// so adding a variant without one does not compile.
type Action interface {
	Type() ActionType
	apply(s *models.MatchState, r Rules) bool
}

// AddEvent appends a fully stamped event to the log.
type AddEvent struct {
	Event models.GameEvent
}

// ToggleActivePlayer adds or removes a squad member from the starting five.
type ToggleActivePlayer struct {
	Side     models.TeamSide
	PlayerID string
}

// InitiateSubstitution marks an on-court player as leaving.
type InitiateSubstitution struct {
	PlayerOut models.PlayerRef
}

// CompleteSubstitution swaps the pending outgoing player for PlayerInID.
// EventID names the SUBSTITUTION event that records the swap.
type CompleteSubstitution struct {
	PlayerInID string
	EventID    string
}

type CancelSubstitution struct{}

// SetPeriod moves to period 1 or 2 and rewinds the clock.
type SetPeriod struct {
	Period int
}

type SetStatus struct {
	Status models.MatchStatus
}

// ResetState wipes all live data but keeps the match identity and squads.
type ResetState struct{}

type StartClock struct{}

type StopClock struct{}

// Tick counts the running clock down by Seconds.
type Tick struct {
	Seconds int
}

// SetTime corrects the remaining seconds while the clock is stopped.
type SetTime struct {
	Seconds int
}

func (AddEvent) Type() ActionType             { return ActionAddEvent }
func (ToggleActivePlayer) Type() ActionType   { return ActionToggleActivePlayer }
func (InitiateSubstitution) Type() ActionType { return ActionInitiateSubstitution }
func (CompleteSubstitution) Type() ActionType { return ActionCompleteSubstitution }
func (CancelSubstitution) Type() ActionType   { return ActionCancelSubstitution }
func (SetPeriod) Type() ActionType            { return ActionSetPeriod }
func (SetStatus) Type() ActionType            { return ActionSetStatus }
func (ResetState) Type() ActionType           { return ActionResetState }
func (StartClock) Type() ActionType           { return ActionStartClock }
func (StopClock) Type() ActionType            { return ActionStopClock }
func (Tick) Type() ActionType                 { return ActionTick }
func (SetTime) Type() ActionType              { return ActionSetTime }

var (
	_ Action = AddEvent{}
	_ Action = ToggleActivePlayer{}
	_ Action = InitiateSubstitution{}
	_ Action = CompleteSubstitution{}
	_ Action = CancelSubstitution{}
	_ Action = SetPeriod{}
	_ Action = SetStatus{}
	_ Action = ResetState{}
	_ Action = StartClock{}
	_ Action = StopClock{}
	_ Action = Tick{}
	_ Action = SetTime{}
)
