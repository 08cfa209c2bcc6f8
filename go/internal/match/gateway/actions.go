package gateway

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mcdev12/futsal/go/internal/match/statestore"
	"github.com/mcdev12/futsal/go/internal/models"
)

// ActionRequest is the JSON body of POST /api/matches/{id}/actions. Which
// fields are required depends on Type.
type ActionRequest struct {
	Type     statestore.ActionType `json:"type" validate:"required,oneof=ADD_EVENT TOGGLE_ACTIVE_PLAYER INITIATE_SUBSTITUTION COMPLETE_SUBSTITUTION CANCEL_SUBSTITUTION SET_PERIOD SET_STATUS RESET_STATE START_CLOCK STOP_CLOCK TICK SET_TIME"`
	Event    *EventPayload         `json:"event,omitempty" validate:"required_if=Type ADD_EVENT"`
	TeamSide models.TeamSide       `json:"team_side,omitempty" validate:"required_if=Type TOGGLE_ACTIVE_PLAYER,required_if=Type INITIATE_SUBSTITUTION,omitempty,oneof=A B"`
	// PlayerID is the incoming player for COMPLETE_SUBSTITUTION.
	PlayerID string             `json:"player_id,omitempty" validate:"required_if=Type TOGGLE_ACTIVE_PLAYER,required_if=Type INITIATE_SUBSTITUTION,required_if=Type COMPLETE_SUBSTITUTION"`
	Period   int                `json:"period,omitempty" validate:"required_if=Type SET_PERIOD"`
	Status   models.MatchStatus `json:"status,omitempty" validate:"required_if=Type SET_STATUS,omitempty,oneof=SCHEDULED SELECTING_STARTERS LIVE POSTPONED FINISHED"`
	Seconds  int                `json:"seconds,omitempty" validate:"gte=0"`
}

type EventPayload struct {
	Type     models.EventType `json:"type" validate:"required"`
	TeamID   string           `json:"team_id,omitempty"`
	PlayerID string           `json:"player_id,omitempty"`
	Position *PositionPayload `json:"position,omitempty"`
}

type PositionPayload struct {
	X float64 `json:"x" validate:"gte=0,lte=100"`
	Y float64 `json:"y" validate:"gte=0,lte=100"`
}

var validate = validator.New()

// ValidationError lists the request fields that failed validation.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "invalid action request: " + strings.Join(e.Fields, "; ")
}

// ToAction validates the request and builds the matching action.
func (r ActionRequest) ToAction() (statestore.Action, error) {
	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
			}
			return nil, &ValidationError{Fields: fields}
		}
		return nil, err
	}

	switch r.Type {
	case statestore.ActionAddEvent:
		ev := models.GameEvent{
			Type:     r.Event.Type,
			TeamID:   r.Event.TeamID,
			PlayerID: r.Event.PlayerID,
		}
		if p := r.Event.Position; p != nil {
			ev.Position = &models.Position{X: p.X, Y: p.Y}
		}
		return statestore.AddEvent{Event: ev}, nil
	case statestore.ActionToggleActivePlayer:
		return statestore.ToggleActivePlayer{Side: r.TeamSide, PlayerID: r.PlayerID}, nil
	case statestore.ActionInitiateSubstitution:
		return statestore.InitiateSubstitution{PlayerOut: models.PlayerRef{TeamSide: r.TeamSide, PlayerID: r.PlayerID}}, nil
	case statestore.ActionCompleteSubstitution:
		return statestore.CompleteSubstitution{PlayerInID: r.PlayerID}, nil
	case statestore.ActionCancelSubstitution:
		return statestore.CancelSubstitution{}, nil
	case statestore.ActionSetPeriod:
		return statestore.SetPeriod{Period: r.Period}, nil
	case statestore.ActionSetStatus:
		return statestore.SetStatus{Status: r.Status}, nil
	case statestore.ActionResetState:
		return statestore.ResetState{}, nil
	case statestore.ActionStartClock:
		return statestore.StartClock{}, nil
	case statestore.ActionStopClock:
		return statestore.StopClock{}, nil
	case statestore.ActionTick:
		return statestore.Tick{Seconds: r.Seconds}, nil
	case statestore.ActionSetTime:
		return statestore.SetTime{Seconds: r.Seconds}, nil
	}
	return nil, &ValidationError{Fields: []string{"ActionRequest.Type unsupported"}}
}
