package assistant

import (
	"encoding/json"
	"fmt"
)

// ActionType is the tag of an action the model may request.
type ActionType string

const (
	ActionNewConversation ActionType = "new_conversation"
	ActionSearchPC        ActionType = "search_pc"
	ActionAddMemory       ActionType = "add_memory"
	ActionRunCmd          ActionType = "run_cmd"
	ActionSetConversation ActionType = "set_conversation"
	ActionGenImage        ActionType = "gen_image"
	ActionAnalyzeScreen   ActionType = "analyze_screen"
)

// ActionTypes lists every known tag in catalogue order.
var ActionTypes = []ActionType{
	ActionNewConversation,
	ActionSetConversation,
	ActionSearchPC,
	ActionAddMemory,
	ActionRunCmd,
	ActionGenImage,
	ActionAnalyzeScreen,
}

// Action is a closed set: one payload struct per tag.
type Action interface {
	Type() ActionType
	isAction()
}

type NewConversation struct {
	Name string `json:"name,omitempty"`
}

type SetConversation struct {
	ID string `json:"id"`
}

type SearchPC struct {
	Query string `json:"query"`
}

type AddMemory struct {
	Text string `json:"text"`
}

type RunCmd struct {
	Cmd string `json:"cmd"`
}

// GenImage generates an image, optionally from reference images on disk.
type GenImage struct {
	Prompt string   `json:"prompt"`
	Images []string `json:"images,omitempty"`
	Output string   `json:"output,omitempty"`
}

type AnalyzeScreen struct {
	Prompt string `json:"prompt,omitempty"`
}

func (NewConversation) Type() ActionType { return ActionNewConversation }
func (SetConversation) Type() ActionType { return ActionSetConversation }
func (SearchPC) Type() ActionType        { return ActionSearchPC }
func (AddMemory) Type() ActionType       { return ActionAddMemory }
func (RunCmd) Type() ActionType          { return ActionRunCmd }
func (GenImage) Type() ActionType        { return ActionGenImage }
func (AnalyzeScreen) Type() ActionType   { return ActionAnalyzeScreen }

func (NewConversation) isAction() {}
func (SetConversation) isAction() {}
func (SearchPC) isAction()        {}
func (AddMemory) isAction()       {}
func (RunCmd) isAction()          {}
func (GenImage) isAction()        {}
func (AnalyzeScreen) isAction()   {}

// ShortCircuits reports whether the action ends the turn without a summary call.
func ShortCircuits(a Action) bool {
	switch a.(type) {
	case NewConversation, SetConversation:
		return true
	default:
		return false
	}
}

// ActionRequest is one requested action and, once executed, its result.
type ActionRequest struct {
	Action Action
	Result any
}

type wireActionRequest struct {
	Type   ActionType      `json:"type"`
	Params json.RawMessage `json:"params"`
	Result any             `json:"result,omitempty"`
}

func (r ActionRequest) MarshalJSON() ([]byte, error) {
	if r.Action == nil {
		return nil, fmt.Errorf("action request has no action")
	}
	params, err := json.Marshal(r.Action)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireActionRequest{Type: r.Action.Type(), Params: params, Result: r.Result})
}

func (r *ActionRequest) UnmarshalJSON(data []byte) error {
	var wire wireActionRequest
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	action, err := DecodeAction(wire.Type, wire.Params)
	if err != nil {
		return err
	}
	r.Action = action
	r.Result = wire.Result
	return nil
}

// DecodeAction builds the typed payload for tag from its JSON params.
func DecodeAction(tag ActionType, params json.RawMessage) (Action, error) {
	if len(params) == 0 || string(params) == "null" {
		params = json.RawMessage("{}")
	}

	var (
		action Action
		err    error
	)
	switch tag {
	case ActionNewConversation:
		action, err = decodeParams[NewConversation](params)
	case ActionSetConversation:
		action, err = decodeParams[SetConversation](params)
	case ActionSearchPC:
		action, err = decodeParams[SearchPC](params)
	case ActionAddMemory:
		action, err = decodeParams[AddMemory](params)
	case ActionRunCmd:
		action, err = decodeParams[RunCmd](params)
	case ActionGenImage:
		action, err = decodeParams[GenImage](params)
	case ActionAnalyzeScreen:
		action, err = decodeParams[AnalyzeScreen](params)
	default:
		return nil, fmt.Errorf("unknown action type %q", tag)
	}
	if err != nil {
		return nil, fmt.Errorf("invalid params for %s: %w", tag, err)
	}
	return action, nil
}

func decodeParams[T Action](params json.RawMessage) (Action, error) {
	var v T
	if err := json.Unmarshal(params, &v); err != nil {
		return nil, err
	}
	return v, nil
}
