package assistant

import (
	"time"

	"github.com/google/uuid"
)

// Params is the per-invocation parameter bag.
type Params struct {
	APIKey   string
	Thinking bool
	Mode     string // free-form mode label recorded with each answer
}

// Answer is a single text produced for the operator.
type Answer struct {
	Text string    `json:"text"`
	TS   time.Time `json:"ts"`
}

// ContextUpdate records one answer together with the actions that led to it.
type ContextUpdate struct {
	Answer  Answer          `json:"answer"`
	Actions []ActionRequest `json:"actions,omitempty"`
}

// ExecutionContext is the session state of one invocation. It is owned by a single
// orchestration run and is not safe for concurrent use.
type ExecutionContext struct {
	conversationID string
	params         Params
	history        []ContextUpdate
}

// NewExecutionContext starts a session on conversationID, or on a fresh id when empty.
func NewExecutionContext(conversationID string, params Params) *ExecutionContext {
	if conversationID == "" {
		conversationID = uuid.NewString()
	}
	return &ExecutionContext{conversationID: conversationID, params: params}
}

func (c *ExecutionContext) ConversationID() string { return c.conversationID }

// SetConversationID switches the conversation the following model calls use.
func (c *ExecutionContext) SetConversationID(id string) { c.conversationID = id }

func (c *ExecutionContext) Params() Params { return c.params }

// Update appends to the session log.
func (c *ExecutionContext) Update(u ContextUpdate) {
	c.history = append(c.history, u)
}

// History returns a copy of the session log.
func (c *ExecutionContext) History() []ContextUpdate {
	out := make([]ContextUpdate, len(c.history))
	copy(out, c.history)
	return out
}

// Answer returns the latest answer, if any.
func (c *ExecutionContext) Answer() (Answer, bool) {
	if len(c.history) == 0 {
		return Answer{}, false
	}
	return c.history[len(c.history)-1].Answer, true
}
