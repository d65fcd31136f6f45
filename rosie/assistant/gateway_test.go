package assistant

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ports "github.com/ZanzyTHEbar/rosie-cli/rosie/assistant/ports"
)

func TestGateway_RespondPersistsTranscript(t *testing.T) {
	h := newHarness(t)
	h.provider.reply(`{"answer": "Hi there", "actionRequests": []}`)
	g := h.gateway(t)
	ec := NewExecutionContext("conv-1", Params{})

	resp, err := g.Respond(context.Background(), ec, "hello", RespondOptions{})
	require.NoError(t, err)

	assert.Equal(t, "Hi there", resp.Answer)
	assert.Empty(t, resp.Actions)
	assert.False(t, resp.Failed)

	require.Equal(t, 1, h.provider.callCount())
	call := h.provider.call(0)
	assert.True(t, call.opts.JSONMode)
	require.Len(t, call.messages, 3)
	assert.Equal(t, ports.PromptMessage{Role: ports.RoleUser, Content: "hello"}, call.messages[2])

	stored := h.conversations.convs["conv-1"]
	require.Len(t, stored.Messages, 4)
	assert.Equal(t, ports.RoleAssistant, stored.Messages[3].Role)
	assert.JSONEq(t, `{"answer": "Hi there", "actionRequests": []}`, stored.Messages[3].Content)
}

func TestGateway_RawReplyIsAnswerVerbatim(t *testing.T) {
	h := newHarness(t)
	h.provider.reply("not json at all")
	ec := NewExecutionContext("conv-1", Params{})

	resp, err := h.gateway(t).Respond(context.Background(), ec, "hello", RespondOptions{})
	require.NoError(t, err)

	assert.Equal(t, "not json at all", resp.Answer)
	assert.Empty(t, resp.Actions)

	stored := h.conversations.convs["conv-1"]
	assert.JSONEq(t, `{"answer": "not json at all", "actionRequests": []}`, stored.Messages[len(stored.Messages)-1].Content)
}

func TestGateway_TransportFailureLeavesHistory(t *testing.T) {
	h := newHarness(t)
	h.provider.fail(errors.New("connection refused"))
	ec := NewExecutionContext("conv-1", Params{})

	resp, err := h.gateway(t).Respond(context.Background(), ec, "hello", RespondOptions{})
	require.NoError(t, err)

	assert.Equal(t, "Error: connection refused", resp.Answer)
	assert.True(t, resp.Failed)
	assert.Empty(t, resp.Actions)
	// Only the seed messages exist
	assert.Len(t, h.conversations.convs["conv-1"].Messages, 2)
}

func TestGateway_EmptyContent(t *testing.T) {
	h := newHarness(t)
	h.provider.reply("   ")
	ec := NewExecutionContext("conv-1", Params{})

	resp, err := h.gateway(t).Respond(context.Background(), ec, "hello", RespondOptions{})
	require.NoError(t, err)

	assert.Equal(t, FailedResponseText, resp.Answer)
	assert.Empty(t, resp.Actions)
	assert.Len(t, h.conversations.convs["conv-1"].Messages, 2)
}

func TestGateway_DontUpdateHistory(t *testing.T) {
	h := newHarness(t)
	h.provider.reply(`{"answer": "analysis"}`)
	ec := NewExecutionContext("conv-1", Params{})

	resp, err := h.gateway(t).Respond(context.Background(), ec, "results...", RespondOptions{Role: ports.RoleSystem, DontUpdateHistory: true})
	require.NoError(t, err)

	assert.Equal(t, "analysis", resp.Answer)
	assert.Equal(t, ports.RoleSystem, h.provider.call(0).messages[2].Role)
	assert.Len(t, h.conversations.convs["conv-1"].Messages, 2)
}

func TestGateway_Thinking(t *testing.T) {
	h := newHarness(t)
	h.provider.
		reply("First I will greet the user.").
		reply(`{"answer": "Hello!"}`)
	ec := NewExecutionContext("conv-1", Params{})

	resp, err := h.gateway(t).Respond(context.Background(), ec, "hi", RespondOptions{Thinking: true})
	require.NoError(t, err)
	assert.Equal(t, "Hello!", resp.Answer)

	require.Equal(t, 2, h.provider.callCount())

	thinking := h.provider.call(0)
	assert.False(t, thinking.opts.JSONMode)
	last := thinking.messages[len(thinking.messages)-1]
	assert.Equal(t, ports.RoleSystem, last.Role)
	assert.Equal(t, thinkingInstruction, last.Content)

	main := h.provider.call(1)
	assert.True(t, main.opts.JSONMode)
	injected := main.messages[len(main.messages)-1]
	assert.Equal(t, ports.PromptMessage{Role: ports.RoleSystem, Content: "First I will greet the user."}, injected)
}

func TestGateway_ThinkingFailureIsSkipped(t *testing.T) {
	h := newHarness(t)
	h.provider.
		fail(errors.New("rate limited")).
		reply(`{"answer": "Hello!"}`)
	ec := NewExecutionContext("conv-1", Params{})

	resp, err := h.gateway(t).Respond(context.Background(), ec, "hi", RespondOptions{Thinking: true})
	require.NoError(t, err)

	assert.Equal(t, "Hello!", resp.Answer)
	assert.False(t, resp.Failed)
	main := h.provider.call(1)
	assert.Equal(t, ports.PromptMessage{Role: ports.RoleUser, Content: "hi"}, main.messages[len(main.messages)-1])
}

func TestGateway_StoreFailureIsAnError(t *testing.T) {
	h := newHarness(t)
	_, err := h.conversationManager().GetOrCreate(context.Background(), "conv-1")
	require.NoError(t, err)
	h.conversations.putErr = errors.New("read-only file system")
	h.provider.reply(`{"answer": "Hello!"}`)

	_, err = h.gateway(t).Respond(context.Background(), NewExecutionContext("conv-1", Params{}), "hi", RespondOptions{})
	assert.ErrorContains(t, err, "read-only file system")
}
