package assistant

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestParser(t *testing.T) *ReplyParser {
	t.Helper()
	p, err := NewReplyParser()
	require.NoError(t, err)
	return p
}

func TestReplyParser_Structured(t *testing.T) {
	p := newTestParser(t)

	reply := p.Parse(`{
		"answer": "Searching now.",
		"actionRequests": [
			{"type": "search_pc", "params": {"query": "*.pdf"}},
			{"type": "gen_image", "params": {"prompt": "a cat", "images": ["a.png"]}},
			{"type": "new_conversation"}
		]
	}`)

	structured, ok := reply.(StructuredReply)
	require.True(t, ok, "expected a structured reply, got %T", reply)
	assert.Equal(t, "Searching now.", structured.Answer())
	require.Len(t, structured.Actions(), 3)
	assert.Equal(t, SearchPC{Query: "*.pdf"}, structured.Actions()[0].Action)
	assert.Equal(t, GenImage{Prompt: "a cat", Images: []string{"a.png"}}, structured.Actions()[1].Action)
	assert.Equal(t, NewConversation{}, structured.Actions()[2].Action)
	assert.Nil(t, structured.Actions()[0].Result)
}

func TestReplyParser_NoActions(t *testing.T) {
	p := newTestParser(t)

	reply := p.Parse(`{"answer": "Hello!"}`)

	assert.IsType(t, StructuredReply{}, reply)
	assert.Equal(t, "Hello!", reply.Answer())
	assert.Empty(t, reply.Actions())
}

func TestReplyParser_FallsBackToRaw(t *testing.T) {
	p := newTestParser(t)

	cases := map[string]string{
		"plain text":        "Sure, here you go",
		"missing answer":    `{"actionRequests": []}`,
		"answer not string": `{"answer": 42}`,
		"unknown action":    `{"answer": "ok", "actionRequests": [{"type": "format_disk", "params": {}}]}`,
		"missing params":    `{"answer": "ok", "actionRequests": [{"type": "run_cmd"}]}`,
		"wrong param type":  `{"answer": "ok", "actionRequests": [{"type": "search_pc", "params": {"query": 1}}]}`,
		"truncated json":    `{"answer": "ok", "actionRequests": [`,
		"json array":        `[{"answer": "ok"}]`,
	}

	for name, text := range cases {
		t.Run(name, func(t *testing.T) {
			reply := p.Parse(text)
			assert.Equal(t, RawReply{Text: text}, reply)
			assert.Equal(t, text, reply.Answer())
			assert.Empty(t, reply.Actions())
		})
	}
}

func TestReplyParser_IgnoresModelSuppliedResult(t *testing.T) {
	p := newTestParser(t)

	reply := p.Parse(`{"answer": "ok", "actionRequests": [{"type": "add_memory", "params": {"text": "x"}, "result": "done"}]}`)

	require.Len(t, reply.Actions(), 1)
	assert.Nil(t, reply.Actions()[0].Result)
}

func TestCanonicalReply(t *testing.T) {
	raw, err := CanonicalReply(RawReply{Text: "just text"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"answer": "just text", "actionRequests": []}`, raw)

	structured, err := CanonicalReply(StructuredReply{
		Text:     "on it",
		Requests: []ActionRequest{{Action: RunCmd{Cmd: "ls"}}},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"answer": "on it", "actionRequests": [{"type": "run_cmd", "params": {"cmd": "ls"}}]}`, structured)
}

func TestActionRequest_JSON(t *testing.T) {
	req := ActionRequest{Action: AddMemory{Text: "likes tea"}, Result: true}

	data, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type": "add_memory", "params": {"text": "likes tea"}, "result": true}`, string(data))

	var decoded ActionRequest
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, AddMemory{Text: "likes tea"}, decoded.Action)
	assert.Equal(t, true, decoded.Result)
}

func TestDecodeAction_Unknown(t *testing.T) {
	_, err := DecodeAction("teleport", json.RawMessage(`{}`))
	assert.ErrorContains(t, err, "unknown action type")
}

func TestShortCircuits(t *testing.T) {
	assert.True(t, ShortCircuits(NewConversation{}))
	assert.True(t, ShortCircuits(SetConversation{ID: "x"}))
	assert.False(t, ShortCircuits(SearchPC{}))
	assert.False(t, ShortCircuits(RunCmd{}))
}

func TestGuardrails_Allowed(t *testing.T) {
	all := NewGuardrails(nil)
	assert.True(t, all.Allowed(ActionRunCmd))

	limited := NewGuardrails([]string{"search_pc", " add_memory "})
	assert.True(t, limited.Allowed(ActionSearchPC))
	assert.True(t, limited.Allowed(ActionAddMemory))
	assert.False(t, limited.Allowed(ActionRunCmd))

	var none *Guardrails
	assert.True(t, none.Allowed(ActionGenImage))
}
