package assistant

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/rosie-cli/rosie/assistant/adapters"
	ports "github.com/ZanzyTHEbar/rosie-cli/rosie/assistant/ports"
)

// StubProvider replays scripted replies in order and records every request.
type StubProvider struct {
	mu      sync.Mutex
	replies []stubReply
	calls   []stubCall
}

type stubReply struct {
	text string
	err  error
}

type stubCall struct {
	messages []ports.PromptMessage
	opts     ports.Options
}

func (p *StubProvider) reply(text string) *StubProvider {
	p.replies = append(p.replies, stubReply{text: text})
	return p
}

func (p *StubProvider) fail(err error) *StubProvider {
	p.replies = append(p.replies, stubReply{err: err})
	return p
}

func (p *StubProvider) Complete(ctx context.Context, messages []ports.PromptMessage, opts ports.Options) (ports.Completion, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls = append(p.calls, stubCall{messages: append([]ports.PromptMessage(nil), messages...), opts: opts})
	if len(p.replies) == 0 {
		return ports.Completion{}, errors.New("no scripted reply")
	}
	next := p.replies[0]
	p.replies = p.replies[1:]
	if next.err != nil {
		return ports.Completion{}, next.err
	}
	return ports.Completion{Text: next.text}, nil
}

func (p *StubProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

func (p *StubProvider) call(i int) stubCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[i]
}

// memConversationStore implements ConversationStore in memory.
type memConversationStore struct {
	convs  map[string]*ports.Conversation
	putErr error
}

func newMemConversationStore() *memConversationStore {
	return &memConversationStore{convs: map[string]*ports.Conversation{}}
}

func (s *memConversationStore) Get(ctx context.Context, id string) (*ports.Conversation, bool, error) {
	c, ok := s.convs[id]
	if !ok {
		return nil, false, nil
	}
	cp := *c
	cp.Messages = append([]ports.Message(nil), c.Messages...)
	return &cp, true, nil
}

func (s *memConversationStore) Put(ctx context.Context, c *ports.Conversation) error {
	if s.putErr != nil {
		return s.putErr
	}
	cp := *c
	cp.Messages = append([]ports.Message(nil), c.Messages...)
	s.convs[c.ID] = &cp
	return nil
}

func (s *memConversationStore) List(ctx context.Context) ([]*ports.Conversation, error) {
	out := make([]*ports.Conversation, 0, len(s.convs))
	for _, c := range s.convs {
		out = append(out, c)
	}
	return out, nil
}

// memMemoryStore implements MemoryStore in memory.
type memMemoryStore struct {
	mem       ports.Memory
	appendErr error
}

func (s *memMemoryStore) Load(ctx context.Context) (ports.Memory, error) {
	return ports.Memory{Items: append([]ports.MemoryItem{}, s.mem.Items...)}, nil
}

func (s *memMemoryStore) Append(ctx context.Context, item ports.MemoryItem) error {
	if s.appendErr != nil {
		return s.appendErr
	}
	s.mem.Items = append(s.mem.Items, item)
	return nil
}

// memSettingsStore implements SettingsStore in memory.
type memSettingsStore struct {
	settings ports.Settings
}

func (s *memSettingsStore) Load(ctx context.Context) (ports.Settings, error) { return s.settings, nil }

func (s *memSettingsStore) Save(ctx context.Context, settings ports.Settings) error {
	s.settings = settings
	return nil
}

// mockSearcher is a testify mock for the Searcher capability.
type mockSearcher struct {
	mock.Mock
}

func (m *mockSearcher) Search(ctx context.Context, query string) ([]ports.SearchResult, error) {
	args := m.Called(ctx, query)
	results, _ := args.Get(0).([]ports.SearchResult)
	return results, args.Error(1)
}

// stubOperator answers confirmations with a fixed decision and counts prompts.
type stubOperator struct {
	approve bool
	prompts []string
}

func (o *stubOperator) Confirm(ctx context.Context, title, message string) (bool, error) {
	o.prompts = append(o.prompts, message)
	return o.approve, nil
}

// stubShell records commands instead of running them.
type stubShell struct {
	out  ports.CommandOutput
	err  error
	cmds []string
}

func (s *stubShell) Run(ctx context.Context, command string) (ports.CommandOutput, error) {
	s.cmds = append(s.cmds, command)
	return s.out, s.err
}

// stubImages returns canned image bytes and analysis text.
type stubImages struct {
	image    []byte
	analysis string
	err      error
	prompts  []string
	refs     int
}

func (s *stubImages) GenerateImage(ctx context.Context, prompt string, references [][]byte) ([]byte, error) {
	s.prompts = append(s.prompts, prompt)
	s.refs = len(references)
	return s.image, s.err
}

func (s *stubImages) AnalyzeImage(ctx context.Context, image []byte, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	return s.analysis + " (" + string(image) + ")", s.err
}

type stubScreen struct {
	shots []ports.Screenshot
	err   error
}

func (s *stubScreen) Capture(ctx context.Context) ([]ports.Screenshot, error) { return s.shots, s.err }

// harness bundles an orchestrator with its in-memory collaborators.
type harness struct {
	provider      *StubProvider
	conversations *memConversationStore
	memory        *memMemoryStore
	settings      *memSettingsStore
	searcher      *mockSearcher
	operator      *stubOperator
	shell         *stubShell
	images        *stubImages
	screen        *stubScreen
	allowed       []string
	imageDir      string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return &harness{
		provider:      &StubProvider{},
		conversations: newMemConversationStore(),
		memory:        &memMemoryStore{mem: ports.Memory{Items: []ports.MemoryItem{}}},
		settings:      &memSettingsStore{},
		searcher:      &mockSearcher{},
		operator:      &stubOperator{},
		shell:         &stubShell{},
		images:        &stubImages{},
		screen:        &stubScreen{},
		imageDir:      t.TempDir(),
	}
}

func (h *harness) orchestrator(t *testing.T) *Orchestrator {
	t.Helper()
	o, err := Build(Deps{
		Provider: h.provider,
		Capabilities: Capabilities{
			Searcher: h.searcher,
			Screen:   h.screen,
			Images:   h.images,
			Operator: h.operator,
			Shell:    h.shell,
			Memory:   h.memory,
			Settings: h.settings,
		},
		Conversations: h.conversations,
		Guardrails:    NewGuardrails(h.allowed),
		Logger:        zerolog.Nop(),
		ImageDir:      h.imageDir,
		JSONMode:      true,
		Instructions:  "instructions",
	})
	require.NoError(t, err)
	return o
}

func (h *harness) conversationManager() *ConversationManager {
	return NewConversationManager(h.conversations, h.memory, "instructions")
}

func (h *harness) gateway(t *testing.T) *Gateway {
	t.Helper()
	parser, err := NewReplyParser()
	require.NoError(t, err)
	return NewGateway(h.provider, h.conversationManager(), parser, adapters.NoopTracer{}, zerolog.Nop(), true)
}
