package assistant

import (
	"context"
	"strings"
	"time"

	ports "github.com/ZanzyTHEbar/rosie-cli/rosie/assistant/ports"
	"github.com/rs/zerolog"
)

// FailedResponseText is the answer when the model returns no content.
const FailedResponseText = "Failed to generate a response."

// RespondOptions tunes one exchange with the model.
type RespondOptions struct {
	Thinking          bool
	Role              ports.Role // defaults to user
	DontUpdateHistory bool       // side-channel calls leave the transcript untouched
}

// Response is the outcome of one exchange.
type Response struct {
	Answer  string
	Actions []ActionRequest
	Failed  bool // transport or API failure; nothing was persisted
	Usage   *ports.Usage
}

// Gateway wraps a single request/response exchange with the model.
type Gateway struct {
	provider      ports.Provider
	conversations *ConversationManager
	parser        *ReplyParser
	tracer        ports.Tracer
	logger        zerolog.Logger
	jsonMode      bool
	now           func() time.Time
}

// NewGateway creates a gateway. jsonMode requests a JSON object reply for structured calls.
func NewGateway(provider ports.Provider, conversations *ConversationManager, parser *ReplyParser, tracer ports.Tracer, logger zerolog.Logger, jsonMode bool) *Gateway {
	return &Gateway{
		provider:      provider,
		conversations: conversations,
		parser:        parser,
		tracer:        tracer,
		logger:        logger,
		jsonMode:      jsonMode,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Respond sends input on the active conversation and decodes the reply. Model failures
// are reported in the Response; the error return is reserved for store failures.
func (g *Gateway) Respond(ctx context.Context, ec *ExecutionContext, input string, opts RespondOptions) (*Response, error) {
	role := opts.Role
	if role == "" {
		role = ports.RoleUser
	}

	ctx, finish := g.tracer.StartSpan(ctx, "provider_call", map[string]any{
		"conversation_id": ec.ConversationID(),
		"role":            string(role),
		"thinking":        opts.Thinking,
		"side_channel":    opts.DontUpdateHistory,
	})

	resp, err := g.respond(ctx, ec, input, role, opts)
	finish(err)
	return resp, err
}

func (g *Gateway) respond(ctx context.Context, ec *ExecutionContext, input string, role ports.Role, opts RespondOptions) (*Response, error) {
	conv, err := g.conversations.GetOrCreate(ctx, ec.ConversationID())
	if err != nil {
		return nil, err
	}

	messages := make([]ports.Message, len(conv.Messages), len(conv.Messages)+3)
	copy(messages, conv.Messages)
	messages = append(messages, ports.Message{Role: role, Content: input, Timestamp: g.now()})

	if opts.Thinking {
		if reasoning, ok := g.think(ctx, messages); ok {
			messages = append(messages, ports.Message{Role: ports.RoleSystem, Content: reasoning, Timestamp: g.now()})
		}
	}

	completion, err := g.provider.Complete(ctx, BuildPrompt(messages), ports.Options{JSONMode: g.jsonMode})
	if err != nil {
		g.logger.Error().Err(err).Str("conversation_id", ec.ConversationID()).Msg("model call failed")
		return &Response{Answer: "Error: " + err.Error(), Failed: true}, nil
	}

	if strings.TrimSpace(completion.Text) == "" {
		return &Response{Answer: FailedResponseText, Usage: completion.Usage}, nil
	}

	reply := g.parser.Parse(completion.Text)
	if _, raw := reply.(RawReply); raw {
		g.tracer.Event(ctx, "raw_reply", map[string]any{"length": len(completion.Text)})
	}

	canonical, err := CanonicalReply(reply)
	if err != nil {
		return nil, err
	}
	messages = append(messages, ports.Message{Role: ports.RoleAssistant, Content: canonical, Timestamp: g.now()})

	if !opts.DontUpdateHistory {
		if err := g.conversations.Append(ctx, ec.ConversationID(), messages); err != nil {
			return nil, err
		}
	}

	return &Response{Answer: reply.Answer(), Actions: reply.Actions(), Usage: completion.Usage}, nil
}

// think runs the free-form reasoning preamble. Failures are logged and skipped.
func (g *Gateway) think(ctx context.Context, messages []ports.Message) (string, bool) {
	prompt := BuildPrompt(messages)
	prompt = append(prompt, ports.PromptMessage{Role: ports.RoleSystem, Content: thinkingInstruction})

	completion, err := g.provider.Complete(ctx, prompt, ports.Options{JSONMode: false})
	if err != nil {
		g.logger.Warn().Err(err).Msg("thinking call failed, continuing without it")
		return "", false
	}
	if strings.TrimSpace(completion.Text) == "" {
		return "", false
	}
	return completion.Text, true
}
