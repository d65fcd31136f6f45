package assistant

import (
	"context"
	"database/sql"
	"fmt"

	assert "github.com/ZanzyTHEbar/assert-lib"
	"github.com/ZanzyTHEbar/rosie-cli/rosie/assistant/adapters"
	ports "github.com/ZanzyTHEbar/rosie-cli/rosie/assistant/ports"
	"github.com/ZanzyTHEbar/rosie-cli/rosie/config"
	"github.com/ZanzyTHEbar/rosie-cli/rosie/db"
	"github.com/rs/zerolog"
)

// Stores are the persistence handles shared by the CLI and the orchestrator.
type Stores struct {
	Conversations ports.ConversationStore
	Memory        ports.MemoryStore
	Settings      ports.SettingsStore

	db *sql.DB
}

// Close releases the database, if one was opened.
func (s *Stores) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Deps is everything an orchestrator is built from.
type Deps struct {
	Provider      ports.Provider
	Capabilities  Capabilities
	Conversations ports.ConversationStore
	Guardrails    *Guardrails
	Tracer        ports.Tracer
	Logger        zerolog.Logger
	ImageDir      string
	JSONMode      bool
	Instructions  string // defaults to InstructionPrompt()
}

// Build wires an orchestrator from explicit dependencies.
func Build(deps Deps) (*Orchestrator, error) {
	ctx := context.Background()
	assert.Assert(ctx, deps.Provider != nil, "provider must not be nil")
	assert.Assert(ctx, deps.Conversations != nil, "conversation store must not be nil")
	assert.Assert(ctx, deps.Capabilities.Memory != nil, "memory store must not be nil")

	tracer := deps.Tracer
	if tracer == nil {
		tracer = adapters.NoopTracer{}
	}
	instructions := deps.Instructions
	if instructions == "" {
		instructions = InstructionPrompt()
	}

	parser, err := NewReplyParser()
	if err != nil {
		return nil, err
	}

	conversations := NewConversationManager(deps.Conversations, deps.Capabilities.Memory, instructions)
	gateway := NewGateway(deps.Provider, conversations, parser, tracer, deps.Logger, deps.JSONMode)
	executor := NewExecutor(deps.Capabilities, gateway, conversations, deps.Guardrails, tracer, deps.Logger, deps.ImageDir)

	return NewOrchestrator(gateway, executor, tracer, deps.Logger), nil
}

// Factory creates and wires components from configuration.
type Factory struct {
	cfg    *config.Config
	logger zerolog.Logger
}

// NewFactory creates a new factory.
func NewFactory(cfg *config.Config, logger zerolog.Logger) *Factory {
	return &Factory{cfg: cfg, logger: logger}
}

// OpenStores opens the configured backend. Settings always live in the JSON file.
func (f *Factory) OpenStores() (*Stores, error) {
	settings, err := adapters.NewJSONSettingsStore(f.cfg.Store.SettingsPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open settings: %w", err)
	}

	switch f.cfg.Store.Backend {
	case "libsql":
		conn, err := db.ConnectToDB(f.cfg.Store.DatabasePath, f.logger)
		if err != nil {
			return nil, err
		}
		if err := adapters.MigrateLibSQL(conn); err != nil {
			conn.Close()
			return nil, err
		}
		return &Stores{
			Conversations: adapters.NewLibSQLConversationStore(conn),
			Memory:        adapters.NewLibSQLMemoryStore(conn),
			Settings:      settings,
			db:            conn,
		}, nil

	default:
		conversations, err := adapters.NewJSONConversationStore(f.cfg.Store.ConversationsPath())
		if err != nil {
			return nil, fmt.Errorf("failed to open conversations: %w", err)
		}
		memory, err := adapters.NewJSONMemoryStore(f.cfg.Store.MemoryPath())
		if err != nil {
			return nil, fmt.Errorf("failed to open memory: %w", err)
		}
		return &Stores{Conversations: conversations, Memory: memory, Settings: settings}, nil
	}
}

// Conversations returns a manager over the stores, for read-only inspection.
func (f *Factory) Conversations(stores *Stores) *ConversationManager {
	return NewConversationManager(stores.Conversations, stores.Memory, InstructionPrompt())
}

// CreateOrchestrator wires the OpenAI provider and host capabilities. run_cmd
// confirmations go to operator.
func (f *Factory) CreateOrchestrator(stores *Stores, apiKey string, operator ports.Operator) (*Orchestrator, error) {
	llm := f.cfg.LLM
	provider := adapters.NewOpenAIProvider(adapters.OpenAIConfig{
		APIKey:      apiKey,
		BaseURL:     llm.BaseURL,
		Model:       llm.Model,
		VisionModel: llm.VisionModel,
		ImageModel:  llm.ImageModel,
		ImageSize:   llm.ImageSize,
	})

	searcher, err := adapters.NewCLISearcher(adapters.SearchConfig{
		Backend:    f.cfg.Search.Backend,
		ToolPath:   f.cfg.Search.ToolPath,
		IgnoreFile: f.cfg.Search.IgnoreFile,
		Options: ports.SearchOptions{
			Regex:      f.cfg.Search.Regex,
			MatchCase:  f.cfg.Search.MatchCase,
			MatchPath:  f.cfg.Search.MatchPath,
			WholeWord:  f.cfg.Search.WholeWord,
			MaxResults: f.cfg.Search.MaxResults,
		},
	}, f.logger)
	if err != nil {
		return nil, err
	}

	return Build(Deps{
		Provider: provider,
		Capabilities: Capabilities{
			Searcher: searcher,
			Screen:   adapters.NewPythonScreenCapturer(f.cfg.Screen.Python, f.logger),
			Images:   provider,
			Operator: operator,
			Shell:    adapters.HostShell{},
			Memory:   stores.Memory,
			Settings: stores.Settings,
		},
		Conversations: stores.Conversations,
		Guardrails:    NewGuardrails(f.cfg.Harness.AllowedActions),
		Tracer:        f.createTracer(),
		Logger:        f.logger,
		ImageDir:      f.cfg.Images.OutputDir,
		JSONMode:      llm.JSONMode,
	})
}

func (f *Factory) createTracer() ports.Tracer {
	if !f.cfg.Harness.EnableTracing {
		return adapters.NoopTracer{}
	}
	return adapters.NewZerologTracer(f.logger)
}
