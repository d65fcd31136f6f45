package assistant

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	ports "github.com/ZanzyTHEbar/rosie-cli/rosie/assistant/ports"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	NewConversationAnswer  = "New conversation started"
	CanceledCommandResult  = "User canceled the action"
	defaultAnalyzePrompt   = "Describe what is visible on this screen."
	confirmCommandTitle    = "Confirm Command"
	generatedImagePattern  = "rosie-%d.png"
	generatedImageFileMode = 0o644
)

// SetConversationAnswer is the canned answer after switching conversations.
func SetConversationAnswer(id string) string { return "Conversation set to " + id }

// Capabilities are the side-effect adapters actions run on. Nil members make the
// corresponding actions fail with ErrCapabilityUnavailable.
type Capabilities struct {
	Searcher ports.Searcher
	Screen   ports.ScreenCapturer
	Images   ports.ImageProvider
	Operator ports.Operator
	Shell    ports.CommandRunner
	Memory   ports.MemoryStore
	Settings ports.SettingsStore
}

// Outcome tells the loop what to do after an action.
type Outcome struct {
	Done   bool   // end the turn now
	Answer string // final answer when Done
}

// Executor runs one action at a time.
type Executor struct {
	caps          Capabilities
	gateway       *Gateway
	conversations *ConversationManager
	guardrails    *Guardrails
	tracer        ports.Tracer
	logger        zerolog.Logger
	imageDir      string
	now           func() time.Time
}

// NewExecutor wires handlers to their capabilities.
func NewExecutor(caps Capabilities, gateway *Gateway, conversations *ConversationManager, guardrails *Guardrails, tracer ports.Tracer, logger zerolog.Logger, imageDir string) *Executor {
	return &Executor{
		caps:          caps,
		gateway:       gateway,
		conversations: conversations,
		guardrails:    guardrails,
		tracer:        tracer,
		logger:        logger,
		imageDir:      imageDir,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Execute runs req and stores its result on it. A non-nil error is an *ActionError and
// aborts the turn.
func (e *Executor) Execute(ctx context.Context, ec *ExecutionContext, req *ActionRequest) (Outcome, error) {
	t := req.Action.Type()

	if !e.guardrails.Allowed(t) {
		e.logger.Warn().Str("action", string(t)).Msg("action blocked by allowlist")
		req.Result = DisabledResult(t)
		return Outcome{}, nil
	}

	ctx, finish := e.tracer.StartSpan(ctx, "action", map[string]any{"type": string(t)})
	outcome, err := e.dispatch(ctx, ec, req)
	finish(err)
	return outcome, err
}

func (e *Executor) dispatch(ctx context.Context, ec *ExecutionContext, req *ActionRequest) (Outcome, error) {
	switch a := req.Action.(type) {
	case SearchPC:
		result, err := e.searchPC(ctx, ec, a)
		if err != nil {
			return Outcome{}, actionError(ActionSearchPC, err)
		}
		req.Result = result
		return Outcome{}, nil

	case AddMemory:
		if err := e.addMemory(ctx, a); err != nil {
			return Outcome{}, actionError(ActionAddMemory, err)
		}
		req.Result = true
		return Outcome{}, nil

	case RunCmd:
		result, err := e.runCmd(ctx, a)
		if err != nil {
			return Outcome{}, actionError(ActionRunCmd, err)
		}
		req.Result = result
		return Outcome{}, nil

	case NewConversation:
		id := a.Name
		if id == "" {
			id = uuid.NewString()
		}
		if _, err := e.conversations.CreateEmpty(ctx, id); err != nil {
			return Outcome{}, actionError(ActionNewConversation, err)
		}
		if err := e.activate(ctx, ec, id); err != nil {
			return Outcome{}, actionError(ActionNewConversation, err)
		}
		req.Result = true
		return Outcome{Done: true, Answer: NewConversationAnswer}, nil

	case SetConversation:
		if err := e.activate(ctx, ec, a.ID); err != nil {
			return Outcome{}, actionError(ActionSetConversation, err)
		}
		req.Result = true
		return Outcome{Done: true, Answer: SetConversationAnswer(a.ID)}, nil

	case GenImage:
		result, err := e.genImage(ctx, a)
		if err != nil {
			return Outcome{}, actionError(ActionGenImage, err)
		}
		req.Result = result
		return Outcome{}, nil

	case AnalyzeScreen:
		result, err := e.analyzeScreen(ctx, a)
		if err != nil {
			return Outcome{}, actionError(ActionAnalyzeScreen, err)
		}
		req.Result = result
		return Outcome{}, nil

	default:
		return Outcome{}, fmt.Errorf("unhandled action %T", req.Action)
	}
}

func (e *Executor) searchPC(ctx context.Context, ec *ExecutionContext, a SearchPC) (string, error) {
	if e.caps.Searcher == nil {
		return "", ErrCapabilityUnavailable
	}

	results, err := e.caps.Searcher.Search(ctx, a.Query)
	if err != nil {
		return "", err
	}
	e.logger.Debug().Str("query", a.Query).Int("results", len(results)).Msg("search finished")

	prompt, err := SearchAnalysisPrompt(a.Query, results)
	if err != nil {
		return "", err
	}

	analysis, err := e.gateway.Respond(ctx, ec, prompt, RespondOptions{Role: ports.RoleSystem, DontUpdateHistory: true})
	if err != nil {
		return "", err
	}
	return analysis.Answer, nil
}

func (e *Executor) addMemory(ctx context.Context, a AddMemory) error {
	if e.caps.Memory == nil {
		return ErrCapabilityUnavailable
	}
	return e.caps.Memory.Append(ctx, ports.MemoryItem{Text: a.Text, Date: e.now()})
}

// runCmd only fails when the confirmation itself could not be obtained. Command
// failures are returned as result text.
func (e *Executor) runCmd(ctx context.Context, a RunCmd) (string, error) {
	if e.caps.Operator == nil || e.caps.Shell == nil {
		return "", ErrCapabilityUnavailable
	}

	confirmed, err := e.caps.Operator.Confirm(ctx, confirmCommandTitle, "Run command: "+a.Cmd)
	if err != nil {
		return "", fmt.Errorf("confirmation interrupted: %w", err)
	}
	if !confirmed {
		return CanceledCommandResult, nil
	}

	out, err := e.caps.Shell.Run(ctx, a.Cmd)
	if out.Stdout != "" {
		return out.Stdout, nil
	}
	if err != nil {
		e.logger.Debug().Err(err).Str("cmd", a.Cmd).Msg("command failed")
		if stderr := strings.TrimSpace(out.Stderr); stderr != "" {
			return fmt.Sprintf("Command failed: %s\n%s", err, stderr), nil
		}
		return err.Error(), nil
	}
	return out.Stderr, nil
}

func (e *Executor) activate(ctx context.Context, ec *ExecutionContext, id string) error {
	if e.caps.Settings == nil {
		return ErrCapabilityUnavailable
	}

	settings, err := e.caps.Settings.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	settings.ActiveConversationID = id
	if err := e.caps.Settings.Save(ctx, settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	ec.SetConversationID(id)
	return nil
}

func (e *Executor) genImage(ctx context.Context, a GenImage) (string, error) {
	if e.caps.Images == nil {
		return "", ErrCapabilityUnavailable
	}

	refs := make([][]byte, 0, len(a.Images))
	for _, path := range a.Images {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read reference image %s: %w", path, err)
		}
		refs = append(refs, data)
	}

	img, err := e.caps.Images.GenerateImage(ctx, a.Prompt, refs)
	if err != nil {
		return "", fmt.Errorf("image generation failed: %w", err)
	}

	output := a.Output
	if output == "" {
		output = filepath.Join(e.imageDir, fmt.Sprintf(generatedImagePattern, e.now().Unix()))
	}
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return "", fmt.Errorf("failed to create image directory: %w", err)
	}
	if err := os.WriteFile(output, img, generatedImageFileMode); err != nil {
		return "", fmt.Errorf("failed to save image: %w", err)
	}

	return "Image saved to " + output, nil
}

func (e *Executor) analyzeScreen(ctx context.Context, a AnalyzeScreen) (string, error) {
	if e.caps.Screen == nil || e.caps.Images == nil {
		return "", ErrCapabilityUnavailable
	}

	shots, err := e.caps.Screen.Capture(ctx)
	if err != nil {
		return "", fmt.Errorf("screen capture failed: %w", err)
	}
	if len(shots) == 0 {
		return "", fmt.Errorf("screen capture returned no displays")
	}

	prompt := a.Prompt
	if prompt == "" {
		prompt = defaultAnalyzePrompt
	}

	parts := make([]string, 0, len(shots))
	for _, shot := range shots {
		text, err := e.caps.Images.AnalyzeImage(ctx, shot.Image, prompt)
		if err != nil {
			return "", fmt.Errorf("analysis of %s failed: %w", shot.Label, err)
		}
		parts = append(parts, shot.Label+":\n"+text)
	}
	return strings.Join(parts, "\n\n"), nil
}
