package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/rosie-cli/rosie/assistant"
	"github.com/ZanzyTHEbar/rosie-cli/rosie/assistant/adapters"
	"github.com/ZanzyTHEbar/rosie-cli/rosie/config"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const noKeyMessage = `No OpenAI API key provided. Use --open_ai_key or run "rosie config --set-openai-key=YOUR_KEY"`

var (
	verbose    bool
	configPath string
	openAIKey  string
	thinking   bool
	version    string = "dev"
)

var (
	promptStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "rosie [text...]",
	Short: "A conversational assistant for your terminal",
	Long: `Rosie answers questions and acts on your machine: it can search files,
remember facts, run commands after you confirm them, generate images and
look at your screen.

Quick Start:
  rosie config --set-openai-key=YOUR_KEY
  rosie what is the largest file in my downloads folder
  rosie --thinking plan a refactor of this repository
  rosie history list`,
	Version:       version,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runAssistant,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a config.yaml (default ./config.yaml or ~/.config/rosie/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&openAIKey, "open_ai_key", "", "Your OpenAI API key")
	rootCmd.Flags().BoolVar(&thinking, "thinking", false, "Enable thinking mode.")

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}

func runAssistant(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return cmd.Help()
	}
	input := strings.Join(args, " ")

	rt, err := openRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	settings, err := rt.stores.Settings.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	apiKey := firstNonEmpty(openAIKey, settings.OpenAIKey, rt.cfg.LLM.APIKey)
	if apiKey == "" {
		fmt.Fprintln(out, noKeyMessage)
		return nil
	}

	// The same conversation carries over between invocations until changed.
	conversationID := settings.ActiveConversationID
	if conversationID == "" {
		conversationID = uuid.NewString()
		settings.ActiveConversationID = conversationID
		if err := rt.stores.Settings.Save(ctx, settings); err != nil {
			return fmt.Errorf("failed to save settings: %w", err)
		}
	}

	operator := adapters.NewTerminalOperator(cmd.InOrStdin(), out)
	defer operator.Close()

	orchestrator, err := rt.factory.CreateOrchestrator(rt.stores, apiKey, operator)
	if err != nil {
		return fmt.Errorf("failed to create assistant: %w", err)
	}

	ec := assistant.NewExecutionContext(conversationID, assistant.Params{
		APIKey:   apiKey,
		Thinking: thinking,
		Mode:     "cli",
	})

	rt.logger.Debug().
		Str("conversation_id", conversationID).
		Bool("thinking", thinking).
		Msg("processing input")

	res, err := orchestrator.Run(ctx, ec, input)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, promptStyle.Render(">")+" "+res.Answer)
	return nil
}

// runtime bundles what every subcommand needs: config, logger and open stores.
type runtime struct {
	cfg     *config.Config
	logger  zerolog.Logger
	factory *assistant.Factory
	stores  *assistant.Stores
}

func openRuntime(cmd *cobra.Command) (*runtime, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := newLogger(cmd.ErrOrStderr(), cfg.Logging.Level, verbose)
	factory := assistant.NewFactory(cfg, logger)

	stores, err := factory.OpenStores()
	if err != nil {
		return nil, fmt.Errorf("failed to open stores: %w", err)
	}

	return &runtime{cfg: cfg, logger: logger, factory: factory, stores: stores}, nil
}

func (r *runtime) Close() {
	if err := r.stores.Close(); err != nil {
		r.logger.Warn().Err(err).Msg("failed to close stores")
	}
}

func newLogger(w io.Writer, level string, verbose bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.WarnLevel
	}
	if verbose {
		lvl = zerolog.DebugLevel
	}

	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}).
		Level(lvl).
		With().
		Timestamp().
		Logger()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
