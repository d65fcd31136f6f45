package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	setOpenAIKey      string
	setConversationID string
	showConfig        bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configure Rosie CLI settings",
	Long: `Save the OpenAI API key and the active conversation, or show what is saved.

Settings are stored in ~/.rosie-config.json unless store.dir says otherwise.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
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

		switch {
		case setOpenAIKey != "":
			settings.OpenAIKey = setOpenAIKey
			if err := rt.stores.Settings.Save(ctx, settings); err != nil {
				return fmt.Errorf("failed to save settings: %w", err)
			}
			fmt.Fprintln(out, "✅ OpenAI API key saved successfully")

		case setConversationID != "":
			settings.ActiveConversationID = setConversationID
			if err := rt.stores.Settings.Save(ctx, settings); err != nil {
				return fmt.Errorf("failed to save settings: %w", err)
			}
			fmt.Fprintln(out, "✅ Active conversation ID set to:", setConversationID)

		case showConfig:
			if settings.OpenAIKey != "" {
				fmt.Fprintln(out, "OpenAI API key:", maskKey(settings.OpenAIKey))
			} else {
				fmt.Fprintln(out, "No OpenAI API key configured")
			}
			if settings.ActiveConversationID != "" {
				fmt.Fprintln(out, "Active conversation ID:", settings.ActiveConversationID)
			} else {
				fmt.Fprintln(out, "No active conversation ID configured (using new conversation for each session)")
			}
			fmt.Fprintln(out, mutedStyle.Render("Store: "+rt.cfg.Store.Backend+" in "+rt.cfg.Store.Dir))

		default:
			fmt.Fprintln(out, "Use --set-openai-key to save your OpenAI API key, --set-conversation-id to set active conversation ID, or --show to view current config")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)

	configCmd.Flags().StringVar(&setOpenAIKey, "set-openai-key", "", "Set your OpenAI API key")
	configCmd.Flags().StringVar(&setConversationID, "set-conversation-id", "", "Set active conversation ID")
	configCmd.Flags().BoolVar(&showConfig, "show", false, "Show current configuration")
}

// maskKey keeps the first and last four characters. Keys too short to hide a middle
// part are masked completely.
func maskKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + "..." + key[len(key)-4:]
}
