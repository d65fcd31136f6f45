package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	ports "github.com/ZanzyTHEbar/rosie-cli/rosie/assistant/ports"
	radix "github.com/armon/go-radix"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var historyFormat string

var (
	activeMarkerStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("212"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("39"))

	roleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("135"))
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect stored conversations",
}

var historyListCmd = &cobra.Command{
	Use:   "list [prefix]",
	Short: "List conversations, optionally those whose id starts with prefix",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		prefix := ""
		if len(args) == 1 {
			prefix = args[0]
		}

		rt, err := openRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		ctx := cmd.Context()
		conversations, err := rt.stores.Conversations.List(ctx)
		if err != nil {
			return fmt.Errorf("failed to list conversations: %w", err)
		}
		settings, err := rt.stores.Settings.Load(ctx)
		if err != nil {
			return fmt.Errorf("failed to load settings: %w", err)
		}

		return writeConversationList(cmd.OutOrStdout(), conversations, prefix, settings.ActiveConversationID)
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <conversation-id>",
	Short: "Show the messages of one conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		conversation, ok, err := rt.stores.Conversations.Get(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to load conversation: %w", err)
		}
		if !ok {
			return fmt.Errorf("conversation %q not found", args[0])
		}

		return writeConversation(cmd.OutOrStdout(), conversation, historyFormat)
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)

	historyShowCmd.Flags().StringVarP(&historyFormat, "format", "f", "text", "Output format: text, json or yaml")
}

// writeConversationList prints conversations in id order. The active one is marked with '*'.
func writeConversationList(w io.Writer, conversations []*ports.Conversation, prefix, activeID string) error {
	tree := radix.New()
	for _, c := range conversations {
		tree.Insert(c.ID, c)
	}

	count := 0
	tree.WalkPrefix(prefix, func(id string, v interface{}) bool {
		c := v.(*ports.Conversation)
		marker := " "
		if id == activeID {
			marker = activeMarkerStyle.Render("*")
		}
		fmt.Fprintf(w, "%s %s  %d messages  updated %s\n",
			marker, idStyle.Render(id), len(c.Messages), c.UpdatedAt.Local().Format(time.DateTime))
		count++
		return false
	})

	if count == 0 {
		if prefix != "" {
			fmt.Fprintf(w, "No conversations match %q\n", prefix)
		} else {
			fmt.Fprintln(w, "No conversations found")
		}
	}
	return nil
}

// conversationDoc is the exported shape of a conversation for json and yaml output.
type conversationDoc struct {
	ID        string       `json:"id" yaml:"id"`
	CreatedAt time.Time    `json:"createdAt" yaml:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt" yaml:"updatedAt"`
	Messages  []messageDoc `json:"messages" yaml:"messages"`
}

type messageDoc struct {
	Role      string    `json:"role" yaml:"role"`
	Content   string    `json:"content" yaml:"content"`
	Timestamp time.Time `json:"ts" yaml:"ts"`
}

func toConversationDoc(c *ports.Conversation) conversationDoc {
	doc := conversationDoc{
		ID:        c.ID,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
		Messages:  make([]messageDoc, 0, len(c.Messages)),
	}
	for _, m := range c.Messages {
		doc.Messages = append(doc.Messages, messageDoc{Role: string(m.Role), Content: m.Content, Timestamp: m.Timestamp})
	}
	return doc
}

func writeConversation(w io.Writer, c *ports.Conversation, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(toConversationDoc(c), "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode conversation: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err

	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(toConversationDoc(c)); err != nil {
			return fmt.Errorf("failed to encode conversation: %w", err)
		}
		return enc.Close()

	case "text", "":
		fmt.Fprintln(w, idStyle.Render(c.ID))
		fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("created %s, %d messages",
			c.CreatedAt.Local().Format(time.DateTime), len(c.Messages))))
		for _, m := range c.Messages {
			fmt.Fprintf(w, "\n%s %s\n%s\n",
				roleStyle.Render("["+string(m.Role)+"]"),
				mutedStyle.Render(m.Timestamp.Local().Format(time.DateTime)),
				m.Content)
		}
		return nil

	default:
		return fmt.Errorf("unsupported format %q (use text, json or yaml)", format)
	}
}
