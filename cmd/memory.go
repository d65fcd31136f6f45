package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Inspect what Rosie remembers",
}

var memoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List remembered facts, oldest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		memory, err := rt.stores.Memory.Load(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to load memory: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(memory.Items) == 0 {
			fmt.Fprintln(out, "No memories stored")
			return nil
		}
		for _, item := range memory.Items {
			fmt.Fprintf(out, "%s  %s\n", mutedStyle.Render(item.Date.Local().Format(time.DateTime)), item.Text)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(memoryCmd)
	memoryCmd.AddCommand(memoryListCmd)
}
