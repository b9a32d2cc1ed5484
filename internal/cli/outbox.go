package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/mflow/internal/integration"
)

var outboxFull bool

var outboxCmd = &cobra.Command{
	Use:   "outbox",
	Short: "List messages written by dry-run sends",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if BasePath == "" {
			return errNotInitialized("base path")
		}
		msgs, err := integration.ReadOutbox(BasePath)
		if err != nil {
			return err
		}
		if len(msgs) == 0 {
			fmt.Println("Outbox is empty.")
			return nil
		}
		for _, m := range msgs {
			fmt.Printf("%s  %-6s  %-20s  %s\n", m.ID, m.Channel, m.To, m.Date)
			if outboxFull {
				for _, line := range strings.Split(m.Content, "\n") {
					fmt.Printf("    %s\n", line)
				}
				fmt.Println()
			}
		}
		return nil
	},
}

func init() {
	outboxCmd.Flags().BoolVar(&outboxFull, "full", false, "Print message text")
	rootCmd.AddCommand(outboxCmd)
}
