package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var alertsNotify bool

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Show active delivery alerts",
	Long: `Evaluate alert conditions against the event log and display any triggered alerts.

Alerts flag contacts whose recent dispatches all failed, a high failure rate
across the bridge, and contacts left without a matching template. With
--notify the alerts are also posted to the configured webhook.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if AlertEngine == nil {
			return fmt.Errorf("alert engine not initialized (observability may be disabled)")
		}

		alerts, err := AlertEngine.Evaluate()
		if err != nil {
			return fmt.Errorf("evaluating alerts: %w", err)
		}

		if len(alerts) == 0 {
			fmt.Println("No active alerts.")
			return nil
		}

		fmt.Printf("%d active alert(s):\n\n", len(alerts))
		for _, alert := range alerts {
			severity := strings.ToUpper(string(alert.Severity))
			fmt.Printf("  [%s] %s\n", severity, alert.Message)
			fmt.Printf("         triggered at %s\n\n", alert.TriggeredAt.Format("2006-01-02 15:04 UTC"))
		}

		if alertsNotify {
			if Notifier == nil {
				return fmt.Errorf("no alert webhook configured (set alerts.webhook_url)")
			}
			if err := Notifier.Notify(context.Background(), alerts); err != nil {
				return fmt.Errorf("sending alert notification: %w", err)
			}
			fmt.Println("Alerts posted to webhook.")
		}

		return nil
	},
}

func init() {
	alertsCmd.Flags().BoolVar(&alertsNotify, "notify", false, "Post alerts to the configured webhook")
	rootCmd.AddCommand(alertsCmd)
}
