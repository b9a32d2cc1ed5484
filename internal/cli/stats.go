package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/valter-silva-au/mflow/internal/core"
	"github.com/valter-silva-au/mflow/internal/observability"
)

var (
	statsJSON  bool
	statsSince string
)

var (
	statsHeader = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	statsGood   = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	statsWarn   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

type statsReport struct {
	Summary core.Summary           `json:"summary"`
	Metrics *observability.Metrics `json:"metrics,omitempty"`
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show meeting totals and delivery metrics",
	Long: `Show meeting and participant totals from the task collection, and
delivery metrics (sent, failed, skipped, failure reasons) from the event log.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := requireService()
		if err != nil {
			return err
		}
		summary, err := svc.Summary()
		if err != nil {
			return fmt.Errorf("summarizing meetings: %w", err)
		}
		report := statsReport{Summary: summary}

		sinceTime, err := observability.ParseSince(statsSince, time.Now())
		if err != nil {
			return fmt.Errorf("parsing --since: %w", err)
		}
		if MetricsCalc != nil {
			report.Metrics, err = MetricsCalc.Calculate(sinceTime)
			if err != nil {
				return fmt.Errorf("calculating metrics: %w", err)
			}
		}

		if statsJSON {
			data, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return fmt.Errorf("formatting stats as JSON: %w", err)
			}
			fmt.Println(string(data))
			return nil
		}

		fmt.Println(statsHeader.Render("Meetings"))
		fmt.Printf("  %-24s %d\n", "Total:", summary.Meetings)
		fmt.Printf("  %-24s %d\n", "Draft:", summary.Draft)
		fmt.Printf("  %-24s %d\n", "Sending:", summary.Sending)
		fmt.Printf("  %-24s %d\n", "Completed:", summary.Completed)
		fmt.Printf("  %-24s %d/%d\n", "Participants notified:", summary.SentSlots, summary.Participants)
		fmt.Printf("  %-24s %d\n", "Replies:", summary.RepliedSlots)
		fmt.Printf("  %-24s %d\n", "People queued:", summary.QueuedPeople)
		fmt.Printf("  %-24s %d\n", "Conflict cases:", summary.ConflictCases)

		if report.Metrics == nil {
			fmt.Println("\n(delivery metrics unavailable: event log disabled)")
			return nil
		}
		m := report.Metrics
		fmt.Println()
		fmt.Println(statsHeader.Render(fmt.Sprintf("Delivery (since %s)", sinceTime.Format("2006-01-02"))))
		fmt.Printf("  %-24s %s\n", "Sent:", statsGood.Render(fmt.Sprint(m.Sent)))
		failed := fmt.Sprint(m.Failed)
		if m.Failed > 0 {
			failed = statsWarn.Render(failed)
		}
		fmt.Printf("  %-24s %s\n", "Failed:", failed)
		fmt.Printf("  %-24s %d\n", "Skipped:", m.Skipped)
		fmt.Printf("  %-24s %d\n", "Dry runs:", m.DryRuns)
		fmt.Printf("  %-24s %d\n", "Missing templates:", m.TemplateMissing)
		fmt.Printf("  %-24s %.1f%%\n", "Success rate:", m.SuccessRate())
		fmt.Printf("  %-24s %d\n", "Contacts reached:", m.ContactsReached)

		printCounts("By channel:", m.SentByChannel)
		printCounts("Failure reasons:", m.FailureReasons)
		return nil
	},
}

func printCounts(title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Printf("\n  %s\n", title)
	for _, k := range keys {
		fmt.Printf("    %-22s %d\n", k+":", counts[k])
	}
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "Output stats as JSON")
	statsCmd.Flags().StringVar(&statsSince, "since", "7d", "Time window for delivery metrics (e.g. 7d, 30d, 24h)")
	rootCmd.AddCommand(statsCmd)
}
