package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/mflow/internal/core"
	"github.com/valter-silva-au/mflow/pkg/models"
)

var (
	queuePending bool
	queueJSON    bool

	previewChannel string

	sendChannel     string
	sendContentFile string
	sendDryRun      bool

	skipChannel string
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "List the notification work queue",
	Long: `List one entry per person with open meetings.

People invited to several open meetings at once are listed first (or last,
with queue_order: asc) and receive a single combined notice.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := requireService()
		if err != nil {
			return err
		}
		queue, err := svc.Queue(queuePending)
		if err != nil {
			return fmt.Errorf("building queue: %w", err)
		}

		if queueJSON {
			data, err := json.MarshalIndent(queue, "", "  ")
			if err != nil {
				return fmt.Errorf("formatting queue as JSON: %w", err)
			}
			fmt.Println(string(data))
			return nil
		}

		if len(queue) == 0 {
			fmt.Println("Queue is empty.")
			return nil
		}

		fmt.Printf("%-4s %-12s %-10s %-8s %-6s %s\n", "#", "CONTACT", "NAME", "MEETINGS", "SENT", "SUBJECTS")
		fmt.Printf("%-4s %-12s %-10s %-8s %-6s %s\n", "---", "-------", "----", "--------", "----", "--------")
		for i, item := range queue {
			fmt.Printf("%-4d %-12s %-10s %-8d %-6s %s\n",
				i+1, item.Contact.ID, item.Contact.Name, item.ConflictCount(),
				sentMark(item), subjects(item))
		}
		return nil
	},
}

var previewCmd = &cobra.Command{
	Use:   "preview <contact>",
	Short: "Render the notification for one person",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := requireService()
		if err != nil {
			return err
		}
		channel, err := parseChannel(previewChannel)
		if err != nil {
			return err
		}
		id, err := contactIDFor(args[0])
		if err != nil {
			return err
		}
		p, err := svc.Preview(id, channel)
		if err != nil {
			return fmt.Errorf("previewing %s: %w", args[0], err)
		}

		fmt.Printf("To:       %s %s (%s: %s)\n", p.Item.Contact.Name, p.Item.Contact.Position, p.Channel, p.Target)
		if p.Missing {
			fmt.Println("Template: none (placeholder shown)")
		} else {
			fmt.Printf("Template: %s (%s)\n", p.Template.ID, p.Template.Name)
		}
		fmt.Printf("Meetings: %s\n", strings.Join(p.Item.TaskIDs(), ", "))
		if len(p.Files) > 0 {
			fmt.Printf("Files:    %s\n", strings.Join(p.Files, ", "))
		}
		fmt.Printf("\n%s\n", p.Content)
		return nil
	},
}

var sendCmd = &cobra.Command{
	Use:   "send <contact>",
	Short: "Send the notification for one person",
	Long: `Render the notification for one person and hand it to the delivery bridge.

On success the person is marked notified on every meeting the notice covers.
On failure nothing changes and the person stays in the queue. Use
--content-file to send edited text instead of the rendered template, and
--dry-run to write the message to the local outbox instead.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := requireService()
		if err != nil {
			return err
		}
		channel, err := parseChannel(sendChannel)
		if err != nil {
			return err
		}
		id, err := contactIDFor(args[0])
		if err != nil {
			return err
		}

		req := core.SendRequest{ContactID: id, Channel: channel, DryRun: sendDryRun}
		if sendContentFile != "" {
			data, err := os.ReadFile(sendContentFile)
			if err != nil {
				return fmt.Errorf("reading content file: %w", err)
			}
			req.Content = strings.TrimRight(string(data), "\n")
			if req.Content == "" {
				return fmt.Errorf("content file %s is empty", sendContentFile)
			}
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		outcome, err := svc.Send(ctx, req)
		if err != nil {
			var derr *core.DispatchError
			if errors.As(err, &derr) {
				return fmt.Errorf("sending to %s failed: %s (still queued; retry or skip)", args[0], derr.Reason)
			}
			return fmt.Errorf("sending to %s: %w", args[0], err)
		}

		verb := "Sent"
		if sendDryRun {
			verb = "Wrote to outbox"
		}
		fmt.Printf("%s %s notice to %s covering %d meeting(s) [%s]\n",
			verb, outcome.Channel, args[0], len(outcome.TaskIDs), outcome.ID)
		return nil
	},
}

var skipCmd = &cobra.Command{
	Use:   "skip <contact>",
	Short: "Move past one person without sending",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := requireService()
		if err != nil {
			return err
		}
		channel, err := parseChannel(skipChannel)
		if err != nil {
			return err
		}
		id, err := contactIDFor(args[0])
		if err != nil {
			return err
		}
		if _, err := svc.Skip(id, channel); err != nil {
			return fmt.Errorf("skipping %s: %w", args[0], err)
		}
		fmt.Printf("Skipped %s; notified state unchanged.\n", args[0])
		return nil
	},
}

func sentMark(item models.WorkItem) string {
	sent := 0
	for _, t := range item.Tasks {
		if item.Participant(t).IsSent {
			sent++
		}
	}
	return fmt.Sprintf("%d/%d", sent, len(item.Tasks))
}

func subjects(item models.WorkItem) string {
	names := make([]string, len(item.Tasks))
	for i, t := range item.Tasks {
		names[i] = t.Subject
	}
	return strings.Join(names, "、")
}

func init() {
	queueCmd.Flags().BoolVar(&queuePending, "pending", false, "Only list people not yet notified on every meeting")
	queueCmd.Flags().BoolVar(&queueJSON, "json", false, "Output the queue as JSON")

	previewCmd.Flags().StringVar(&previewChannel, "channel", "wechat", "Delivery channel (wechat or sms)")

	sendCmd.Flags().StringVar(&sendChannel, "channel", "wechat", "Delivery channel (wechat or sms)")
	sendCmd.Flags().StringVar(&sendContentFile, "content-file", "", "Send the text in this file instead of the rendered template")
	sendCmd.Flags().BoolVar(&sendDryRun, "dry-run", false, "Write the message to the outbox instead of the bridge")

	skipCmd.Flags().StringVar(&skipChannel, "channel", "wechat", "Channel that was being used")

	rootCmd.AddCommand(queueCmd, previewCmd, sendCmd, skipCmd)
}
