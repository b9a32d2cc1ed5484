package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/valter-silva-au/mflow/pkg/models"
)

var (
	meetingSubject       string
	meetingTime          string
	meetingLocation      string
	meetingMode          string
	meetingID            string
	meetingLink          string
	meetingContactPerson string
	meetingContactPhone  string
	meetingTemplate      string
	meetingAttachments   []string
	meetingParticipants  []string
	meetingAll           bool

	procurementMethod string
	procurementBudget string
)

var meetingCmd = &cobra.Command{
	Use:   "meeting",
	Short: "Manage meeting tasks",
}

var meetingListCmd = &cobra.Command{
	Use:   "list",
	Short: "List meeting tasks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := requireService()
		if err != nil {
			return err
		}
		tasks, err := svc.Tasks()
		if err != nil {
			return fmt.Errorf("loading tasks: %w", err)
		}
		shown := 0
		for _, t := range tasks {
			if !meetingAll && !t.IsOpen() {
				continue
			}
			if shown == 0 {
				fmt.Printf("%-38s %-10s %-17s %-8s %-6s %s\n", "ID", "STATUS", "TIME", "MODE", "SENT", "SUBJECT")
			}
			shown++
			sent := 0
			for _, p := range t.Participants {
				if p.IsSent {
					sent++
				}
			}
			fmt.Printf("%-38s %-10s %-17s %-8s %-6s %s\n", t.ID, t.Status, t.Time, t.Mode,
				fmt.Sprintf("%d/%d", sent, len(t.Participants)), t.Subject)
		}
		if shown == 0 {
			fmt.Println("No meetings found.")
		}
		return nil
	},
}

var meetingAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a meeting task",
	Long: `Add a meeting task.

Participants are given with --participant, once per person, as a contact id
or name. Under --mode mixed append ":online" to mark a remote participant,
e.g. --participant 张三:online.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := requireService()
		if err != nil {
			return err
		}
		task, err := buildMeetingTask()
		if err != nil {
			return err
		}
		contacts, err := svc.Contacts()
		if err != nil {
			return fmt.Errorf("loading contacts: %w", err)
		}
		for _, ref := range meetingParticipants {
			p, err := parseParticipant(contacts, ref)
			if err != nil {
				return err
			}
			task.Participants = append(task.Participants, p)
		}

		err = svc.UpdateTasks(func(tasks []models.MeetingTask) ([]models.MeetingTask, error) {
			return append(tasks, task), nil
		})
		if err != nil {
			return fmt.Errorf("saving meeting: %w", err)
		}
		fmt.Printf("Added meeting %s (%s) with %d participant(s)\n", task.Subject, task.ID, len(task.Participants))
		return nil
	},
}

var meetingRemoveCmd = &cobra.Command{
	Use:   "remove <meeting-id>",
	Short: "Remove a meeting task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := requireService()
		if err != nil {
			return err
		}
		err = svc.UpdateTasks(func(tasks []models.MeetingTask) ([]models.MeetingTask, error) {
			kept := make([]models.MeetingTask, 0, len(tasks))
			for _, t := range tasks {
				if t.ID != args[0] {
					kept = append(kept, t)
				}
			}
			if len(kept) == len(tasks) {
				return nil, fmt.Errorf("meeting %s not found", args[0])
			}
			return kept, nil
		})
		if err != nil {
			return err
		}
		fmt.Printf("Removed meeting %s\n", args[0])
		return nil
	},
}

var meetingStatusCmd = &cobra.Command{
	Use:   "status <meeting-id>",
	Short: "Show per-person notification state of a meeting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := requireService()
		if err != nil {
			return err
		}
		tasks, err := svc.Tasks()
		if err != nil {
			return fmt.Errorf("loading tasks: %w", err)
		}
		contacts, err := svc.Contacts()
		if err != nil {
			return fmt.Errorf("loading contacts: %w", err)
		}
		task, ok := findTask(tasks, args[0])
		if !ok {
			return fmt.Errorf("meeting %s not found", args[0])
		}
		idx := models.ContactIndex(contacts)

		fmt.Printf("%s  [%s]\n", task.Subject, task.Status)
		fmt.Printf("  time: %s  mode: %s  location: %s\n\n", task.Time, task.Mode, task.Location)
		for _, p := range task.Participants {
			name := p.ContactID + " (unknown contact)"
			if c, ok := idx[p.ContactID]; ok {
				name = c.Name
			}
			flags := []string{string(task.EffectiveMode(p))}
			if p.IsSent {
				flags = append(flags, "sent")
			}
			if p.Replied {
				flags = append(flags, "replied")
			}
			if p.TemplateID != "" {
				flags = append(flags, "template="+p.TemplateID)
			}
			if p.Procurement != nil {
				flags = append(flags, fmt.Sprintf("procurement=%s/%s", p.Procurement.Method, p.Procurement.Budget))
			}
			fmt.Printf("  %-12s %s\n", name, strings.Join(flags, ", "))
		}
		return nil
	},
}

var meetingReplyCmd = &cobra.Command{
	Use:   "reply <meeting-id> <contact>",
	Short: "Record that a participant replied",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return updateParticipant(args[0], args[1], func(p *models.ParticipantStatus) {
			p.Replied = true
		})
	},
}

var meetingProcurementCmd = &cobra.Command{
	Use:   "procurement <meeting-id> <contact>",
	Short: "Set a participant's procurement method and budget",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return updateParticipant(args[0], args[1], func(p *models.ParticipantStatus) {
			p.Procurement = &models.ProcurementInfo{Method: procurementMethod, Budget: procurementBudget}
		})
	},
}

func buildMeetingTask() (models.MeetingTask, error) {
	subject := strings.TrimSpace(meetingSubject)
	if subject == "" {
		return models.MeetingTask{}, fmt.Errorf("--subject is required")
	}
	mode := models.MeetingMode(meetingMode)
	switch mode {
	case models.MeetingOffline, models.MeetingOnline, models.MeetingMixed:
	default:
		return models.MeetingTask{}, fmt.Errorf("invalid --mode %q: must be offline, online or mixed", meetingMode)
	}

	task := models.MeetingTask{
		ID:                uuid.NewString(),
		Subject:           subject,
		Time:              strings.TrimSpace(meetingTime),
		Location:          meetingLocation,
		MeetingID:         meetingID,
		MeetingLink:       meetingLink,
		ContactPerson:     meetingContactPerson,
		ContactPhone:      meetingContactPhone,
		DefaultTemplateID: meetingTemplate,
		Attachments:       meetingAttachments,
		Mode:              mode,
		Status:            models.TaskDraft,
		CreatedAt:         time.Now().UnixMilli(),
	}
	if _, err := task.StartTime(time.Local); err != nil {
		return models.MeetingTask{}, fmt.Errorf("invalid --time: %w", err)
	}
	return task, nil
}

// parseParticipant reads "contact" or "contact:online".
func parseParticipant(contacts []models.Contact, ref string) (models.ParticipantStatus, error) {
	mode := models.ParticipantOffline
	if name, m, ok := strings.Cut(ref, ":"); ok {
		switch models.ParticipantMode(m) {
		case models.ParticipantOnline, models.ParticipantOffline:
			mode = models.ParticipantMode(m)
		default:
			return models.ParticipantStatus{}, fmt.Errorf("invalid participant mode %q in %q", m, ref)
		}
		ref = name
	}
	c, err := resolveContact(contacts, ref)
	if err != nil {
		return models.ParticipantStatus{}, err
	}
	return models.ParticipantStatus{
		ContactID: c.ID,
		Mode:      mode,
		Files:     models.DefaultFiles(),
	}, nil
}

func findTask(tasks []models.MeetingTask, id string) (models.MeetingTask, bool) {
	for _, t := range tasks {
		if t.ID == id {
			return t, true
		}
	}
	return models.MeetingTask{}, false
}

func updateParticipant(taskID, contactRef string, fn func(p *models.ParticipantStatus)) error {
	svc, err := requireService()
	if err != nil {
		return err
	}
	contactID, err := contactIDFor(contactRef)
	if err != nil {
		return err
	}
	err = svc.UpdateTasks(func(tasks []models.MeetingTask) ([]models.MeetingTask, error) {
		for i := range tasks {
			if tasks[i].ID != taskID {
				continue
			}
			for j := range tasks[i].Participants {
				if tasks[i].Participants[j].ContactID == contactID {
					fn(&tasks[i].Participants[j])
					return tasks, nil
				}
			}
			return nil, fmt.Errorf("contact %s is not a participant of meeting %s", contactRef, taskID)
		}
		return nil, fmt.Errorf("meeting %s not found", taskID)
	})
	if err != nil {
		return err
	}
	fmt.Printf("Updated %s on meeting %s\n", contactRef, taskID)
	return nil
}

func init() {
	meetingListCmd.Flags().BoolVar(&meetingAll, "all", false, "Include completed meetings")

	f := meetingAddCmd.Flags()
	f.StringVar(&meetingSubject, "subject", "", "Meeting subject (required)")
	f.StringVar(&meetingTime, "time", "", "Start time, e.g. 2024-01-10T09:00 (required)")
	f.StringVar(&meetingLocation, "location", "", "Room or address")
	f.StringVar(&meetingMode, "mode", string(models.MeetingOffline), "Modality: offline, online or mixed")
	f.StringVar(&meetingID, "meeting-id", "", "Remote meeting number")
	f.StringVar(&meetingLink, "link", "", "Remote meeting link")
	f.StringVar(&meetingContactPerson, "contact-person", "", "Organizer contact name")
	f.StringVar(&meetingContactPhone, "contact-phone", "", "Organizer contact phone")
	f.StringVar(&meetingTemplate, "template", "", "Default template id for this meeting")
	f.StringSliceVar(&meetingAttachments, "attach", nil, "Default attachment names")
	f.StringArrayVar(&meetingParticipants, "participant", nil, "Participant contact id or name, optionally with :online")

	meetingProcurementCmd.Flags().StringVar(&procurementMethod, "method", "", "Procurement method")
	meetingProcurementCmd.Flags().StringVar(&procurementBudget, "budget", "", "Budget figure")

	meetingCmd.AddCommand(meetingListCmd, meetingAddCmd, meetingRemoveCmd, meetingStatusCmd,
		meetingReplyCmd, meetingProcurementCmd)
	rootCmd.AddCommand(meetingCmd)
}
