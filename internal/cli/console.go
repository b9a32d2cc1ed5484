package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/valter-silva-au/mflow/internal/core"
	"github.com/valter-silva-au/mflow/pkg/models"
	"golang.org/x/term"
)

var consoleChannel string

type consoleModel struct {
	svc    core.NotificationService
	ctx    context.Context
	cursor core.QueueCursor

	queue   []models.WorkItem
	preview *core.Preview
	channel models.Channel
	dryRun  bool

	editor  textarea.Model
	spinner spinner.Model
	width   int
	height  int

	loading bool
	sending bool
	status  string
	err     error
}

type queueLoadedMsg struct {
	queue []models.WorkItem
	err   error
}

type previewLoadedMsg struct {
	preview *core.Preview
	err     error
}

type sentMsg struct {
	outcome models.Outcome
	err     error
}

type skippedMsg struct {
	contactID string
	err       error
}

var (
	consoleTitle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("230")).Background(lipgloss.Color("62")).Padding(0, 1)
	consoleHeader = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	consoleMuted  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	consoleOK     = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	consoleErr    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	consoleWarn   = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
)

func newConsoleModel(ctx context.Context, svc core.NotificationService, channel models.Channel) consoleModel {
	editor := textarea.New()
	editor.Placeholder = "Message text"
	editor.ShowLineNumbers = false
	editor.CharLimit = 0
	editor.SetWidth(72)
	editor.SetHeight(10)
	editor.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return consoleModel{
		svc:     svc,
		ctx:     ctx,
		channel: channel,
		editor:  editor,
		spinner: sp,
		loading: true,
	}
}

func (m consoleModel) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.loadQueue())
}

func (m consoleModel) loadQueue() tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		queue, err := svc.Queue(true)
		return queueLoadedMsg{queue: queue, err: err}
	}
}

func (m consoleModel) loadPreview(contactID string) tea.Cmd {
	svc, channel := m.svc, m.channel
	return func() tea.Msg {
		p, err := svc.Preview(contactID, channel)
		return previewLoadedMsg{preview: p, err: err}
	}
}

func (m consoleModel) send(req core.SendRequest) tea.Cmd {
	svc, ctx := m.svc, m.ctx
	return func() tea.Msg {
		out, err := svc.Send(ctx, req)
		return sentMsg{outcome: out, err: err}
	}
}

func (m consoleModel) skip(contactID string) tea.Cmd {
	svc, channel := m.svc, m.channel
	return func() tea.Msg {
		_, err := svc.Skip(contactID, channel)
		return skippedMsg{contactID: contactID, err: err}
	}
}

func (m consoleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		}
		if m.sending {
			return m, nil
		}
		switch msg.String() {
		case "ctrl+s":
			return m.startSend()
		case "ctrl+n":
			if m.preview == nil {
				return m, nil
			}
			m.status = ""
			return m, m.skip(m.preview.Item.Contact.ID)
		case "ctrl+t":
			if m.channel == models.ChannelWechat {
				m.channel = models.ChannelSMS
			} else {
				m.channel = models.ChannelWechat
			}
			return m, m.refreshPreview()
		case "ctrl+d":
			m.dryRun = !m.dryRun
			return m, nil
		case "ctrl+r":
			m.loading = true
			return m, m.loadQueue()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if msg.Width > 8 {
			m.editor.SetWidth(msg.Width - 4)
		}
		return m, nil

	case queueLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.queue = msg.queue
		item, ok := m.cursor.Current(m.queue)
		if !ok {
			m.preview = nil
			m.editor.SetValue("")
			return m, nil
		}
		return m, m.loadPreview(item.Contact.ID)

	case previewLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.preview = msg.preview
		m.editor.SetValue(msg.preview.Content)
		return m, nil

	case sentMsg:
		m.sending = false
		if msg.err != nil {
			var derr *core.DispatchError
			if errors.As(msg.err, &derr) {
				m.status = consoleErr.Render(fmt.Sprintf("Send failed: %s. Still queued; retry or skip.", derr.Reason))
			} else {
				m.status = consoleErr.Render(msg.err.Error())
			}
			return m, nil
		}
		if m.dryRun {
			m.status = consoleOK.Render(fmt.Sprintf("Wrote to outbox: %s covering %d meeting(s). Still queued.", msg.outcome.ContactID, len(msg.outcome.TaskIDs)))
			item, ok := m.cursor.Next(m.queue)
			if !ok {
				return m, nil
			}
			return m, m.loadPreview(item.Contact.ID)
		}
		m.status = consoleOK.Render(fmt.Sprintf("Sent: %s covering %d meeting(s).", msg.outcome.ContactID, len(msg.outcome.TaskIDs)))
		m.loading = true
		return m, m.loadQueue()

	case skippedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		item, ok := m.cursor.Next(m.queue)
		if !ok {
			m.status = consoleWarn.Render("End of queue.")
			return m, nil
		}
		return m, m.loadPreview(item.Contact.ID)

	case spinner.TickMsg:
		if !m.sending {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	return m, cmd
}

func (m consoleModel) refreshPreview() tea.Cmd {
	if m.preview == nil {
		return nil
	}
	return m.loadPreview(m.preview.Item.Contact.ID)
}

func (m consoleModel) startSend() (tea.Model, tea.Cmd) {
	if m.preview == nil {
		return m, nil
	}
	content := strings.TrimSpace(m.editor.Value())
	if content == "" {
		m.status = consoleWarn.Render("Message is empty.")
		return m, nil
	}
	if m.preview.Missing && content == strings.TrimSpace(m.preview.Content) {
		m.status = consoleWarn.Render("No template applies; edit the text or skip.")
		return m, nil
	}
	m.sending = true
	m.status = ""
	req := core.SendRequest{
		ContactID: m.preview.Item.Contact.ID,
		Channel:   m.channel,
		Content:   content,
		DryRun:    m.dryRun,
	}
	return m, tea.Batch(m.spinner.Tick, m.send(req))
}

func (m consoleModel) View() string {
	var b strings.Builder
	b.WriteString(consoleTitle.Render(" mflow console "))
	b.WriteString("\n\n")

	switch {
	case m.err != nil:
		b.WriteString(consoleErr.Render("Error: " + m.err.Error()))
		b.WriteString("\n\n")
	case m.loading && m.preview == nil:
		b.WriteString("  Loading queue...\n\n")
	case m.preview == nil:
		b.WriteString("  Everyone has been notified.\n\n")
	default:
		b.WriteString(m.renderItem())
	}

	if m.sending {
		b.WriteString(m.spinner.View() + " Sending...\n")
	} else if m.status != "" {
		b.WriteString(m.status + "\n")
	}

	b.WriteString("\n")
	b.WriteString(consoleMuted.Render("ctrl+s: send | ctrl+n: skip | ctrl+t: channel | ctrl+d: dry run | ctrl+r: reload | esc: quit"))
	return b.String()
}

func (m consoleModel) renderItem() string {
	var b strings.Builder
	p := m.preview
	pos := 0
	if _, i, ok := core.FindWorkItem(m.queue, p.Item.Contact.ID); ok {
		pos = i + 1
	}

	mode := string(m.channel)
	if m.dryRun {
		mode += " (dry run)"
	}
	b.WriteString(consoleHeader.Render(fmt.Sprintf("[%d/%d] %s %s", pos, len(m.queue), p.Item.Contact.Name, p.Item.Contact.Position)))
	b.WriteString(fmt.Sprintf("  %s -> %s\n", mode, p.Target))

	for _, t := range p.Item.Tasks {
		mark := " "
		if p.Item.Participant(t).IsSent {
			mark = "✓"
		}
		b.WriteString(fmt.Sprintf("  %s %s  %s\n", mark, t.Time, t.Subject))
	}
	if p.Missing {
		b.WriteString(consoleWarn.Render("  No template applies to this person."))
		b.WriteString("\n")
	} else {
		b.WriteString(consoleMuted.Render("  template: " + p.Template.ID))
		b.WriteString("\n")
	}
	if len(p.Files) > 0 {
		b.WriteString(consoleMuted.Render("  files: " + strings.Join(p.Files, ", ")))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.editor.View())
	b.WriteString("\n\n")
	return b.String()
}

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Interactive operator console for working through the queue",
	Long: `Launch an interactive console that walks the pending work queue one person
at a time. The rendered notice can be edited before sending.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := requireService()
		if err != nil {
			return err
		}
		if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
			return fmt.Errorf("console needs an interactive terminal; use queue, preview and send instead")
		}
		channel, err := parseChannel(consoleChannel)
		if err != nil {
			return err
		}
		p := tea.NewProgram(newConsoleModel(cmd.Context(), svc, channel), tea.WithAltScreen())
		_, err = p.Run()
		return err
	},
}

func init() {
	consoleCmd.Flags().StringVar(&consoleChannel, "channel", "wechat", "Initial delivery channel (wechat or sms)")
	rootCmd.AddCommand(consoleCmd)
}
