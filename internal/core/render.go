package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/valter-silva-au/mflow/pkg/models"
)

// Fallback texts used when RenderSettings leaves a field empty.
const (
	defaultTitle             = "经理"
	defaultPlaceholderTitle  = "无"
	defaultRemotePlaceholder = "线上会议"
	defaultNotApplicable     = "不适用"
	defaultZeroBudget        = "0"
	defaultMissingTemplate   = "【未配置通知模板】"
)

// Renderer substitutes tokens in templates against work items. It is pure:
// the same template, work item and evaluation instant give the same text.
type Renderer struct {
	opts     models.RenderSettings
	contacts map[string]models.Contact
}

// NewRenderer creates a Renderer. contacts is used to spell out attendee
// lists; unknown participants are left out of them.
func NewRenderer(opts models.RenderSettings, contacts []models.Contact) *Renderer {
	return &Renderer{
		opts:     withRenderDefaults(opts),
		contacts: models.ContactIndex(contacts),
	}
}

func withRenderDefaults(o models.RenderSettings) models.RenderSettings {
	if o.DefaultTitle == "" {
		o.DefaultTitle = defaultTitle
	}
	if o.PlaceholderTitle == "" {
		o.PlaceholderTitle = defaultPlaceholderTitle
	}
	if o.RemotePlaceholder == "" {
		o.RemotePlaceholder = defaultRemotePlaceholder
	}
	if o.NotApplicable == "" {
		o.NotApplicable = defaultNotApplicable
	}
	if o.ZeroBudget == "" {
		o.ZeroBudget = defaultZeroBudget
	}
	if o.MissingTemplate == "" {
		o.MissingTemplate = defaultMissingTemplate
	}
	if o.DateStyle == "" {
		o.DateStyle = models.DateMonthDay
	}
	return o
}

// Render replaces every known {{token}} in tmpl's content. Unknown
// placeholders are left verbatim.
func (r *Renderer) Render(tmpl models.Template, item models.WorkItem, now time.Time) string {
	values := r.Values(tmpl, item, now)
	pairs := make([]string, 0, len(values)*2)
	for _, name := range KnownTokens {
		pairs = append(pairs, Placeholder(name), values[name])
	}
	return strings.NewReplacer(pairs...).Replace(tmpl.Content)
}

// RenderOrPlaceholder resolves the template for item and renders it. When no
// template resolves, the configured placeholder text is returned together
// with the resolution error so callers can log it without stopping.
func (r *Renderer) RenderOrPlaceholder(item models.WorkItem, channel models.Channel, templates []models.Template, now time.Time) (string, models.Template, error) {
	tmpl, err := ResolveTemplate(item, channel, templates)
	if err != nil {
		if errors.Is(err, ErrNoTemplateFound) {
			return r.opts.MissingTemplate, models.Template{}, err
		}
		return "", models.Template{}, err
	}
	return r.Render(tmpl, item, now), tmpl, nil
}

// Values computes the substitution value of every known token. Single
// meeting tokens read the item's first task.
func (r *Renderer) Values(tmpl models.Template, item models.WorkItem, now time.Time) map[string]string {
	values := make(map[string]string, len(KnownTokens))
	for _, name := range KnownTokens {
		values[name] = ""
	}

	c := item.Contact
	title := r.title(c)
	values[TokenName] = c.Name
	values[TokenSurname] = c.Surname()
	values[TokenTitle] = title
	values[TokenHonorific] = c.Surname() + title
	values[TokenPublisherDept] = r.opts.PublisherDept
	values[TokenConflictCount] = strconv.Itoa(item.ConflictCount())
	values[TokenProcureMethod] = r.opts.NotApplicable
	values[TokenProcureBudget] = r.opts.ZeroBudget
	values[TokenLocation] = r.opts.RemotePlaceholder

	if len(item.Tasks) == 0 {
		return values
	}

	task := item.Tasks[0]
	p := item.Participant(task)
	st, ok := r.semanticTime(task, now)
	if ok {
		values[TokenDate] = st.Date
		values[TokenPeriod] = st.Period
		values[TokenClock] = st.Clock
		values[TokenTime] = st.Full()
	} else {
		values[TokenDate] = task.Time
		values[TokenTime] = task.Time
	}

	values[TokenSubject] = task.Subject
	if task.Location != "" {
		values[TokenLocation] = task.Location
	}
	values[TokenMeetingID] = task.MeetingID
	values[TokenMeetingLink] = task.MeetingLink
	if task.EffectiveMode(p) == models.ParticipantOnline {
		values[TokenOnlineInfo] = onlineInfo(task)
	}
	values[TokenAttendees] = r.attendees(task)
	values[TokenContactPerson] = task.ContactPerson
	values[TokenContactPhone] = task.ContactPhone

	if info := procurementFor(c, p); info != nil {
		if info.Method != "" {
			values[TokenProcureMethod] = info.Method
		}
		if info.Budget != "" {
			values[TokenProcureBudget] = info.Budget
		}
	}

	if tmpl.Type == models.TemplateMulti {
		values[TokenMeetingList] = r.meetingList(item, now)
	}

	return values
}

func (r *Renderer) title(c models.Contact) string {
	pos := strings.TrimSpace(c.Position)
	if pos == "" || pos == r.opts.PlaceholderTitle {
		return r.opts.DefaultTitle
	}
	return pos
}

func (r *Renderer) semanticTime(task models.MeetingTask, now time.Time) (SemanticTime, bool) {
	start, err := task.StartTime(now.Location())
	if err != nil {
		return SemanticTime{}, false
	}
	return FormatSemanticTime(start, now, r.opts.DateStyle), true
}

func (r *Renderer) attendees(task models.MeetingTask) string {
	names := make([]string, 0, len(task.Participants))
	for _, p := range task.Participants {
		if c, ok := r.contacts[p.ContactID]; ok && c.Name != "" {
			names = append(names, c.Name)
		}
	}
	return strings.Join(names, "、")
}

// meetingList enumerates the item's meetings, one numbered line each.
func (r *Renderer) meetingList(item models.WorkItem, now time.Time) string {
	lines := make([]string, 0, len(item.Tasks))
	for i, task := range item.Tasks {
		when := task.Time
		if st, ok := r.semanticTime(task, now); ok {
			when = st.Full()
		}
		line := fmt.Sprintf("%d. %s “%s”", i+1, when, task.Subject)
		if info := procurementFor(item.Contact, item.Participant(task)); info != nil {
			method, budget := info.Method, info.Budget
			if method == "" {
				method = r.opts.NotApplicable
			}
			if budget == "" {
				budget = r.opts.ZeroBudget
			}
			line += fmt.Sprintf("（采购方式：%s，预算：%s）", method, budget)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// procurementFor returns the procurement record that applies to a
// participant. Records left on contacts no longer flagged as procurement
// specialists are ignored.
func procurementFor(c models.Contact, p models.ParticipantStatus) *models.ProcurementInfo {
	if !c.IsProcurement || p.Procurement == nil {
		return nil
	}
	return p.Procurement
}

func onlineInfo(task models.MeetingTask) string {
	if task.MeetingID == "" && task.MeetingLink == "" {
		return ""
	}
	s := "参会方式为线上会议"
	if task.MeetingLink != "" {
		s += "，链接" + task.MeetingLink
	}
	if task.MeetingID != "" {
		s += "，会议号：" + task.MeetingID
	}
	return s
}
