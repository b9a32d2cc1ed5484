package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/valter-silva-au/mflow/pkg/models"
)

// Legacy export keys, as the browser edition kept them in local storage.
const (
	LegacyContactsKey = "mf_contacts"
	LegacyTasksKey    = "mf_tasks"
	LegacySettingsKey = "mf_settings"
)

// LegacyImport is the content of a browser-edition export converted to the
// current data model.
type LegacyImport struct {
	Contacts []models.Contact
	Tasks    []models.MeetingTask
	Settings *LegacySettings
}

// LegacySettings holds the settings fields the browser edition knew about.
type LegacySettings struct {
	Departments []string          `json:"departments"`
	Positions   []string          `json:"positions"`
	RPADelayMin *int              `json:"rpaDelayMin"`
	RPADelayMax *int              `json:"rpaDelayMax"`
	SMSURL      string            `json:"smsUrl"`
	WechatPath  string            `json:"wechatPath"`
	Templates   []models.Template `json:"templates"`
}

// ApplyTo copies every field present in the export onto dst. Fields the
// browser edition never had (bridge, render, queue order) are left alone.
func (ls *LegacySettings) ApplyTo(dst *models.Settings) {
	if ls == nil || dst == nil {
		return
	}
	if len(ls.Departments) > 0 {
		dst.Departments = ls.Departments
	}
	if len(ls.Positions) > 0 {
		dst.Positions = ls.Positions
	}
	if ls.RPADelayMin != nil {
		dst.RPADelayMin = *ls.RPADelayMin
	}
	if ls.RPADelayMax != nil {
		dst.RPADelayMax = *ls.RPADelayMax
	}
	if ls.SMSURL != "" {
		dst.SMSURL = ls.SMSURL
	}
	if ls.WechatPath != "" {
		dst.WechatPath = ls.WechatPath
	}
	if len(ls.Templates) > 0 {
		dst.Templates = ls.Templates
	}
}

type legacyParticipant struct {
	ContactID       string                  `json:"contactId"`
	Mode            string                  `json:"mode"`
	Replied         bool                    `json:"replied"`
	IsSent          bool                    `json:"isSent"`
	TemplateID      string                  `json:"templateId"`
	UseDefaultFiles *bool                   `json:"useDefaultFiles"`
	CustomFiles     []string                `json:"customFiles"`
	ProcurementInfo *models.ProcurementInfo `json:"procurementInfo"`
}

type legacyTask struct {
	ID                string              `json:"id"`
	Subject           string              `json:"subject"`
	Time              string              `json:"time"`
	Location          string              `json:"location"`
	MeetingID         string              `json:"meetingId"`
	MeetingLink       string              `json:"meetingLink"`
	ContactPerson     string              `json:"contactPerson"`
	ContactPhone      string              `json:"contactPhone"`
	DefaultTemplateID string              `json:"defaultTemplateId"`
	Attachments       []string            `json:"attachments"`
	Mode              string              `json:"mode"`
	Status            string              `json:"status"`
	CreatedAt         int64               `json:"createdAt"`
	Participants      []legacyParticipant `json:"participants"`
}

// ReadLegacyExport reads a browser-edition export file. See
// ParseLegacyExport for the accepted shape.
func ReadLegacyExport(path string) (*LegacyImport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading legacy export: %w", err)
	}
	return ParseLegacyExport(data)
}

// ParseLegacyExport converts a JSON object keyed by mf_contacts, mf_tasks and
// mf_settings. Each value may be the JSON itself or, as local storage holds
// it, a string containing the JSON. Missing keys are simply absent from the
// result.
func ParseLegacyExport(data []byte) (*LegacyImport, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing legacy export: %w", err)
	}

	out := &LegacyImport{}

	if msg, ok := raw[LegacyContactsKey]; ok {
		if err := decodeLegacyValue(msg, &out.Contacts); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", LegacyContactsKey, err)
		}
	}

	if msg, ok := raw[LegacyTasksKey]; ok {
		var tasks []legacyTask
		if err := decodeLegacyValue(msg, &tasks); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", LegacyTasksKey, err)
		}
		out.Tasks = make([]models.MeetingTask, 0, len(tasks))
		for _, lt := range tasks {
			task, err := convertLegacyTask(lt)
			if err != nil {
				return nil, fmt.Errorf("parsing %s: %w", LegacyTasksKey, err)
			}
			out.Tasks = append(out.Tasks, task)
		}
	}

	if msg, ok := raw[LegacySettingsKey]; ok {
		out.Settings = &LegacySettings{}
		if err := decodeLegacyValue(msg, out.Settings); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", LegacySettingsKey, err)
		}
	}

	return out, nil
}

func decodeLegacyValue(msg json.RawMessage, out any) error {
	msg = bytes.TrimSpace(msg)
	if len(msg) > 0 && msg[0] == '"' {
		var inner string
		if err := json.Unmarshal(msg, &inner); err != nil {
			return err
		}
		msg = []byte(inner)
	}
	return json.Unmarshal(msg, out)
}

func convertLegacyTask(lt legacyTask) (models.MeetingTask, error) {
	mode, err := legacyMeetingMode(lt.Mode)
	if err != nil {
		return models.MeetingTask{}, fmt.Errorf("task %s: %w", lt.ID, err)
	}
	status := models.TaskStatus(lt.Status)
	switch status {
	case models.TaskDraft, models.TaskSending, models.TaskCompleted:
	case "":
		status = models.TaskDraft
	default:
		return models.MeetingTask{}, fmt.Errorf("task %s: unknown status %q", lt.ID, lt.Status)
	}

	task := models.MeetingTask{
		ID:                lt.ID,
		Subject:           lt.Subject,
		Time:              lt.Time,
		Location:          lt.Location,
		MeetingID:         lt.MeetingID,
		MeetingLink:       lt.MeetingLink,
		ContactPerson:     lt.ContactPerson,
		ContactPhone:      lt.ContactPhone,
		DefaultTemplateID: lt.DefaultTemplateID,
		Attachments:       lt.Attachments,
		Mode:              mode,
		Status:            status,
		CreatedAt:         lt.CreatedAt,
		Participants:      make([]models.ParticipantStatus, 0, len(lt.Participants)),
	}

	for _, lp := range lt.Participants {
		pmode, err := legacyParticipantMode(lp.Mode)
		if err != nil {
			return models.MeetingTask{}, fmt.Errorf("task %s, contact %s: %w", lt.ID, lp.ContactID, err)
		}
		files := models.DefaultFiles()
		if lp.UseDefaultFiles != nil && !*lp.UseDefaultFiles {
			files = models.CustomFiles(lp.CustomFiles...)
		}
		task.Participants = append(task.Participants, models.ParticipantStatus{
			ContactID:   lp.ContactID,
			Mode:        pmode,
			IsSent:      lp.IsSent,
			Replied:     lp.Replied,
			TemplateID:  lp.TemplateID,
			Files:       files,
			Procurement: lp.ProcurementInfo,
		})
	}
	return task, nil
}

func legacyMeetingMode(s string) (models.MeetingMode, error) {
	switch s {
	case "纯线下", string(models.MeetingOffline), "":
		return models.MeetingOffline, nil
	case "纯线上", string(models.MeetingOnline):
		return models.MeetingOnline, nil
	case "混合模式", string(models.MeetingMixed):
		return models.MeetingMixed, nil
	}
	return "", fmt.Errorf("unknown meeting mode %q", s)
}

func legacyParticipantMode(s string) (models.ParticipantMode, error) {
	switch s {
	case "线下", string(models.ParticipantOffline), "":
		return models.ParticipantOffline, nil
	case "线上", string(models.ParticipantOnline):
		return models.ParticipantOnline, nil
	}
	return "", fmt.Errorf("unknown participant mode %q", s)
}
