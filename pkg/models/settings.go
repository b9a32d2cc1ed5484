package models

import "time"

// QueueOrder names the policy used to order the work queue.
type QueueOrder string

const (
	// OrderMostConflictsFirst surfaces people with the most simultaneous
	// meetings first.
	OrderMostConflictsFirst QueueOrder = "desc"
	// OrderFewestConflictsFirst processes single-meeting people first.
	OrderFewestConflictsFirst QueueOrder = "asc"
)

// DateStyle selects how dates beyond 后天 are phrased.
type DateStyle string

const (
	DateMonthDay DateStyle = "monthday" // 1月10日
	DateWeekday  DateStyle = "weekday"  // 本周三 / 下周一, else 1月10日
)

// BridgeSettings locates the local automation bridge.
type BridgeSettings struct {
	URL     string        `yaml:"url" json:"url" mapstructure:"url"`
	Timeout time.Duration `yaml:"timeout" json:"timeout" mapstructure:"timeout"`
}

// RenderSettings holds the fallback texts used by the renderer.
type RenderSettings struct {
	DateStyle         DateStyle `yaml:"date_style" json:"dateStyle" mapstructure:"date_style"`
	DefaultTitle      string    `yaml:"default_title" json:"defaultTitle" mapstructure:"default_title"`
	PlaceholderTitle  string    `yaml:"placeholder_title" json:"placeholderTitle" mapstructure:"placeholder_title"`
	RemotePlaceholder string    `yaml:"remote_placeholder" json:"remotePlaceholder" mapstructure:"remote_placeholder"`
	NotApplicable     string    `yaml:"not_applicable" json:"notApplicable" mapstructure:"not_applicable"`
	ZeroBudget        string    `yaml:"zero_budget" json:"zeroBudget" mapstructure:"zero_budget"`
	MissingTemplate   string    `yaml:"missing_template" json:"missingTemplate" mapstructure:"missing_template"`
	PublisherDept     string    `yaml:"publisher_dept" json:"publisherDept" mapstructure:"publisher_dept"`
}

// AlertSettings configures failure alerts over the dispatch event log.
type AlertSettings struct {
	WebhookURL          string `yaml:"webhook_url" json:"webhookUrl" mapstructure:"webhook_url"`
	ConsecutiveFailures int    `yaml:"consecutive_failures" json:"consecutiveFailures" mapstructure:"consecutive_failures"`
	// FailureRatePercent of zero or below disables the failure-rate alert.
	FailureRatePercent int `yaml:"failure_rate_percent" json:"failureRatePercent" mapstructure:"failure_rate_percent"`
	MinAttempts        int `yaml:"min_attempts" json:"minAttempts" mapstructure:"min_attempts"`
}

// Settings is the process-wide configuration record. It is loaded once at
// start, passed explicitly into the engine, and written back whole.
type Settings struct {
	Departments []string       `yaml:"departments" json:"departments" mapstructure:"departments"`
	Positions   []string       `yaml:"positions" json:"positions" mapstructure:"positions"`
	RPADelayMin int            `yaml:"rpa_delay_min" json:"rpaDelayMin" mapstructure:"rpa_delay_min"`
	RPADelayMax int            `yaml:"rpa_delay_max" json:"rpaDelayMax" mapstructure:"rpa_delay_max"`
	SMSURL      string         `yaml:"sms_url" json:"smsUrl" mapstructure:"sms_url"`
	WechatPath  string         `yaml:"wechat_path" json:"wechatPath" mapstructure:"wechat_path"`
	Bridge      BridgeSettings `yaml:"bridge" json:"bridge" mapstructure:"bridge"`
	QueueOrder  QueueOrder     `yaml:"queue_order" json:"queueOrder" mapstructure:"queue_order"`
	Render      RenderSettings `yaml:"render" json:"render" mapstructure:"render"`
	Alerts      AlertSettings  `yaml:"alerts" json:"alerts" mapstructure:"alerts"`
	Templates   []Template     `yaml:"templates" json:"templates" mapstructure:"templates"`
}

// TemplateByID returns the template with the given ID.
func (s Settings) TemplateByID(id string) (Template, bool) {
	for _, t := range s.Templates {
		if t.ID == id {
			return t, true
		}
	}
	return Template{}, false
}
