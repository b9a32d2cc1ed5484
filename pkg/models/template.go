package models

// TemplateType is the channel a template is written for. Multi templates
// render people who are implicated in more than one open meeting.
type TemplateType string

const (
	TemplateWechat TemplateType = "wechat"
	TemplateSMS    TemplateType = "sms"
	TemplateMulti  TemplateType = "multi"
)

// Channel is the delivery channel selected by the operator.
type Channel string

const (
	ChannelWechat Channel = "wechat"
	ChannelSMS    Channel = "sms"
)

// Valid reports whether c is a channel the engine can render for.
func (c Channel) Valid() bool {
	return c == ChannelWechat || c == ChannelSMS
}

// Valid reports whether t is a known template type.
func (t TemplateType) Valid() bool {
	switch t {
	case TemplateWechat, TemplateSMS, TemplateMulti:
		return true
	}
	return false
}

// Template is a named message body with {{token}} placeholders.
type Template struct {
	ID      string       `yaml:"id" json:"id" mapstructure:"id"`
	Name    string       `yaml:"name" json:"name" mapstructure:"name"`
	Type    TemplateType `yaml:"type" json:"type" mapstructure:"type"`
	Content string       `yaml:"content" json:"content" mapstructure:"content"`
}
