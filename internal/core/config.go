package core

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/valter-silva-au/mflow/pkg/models"
	"gopkg.in/yaml.v3"
)

// SettingsFileName is the settings record inside the base directory.
const SettingsFileName = "settings.yaml"

// EnvPrefix prefixes environment overrides, e.g. MFLOW_BRIDGE_URL.
const EnvPrefix = "MFLOW"

// SettingsManager loads, validates and saves the settings record.
type SettingsManager interface {
	Load() (*models.Settings, error)
	Save(settings *models.Settings) error
	Validate(settings *models.Settings) error
	Path() string
}

// viperSettingsManager reads settings.yaml with Viper, applying defaults and
// MFLOW_* environment overrides, and writes it back with yaml.v3.
type viperSettingsManager struct {
	basePath string
}

// NewSettingsManager creates a SettingsManager for settings.yaml in basePath.
func NewSettingsManager(basePath string) SettingsManager {
	return &viperSettingsManager{basePath: basePath}
}

func (sm *viperSettingsManager) Path() string {
	return filepath.Join(sm.basePath, SettingsFileName)
}

// DefaultSettings returns the seed configuration used when no settings file
// exists yet.
func DefaultSettings() *models.Settings {
	return &models.Settings{
		Departments: []string{"技术办", "采购部", "财务科", "办公室", "质保部", "人力资源"},
		Positions:   []string{"总", "工", "处", "部", defaultPlaceholderTitle},
		RPADelayMin: 2,
		RPADelayMax: 5,
		Bridge: models.BridgeSettings{
			URL:     "http://localhost:5000",
			Timeout: 30 * time.Second,
		},
		QueueOrder: models.OrderMostConflictsFirst,
		Render: models.RenderSettings{
			DateStyle:         models.DateMonthDay,
			DefaultTitle:      defaultTitle,
			PlaceholderTitle:  defaultPlaceholderTitle,
			RemotePlaceholder: defaultRemotePlaceholder,
			NotApplicable:     defaultNotApplicable,
			ZeroBudget:        defaultZeroBudget,
			MissingTemplate:   defaultMissingTemplate,
			PublisherDept:     "技术办",
		},
		Alerts: models.AlertSettings{
			ConsecutiveFailures: 3,
			FailureRatePercent:  50,
			MinAttempts:         5,
		},
		Templates: DefaultTemplates(),
	}
}

// DefaultTemplates is the seed template library.
func DefaultTemplates() []models.Template {
	return []models.Template{
		{
			ID:      "sms-default",
			Name:    "标准线下会议短信",
			Type:    models.TemplateSMS,
			Content: "您好！{{时间}}在{{地点}}召开“{{主题}}”会议，届时请您准时参加。(联系人：{{发布部门}} {{联系人}} {{联系电话}})",
		},
		{
			ID:      "wechat-default",
			Name:    "微信详细通知",
			Type:    models.TemplateWechat,
			Content: "{{姓名}}{{职务}}，您好！\n关于“{{主题}}”的会议通知：\n【时间】{{时间}}\n【地点】{{地点}}\n请准时出席，收到请回复。",
		},
		{
			ID:      "wechat-online",
			Name:    "微信线上会议通知",
			Type:    models.TemplateWechat,
			Content: "{{称呼}}您好，关于“{{主题}}”会议通知：\n【时间】{{时间}}\n【线上】{{线上信息}}\n参会人员：{{参会人员}}\n届时请您安排人员参加支持，谢谢。",
		},
		{
			ID:      "multi-default",
			Name:    "多会议合并通知",
			Type:    models.TemplateMulti,
			Content: "{{称呼}}您好，近期共有{{会议数}}场会议需要您参加：\n{{会议列表}}\n请合理安排时间，收到请回复。",
		},
	}
}

// Load reads settings.yaml. A missing file yields DefaultSettings; keys
// absent from the file keep their defaults. A .env file in the base directory
// is loaded first so MFLOW_* variables defined there apply as overrides.
func (sm *viperSettingsManager) Load() (*models.Settings, error) {
	def := DefaultSettings()

	if err := godotenv.Load(filepath.Join(sm.basePath, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(sm.Path())
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("departments", def.Departments)
	v.SetDefault("positions", def.Positions)
	v.SetDefault("rpa_delay_min", def.RPADelayMin)
	v.SetDefault("rpa_delay_max", def.RPADelayMax)
	v.SetDefault("sms_url", def.SMSURL)
	v.SetDefault("wechat_path", def.WechatPath)
	v.SetDefault("bridge.url", def.Bridge.URL)
	v.SetDefault("bridge.timeout", def.Bridge.Timeout)
	v.SetDefault("queue_order", string(def.QueueOrder))
	v.SetDefault("render.date_style", string(def.Render.DateStyle))
	v.SetDefault("render.default_title", def.Render.DefaultTitle)
	v.SetDefault("render.placeholder_title", def.Render.PlaceholderTitle)
	v.SetDefault("render.remote_placeholder", def.Render.RemotePlaceholder)
	v.SetDefault("render.not_applicable", def.Render.NotApplicable)
	v.SetDefault("render.zero_budget", def.Render.ZeroBudget)
	v.SetDefault("render.missing_template", def.Render.MissingTemplate)
	v.SetDefault("render.publisher_dept", def.Render.PublisherDept)
	v.SetDefault("alerts.webhook_url", def.Alerts.WebhookURL)
	v.SetDefault("alerts.consecutive_failures", def.Alerts.ConsecutiveFailures)
	v.SetDefault("alerts.failure_rate_percent", def.Alerts.FailureRatePercent)
	v.SetDefault("alerts.min_attempts", def.Alerts.MinAttempts)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading %s: %w", SettingsFileName, err)
		}
	}

	cfg := &models.Settings{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", SettingsFileName, err)
	}
	if !v.InConfig("templates") {
		cfg.Templates = def.Templates
	}

	return cfg, nil
}

// Save writes the whole settings record back to settings.yaml.
func (sm *viperSettingsManager) Save(settings *models.Settings) error {
	if settings == nil {
		return fmt.Errorf("saving settings: settings is nil")
	}
	if err := os.MkdirAll(sm.basePath, 0o750); err != nil {
		return fmt.Errorf("saving settings: creating directory: %w", err)
	}
	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("saving settings: marshaling YAML: %w", err)
	}
	if err := os.WriteFile(sm.Path(), data, 0o600); err != nil {
		return fmt.Errorf("saving settings: writing file: %w", err)
	}
	return nil
}

// Validate checks settings for values the engine cannot work with and
// templates with unresolvable tokens, reporting every problem at once.
func (sm *viperSettingsManager) Validate(settings *models.Settings) error {
	return ValidateSettings(settings)
}

// ValidateSettings is the implementation behind SettingsManager.Validate.
func ValidateSettings(settings *models.Settings) error {
	if settings == nil {
		return fmt.Errorf("settings is nil")
	}

	var errs []string

	if settings.RPADelayMin < 0 || settings.RPADelayMax < 0 {
		errs = append(errs, "rpa delays must not be negative")
	}
	if settings.RPADelayMin > settings.RPADelayMax {
		errs = append(errs, fmt.Sprintf("rpa_delay_min (%d) exceeds rpa_delay_max (%d)", settings.RPADelayMin, settings.RPADelayMax))
	}
	// Zero or negative turns the failure-rate alert off.
	if settings.Alerts.FailureRatePercent > 100 {
		errs = append(errs, fmt.Sprintf("alerts.failure_rate_percent (%d) must not exceed 100", settings.Alerts.FailureRatePercent))
	}
	if settings.Bridge.Timeout < 0 {
		errs = append(errs, "bridge.timeout must not be negative")
	}
	switch settings.QueueOrder {
	case "", models.OrderMostConflictsFirst, models.OrderFewestConflictsFirst:
	default:
		errs = append(errs, fmt.Sprintf("queue_order %q must be %q or %q", settings.QueueOrder, models.OrderMostConflictsFirst, models.OrderFewestConflictsFirst))
	}
	switch settings.Render.DateStyle {
	case "", models.DateMonthDay, models.DateWeekday:
	default:
		errs = append(errs, fmt.Sprintf("render.date_style %q must be %q or %q", settings.Render.DateStyle, models.DateMonthDay, models.DateWeekday))
	}

	ids := make(map[string]bool, len(settings.Templates))
	multi := 0
	for i, t := range settings.Templates {
		label := t.ID
		if label == "" {
			label = fmt.Sprintf("#%d", i+1)
			errs = append(errs, fmt.Sprintf("template %s has no id", label))
		} else if ids[t.ID] {
			errs = append(errs, fmt.Sprintf("template id %q is used more than once", t.ID))
		}
		ids[t.ID] = true

		if !t.Type.Valid() {
			errs = append(errs, fmt.Sprintf("template %s has unknown type %q", label, t.Type))
		}
		if t.Type == models.TemplateMulti {
			multi++
		}
		for _, p := range ValidateTemplate(t) {
			errs = append(errs, fmt.Sprintf("template %s: %s", label, p))
		}
	}
	if multi > 1 {
		errs = append(errs, fmt.Sprintf("%d %s templates configured, at most one is allowed", multi, models.TemplateMulti))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid settings:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
