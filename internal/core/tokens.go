package core

import (
	"fmt"
	"regexp"

	"github.com/valter-silva-au/mflow/pkg/models"
)

// Token names understood by the renderer. A template refers to them as
// {{name}}.
const (
	TokenName          = "姓名"
	TokenSurname       = "姓"
	TokenTitle         = "职务"
	TokenHonorific     = "称呼"
	TokenDate          = "日期"
	TokenClock         = "时刻"
	TokenPeriod        = "时段"
	TokenTime          = "时间"
	TokenSubject       = "主题"
	TokenLocation      = "地点"
	TokenMeetingID     = "会议号"
	TokenMeetingLink   = "会议链接"
	TokenOnlineInfo    = "线上信息"
	TokenAttendees     = "参会人员"
	TokenContactPerson = "联系人"
	TokenContactPhone  = "联系电话"
	TokenPublisherDept = "发布部门"
	TokenProcureMethod = "采购方式"
	TokenProcureBudget = "预算"
	TokenConflictCount = "会议数"
	TokenMeetingList   = "会议列表"
)

// KnownTokens lists every token in the order the settings editor offers them.
var KnownTokens = []string{
	TokenName, TokenSurname, TokenTitle, TokenHonorific,
	TokenTime, TokenDate, TokenPeriod, TokenClock,
	TokenSubject, TokenLocation, TokenMeetingID, TokenMeetingLink, TokenOnlineInfo,
	TokenAttendees, TokenContactPerson, TokenContactPhone, TokenPublisherDept,
	TokenProcureMethod, TokenProcureBudget, TokenConflictCount, TokenMeetingList,
}

var knownTokenSet = func() map[string]bool {
	m := make(map[string]bool, len(KnownTokens))
	for _, t := range KnownTokens {
		m[t] = true
	}
	return m
}()

var tokenPattern = regexp.MustCompile(`\{\{([^{}]*)\}\}`)

// Placeholder returns the literal placeholder for a token name.
func Placeholder(token string) string {
	return "{{" + token + "}}"
}

// TemplateTokens returns the distinct placeholder names used in content, in
// order of first use.
func TemplateTokens(content string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, m := range tokenPattern.FindAllStringSubmatch(content, -1) {
		if seen[m[1]] {
			continue
		}
		seen[m[1]] = true
		names = append(names, m[1])
	}
	return names
}

// ValidateTemplate reports problems that would leave a template visibly
// incomplete at render time: unknown placeholders, and the meeting list
// token used outside a multi template. An empty result means the template is
// clean.
func ValidateTemplate(tmpl models.Template) []string {
	var problems []string
	for _, name := range TemplateTokens(tmpl.Content) {
		if !knownTokenSet[name] {
			problems = append(problems, fmt.Sprintf("unknown token %s", Placeholder(name)))
			continue
		}
		if name == TokenMeetingList && tmpl.Type != models.TemplateMulti {
			problems = append(problems, fmt.Sprintf("%s is only filled in %s templates", Placeholder(name), models.TemplateMulti))
		}
	}
	return problems
}
