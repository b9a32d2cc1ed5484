package core

import (
	"time"

	"github.com/valter-silva-au/mflow/pkg/models"
)

// evalNow pins the evaluation instant used by rendering tests.
var evalNow = time.Date(2024, 1, 9, 10, 30, 0, 0, time.UTC)

func participant(contactID string) models.ParticipantStatus {
	return models.ParticipantStatus{
		ContactID: contactID,
		Mode:      models.ParticipantOffline,
		Files:     models.DefaultFiles(),
	}
}

func meeting(id, subject, when string, participants ...models.ParticipantStatus) models.MeetingTask {
	return models.MeetingTask{
		ID:           id,
		Subject:      subject,
		Time:         when,
		Location:     "三楼会议室",
		Mode:         models.MeetingOffline,
		Status:       models.TaskDraft,
		Participants: participants,
	}
}

// sharedAttendeeFixture has 张三 (a) invited to both 预算评审 and 设计评审
// and 李四 (b) invited to 预算评审 only.
func sharedAttendeeFixture() ([]models.MeetingTask, []models.Contact) {
	contacts := []models.Contact{
		{ID: "b", Name: "李四", Position: "工", Phone: "13800000002", WechatRemark: "李四-技术"},
		{ID: "a", Name: "张三", Position: "总", Phone: "13800000001", WechatRemark: "张三-采购"},
	}
	tasks := []models.MeetingTask{
		meeting("t1", "预算评审", "2024-01-10T09:00", participant("a"), participant("b")),
		meeting("t2", "设计评审", "2024-01-10T14:00", participant("a")),
	}
	return tasks, contacts
}

func testTemplates() []models.Template {
	return []models.Template{
		{ID: "wechat-default", Name: "微信", Type: models.TemplateWechat, Content: "{{称呼}}：{{时间}}在{{地点}}召开“{{主题}}”会议。"},
		{ID: "sms-default", Name: "短信", Type: models.TemplateSMS, Content: "{{姓名}}您好，{{时间}}“{{主题}}”。"},
		{ID: "wechat-online", Name: "线上", Type: models.TemplateWechat, Content: "{{称呼}}：{{线上信息}}"},
		{ID: "multi-default", Name: "合并", Type: models.TemplateMulti, Content: "{{称呼}}，共{{会议数}}场：\n{{会议列表}}"},
	}
}
