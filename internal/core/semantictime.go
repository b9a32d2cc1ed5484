package core

import (
	"fmt"
	"time"

	"github.com/valter-silva-au/mflow/pkg/models"
)

var weekdayNames = [7]string{"日", "一", "二", "三", "四", "五", "六"}

// SemanticTime is a meeting start time phrased relative to an evaluation
// instant: Date is 今天/明天/后天 or a calendar phrase, Period is 上午/下午,
// Clock is the zero-padded 24-hour HH:MM.
type SemanticTime struct {
	Date   string
	Period string
	Clock  string
}

// Full joins the parts the way notices print them, e.g. "明天上午09:00".
func (s SemanticTime) Full() string {
	return s.Date + s.Period + s.Clock
}

// FormatSemanticTime phrases start relative to now. Both instants are read in
// now's location and compared by calendar day, so the result does not depend
// on the time of day now falls at.
func FormatSemanticTime(start, now time.Time, style models.DateStyle) SemanticTime {
	start = start.In(now.Location())

	period := "上午"
	if start.Hour() >= 12 {
		period = "下午"
	}

	return SemanticTime{
		Date:   semanticDate(start, now, style),
		Period: period,
		Clock:  fmt.Sprintf("%02d:%02d", start.Hour(), start.Minute()),
	}
}

func semanticDate(start, now time.Time, style models.DateStyle) string {
	diff := dayDiff(civilDay(now), civilDay(start))
	switch diff {
	case 0:
		return "今天"
	case 1:
		return "明天"
	case 2:
		return "后天"
	}

	monthDay := fmt.Sprintf("%d月%d日", int(start.Month()), start.Day())
	if style != models.DateWeekday || diff < 0 {
		return monthDay
	}

	// Weeks run Monday to Sunday.
	week := dayDiff(weekStart(civilDay(now)), weekStart(civilDay(start))) / 7
	name := weekdayNames[start.Weekday()]
	switch week {
	case 0:
		return "本周" + name
	case 1:
		return "下周" + name
	}
	return monthDay
}

// civilDay drops the clock and zone, keeping the calendar date as a UTC
// midnight so day arithmetic is immune to DST transitions.
func civilDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func weekStart(day time.Time) time.Time {
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

func dayDiff(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}
