package agent

import (
	"regexp"
	"strings"
	"time"
)

// Default hours for day-period expressions.
const (
	morningHour   = 10
	afternoonHour = 15
	eveningHour   = 19
)

var absoluteLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02 15:04",
	"2006/01/02",
}

var clockPattern = regexp.MustCompile(`(\d{1,2})[:：点](\d{2})?`)

var chineseDigits = map[string]int{
	"一": 1, "二": 2, "两": 2, "三": 3, "四": 4, "五": 5,
	"六": 6, "七": 7, "八": 8, "九": 9, "十": 10, "十一": 11, "十二": 12,
}

var chineseClockPattern = regexp.MustCompile(`(十[一二]?|[一二两三四五六七八九])点`)

// ResolveTimeExpression turns a relative or absolute time expression
// (Chinese or English) into a concrete timestamp. Returns false when the
// expression cannot be parsed. Callers enforce the future requirement.
func ResolveTimeExpression(expr string, now time.Time) (time.Time, bool) {
	e := strings.TrimSpace(expr)
	if e == "" {
		return time.Time{}, false
	}

	for _, layout := range absoluteLayouts {
		if t, err := time.ParseInLocation(layout, e, now.Location()); err == nil {
			return t, true
		}
	}

	lower := strings.ToLower(e)
	dayOffset, dayKnown := dayOffsetOf(lower)
	hour, minute, clockKnown := clockOf(e, lower)

	if !dayKnown && !clockKnown {
		return time.Time{}, false
	}
	if !clockKnown {
		hour, minute = afternoonHour, 0
	}

	base := now.AddDate(0, 0, dayOffset)
	resolved := time.Date(base.Year(), base.Month(), base.Day(), hour, minute, 0, 0, now.Location())
	// A bare time-of-day that already passed today means the next occurrence.
	if !dayKnown && !resolved.After(now) {
		resolved = resolved.AddDate(0, 0, 1)
	}
	return resolved, true
}

func dayOffsetOf(lower string) (int, bool) {
	switch {
	case strings.Contains(lower, "后天"), strings.Contains(lower, "day after tomorrow"):
		return 2, true
	case strings.Contains(lower, "明天"), strings.Contains(lower, "tomorrow"):
		return 1, true
	case strings.Contains(lower, "今天"), strings.Contains(lower, "today"), strings.Contains(lower, "tonight"):
		return 0, true
	}
	return 0, false
}

func clockOf(raw, lower string) (int, int, bool) {
	period := 0
	periodKnown := false
	switch {
	case strings.Contains(lower, "上午"), strings.Contains(lower, "早上"), strings.Contains(lower, "morning"):
		period, periodKnown = morningHour, true
	case strings.Contains(lower, "下午"), strings.Contains(lower, "afternoon"):
		period, periodKnown = afternoonHour, true
	case strings.Contains(lower, "晚上"), strings.Contains(lower, "evening"), strings.Contains(lower, "tonight"), strings.Contains(lower, "night"):
		period, periodKnown = eveningHour, true
	}

	if m := clockPattern.FindStringSubmatch(raw); m != nil {
		hour := atoi(m[1])
		minute := 0
		if m[2] != "" {
			minute = atoi(m[2])
		}
		if hour <= 12 && periodKnown && period >= 12 {
			hour += 12
			if hour == 24 {
				hour = 12
			}
		}
		if hour < 24 {
			return hour, minute, true
		}
	}
	if m := chineseClockPattern.FindStringSubmatch(raw); m != nil {
		hour := chineseDigits[m[1]]
		if periodKnown && period >= 12 && hour <= 12 {
			hour += 12
			if hour == 24 {
				hour = 12
			}
		}
		return hour, 0, true
	}
	if periodKnown {
		return period, 0, true
	}
	return 0, 0, false
}

func atoi(s string) int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	return n
}
