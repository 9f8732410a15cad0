package queue

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
	"20060102",
}

// minEpochMillisDigits 毫秒时间戳的最少位数，更短的纯数字按日期格式解析
const minEpochMillisDigits = 11

// ParseTimestamp 解析后端时间戳
// 支持 ISO-8601（无时区按 UTC）与毫秒级 Unix 时间
func ParseTimestamp(value Text) (time.Time, bool) {
	s := strings.TrimSpace(string(value))
	if s == "" {
		return time.Time{}, false
	}

	if len(s) >= minEpochMillisDigits {
		if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
			return time.UnixMilli(ms), true
		}
	}

	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatCountdown 倒计时展示，格式 M:SS
func FormatCountdown(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// FormatTimeAgo 相对时间（粗粒度）
func FormatTimeAgo(received Text, now time.Time) string {
	ts, ok := ParseTimestamp(received)
	if !ok {
		return "Unknown"
	}

	diffMs := now.UnixMilli() - ts.UnixMilli()
	minutes := floorDiv(diffMs, int64(time.Minute/time.Millisecond))

	switch {
	case minutes < 1:
		return "Just now"
	case minutes == 1:
		return "1 minute ago"
	case minutes < 60:
		return fmt.Sprintf("%d minutes ago", minutes)
	}

	hours := minutes / 60
	if hours == 1 {
		return "1 hour ago"
	}
	return fmt.Sprintf("%d hours ago", hours)
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
