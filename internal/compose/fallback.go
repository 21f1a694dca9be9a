package compose

import (
	"strings"
	"time"
)

var weekdays = map[time.Weekday]string{
	time.Monday:    "周一",
	time.Tuesday:   "周二",
	time.Wednesday: "周三",
	time.Thursday:  "周四",
	time.Friday:    "周五",
	time.Saturday:  "周六",
	time.Sunday:    "周日",
}

// DateInfo renders the current date header injected into prompts.
func DateInfo(now time.Time) string {
	return "今天是 " + now.Format("2006年01月02日") + " " + weekdays[now.Weekday()]
}

// lookupKeywords flag messages that ask about current facts. Short
// messages containing one get a synthesized lookup note appended to the
// context before the model is called.
var lookupKeywords = []string{"天气", "新闻", "今天", "现在", "最新", "股价", "汇率", "时间", "几号", "日期"}

func needsLookup(text string) bool {
	if len([]rune(text)) >= 100 {
		return false
	}
	for _, kw := range lookupKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// lookupAnswer synthesizes an answer for realtime questions. There is
// no live search backend, so everything reduces to the date header.
func lookupAnswer(query string, now time.Time) string {
	info := DateInfo(now)
	if strings.Contains(query, "天气") {
		return info + "。由于天气查询需要定位信息，建议查看手机天气应用获取准确的当地天气。"
	}
	if strings.Contains(query, "几号") || strings.Contains(query, "日期") ||
		strings.Contains(query, "时间") || strings.Contains(query, "今天") {
		return info
	}
	return info + "。其他实时信息建议查看相关应用或网站。"
}

// fallbackReply produces a canned response keyed on the last user
// message. Used when no API key is configured or the model call fails.
func fallbackReply(lastUserMessage string, now time.Time) string {
	msg := lastUserMessage
	switch {
	case strings.Contains(msg, "天气"):
		return "抱歉，我无法获取实时天气信息。你可以查看天气预报应用，然后告诉我天气怎么样，我会记录到你的日记中。"
	case strings.Contains(msg, "时间"), strings.Contains(msg, "日期"), strings.Contains(msg, "今天几号"):
		return DateInfo(now) + "。有什么想记录的吗？"
	case strings.Contains(msg, "今天"), strings.Contains(msg, "日记"):
		return "今天发生了什么有趣的事情吗？可以和我分享一下。"
	case strings.Contains(msg, "早上"), strings.Contains(msg, "上午"):
		return "上午过得怎么样？完成了哪些事情？"
	case strings.Contains(msg, "下午"), strings.Contains(msg, "晚上"):
		return "下午/晚上有什么特别的经历吗？"
	case strings.Contains(msg, "心情"), strings.Contains(msg, "感觉"):
		return "理解你的感受。还有什么想记录的吗？"
	case strings.Contains(msg, "结束"), strings.Contains(msg, "完成"), strings.Contains(msg, "整理"):
		return "好的，我来帮你整理今天的日记。"
	default:
		return "嗯，我明白了。还有其他想分享的吗？"
	}
}
