package parser

import (
	"strings"
)

// ExtractJSONObject 从LLM输出文本中按花括号配平截取第一个JSON对象。
// 模型偶尔会在JSON前后输出解释文字或Markdown围栏，这里一并容忍。
func ExtractJSONObject(text string) string {
	text = strings.TrimPrefix(text, "\uFEFF")

	start := strings.Index(text, "{")
	if start == -1 {
		return ""
	}
	level := 0
	inStr := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\':
			escaped = true
		case c == '"':
			inStr = !inStr
		case !inStr && c == '{':
			level++
		case !inStr && c == '}':
			level--
			if level == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}
