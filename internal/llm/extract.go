package llm

import (
	"encoding/json"
	"errors"
)

// ErrNoJSONObject 表示模型输出中找不到可解析的 JSON 对象。
var ErrNoJSONObject = errors.New("模型输出中没有 JSON 对象")

// ExtractJSONObject 从模型的自由文本输出中提取第一个顶层 JSON 对象。
//
// 真实模型经常在 JSON 负载前后附带解释性文字或代码围栏，直接整体解析
// 会失败。这里按括号深度扫描，忽略字符串字面量内部的括号与转义字符；
// 找到的片段还要能通过一次标准解析才会被返回，否则视为无有效负载。
func ExtractJSONObject(text string) ([]byte, error) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 && start >= 0 {
				candidate := []byte(text[start : i+1])
				if json.Valid(candidate) {
					return candidate, nil
				}
				// 无效片段，继续向后扫描。
				start = -1
			}
		}
	}
	return nil, ErrNoJSONObject
}
