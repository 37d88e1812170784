package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// 模型输出修复阶段的典型失败
var (
	// ErrNoJSON 响应文本里找不到一个完整的JSON对象
	ErrNoJSON = errors.New("响应中未找到JSON对象")
	// ErrJSONSyntax 提取出的片段仍然不是合法JSON
	ErrJSONSyntax = errors.New("JSON语法错误")
)

// RepairModelJSON 从LLM的自由文本响应中恢复出一个JSON对象
// 修复分两步：先剥离markdown代码围栏，再按花括号配对扫描出最外层对象；
// 两步都失败时返回ErrNoJSON。这一阶段只负责"把JSON捞出来"，
// 字段级别的类型矫正交给调用方
func RepairModelJSON(response string) (string, error) {
	cleaned := stripCodeFences(response)

	extracted := extractJSONObject(cleaned)
	if extracted == "" {
		return "", fmt.Errorf("%w: 响应长度=%d", ErrNoJSON, len(response))
	}
	return extracted, nil
}

// DecodeModelJSON 修复并反序列化模型输出到目标结构
func DecodeModelJSON(response string, v interface{}) error {
	extracted, err := RepairModelJSON(response)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(extracted), v); err != nil {
		return fmt.Errorf("%w: %v", ErrJSONSyntax, err)
	}
	return nil
}

// stripCodeFences 去掉```json ... ```这类markdown围栏
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "```") {
		// 去掉首行围栏（可能带语言标记）
		if idx := strings.Index(s, "\n"); idx >= 0 {
			s = s[idx+1:]
		} else {
			s = strings.TrimPrefix(s, "```json")
			s = strings.TrimPrefix(s, "```")
		}
	}
	if idx := strings.LastIndex(s, "```"); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

// extractJSONObject 按花括号层级扫描，返回文本中第一个配平的最外层对象
// 忽略字符串字面量内部的花括号
func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]

		if escaped {
			escaped = false
			continue
		}

		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return s[start : i+1]
				}
			}
		}
	}
	return ""
}

// CoerceString 宽容地把任意JSON值转成字符串
func CoerceString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return fmt.Sprintf("%g", val)
	case bool:
		return fmt.Sprintf("%t", val)
	case nil:
		return ""
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// CoerceFloat 宽容地把任意JSON值转成float64，失败时返回0
func CoerceFloat(v interface{}) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case string:
		var f float64
		if _, err := fmt.Sscanf(strings.TrimSpace(val), "%g", &f); err == nil {
			return f
		}
		return 0
	case bool:
		if val {
			return 1
		}
		return 0
	default:
		return 0
	}
}

// CoerceStringSlice 宽容地把任意JSON值转成字符串切片
// 单个字符串被包装为单元素切片，其他类型返回空切片
func CoerceStringSlice(v interface{}) []string {
	switch val := v.(type) {
	case []interface{}:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s := CoerceString(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return val
	case string:
		if val == "" {
			return []string{}
		}
		return []string{val}
	default:
		return []string{}
	}
}
