package model

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// AnswerKind 答案值的类型标签
type AnswerKind string

const (
	AnswerBool    AnswerKind = "bool"
	AnswerChoice  AnswerKind = "choice"
	AnswerChoices AnswerKind = "choices"
	AnswerNumber  AnswerKind = "number"
	AnswerText    AnswerKind = "text"
	AnswerDate    AnswerKind = "date"
)

var (
	ErrEmptyAnswer       = errors.New("答案不能为空")
	ErrUnsupportedAnswer = errors.New("不支持的答案格式")
)

// AnswerValue 单个问题的答案（标签联合）
// Text 同时承载 text、choice 与 date（YYYY-MM-DD）三种字符串类答案
type AnswerValue struct {
	Kind    AnswerKind
	Bool    bool
	Number  float64
	Text    string
	Choices []string
}

func BoolAnswer(b bool) AnswerValue {
	return AnswerValue{Kind: AnswerBool, Bool: b}
}

func NumberAnswer(n float64) AnswerValue {
	return AnswerValue{Kind: AnswerNumber, Number: n}
}

func TextAnswer(s string) AnswerValue {
	return AnswerValue{Kind: AnswerText, Text: s}
}

func ChoiceAnswer(s string) AnswerValue {
	return AnswerValue{Kind: AnswerChoice, Text: s}
}

func ChoicesAnswer(choices ...string) AnswerValue {
	return AnswerValue{Kind: AnswerChoices, Choices: choices}
}

func DateAnswer(s string) AnswerValue {
	return AnswerValue{Kind: AnswerDate, Text: s}
}

func (a AnswerValue) isString() bool {
	return a.Kind == AnswerText || a.Kind == AnswerChoice || a.Kind == AnswerDate
}

// Answered 是否为有效作答（空字符串、空多选视为未作答）
func (a AnswerValue) Answered() bool {
	switch {
	case a.Kind == "":
		return false
	case a.isString():
		return strings.TrimSpace(a.Text) != ""
	case a.Kind == AnswerChoices:
		return len(a.Choices) > 0
	default:
		return true
	}
}

// Equal 比较两个答案；字符串类答案之间按文本比较，多选按顺序比较
func (a AnswerValue) Equal(b AnswerValue) bool {
	switch {
	case a.isString() && b.isString():
		return a.Text == b.Text
	case a.Kind != b.Kind:
		return false
	case a.Kind == AnswerBool:
		return a.Bool == b.Bool
	case a.Kind == AnswerNumber:
		return a.Number == b.Number
	case a.Kind == AnswerChoices:
		if len(a.Choices) != len(b.Choices) {
			return false
		}
		for i := range a.Choices {
			if a.Choices[i] != b.Choices[i] {
				return false
			}
		}
		return true
	}
	return a.Kind == ""
}

// String 用于日志和错误信息
func (a AnswerValue) String() string {
	switch {
	case a.isString():
		return a.Text
	case a.Kind == AnswerBool:
		return strconv.FormatBool(a.Bool)
	case a.Kind == AnswerNumber:
		return strconv.FormatFloat(a.Number, 'f', -1, 64)
	case a.Kind == AnswerChoices:
		return "[" + strings.Join(a.Choices, ",") + "]"
	}
	return "<empty>"
}

func (a AnswerValue) MarshalJSON() ([]byte, error) {
	switch {
	case a.Kind == AnswerBool:
		return json.Marshal(a.Bool)
	case a.Kind == AnswerNumber:
		return json.Marshal(a.Number)
	case a.Kind == AnswerChoices:
		if a.Choices == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(a.Choices)
	case a.isString():
		return json.Marshal(a.Text)
	}
	return []byte("null"), nil
}

// UnmarshalJSON 根据 JSON 字面量推断类型，具体类型由 Question.Coerce 在入口处校正
func (a *AnswerValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return ErrEmptyAnswer
	}

	switch data[0] {
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*a = BoolAnswer(b)
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = TextAnswer(s)
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		choices := make([]string, 0, len(items))
		for _, item := range items {
			choice, err := rawToString(item)
			if err != nil {
				return err
			}
			choices = append(choices, choice)
		}
		*a = ChoicesAnswer(choices...)
	case '{':
		return ErrUnsupportedAnswer
	default:
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*a = NumberAnswer(n)
	}
	return nil
}

func rawToString(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return strconv.FormatFloat(n, 'f', -1, 64), nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedAnswer, string(raw))
}

// Answers 问题 ID 到答案的映射，以 JSON 存储
type Answers map[string]AnswerValue

func (a Answers) Value() (driver.Value, error) {
	if a == nil {
		return "{}", nil
	}
	data, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (a *Answers) Scan(value interface{}) error {
	*a = Answers{}
	var data []byte
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported answers column type %T", value)
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, a)
}

// Merge 按问题 ID 合并答案，后写覆盖
func (a Answers) Merge(other Answers) Answers {
	merged := make(Answers, len(a)+len(other))
	for k, v := range a {
		merged[k] = v
	}
	for k, v := range other {
		merged[k] = v
	}
	return merged
}
