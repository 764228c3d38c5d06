package model

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidAnswer = errors.New("答案与问题类型不匹配")

const defaultScaleMax = 10

// Coerce 按问题类型校验并规范化答案，非法答案在入口处被拒绝
func (q *Question) Coerce(v AnswerValue) (AnswerValue, error) {
	switch q.Type {
	case QuestionBoolean:
		if v.Kind != AnswerBool {
			return AnswerValue{}, q.invalid(v)
		}
		return v, nil

	case QuestionText:
		if !v.isString() {
			return AnswerValue{}, q.invalid(v)
		}
		return TextAnswer(v.Text), nil

	case QuestionNumber:
		switch {
		case v.Kind == AnswerNumber:
			return v, nil
		case v.isString():
			n, err := strconv.ParseFloat(strings.TrimSpace(v.Text), 64)
			if err != nil {
				return AnswerValue{}, q.invalid(v)
			}
			return NumberAnswer(n), nil
		}
		return AnswerValue{}, q.invalid(v)

	case QuestionScale:
		if v.Kind != AnswerNumber || v.Number != math.Trunc(v.Number) {
			return AnswerValue{}, q.invalid(v)
		}
		max := defaultScaleMax
		if len(q.Options) > 0 {
			max = len(q.Options)
		}
		if v.Number < 1 || v.Number > float64(max) {
			return AnswerValue{}, q.invalid(v)
		}
		return v, nil

	case QuestionDate:
		if !v.isString() {
			return AnswerValue{}, q.invalid(v)
		}
		if _, err := time.Parse("2006-01-02", v.Text); err != nil {
			return AnswerValue{}, q.invalid(v)
		}
		return DateAnswer(v.Text), nil

	case QuestionSingleChoice:
		var choice string
		switch {
		case v.isString():
			choice = v.Text
		case v.Kind == AnswerNumber:
			choice = strconv.FormatFloat(v.Number, 'f', -1, 64)
		default:
			return AnswerValue{}, q.invalid(v)
		}
		if !q.hasOption(choice) {
			return AnswerValue{}, q.invalid(v)
		}
		return ChoiceAnswer(choice), nil

	case QuestionMultipleChoice:
		var choices []string
		switch {
		case v.Kind == AnswerChoices:
			choices = v.Choices
		case v.isString():
			choices = []string{v.Text}
		default:
			return AnswerValue{}, q.invalid(v)
		}
		seen := make(map[string]bool, len(choices))
		normalized := make([]string, 0, len(choices))
		for _, c := range choices {
			if !q.hasOption(c) {
				return AnswerValue{}, q.invalid(v)
			}
			if seen[c] {
				continue
			}
			seen[c] = true
			normalized = append(normalized, c)
		}
		return ChoicesAnswer(normalized...), nil
	}

	return AnswerValue{}, fmt.Errorf("%w: 未知问题类型 %s", ErrInvalidAnswer, q.Type)
}

// hasOption 未配置选项时接受任意值
func (q *Question) hasOption(choice string) bool {
	if len(q.Options) == 0 {
		return true
	}
	for _, opt := range q.Options {
		if opt == choice {
			return true
		}
	}
	return false
}

func (q *Question) invalid(v AnswerValue) error {
	return fmt.Errorf("%w: 问题 %s (%s) 收到 %s", ErrInvalidAnswer, q.Key, q.Type, v.String())
}
