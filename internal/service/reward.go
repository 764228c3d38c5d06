package service

import (
	"math"

	"github.com/qs3c/datafair_server/config"
	"github.com/qs3c/datafair_server/internal/model"
)

// RewardFunc 根据资格结果、完成度与基础奖励计算答卷收益
type RewardFunc func(qualified bool, completionPct, baseReward float64) float64

// CalculateReward 按比例折算：
// 未通过资格为 0；完成度 >= 100 得全额；>= 50 按完成度折算；其余为 0
func CalculateReward(qualified bool, completionPct, baseReward float64) float64 {
	if !qualified {
		return 0
	}
	switch {
	case completionPct >= 100:
		return roundCents(baseReward)
	case completionPct >= 50:
		return roundCents(baseReward * (completionPct / 100))
	}
	return 0
}

// CalculateRewardAllOrNothing 只有完成全部必答题才发放奖励
func CalculateRewardAllOrNothing(qualified bool, completionPct, baseReward float64) float64 {
	if !qualified || completionPct < 100 {
		return 0
	}
	return roundCents(baseReward)
}

// RewardPolicy 按配置选择奖励规则，未知值回退到按比例折算
func RewardPolicy(name string) RewardFunc {
	if name == config.RewardPolicyAllOrNothing {
		return CalculateRewardAllOrNothing
	}
	return CalculateReward
}

// CompletionPercentage 已回答的必答题占比，结果在 [0, 100]
// 问卷没有必答题时按全部问题计算，没有问题时视为 100
func CompletionPercentage(questions []*model.Question, answers model.Answers) float64 {
	counted := make([]*model.Question, 0, len(questions))
	for _, q := range questions {
		if q.Required {
			counted = append(counted, q)
		}
	}
	if len(counted) == 0 {
		counted = questions
	}
	if len(counted) == 0 {
		return 100
	}

	answered := 0
	for _, q := range counted {
		if v, ok := answers[q.Key]; ok && v.Answered() {
			answered++
		}
	}

	pct := float64(answered) / float64(len(counted)) * 100
	return math.Min(100, math.Max(0, roundCents(pct)))
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
