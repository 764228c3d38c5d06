package service

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/qs3c/datafair_server/internal/model"
	"github.com/qs3c/datafair_server/internal/model/dto"
	"github.com/qs3c/datafair_server/internal/pkg/metrics"
	"github.com/qs3c/datafair_server/internal/repository"
)

var ErrIncompleteQualification = errors.New("请先回答所有筛选问题")

const defaultDisqualifyReason = "不符合参与条件"

// DisqualifiedError 筛选答案不匹配，仅报告第一个不符合的问题
type DisqualifiedError struct {
	QuestionID string
	Reason     string
}

func (e *DisqualifiedError) Error() string {
	return e.Reason
}

// CheckQualification 逐个核对筛选问题，第一个失败即返回。
// 条件为空时直接通过；缺少答案返回 ErrIncompleteQualification
func CheckQualification(criteria *model.QualificationCriteria, answers model.Answers) error {
	if criteria.IsEmpty() {
		return nil
	}

	for _, q := range criteria.Questions {
		answer, ok := answers[q.ID]
		if !ok || !answer.Answered() {
			return fmt.Errorf("%w: %s", ErrIncompleteQualification, q.ID)
		}
		if q.RequiredAnswer == nil {
			continue
		}
		if !answer.Equal(*q.RequiredAnswer) {
			reason := strings.TrimSpace(q.DisqualifyReason)
			if reason == "" {
				reason = defaultDisqualifyReason
			}
			return &DisqualifiedError{QuestionID: q.ID, Reason: reason}
		}
	}
	return nil
}

type QualificationService struct {
	surveyRepo        *repository.SurveyRepository
	qualificationRepo *repository.QualificationRepository
}

func NewQualificationService(
	surveyRepo *repository.SurveyRepository,
	qualificationRepo *repository.QualificationRepository,
) *QualificationService {
	return &QualificationService{
		surveyRepo:        surveyRepo,
		qualificationRepo: qualificationRepo,
	}
}

// Check 对用户提交的筛选答案做资格检查，每次检查都会留存记录
func (s *QualificationService) Check(userID, surveyID int64, answers model.Answers) (*dto.QualifyResponse, error) {
	survey, err := s.surveyRepo.GetByID(surveyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSurveyNotFound
		}
		return nil, err
	}

	checkErr := CheckQualification(&survey.QualificationCriteria, answers)

	record := &model.QualificationResponse{
		SurveyID:  surveyID,
		UserID:    userID,
		Answers:   answers,
		Qualified: checkErr == nil,
	}

	var disqualified *DisqualifiedError
	result := "qualified"
	switch {
	case checkErr == nil:
	case errors.As(checkErr, &disqualified):
		result = "disqualified"
		record.Reason = disqualified.Reason
	case errors.Is(checkErr, ErrIncompleteQualification):
		result = "incomplete"
		record.Reason = checkErr.Error()
	default:
		return nil, checkErr
	}

	if err := s.qualificationRepo.Create(record); err != nil {
		return nil, err
	}
	metrics.QualificationChecksTotal.WithLabelValues(result).Inc()

	if checkErr != nil {
		return nil, checkErr
	}
	return &dto.QualifyResponse{Qualified: true}, nil
}

// Passed 用户在该问卷上的最近一次资格检查是否通过
func (s *QualificationService) Passed(survey *model.Survey, userID int64) (bool, error) {
	if survey.QualificationCriteria.IsEmpty() {
		return true, nil
	}

	latest, err := s.qualificationRepo.Latest(survey.ID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return latest.Qualified, nil
}
