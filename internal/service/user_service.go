package service

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/qs3c/datafair_server/internal/model"
	"github.com/qs3c/datafair_server/internal/model/dto"
	"github.com/qs3c/datafair_server/internal/repository"
)

var (
	ErrEmptyName        = errors.New("姓名不能为空")
	ErrWrongPassword    = errors.New("当前密码不正确")
	ErrPayoutInProgress = errors.New("存在未结算的提现，暂时无法注销账户")
)

type UserService struct {
	db             *gorm.DB
	userRepo       *repository.UserRepository
	responseRepo   *repository.ResponseRepository
	earningRepo    *repository.EarningRepository
	payoutRepo     *repository.PayoutRepository
	permissionRepo *repository.PermissionRepository
}

func NewUserService(
	db *gorm.DB,
	userRepo *repository.UserRepository,
	responseRepo *repository.ResponseRepository,
	earningRepo *repository.EarningRepository,
	payoutRepo *repository.PayoutRepository,
	permissionRepo *repository.PermissionRepository,
) *UserService {
	return &UserService{
		db:             db,
		userRepo:       userRepo,
		responseRepo:   responseRepo,
		earningRepo:    earningRepo,
		payoutRepo:     payoutRepo,
		permissionRepo: permissionRepo,
	}
}

func (s *UserService) getUser(userID int64) (*model.User, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// GetProfile 获取用户详情及收益统计
func (s *UserService) GetProfile(userID int64) (*dto.UserProfile, error) {
	user, err := s.getUser(userID)
	if err != nil {
		return nil, err
	}

	completed, err := s.responseRepo.CountByUserStatus(userID, model.ResponseStatusCompleted)
	if err != nil {
		return nil, err
	}
	credited, err := s.earningRepo.CreditedTotal(userID)
	if err != nil {
		return nil, err
	}
	committed, err := s.payoutRepo.CommittedTotal(userID)
	if err != nil {
		return nil, err
	}

	return &dto.UserProfile{
		UserInfo:         buildUserInfo(user),
		CompletedSurveys: completed,
		TotalEarnings:    roundCents(credited),
		AvailableBalance: clampBalance(credited, committed),
	}, nil
}

// UpdateProfile 更新姓名
func (s *UserService) UpdateProfile(userID int64, req *dto.UpdateProfileRequest) (*dto.UserInfo, error) {
	user, err := s.getUser(userID)
	if err != nil {
		return nil, err
	}

	fields := make(map[string]interface{})
	if req.FirstName != nil {
		name := strings.TrimSpace(*req.FirstName)
		if name == "" {
			return nil, ErrEmptyName
		}
		fields["first_name"] = name
		user.FirstName = name
	}
	if req.LastName != nil {
		name := strings.TrimSpace(*req.LastName)
		if name == "" {
			return nil, ErrEmptyName
		}
		fields["last_name"] = name
		user.LastName = name
	}

	if len(fields) > 0 {
		if err := s.userRepo.UpdateFields(userID, fields); err != nil {
			return nil, err
		}
	}

	return buildUserInfo(user), nil
}

// ChangePassword 修改密码，需校验当前密码
func (s *UserService) ChangePassword(userID int64, req *dto.ChangePasswordRequest) error {
	user, err := s.getUser(userID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		return ErrWrongPassword
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.userRepo.UpdateFields(userID, map[string]interface{}{"password_hash": string(hashed)})
}

// DeleteAccount 注销账户。收益、提现与动态记录保留用于对账，
// 用户资料被匿名化，授权全部关闭，进行中的答卷置为放弃
func (s *UserService) DeleteAccount(userID int64, password string) error {
	user, err := s.getUser(userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return ErrWrongPassword
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		userRepo := s.userRepo.WithTx(tx)

		// 与提现申请共用用户行锁
		if _, err := userRepo.LockByID(userID); err != nil {
			return err
		}
		inFlight, err := s.payoutRepo.WithTx(tx).CountInFlight(userID)
		if err != nil {
			return err
		}
		if inFlight > 0 {
			return ErrPayoutInProgress
		}

		if err := s.permissionRepo.WithTx(tx).DisableAllByUser(userID); err != nil {
			return err
		}
		if _, err := s.responseRepo.WithTx(tx).AbandonAllByUser(userID, time.Now()); err != nil {
			return err
		}

		return userRepo.UpdateFields(userID, map[string]interface{}{
			"email":         fmt.Sprintf("deleted-%d@deleted.invalid", userID),
			"password_hash": "",
			"first_name":    "",
			"last_name":     "",
			"is_active":     false,
		})
	})
	if err != nil {
		return err
	}

	log.Printf("User %d deleted account", userID)
	return nil
}
