package service

import (
	"context"
	"errors"
	"log"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/qs3c/datafair_server/config"
	"github.com/qs3c/datafair_server/internal/model"
	"github.com/qs3c/datafair_server/internal/model/dto"
	"github.com/qs3c/datafair_server/internal/pkg/jwt"
	"github.com/qs3c/datafair_server/internal/repository"
)

var (
	ErrEmailExists        = errors.New("邮箱已被注册")
	ErrInvalidCredentials = errors.New("邮箱或密码错误")
	ErrUserNotFound       = errors.New("用户不存在")
	ErrUserInactive       = errors.New("账号已停用")
)

// ActivationCrediter 注册成功后发放激活奖励
type ActivationCrediter interface {
	CreditActivation(ctx context.Context, userID int64) error
}

// WelcomeMailer 欢迎邮件
type WelcomeMailer interface {
	SendWelcome(to, firstName string) error
}

type AuthService struct {
	userRepo *repository.UserRepository
	crediter ActivationCrediter
	mailer   WelcomeMailer
	cfg      *config.Config
}

func NewAuthService(userRepo *repository.UserRepository, crediter ActivationCrediter, mailer WelcomeMailer, cfg *config.Config) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		crediter: crediter,
		mailer:   mailer,
		cfg:      cfg,
	}
}

// Register 用户注册
func (s *AuthService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.RegisterResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	exists, err := s.userRepo.ExistsByEmail(email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailExists
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Email:        email,
		PasswordHash: string(hashedPassword),
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Role:         model.RoleUser,
		IsActive:     true,
	}

	if err := s.userRepo.Create(user); err != nil {
		// 并发注册时唯一索引冲突
		if exists, _ := s.userRepo.ExistsByEmail(email); exists {
			return nil, ErrEmailExists
		}
		return nil, err
	}

	// 奖励发放失败不影响注册
	if s.crediter != nil {
		if err := s.crediter.CreditActivation(ctx, user.ID); err != nil {
			log.Printf("Failed to credit activation bonus for user %d: %v", user.ID, err)
		}
	}

	if s.mailer != nil {
		go func() {
			if err := s.mailer.SendWelcome(user.Email, user.FirstName); err != nil {
				log.Printf("Failed to send welcome email to user %d: %v", user.ID, err)
			}
		}()
	}

	return &dto.RegisterResponse{
		UserID: user.ID,
	}, nil
}

// Login 用户登录
func (s *AuthService) Login(req *dto.LoginRequest) (*dto.LoginResponse, error) {
	user, err := s.userRepo.GetByEmail(strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}

	token, err := jwt.GenerateToken(user.ID, s.cfg.JWT.Secret, s.cfg.JWT.ExpireHours)
	if err != nil {
		return nil, err
	}

	return &dto.LoginResponse{
		Token: token,
		User:  buildUserInfo(user),
	}, nil
}

// GetUserByID 根据 ID 获取用户
func (s *AuthService) GetUserByID(id int64) (*model.User, error) {
	user, err := s.userRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func buildUserInfo(user *model.User) *dto.UserInfo {
	return &dto.UserInfo{
		ID:        user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Role:      user.Role,
		CreatedAt: formatTime(user.CreatedAt),
	}
}
