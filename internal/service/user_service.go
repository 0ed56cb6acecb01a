package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"buildboard/contracts/mq"
	"buildboard/internal/model"
	"buildboard/internal/notify"
	"buildboard/internal/repository"
	"buildboard/pkg/util"
)

type UserService struct {
	users     UserStore
	jwtSecret string
	logger    *zap.Logger
}

func NewUserService(users UserStore, jwtSecret string, logger *zap.Logger) *UserService {
	return &UserService{
		users:     users,
		jwtSecret: jwtSecret,
		logger:    logger,
	}
}

type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// Register 创建账号。成功后产生一封延迟发送的欢迎邮件和
// user.registered 事件，邮件能否送达不影响注册结果。
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*model.User, notify.Effects, error) {
	var fx notify.Effects

	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	if in.Name == "" || in.Email == "" {
		return nil, fx, Invalid("name and email are required")
	}
	if !strings.Contains(in.Email, "@") {
		return nil, fx, Invalid("invalid email address")
	}
	if len(in.Password) < 8 {
		return nil, fx, Invalid("password must be at least 8 characters")
	}
	if in.Role != model.RoleBuyer && in.Role != model.RoleSeller {
		return nil, fx, Invalid("role must be BUYER or SELLER")
	}

	hash, err := util.HashPassword(in.Password)
	if err != nil {
		s.logger.Error("Failed to hash password", zap.Error(err))
		return nil, fx, Internal("could not create user")
	}

	user := &model.User{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         in.Role,
	}
	if err := s.users.Insert(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fx, Conflict("email already registered")
		}
		s.logger.Error("Failed to insert user", zap.Error(err))
		return nil, fx, Internal("could not create user")
	}

	s.logger.Info("User registered",
		zap.String("user_id", user.ID),
		zap.String("role", user.Role),
	)

	fx.Mail = append(fx.Mail, notify.Welcome{
		UserEmail: user.Email,
		UserName:  user.Name,
	})
	fx.Events = append(fx.Events, notify.Event{
		RoutingKey: mq.RoutingUserRegistered,
		Payload: mq.UserRegisteredPayload{
			UserID:    user.ID,
			Email:     user.Email,
			Role:      user.Role,
			CreatedAt: user.CreatedAt,
		},
	})
	return user, fx, nil
}

// Login 校验凭证并签发 JWT。凭证错误统一返回同一条消息，
// 不区分「用户不存在」和「密码错误」。
func (s *UserService) Login(ctx context.Context, email, password string) (string, *model.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return "", nil, Invalid("email and password are required")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		s.logger.Error("Failed to look up user", zap.Error(err))
		return "", nil, Internal("login failed")
	}
	if user == nil || !util.CheckPassword(password, user.PasswordHash) {
		return "", nil, Forbidden("invalid email or password")
	}

	token, err := util.GenerateJWT(user.ID, user.Role, s.jwtSecret)
	if err != nil {
		s.logger.Error("Failed to sign token", zap.Error(err))
		return "", nil, Internal("login failed")
	}
	return token, user, nil
}

func (s *UserService) Get(ctx context.Context, id string) (*model.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, Internal("could not load user")
	}
	if user == nil {
		return nil, NotFound("user %s not found", id)
	}
	return user, nil
}
