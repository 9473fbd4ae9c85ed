package application

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-task-manager/internal/domain/entity"
	repo "github.com/oksasatya/go-task-manager/internal/domain/repository"
	"github.com/oksasatya/go-task-manager/pkg/helpers"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("user already exists")
)

// UserService composes the credential store and the session issuer:
// registration, login, and profile reads/updates.
type UserService struct {
	Repo   repo.UserRepository
	JWT    *helpers.JWTManager
	Logger *logrus.Logger
}

func NewUserService(repo repo.UserRepository, jwt *helpers.JWTManager, logger *logrus.Logger) *UserService {
	return &UserService{Repo: repo, JWT: jwt, Logger: logger}
}

// NormalizeEmail lowercases and trims an email so uniqueness is
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register persists a new user with a freshly computed password hash and
// issues a session token for the new identity.
func (s *UserService) Register(ctx context.Context, name, email, password string) (*entity.User, string, error) {
	hash, err := helpers.HashPassword(password)
	if err != nil {
		return nil, "", err
	}
	u := &entity.User{
		Name:     name,
		Email:    NormalizeEmail(email),
		Password: hash,
	}
	if err := s.Repo.Create(ctx, u); err != nil {
		if errors.Is(err, repo.ErrDuplicateEmail) {
			return nil, "", ErrEmailTaken
		}
		return nil, "", err
	}
	token, _, err := s.JWT.Generate(u.ID)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", u.ID).Error("generate token failed")
		}
		return nil, "", err
	}
	return u, token, nil
}

// Authenticate validates email/password and returns the user without issuing
// a token. Unknown email and wrong password yield the same error so a caller
// cannot tell which field was wrong.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*entity.User, error) {
	u, err := s.Repo.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil || u == nil {
		return nil, ErrInvalidCredentials
	}
	if !helpers.CompareHashAndPassword(u.Password, password) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

func (s *UserService) Login(ctx context.Context, email, password string) (*entity.User, string, error) {
	u, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, "", err
	}
	token, _, err := s.JWT.Generate(u.ID)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", u.ID).Error("generate token failed")
		}
		return nil, "", err
	}
	return u, token, nil
}

func (s *UserService) GetProfile(ctx context.Context, userID string) (*entity.User, error) {
	u, err := s.Repo.GetByID(ctx, userID)
	if err != nil || u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

type UpdateProfileInput struct {
	Name  string
	Email string
}

// UpdateProfile replaces name and email, re-running the email uniqueness
// check when the address changes.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, in UpdateProfileInput) (*entity.User, error) {
	u, err := s.Repo.GetByID(ctx, userID)
	if err != nil || u == nil {
		return nil, ErrUserNotFound
	}
	u.Name = in.Name
	u.Email = NormalizeEmail(in.Email)
	if err := s.Repo.Update(ctx, u); err != nil {
		if errors.Is(err, repo.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return u, nil
}
