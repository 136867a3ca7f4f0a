package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/akulagin/bankcards/internal/config"
	"github.com/akulagin/bankcards/internal/models"
)

const tokenTTL = 24 * time.Hour

// Claims are the JWT claims issued at login.
type Claims struct {
	jwt.RegisteredClaims
	Role models.Role `json:"role"`
}

// UserService handles user management and authentication.
type UserService struct {
	users  UserStore
	config *config.Config
	log    *logrus.Logger
}

// NewUserService initializes a new user service.
func NewUserService(users UserStore, cfg *config.Config, log *logrus.Logger) *UserService {
	return &UserService{users: users, config: cfg, log: log}
}

// Register creates a new user with a hashed password. email is optional and
// only used for notifications.
func (s *UserService) Register(ctx context.Context, username, password string, role models.Role, email string) (*models.User, error) {
	exists, err := s.users.ExistsByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if exists {
		return nil, models.ErrUserExists
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hashedPassword),
		Role:         role,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.log.Infof("User registered: %s (%s)", user.Username, user.Role)
	return user, nil
}

// Login authenticates a user and returns a signed JWT carrying the username
// and role.
func (s *UserService) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			return "", models.ErrInvalidCredentials
		}
		return "", fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", models.ErrInvalidCredentials
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Username,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Role: user.Role,
	})
	tokenString, err := token.SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	s.log.Infof("User logged in: %s", user.Username)
	return tokenString, nil
}

// GetAllUsers lists every registered user.
func (s *UserService) GetAllUsers(ctx context.Context) ([]*models.User, error) {
	return s.users.FindAll(ctx)
}
