package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"delivery_tracker/internal/models"
	"delivery_tracker/internal/redis"
	"delivery_tracker/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// SessionStore persists login sessions. internal/redis.Client implements it.
type SessionStore interface {
	SetSession(ctx context.Context, sessionID string, data *redis.SessionData, ttl time.Duration) error
	GetSession(ctx context.Context, sessionID string) (*redis.SessionData, error)
	TouchSession(ctx context.Context, sessionID string, ttl time.Duration) error
	DeleteSession(ctx context.Context, sessionID string) error
}

type AuthService interface {
	// DriverLogin authenticates a user that has a driver profile and opens a session.
	DriverLogin(ctx context.Context, username, password string) (string, *models.Driver, error)
	// StaffLogin authenticates an admin or staff user and opens a session.
	StaffLogin(ctx context.Context, username, password string) (string, *models.User, error)
	// Session loads a session and slides its expiry.
	Session(ctx context.Context, sessionID string) (*redis.SessionData, error)
	Logout(ctx context.Context, sessionID string) error
}

type authService struct {
	userRepo   repository.UserRepository
	driverRepo repository.DriverRepository
	sessions   SessionStore
	ttl        time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

func NewAuthService(
	userRepo repository.UserRepository,
	driverRepo repository.DriverRepository,
	sessions SessionStore,
	ttl time.Duration,
	logger *zap.Logger,
	now func() time.Time,
) AuthService {
	if now == nil {
		now = time.Now
	}
	return &authService{
		userRepo:   userRepo,
		driverRepo: driverRepo,
		sessions:   sessions,
		ttl:        ttl,
		logger:     logger,
		now:        now,
	}
}

// dummyHash keeps the unknown-user path as slow as a real password check.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.DefaultCost)

func (s *authService) authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if !isNotFound(err) {
			return nil, fmt.Errorf("failed to load user: %w", err)
		}
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *authService) open(ctx context.Context, user *models.User, driverID uint) (string, error) {
	now := s.now()
	sessionID := uuid.NewString()
	err := s.sessions.SetSession(ctx, sessionID, &redis.SessionData{
		UserID:    user.ID,
		Username:  user.Username,
		Role:      user.Role,
		DriverID:  driverID,
		CreatedAt: now,
		UpdatedAt: now,
	}, s.ttl)
	if err != nil {
		return "", fmt.Errorf("failed to open session: %w", err)
	}
	return sessionID, nil
}

func (s *authService) DriverLogin(ctx context.Context, username, password string) (string, *models.Driver, error) {
	user, err := s.authenticate(ctx, username, password)
	if err != nil {
		return "", nil, err
	}
	driver, err := s.driverRepo.GetByUserID(ctx, user.ID)
	if err != nil {
		if isNotFound(err) {
			return "", nil, ErrNotDriver
		}
		return "", nil, fmt.Errorf("failed to load driver profile: %w", err)
	}

	sessionID, err := s.open(ctx, user, driver.ID)
	if err != nil {
		return "", nil, err
	}
	s.logger.Info("driver logged in", zap.String("username", user.Username), zap.Uint("driver_id", driver.ID))
	return sessionID, driver, nil
}

func (s *authService) StaffLogin(ctx context.Context, username, password string) (string, *models.User, error) {
	user, err := s.authenticate(ctx, username, password)
	if err != nil {
		return "", nil, err
	}
	if !user.IsStaff() {
		return "", nil, ErrForbidden
	}

	sessionID, err := s.open(ctx, user, 0)
	if err != nil {
		return "", nil, err
	}
	s.logger.Info("staff logged in", zap.String("username", user.Username))
	return sessionID, user, nil
}

func (s *authService) Session(ctx context.Context, sessionID string) (*redis.SessionData, error) {
	if sessionID == "" {
		return nil, ErrUnauthorized
	}
	data, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, redis.ErrSessionNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	if err := s.sessions.TouchSession(ctx, sessionID, s.ttl); err != nil && !errors.Is(err, redis.ErrSessionNotFound) {
		s.logger.Warn("failed to refresh session", zap.Error(err))
	}
	return data, nil
}

func (s *authService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return s.sessions.DeleteSession(ctx, sessionID)
}
