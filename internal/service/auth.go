package service

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"sudohumans/api/internal/config"
	"sudohumans/api/internal/models"
	"sudohumans/api/internal/repository"
	"sudohumans/api/internal/security"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTooManyAttempts    = errors.New("too many failed attempts")
)

// UserFinder is the slice of the user repository the auth service needs.
type UserFinder interface {
	FindByUsername(ctx context.Context, username string) (models.User, error)
}

type AuthService struct {
	users UserFinder
	cache *redis.Client
	cfg   *config.AppConfig
	log   zerolog.Logger
}

func NewAuthService(users UserFinder, cache *redis.Client, cfg *config.AppConfig, log zerolog.Logger) *AuthService {
	return &AuthService{
		users: users,
		cache: cache,
		cfg:   cfg,
		log:   log,
	}
}

// Login verifies a username/password pair and issues a signed session token
// over the user's public fields. An unknown username and a wrong password both
// return ErrInvalidCredentials and nothing else runs on that path.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	if throttled, err := s.tooManyFailures(ctx, username); err == nil && throttled {
		return "", ErrTooManyAttempts
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.recordFailure(ctx, username)
			return "", ErrInvalidCredentials
		}
		return "", err
	}

	ok, err := security.VerifyPassword(user.Salt, user.Hash, password)
	if err != nil || !ok {
		s.recordFailure(ctx, username)
		return "", ErrInvalidCredentials
	}

	s.resetFailures(ctx, username)

	token, err := security.GenerateToken(s.cfg.Security.JWTSecret, user, s.cfg.Security.JWTExpiry)
	if err != nil {
		return "", err
	}
	return token, nil
}

func failureKey(username string) string {
	return "auth:failures:" + username
}

func (s *AuthService) tooManyFailures(ctx context.Context, username string) (bool, error) {
	if s.cache == nil {
		return false, nil
	}
	n, err := s.cache.Get(ctx, failureKey(username)).Int()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, err
	}
	return n >= s.cfg.Security.MaxLoginFailures, nil
}

func (s *AuthService) recordFailure(ctx context.Context, username string) {
	if s.cache == nil {
		return
	}
	key := failureKey(username)
	pipe := s.cache.TxPipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, s.cfg.Security.LoginFailureTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Warn().Err(err).Str("username", username).Msg("failed to record login failure")
	}
}

func (s *AuthService) resetFailures(ctx context.Context, username string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, failureKey(username)).Err(); err != nil {
		s.log.Warn().Err(err).Str("username", username).Msg("failed to reset login failures")
	}
}
