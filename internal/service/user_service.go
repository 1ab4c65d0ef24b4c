package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"talkmate/internal/domain"
	"talkmate/internal/email"
	"talkmate/internal/repository"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrOAuthInvalid       = errors.New("oauth data invalid")
	ErrRateLimited        = errors.New("rate limited")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrInvalidUsername    = errors.New("invalid username")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrUserServiceNotSet  = errors.New("user service not configured")
)

const minPasswordLen = 6

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]{3,32}$`)

// UserService coordina registro, login y perfil de usuarios.
type UserService struct {
	logger      *zap.Logger
	users       repository.UserRepository
	emailSender email.Sender
	limiter     LoginLimiter
	now         func() time.Time
}

func NewUserService(logger *zap.Logger, users repository.UserRepository, emailSender email.Sender, limiter LoginLimiter) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if emailSender == nil {
		emailSender = email.NewLogSender(logger)
	}
	if limiter == nil {
		limiter = NewMemoryLoginLimiter(10*time.Minute, 5)
	}
	return &UserService{
		logger:      logger,
		users:       users,
		emailSender: emailSender,
		limiter:     limiter,
		now:         time.Now,
	}
}

type RegisterInput struct {
	Email       string
	Username    string
	Password    string
	DisplayName string
	Phone       *domain.Phone
}

func (s *UserService) Register(ctx context.Context, input RegisterInput) (domain.User, error) {
	if s == nil || s.users == nil {
		return domain.User{}, ErrUserServiceNotSet
	}

	emailAddr, err := normalizeEmail(input.Email)
	if err != nil {
		return domain.User{}, err
	}
	username := strings.TrimSpace(input.Username)
	if !usernamePattern.MatchString(username) {
		return domain.User{}, ErrInvalidUsername
	}
	password := strings.TrimSpace(input.Password)
	if utf8.RuneCountInString(password) < minPasswordLen {
		return domain.User{}, ErrWeakPassword
	}

	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return domain.User{}, ErrUsernameTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return domain.User{}, err
	}
	if _, err := s.users.GetByEmail(ctx, emailAddr); err == nil {
		return domain.User{}, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return domain.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	user := domain.User{
		ID:           uuid.NewString(),
		Email:        emailAddr,
		Username:     username,
		DisplayName:  strings.TrimSpace(input.DisplayName),
		Phone:        normalizePhone(input.Phone),
		AuthProvider: "password",
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return domain.User{}, ErrEmailTaken
		}
		return domain.User{}, err
	}

	s.notify(ctx, user, email.AuthEventSignup)
	return user, nil
}

// Authenticate acepta email o username como identificador.
func (s *UserService) Authenticate(ctx context.Context, identifier, password string) (domain.User, error) {
	if s == nil || s.users == nil {
		return domain.User{}, ErrUserServiceNotSet
	}

	identifier = strings.TrimSpace(identifier)
	password = strings.TrimSpace(password)
	if identifier == "" || password == "" {
		return domain.User{}, ErrInvalidCredentials
	}
	if !s.limiter.Allow(ctx, identifier) {
		return domain.User{}, ErrRateLimited
	}

	var (
		user domain.User
		err  error
	)
	if strings.Contains(identifier, "@") {
		user, err = s.users.GetByEmail(ctx, strings.ToLower(identifier))
	} else {
		user, err = s.users.GetByUsername(ctx, identifier)
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, err
	}
	if user.PasswordHash == "" {
		return domain.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return domain.User{}, ErrInvalidCredentials
	}

	s.notify(ctx, user, email.AuthEventLogin)
	return user, nil
}

type OAuthInput struct {
	Provider    string
	Subject     string
	Email       string
	DisplayName string
}

// UpsertOAuthUser busca por (proveedor, subject), luego por email, y si no existe crea el usuario.
func (s *UserService) UpsertOAuthUser(ctx context.Context, input OAuthInput) (domain.User, error) {
	if s == nil || s.users == nil {
		return domain.User{}, ErrUserServiceNotSet
	}

	provider := strings.ToLower(strings.TrimSpace(input.Provider))
	subject := strings.TrimSpace(input.Subject)
	displayName := strings.TrimSpace(input.DisplayName)
	if provider == "" || subject == "" {
		return domain.User{}, ErrOAuthInvalid
	}

	user, err := s.users.GetByAuth(ctx, provider, subject)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return domain.User{}, err
	}

	emailAddr, emailErr := normalizeEmail(input.Email)
	if emailErr == nil {
		existing, err := s.users.GetByEmail(ctx, emailAddr)
		if err == nil {
			if err := s.users.LinkOAuth(ctx, existing.ID, provider, subject); err != nil {
				return domain.User{}, err
			}
			existing.AuthProvider = provider
			existing.AuthSubject = subject
			s.notify(ctx, existing, email.AuthEventLogin)
			return existing, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return domain.User{}, err
		}
	} else {
		emailAddr = fmt.Sprintf("%s@%s.oauth.invalid", subject, provider)
	}

	username, err := s.availableUsername(ctx, emailAddr)
	if err != nil {
		return domain.User{}, err
	}
	user = domain.User{
		ID:           uuid.NewString(),
		Email:        emailAddr,
		Username:     username,
		DisplayName:  displayName,
		AuthProvider: provider,
		AuthSubject:  subject,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return domain.User{}, err
	}
	if emailErr == nil {
		s.notify(ctx, user, email.AuthEventSignup)
	}
	return user, nil
}

func (s *UserService) GetProfile(ctx context.Context, userID string) (domain.User, error) {
	if s == nil || s.users == nil {
		return domain.User{}, ErrUserServiceNotSet
	}
	user, err := s.users.GetByID(ctx, strings.TrimSpace(userID))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}
	return user, nil
}

// availableUsername deriva un username libre a partir del email.
func (s *UserService) availableUsername(ctx context.Context, emailAddr string) (string, error) {
	base := strings.Split(emailAddr, "@")[0]
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '.', r == '-':
			return r
		}
		return -1
	}, base)
	if len(base) < 3 {
		base = "user"
	}
	if len(base) > 24 {
		base = base[:24]
	}
	candidate := base
	for i := 2; i < 100; i++ {
		_, err := s.users.GetByUsername(ctx, candidate)
		if errors.Is(err, repository.ErrNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
		candidate = fmt.Sprintf("%s%d", base, i)
	}
	return base + "-" + uuid.NewString()[:6], nil
}

func (s *UserService) notify(ctx context.Context, user domain.User, event email.AuthEvent) {
	if strings.HasSuffix(user.Email, ".oauth.invalid") {
		return
	}
	if err := s.emailSender.SendAuthEmail(ctx, user.Email, event, user.Username); err != nil {
		s.logger.Warn("send auth email failed", zap.Error(err), zap.String("user_id", user.ID), zap.String("event", string(event)))
	}
}

func normalizeEmail(raw string) (string, error) {
	addr := strings.ToLower(strings.TrimSpace(raw))
	if addr == "" {
		return "", ErrInvalidEmail
	}
	parsed, err := mail.ParseAddress(addr)
	if err != nil || parsed.Address != addr {
		return "", ErrInvalidEmail
	}
	return addr, nil
}

func normalizePhone(p *domain.Phone) *domain.Phone {
	if p == nil || strings.TrimSpace(p.Number) == "" {
		return nil
	}
	return &domain.Phone{
		Country:     strings.TrimSpace(p.Country),
		CountryCode: strings.TrimSpace(p.CountryCode),
		Number:      strings.TrimSpace(p.Number),
	}
}
