// Package auth is the identity and session service: sign up, sign in, sign
// out and resolving the identity behind a session token.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"wangsammo/backend/internal/models"
	"wangsammo/backend/internal/storage"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const minPasswordLength = 6

var (
	ErrEmailTaken         = errors.New("email is already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = fmt.Errorf("password must be at least %d characters", minPasswordLength)
	ErrInvalidToken       = errors.New("invalid session token")
)

// AccountStore is the persistence the identity service needs.
type AccountStore interface {
	CreateAccount(ctx context.Context, acc *models.UserAccount, profile *models.UserProfile) error
	GetAccountByEmail(ctx context.Context, email string) (*models.UserAccount, error)
	GetProfile(ctx context.Context, userID string) (*models.UserProfile, error)
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

// ProfileFields are the optional profile values collected at sign up.
type ProfileFields struct {
	FullName string
	Phone    string
}

// Session is the result of a successful sign in.
type Session struct {
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expires_at"`
	Identity  *models.Identity `json:"user"`
}

// Session event kinds.
const (
	EventSignedIn  = "signed_in"
	EventSignedOut = "signed_out"
)

// SessionEvent is delivered to subscribers when a session changes.
type SessionEvent struct {
	Kind     string
	Identity *models.Identity
}

// Claims are the JWT claims of a session token.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

type Service struct {
	store    AccountStore
	secret   []byte
	issuer   string
	ttl      time.Duration
	cost     int
	now      func() time.Time
	logger   *zap.Logger
	validate *validator.Validate

	mu     sync.RWMutex
	subs   map[int]func(SessionEvent)
	nextID int
}

// NewService creates the identity service.
func NewService(store AccountStore, secret, issuer string, ttl time.Duration, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:    store,
		secret:   []byte(secret),
		issuer:   issuer,
		ttl:      ttl,
		cost:     bcrypt.DefaultCost,
		now:      time.Now,
		logger:   logger,
		validate: validator.New(),
		subs:     make(map[int]func(SessionEvent)),
	}
}

// SignUp registers an account with a resident profile.
func (s *Service) SignUp(ctx context.Context, email, password string, fields ProfileFields) (*models.Identity, error) {
	email = normalizeEmail(email)
	if err := s.validate.Var(email, "required,email"); err != nil {
		return nil, ErrInvalidEmail
	}
	if len(password) < minPasswordLength {
		return nil, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	acc := &models.UserAccount{Email: email, PasswordHash: string(hash)}
	profile := &models.UserProfile{
		FullName:    strings.TrimSpace(fields.FullName),
		PhoneNumber: strings.TrimSpace(fields.Phone),
		Role:        models.RoleResident,
	}
	if err := s.store.CreateAccount(ctx, acc, profile); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create account: %w", err)
	}

	s.logger.Info("account created", zap.String("user_id", acc.ID))
	return &models.Identity{ID: acc.ID, Email: acc.Email, Role: profile.Role}, nil
}

// SignIn checks the credentials and issues a session token.
func (s *Service) SignIn(ctx context.Context, email, password string) (*Session, error) {
	acc, err := s.store.GetAccountByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("lookup account: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	role := models.RoleResident
	profile, err := s.store.GetProfile(ctx, acc.ID)
	switch {
	case err == nil:
		role = profile.Role
	case !errors.Is(err, storage.ErrNotFound):
		return nil, fmt.Errorf("lookup profile: %w", err)
	}

	identity := &models.Identity{ID: acc.ID, Email: acc.Email, Role: role}
	token, expiresAt, err := s.issue(identity)
	if err != nil {
		return nil, err
	}

	s.notify(SessionEvent{Kind: EventSignedIn, Identity: identity})
	return &Session{Token: token, ExpiresAt: expiresAt, Identity: identity}, nil
}

// SignOut revokes the token until it would have expired.
func (s *Service) SignOut(ctx context.Context, token string) error {
	claims, err := s.parse(token)
	if err != nil {
		return ErrInvalidToken
	}

	ttl := claims.ExpiresAt.Time.Sub(s.now())
	if err := s.store.RevokeToken(ctx, claims.ID, ttl); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}

	s.notify(SessionEvent{Kind: EventSignedOut, Identity: claimsIdentity(claims)})
	return nil
}

// CurrentUser resolves the identity behind a token. Empty, malformed,
// expired or revoked tokens resolve to nil without an error; only store
// failures are returned.
func (s *Service) CurrentUser(ctx context.Context, token string) (*models.Identity, error) {
	if strings.TrimSpace(token) == "" {
		return nil, nil
	}
	claims, err := s.parse(token)
	if err != nil {
		s.logger.Debug("ignoring invalid session token", zap.Error(err))
		return nil, nil
	}

	revoked, err := s.store.IsTokenRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("check token: %w", err)
	}
	if revoked {
		return nil, nil
	}
	return claimsIdentity(claims), nil
}

// Subscribe registers fn for session changes and returns the function that
// removes it.
func (s *Service) Subscribe(fn func(SessionEvent)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Service) notify(ev SessionEvent) {
	s.mu.RLock()
	subs := make([]func(SessionEvent), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.RUnlock()

	for _, fn := range subs {
		fn(ev)
	}
}

func (s *Service) issue(identity *models.Identity) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := Claims{
		Email: identity.Email,
		Role:  identity.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   identity.ID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return token, expiresAt, nil
}

func (s *Service) parse(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func claimsIdentity(c *Claims) *models.Identity {
	return &models.Identity{ID: c.Subject, Email: c.Email, Role: c.Role}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
