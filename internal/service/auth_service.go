package service

import (
	"context"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"credit-scoring-api/internal/metrics"
	"credit-scoring-api/internal/model"
	"credit-scoring-api/pkg/apierror"
)

const (
	bcryptCost      = 12
	tokenKindAccess = "access"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9]{3,50}$`)

// UserStore is the persistence surface the auth service needs.
// *repository.UserRepository satisfies it; tests use an in-memory fake.
type UserStore interface {
	FindByUsername(ctx context.Context, username string) (model.User, error)
	ExistsByEmailOrUsername(ctx context.Context, email string, username string) (bool, error)
	Create(ctx context.Context, u model.User) (model.User, error)
	List(ctx context.Context) ([]model.User, error)
	AdminExists(ctx context.Context) (bool, error)
}

type AuthService struct {
	users     UserStore
	jwtSecret []byte
	accessTTL time.Duration
}

func NewAuthService(jwtSecret string, accessTTL time.Duration, users UserStore) *AuthService {
	if accessTTL <= 0 {
		accessTTL = 60 * time.Minute
	}

	return &AuthService{
		users:     users,
		jwtSecret: []byte(jwtSecret),
		accessTTL: accessTTL,
	}
}

// Register creates a new user. Duplicate email or username fails with a
// conflict and leaves no row behind; the unique indexes back the check up
// under concurrency.
func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) (model.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	username := strings.TrimSpace(req.Username)

	if !emailPattern.MatchString(email) {
		return model.User{}, apierror.New("BAD_REQUEST", "invalid email address", "email", http.StatusBadRequest)
	}
	if !usernamePattern.MatchString(username) {
		return model.User{}, apierror.New("BAD_REQUEST", "username must be 3-50 alphanumeric characters", "username", http.StatusBadRequest)
	}
	if len(req.Password) < 8 {
		return model.User{}, apierror.New("BAD_REQUEST", "password must be at least 8 characters", "password", http.StatusBadRequest)
	}

	exists, err := s.users.ExistsByEmailOrUsername(ctx, email, username)
	if err != nil {
		return model.User{}, err
	}
	if exists {
		return model.User{}, apierror.New("ALREADY_EXISTS", "email or username already registered", "", http.StatusConflict)
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return model.User{}, err
	}

	user, err := s.users.Create(ctx, model.User{
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		FullName:     req.FullName,
		IsActive:     true,
	})
	if err == model.ErrUserAlreadyExists {
		return model.User{}, apierror.New("ALREADY_EXISTS", "email or username already registered", "", http.StatusConflict)
	}
	if err != nil {
		return model.User{}, err
	}

	slog.Info("user registered", "user_id", user.ID, "username", user.Username)
	return user, nil
}

// Login verifies credentials and issues an access token. The failure is
// identical whether the username or the password was wrong.
func (s *AuthService) Login(ctx context.Context, username string, password string) (model.Token, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("failure").Inc()
		return model.Token{}, apierror.New("UNAUTHORIZED", "invalid credentials", "", http.StatusUnauthorized)
	}

	if !VerifyPassword(password, user.PasswordHash) {
		metrics.LoginsTotal.WithLabelValues("failure").Inc()
		return model.Token{}, apierror.New("UNAUTHORIZED", "invalid credentials", "", http.StatusUnauthorized)
	}

	token, err := s.IssueToken(user.Username)
	if err != nil {
		return model.Token{}, err
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	return token, nil
}

// IssueToken signs a stateless access token for the subject. Validity is
// fully determined by the signature and the exp claim.
func (s *AuthService) IssueToken(subject string) (model.Token, error) {
	now := time.Now().UTC()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subject,
		"typ": tokenKindAccess,
		"iat": now.Unix(),
		"exp": now.Add(s.accessTTL).Unix(),
	}).SignedString(s.jwtSecret)
	if err != nil {
		return model.Token{}, err
	}

	return model.Token{
		AccessToken: signed,
		TokenType:   "bearer",
		ExpiresIn:   int64(s.accessTTL.Seconds()),
	}, nil
}

// ValidateToken checks signature, structure, kind and expiry. Every failure
// collapses into ErrInvalidToken so callers cannot tell a tampered token
// from an expired one; the underlying reason is only logged.
func (s *AuthService) ValidateToken(tokenString string) (*model.AuthClaims, error) {
	parsed, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, model.ErrInvalidToken
		}
		return s.jwtSecret, nil
	})
	if err != nil || !parsed.Valid {
		slog.Debug("token rejected", "reason", err)
		return nil, model.ErrInvalidToken
	}

	claimsMap, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, model.ErrInvalidToken
	}

	subject, _ := claimsMap["sub"].(string)
	kind, _ := claimsMap["typ"].(string)
	if subject == "" || kind != tokenKindAccess {
		return nil, model.ErrInvalidToken
	}

	return &model.AuthClaims{Subject: subject, Kind: kind}, nil
}

// Authenticate resolves a bearer token to a principal. Token problems and
// unknown subjects both yield ErrUnauthorized.
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (model.Principal, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return model.Principal{}, model.ErrUnauthorized
	}

	user, err := s.users.FindByUsername(ctx, claims.Subject)
	if err != nil {
		return model.Principal{}, model.ErrUnauthorized
	}

	return model.Principal{User: user}, nil
}

func (s *AuthService) ListUsers(ctx context.Context) ([]model.User, error) {
	return s.users.List(ctx)
}

// EnsureAdmin seeds an administrator account on first start. It is a no-op
// when an admin already exists or no admin password is configured.
func (s *AuthService) EnsureAdmin(ctx context.Context, username string, email string, password string) error {
	if strings.TrimSpace(password) == "" {
		return nil
	}

	exists, err := s.users.AdminExists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	hash, err := HashPassword(password)
	if err != nil {
		return err
	}

	admin, err := s.users.Create(ctx, model.User{
		Email:        strings.ToLower(strings.TrimSpace(email)),
		Username:     strings.TrimSpace(username),
		PasswordHash: hash,
		IsActive:     true,
		IsAdmin:      true,
	})
	if err == model.ErrUserAlreadyExists {
		return nil
	}
	if err != nil {
		return err
	}

	slog.Info("admin account seeded", "username", admin.Username)
	return nil
}

// HashPassword produces a salted bcrypt digest. Two hashes of the same
// plaintext never match byte for byte.
func HashPassword(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword reports whether plaintext matches the stored digest.
// A malformed digest verifies false instead of erroring out.
func VerifyPassword(plaintext string, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}
