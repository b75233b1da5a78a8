package usecase

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dermadoc/backend/internal/core/domain"
	"github.com/dermadoc/backend/internal/core/ports"
)

type AuthUseCase struct {
	users    ports.UserRepository
	secret   []byte
	tokenTTL time.Duration
}

func NewAuthUseCase(users ports.UserRepository, secret string, tokenTTL time.Duration) *AuthUseCase {
	return &AuthUseCase{
		users:    users,
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
	}
}

func (uc *AuthUseCase) Signup(ctx context.Context, input ports.SignupInput) (*domain.User, string, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, "", domain.WrapError(domain.ErrInvalidInput, "signup", fmt.Errorf("invalid email"))
	}
	if len(input.Password) < 6 {
		return nil, "", domain.WrapError(domain.ErrInvalidInput, "signup", fmt.Errorf("password must be at least 6 characters"))
	}

	hash, err := hashPassword(input.Password)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:             uuid.NewString(),
		Name:           strings.TrimSpace(input.Name),
		Email:          email,
		HashedPassword: hash,
		Birthdate:      input.Birthdate,
		Gender:         input.Gender,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := uc.users.Create(ctx, user); err != nil {
		return nil, "", fmt.Errorf("create user: %w", err)
	}

	token, err := uc.issueToken(user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (uc *AuthUseCase) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	user, err := uc.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if domain.IsKind(err, domain.ErrNotFound) {
			return nil, "", domain.WrapError(domain.ErrUnauthorized, "login", fmt.Errorf("unknown email"))
		}
		return nil, "", fmt.Errorf("lookup user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), passwordBytes(password)); err != nil {
		return nil, "", domain.WrapError(domain.ErrUnauthorized, "login", fmt.Errorf("wrong password"))
	}

	token, err := uc.issueToken(user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (uc *AuthUseCase) UserFromToken(ctx context.Context, token string) (*domain.User, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return uc.secret, nil
	})
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return nil, domain.WrapError(domain.ErrUnauthorized, "verify token", fmt.Errorf("invalid access token"))
	}

	user, err := uc.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if domain.IsKind(err, domain.ErrNotFound) {
			return nil, domain.WrapError(domain.ErrUnauthorized, "verify token", fmt.Errorf("user no longer exists"))
		}
		return nil, fmt.Errorf("lookup token user: %w", err)
	}
	return user, nil
}

func (uc *AuthUseCase) issueToken(userID string) (string, error) {
	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(uc.tokenTTL)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(uc.secret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return token, nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(passwordBytes(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// passwordBytes pre-hashes passwords longer than bcrypt's 72-byte input
// limit so no entropy is silently truncated.
func passwordBytes(password string) []byte {
	b := []byte(password)
	if len(b) <= 72 {
		return b
	}
	sum := sha256.Sum256(b)
	return sum[:]
}
