package httpapi

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"tiendita/backend/internal/domain"
	"tiendita/backend/internal/store"
)

const (
	maxFailedLogins = 5
	lockoutDuration = 15 * time.Minute
)

var (
	errInvalidCredentials = errors.New("invalid credentials")
	errAccountLocked      = errors.New("account temporarily locked")
)

type AuthManager struct {
	secret      []byte
	tokenTTL    time.Duration
	sellerStore SellerStore
}

type SellerStore interface {
	CreateSeller(ctx context.Context, seller domain.Seller) (*domain.Seller, error)
	GetSellerByEmail(ctx context.Context, email string) (*domain.Seller, error)
	GetSellerByID(ctx context.Context, id string) (*domain.Seller, error)
	UpdateSellerLoginState(ctx context.Context, sellerID string, failedAttempts int, lockedUntil *time.Time) error
}

type sellerCustomClaims struct {
	jwtlib.RegisteredClaims
	Email string `json:"email"`
}

func NewAuthManager(secret string, tokenTTL time.Duration, sellerStore SellerStore) *AuthManager {
	if secret == "" {
		secret = "dev-change-me"
	}
	if tokenTTL <= 0 {
		tokenTTL = 8 * time.Hour
	}
	return &AuthManager{
		secret:      []byte(secret),
		tokenTTL:    tokenTTL,
		sellerStore: sellerStore,
	}
}

func (a *AuthManager) Register(ctx context.Context, req domain.RegisterRequest) (*domain.Seller, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: a valid email is required", store.ErrValidation)
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", store.ErrValidation)
	}
	if len(req.Password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", store.ErrValidation)
	}

	passwordHash, err := hashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	return a.sellerStore.CreateSeller(ctx, domain.Seller{
		Email:        email,
		PasswordHash: passwordHash,
		Name:         strings.TrimSpace(req.Name),
		Phone:        strings.TrimSpace(req.Phone),
	})
}

func (a *AuthManager) Login(ctx context.Context, req domain.LoginRequest) (domain.LoginResponse, error) {
	seller, err := a.sellerStore.GetSellerByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.LoginResponse{}, errInvalidCredentials
		}
		return domain.LoginResponse{}, err
	}

	now := time.Now().UTC()
	if seller.LockedUntil != nil && seller.LockedUntil.After(now) {
		return domain.LoginResponse{}, errAccountLocked
	}

	if !verifyPassword(seller.PasswordHash, req.Password) {
		failures := seller.FailedLoginAttempts + 1
		var lockedUntil *time.Time
		if failures >= maxFailedLogins {
			until := now.Add(lockoutDuration)
			lockedUntil = &until
			failures = 0
		}
		_ = a.sellerStore.UpdateSellerLoginState(ctx, seller.ID, failures, lockedUntil)
		if lockedUntil != nil {
			return domain.LoginResponse{}, errAccountLocked
		}
		return domain.LoginResponse{}, errInvalidCredentials
	}

	if seller.FailedLoginAttempts > 0 || seller.LockedUntil != nil {
		_ = a.sellerStore.UpdateSellerLoginState(ctx, seller.ID, 0, nil)
	}

	expiresAt := now.Add(a.tokenTTL)
	token, err := a.sign(seller.ID, seller.Email, expiresAt)
	if err != nil {
		return domain.LoginResponse{}, err
	}

	return domain.LoginResponse{
		AccessToken: token,
		SellerID:    seller.ID,
		Name:        seller.Name,
		ExpiresAt:   expiresAt.Format(time.RFC3339),
	}, nil
}

func (a *AuthManager) ParseToken(tokenStr string) (domain.Actor, error) {
	claims := &sellerCustomClaims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, jwtlib.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return domain.Actor{}, errors.New("invalid or expired token")
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return domain.Actor{}, errors.New("invalid token subject")
	}
	return domain.Actor{SellerID: sub, Email: claims.Email}, nil
}

func (a *AuthManager) sign(sellerID, email string, expiresAt time.Time) (string, error) {
	claims := sellerCustomClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   sellerID,
			IssuedAt:  jwtlib.NewNumericDate(time.Now().UTC()),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
			Issuer:    "tiendita",
		},
		Email: email,
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

func verifyPassword(stored string, input string) bool {
	if stored == "" || strings.TrimSpace(input) == "" || !isPasswordHash(stored) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(input)) == nil
}

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func isPasswordHash(value string) bool {
	return strings.HasPrefix(value, "$2a$") || strings.HasPrefix(value, "$2b$") || strings.HasPrefix(value, "$2y$")
}
