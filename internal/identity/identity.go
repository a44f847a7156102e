// Package identity provides email/password authentication and JWT
// access tokens. The chat core only ever asks whether an authenticated
// identity is present; everything else stays behind this boundary.
package identity

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/retreatscout/retreat-scout/internal/model"
	"github.com/retreatscout/retreat-scout/internal/store"
)

const (
	minPasswordLen = 6
	tokenTTL       = 24 * time.Hour
	issuer         = "retreat-scout"
)

// ErrInvalidCredentials is returned on any sign-in failure. The message
// is deliberately identical for unknown email and wrong password.
var ErrInvalidCredentials = errors.New("invalid email or password")

// Identity is the authenticated principal handed to callers.
type Identity struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

// Claims is the JWT claims layout for access tokens.
type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Service implements sign-up and sign-in over the credential store.
type Service struct {
	store  store.Store
	secret []byte
	log    zerolog.Logger
}

func NewService(s store.Store, jwtSecret string, log zerolog.Logger) *Service {
	return &Service{store: s, secret: []byte(jwtSecret), log: log}
}

// SignUp validates input, creates the profile and credential rows, and
// returns the identity with a signed token. Validation failures are
// rejected before any store call.
func (s *Service) SignUp(ctx context.Context, email, password, fullName string) (*Identity, string, error) {
	if err := validateEmail(email); err != nil {
		return nil, "", err
	}
	if len(password) < minPasswordLen {
		return nil, "", fmt.Errorf("%w: password must be at least %d characters", model.ErrValidation, minPasswordLen)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	userID := uuid.New().String()
	profile := &model.Profile{UserID: userID, Email: email}
	if fullName != "" {
		profile.FullName = &fullName
	}
	if _, err := s.store.Profiles().Create(ctx, profile); err != nil {
		if errors.Is(err, model.ErrConflict) {
			return nil, "", fmt.Errorf("%w: an account with this email already exists", model.ErrConflict)
		}
		return nil, "", err
	}
	if err := s.store.Credentials().Set(ctx, userID, hash); err != nil {
		return nil, "", err
	}

	id := &Identity{UserID: userID, Email: email}
	token, err := s.issueToken(id)
	if err != nil {
		return nil, "", err
	}
	s.log.Info().Str("userId", userID).Msg("account created")
	return id, token, nil
}

// SignIn verifies the password against the stored hash and returns the
// identity with a fresh token.
func (s *Service) SignIn(ctx context.Context, email, password string) (*Identity, string, error) {
	userID, hash, err := s.store.Credentials().GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	id := &Identity{UserID: userID, Email: email}
	token, err := s.issueToken(id)
	if err != nil {
		return nil, "", err
	}
	return id, token, nil
}

// Verify parses and validates an access token, returning the identity.
func (s *Service) Verify(tokenString string) (*Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	return &Identity{UserID: claims.UserID, Email: claims.Email}, nil
}

func (s *Service) issueToken(id *Identity) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: id.UserID,
		Email:  id.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   id.UserID,
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

var emailRx = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

func validateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("%w: email is required", model.ErrValidation)
	}
	if len(email) > 320 || !emailRx.MatchString(email) {
		return fmt.Errorf("%w: invalid email", model.ErrValidation)
	}
	return nil
}
