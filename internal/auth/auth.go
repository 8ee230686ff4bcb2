package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/questly/questly-api/internal/apperr"
)

const issuer = "questly"

var errInvalidToken = apperr.Unauthorizedf("invalid or expired token")

type Service struct {
	secret   []byte
	tokenTTL time.Duration
	now      func() time.Time
}

// Verified is the identity carried by a valid bearer token.
type Verified struct {
	UserID string
}

type Claims struct {
	jwt.RegisteredClaims
}

func NewService(secret string, tokenTTL time.Duration) *Service {
	return &Service{
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		now:      time.Now,
	}
}

// Issue signs an HS256 token whose subject is userID.
func (s *Service) Issue(userID string) (string, time.Time, error) {
	now := s.now()
	expires := now.Add(s.tokenTTL)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expires, nil
}

func (s *Service) Authenticate(ctx context.Context, bearer string) (Verified, error) {
	if bearer == "" {
		return Verified{}, apperr.Unauthorizedf("missing token")
	}
	token, err := jwt.ParseWithClaims(bearer, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return Verified{}, errInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || claims.Subject == "" {
		return Verified{}, errInvalidToken
	}
	return Verified{UserID: claims.Subject}, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

type ctxKey struct{}

func WithVerified(ctx context.Context, v Verified) context.Context {
	return context.WithValue(ctx, ctxKey{}, v)
}

func FromContext(ctx context.Context) (Verified, bool) {
	v, ok := ctx.Value(ctxKey{}).(Verified)
	return v, ok
}

// UserID returns the authenticated user id, or "" for anonymous requests.
func UserID(ctx context.Context) string {
	v, _ := FromContext(ctx)
	return v.UserID
}
