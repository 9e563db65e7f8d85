package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/yungbote/reqmatch-backend/internal/pkg/ctxutil"
	"github.com/yungbote/reqmatch-backend/internal/platform/logger"
)

type AuthService interface {
	// SetContextFromToken verifies an HS256 bearer token and attaches the owner to ctx.
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	// IssueToken signs a token for ownerID, used by tooling and tests.
	IssueToken(ownerID uuid.UUID) (string, error)
}

type JWTClaims struct {
	jwt.RegisteredClaims
}

type authService struct {
	log          *logger.Logger
	jwtSecretKey string
	accessTTL    time.Duration
	issuer       string
}

func NewAuthService(log *logger.Logger, jwtSecretKey string, accessTTL time.Duration, issuer string) AuthService {
	if accessTTL <= 0 {
		accessTTL = time.Hour
	}
	return &authService{
		log:          log.With("service", "AuthService"),
		jwtSecretKey: jwtSecretKey,
		accessTTL:    accessTTL,
		issuer:       issuer,
	}
}

func (as *authService) IssueToken(ownerID uuid.UUID) (string, error) {
	if ownerID == uuid.Nil {
		return "", fmt.Errorf("owner id required")
	}
	now := time.Now()
	claims := JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   ownerID.String(),
			Issuer:    as.issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(as.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(as.jwtSecretKey))
}

func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return ctx, ErrUnauthenticated
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired()}
	if as.issuer != "" {
		opts = append(opts, jwt.WithIssuer(as.issuer))
	}
	parsed, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(as.jwtSecretKey), nil
	}, opts...)
	if err != nil {
		return ctx, fmt.Errorf("%w: failed to parse token: %w", ErrUnauthenticated, err)
	}
	claims, ok := parsed.Claims.(*JWTClaims)
	if !ok || !parsed.Valid {
		return ctx, fmt.Errorf("%w: invalid token claims", ErrUnauthenticated)
	}
	ownerID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return ctx, fmt.Errorf("%w: invalid subject: %w", ErrUnauthenticated, err)
	}
	if ownerID == uuid.Nil {
		return ctx, fmt.Errorf("%w: empty subject", ErrUnauthenticated)
	}
	return ctxutil.WithRequestData(ctx, &ctxutil.RequestData{OwnerUserID: ownerID, Subject: claims.Subject}), nil
}
