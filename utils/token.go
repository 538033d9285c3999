package utils

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/mmdatafocus/invoice_backend/config"
)

// JwtCustomClaim identifies the user and the company every request acts for.
type JwtCustomClaim struct {
	ID        int    `json:"id"`
	CompanyID int    `json:"company_id"`
	Name      string `json:"name"`
	jwt.StandardClaims
}

func getJwtSecret() []byte {
	secret := os.Getenv("API_SECRET")
	if secret == "" {
		return []byte("invoice-backend-dev-secret")
	}
	return []byte(secret)
}

// tokenLifespan reads TOKEN_HOUR_LIFESPAN, or REMEMBER_ME_HOUR_LIFESPAN when
// the user asked to stay signed in.
func tokenLifespan(rememberMe bool) time.Duration {
	key, def := "TOKEN_HOUR_LIFESPAN", 12
	if rememberMe {
		key, def = "REMEMBER_ME_HOUR_LIFESPAN", 24*30
	}
	hours, err := strconv.Atoi(os.Getenv(key))
	if err != nil || hours <= 0 {
		hours = def
	}
	return time.Duration(hours) * time.Hour
}

func JwtGenerate(userID int, companyID int, name string, rememberMe bool) (string, error) {
	now := time.Now()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, &JwtCustomClaim{
		ID:        userID,
		CompanyID: companyID,
		Name:      name,
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: now.Add(tokenLifespan(rememberMe)).Unix(),
			IssuedAt:  now.Unix(),
		},
	})
	return t.SignedString(getJwtSecret())
}

func JwtValidate(token string) (*JwtCustomClaim, error) {
	parsed, err := jwt.ParseWithClaims(token, &JwtCustomClaim{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return getJwtSecret(), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*JwtCustomClaim)
	if !ok || !parsed.Valid || claims.ID <= 0 || claims.CompanyID <= 0 {
		return nil, ErrorUnauthorized
	}
	return claims, nil
}

func revokedTokenKey(token string) string {
	return "RevokedToken:" + token
}

// RevokeToken signs a token out until it would have expired anyway.
func RevokeToken(ctx context.Context, token string, expiresAt int64) error {
	ttl := time.Until(time.Unix(expiresAt, 0))
	if ttl <= 0 {
		return nil
	}
	return config.SetRedisObject(ctx, revokedTokenKey(token), true, ttl)
}

func IsTokenRevoked(ctx context.Context, token string) (bool, error) {
	var revoked bool
	exists, err := config.GetRedisObject(ctx, revokedTokenKey(token), &revoked)
	if err != nil {
		return false, err
	}
	return exists && revoked, nil
}
