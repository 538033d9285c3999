package utils

import (
	"errors"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
)

func TestJwtRoundTrip(t *testing.T) {
	t.Setenv("API_SECRET", "test-secret")

	token, err := JwtGenerate(3, 9, "Aye Aye", false)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err := JwtValidate(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.ID != 3 || claims.CompanyID != 9 || claims.Name != "Aye Aye" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestJwtValidate_Rejects(t *testing.T) {
	t.Setenv("API_SECRET", "test-secret")

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, &JwtCustomClaim{
		ID: 1, CompanyID: 1,
		StandardClaims: jwt.StandardClaims{ExpiresAt: time.Now().Add(-time.Hour).Unix()},
	})
	s, _ := expired.SignedString([]byte("test-secret"))
	if _, err := JwtValidate(s); err == nil {
		t.Fatal("expired token accepted")
	}

	other, _ := JwtGenerate(1, 1, "x", false)
	t.Setenv("API_SECRET", "rotated")
	if _, err := JwtValidate(other); err == nil {
		t.Fatal("token signed with another secret accepted")
	}

	noCompany := jwt.NewWithClaims(jwt.SigningMethodHS256, &JwtCustomClaim{ID: 1})
	s, _ = noCompany.SignedString([]byte("rotated"))
	if _, err := JwtValidate(s); !errors.Is(err, ErrorUnauthorized) {
		t.Fatalf("want ErrorUnauthorized, got %v", err)
	}
}

func TestTokenLifespan(t *testing.T) {
	t.Setenv("TOKEN_HOUR_LIFESPAN", "")
	t.Setenv("REMEMBER_ME_HOUR_LIFESPAN", "48")
	if got := tokenLifespan(false); got != 12*time.Hour {
		t.Fatalf("default lifespan %v", got)
	}
	if got := tokenLifespan(true); got != 48*time.Hour {
		t.Fatalf("remember-me lifespan %v", got)
	}
}
