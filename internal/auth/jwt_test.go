package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestIssueAndParse(t *testing.T) {
	secret := []byte("test-secret")
	token, err := Issue(secret, Claims{UserID: "u1", StationID: "st-1"}, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	claims, err := Parse(secret, token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.UserID != "u1" || claims.Subject != "u1" {
		t.Fatalf("unexpected identity: uid=%q sub=%q", claims.UserID, claims.Subject)
	}
	if claims.StationID != "st-1" {
		t.Fatalf("station = %q", claims.StationID)
	}

	if _, err := Parse([]byte("other-secret"), token); err == nil {
		t.Fatal("expected wrong secret to be rejected")
	}
}

func TestParseRejectsExpired(t *testing.T) {
	secret := []byte("test-secret")
	token, err := Issue(secret, Claims{UserID: "u1"}, -time.Minute)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := Parse(secret, token); err == nil {
		t.Fatal("expected expired session to be rejected")
	}
}

func TestParseRejectsOtherAlgorithms(t *testing.T) {
	secret := []byte("test-secret")
	now := time.Now()
	claims := Claims{
		UserID: "u1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	for _, method := range []jwt.SigningMethod{jwt.SigningMethodHS384, jwt.SigningMethodHS512} {
		signed, err := jwt.NewWithClaims(method, claims).SignedString(secret)
		if err != nil {
			t.Fatalf("%s: SignedString: %v", method.Alg(), err)
		}
		if _, err := Parse(secret, signed); err == nil {
			t.Fatalf("%s: expected rejection", method.Alg())
		}
	}
}

func TestCanAccessStation(t *testing.T) {
	tests := []struct {
		name   string
		claims Claims
		want   bool
	}{
		{"unscoped", Claims{UserID: "u"}, true},
		{"same station", Claims{StationID: "st-1"}, true},
		{"other station", Claims{StationID: "st-2"}, false},
		{"admin elsewhere", Claims{StationID: "st-2", Roles: []string{RoleAdmin}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.claims.CanAccessStation("st-1"); got != tt.want {
				t.Fatalf("CanAccessStation = %v, want %v", got, tt.want)
			}
		})
	}
}
