package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestSession_AcceptsBearerToken(t *testing.T) {
	secret := []byte("test-secret")
	token, err := Issue(secret, Claims{
		UserID:    "u1",
		Roles:     []string{"admin"},
		StationID: "s1",
	}, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok || claims == nil {
			t.Fatalf("expected claims in context")
		}
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/program-log", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()

	Session(secret)(next).ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestSession_AcceptsCookie(t *testing.T) {
	secret := []byte("test-secret")
	token, err := Issue(secret, Claims{UserID: "u1"}, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/program-log", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
	rr := httptest.NewRecorder()

	Session(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})).ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 with session cookie, got %d", rr.Code)
	}
}

func TestSession_RejectsMissingAndForeignTokens(t *testing.T) {
	secret := []byte("test-secret")
	foreign, err := Issue([]byte("other-secret"), Claims{UserID: "u1"}, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	expired, err := Issue(secret, Claims{UserID: "u1"}, -time.Minute)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing", header: ""},
		{name: "foreign signature", header: "Bearer " + foreign},
		{name: "expired", header: "Bearer " + expired},
		{name: "query token ignored", header: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/program-log?token="+foreign, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			Session(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("next must not be called")
			})).ServeHTTP(rr, req)
			if rr.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rr.Code)
			}
		})
	}
}

func TestCheckCronSecret(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		header string
		want   error
	}{
		{name: "match", secret: "s3cret", header: "Bearer s3cret"},
		{name: "mismatch", secret: "s3cret", header: "Bearer nope", want: ErrUnauthorized},
		{name: "missing header", secret: "s3cret", want: ErrUnauthorized},
		{name: "wrong scheme", secret: "s3cret", header: "Basic s3cret", want: ErrUnauthorized},
		{name: "not configured", secret: "", header: "Bearer anything", want: ErrCronSecretNotConfigured},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/cron/daily-hours", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			err := CheckCronSecret(req, tt.secret)
			if tt.want == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestCronSecretMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name       string
		secret     string
		bypass     bool
		header     string
		wantStatus int
	}{
		{name: "authorized", secret: "s3cret", header: "Bearer s3cret", wantStatus: http.StatusOK},
		{name: "unauthorized", secret: "s3cret", header: "Bearer bad", wantStatus: http.StatusUnauthorized},
		{name: "unconfigured", secret: "", wantStatus: http.StatusInternalServerError},
		{name: "development bypass", secret: "", bypass: true, wantStatus: http.StatusOK},
		{name: "bypass never skips a configured secret", secret: "s3cret", bypass: true, wantStatus: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/cron/daily-hours", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			CronSecret(tt.secret, tt.bypass, zerolog.Nop())(ok).ServeHTTP(rr, req)
			if rr.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d body=%s", tt.wantStatus, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestClaimsCanAccessStation(t *testing.T) {
	tests := []struct {
		name   string
		claims Claims
		want   bool
	}{
		{name: "unscoped", claims: Claims{}, want: true},
		{name: "same station", claims: Claims{StationID: "s1"}, want: true},
		{name: "other station", claims: Claims{StationID: "s2"}, want: false},
		{name: "admin", claims: Claims{StationID: "s2", Roles: []string{RoleAdmin}}, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.claims.CanAccessStation("s1"); got != tt.want {
				t.Fatalf("CanAccessStation = %v, want %v", got, tt.want)
			}
		})
	}
}
