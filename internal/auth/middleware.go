/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package auth

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
)

// SessionCookie carries the session JWT for browser callers.
const SessionCookie = "autopilot_session"

var (
	// ErrUnauthorized is a missing or invalid credential.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrCronSecretNotConfigured means the server has no cron secret to compare against.
	ErrCronSecretNotConfigured = errors.New("cron secret not configured")
)

// Session validates a JWT from the Authorization header or the session
// cookie and injects its claims into the request context.
func Session(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				token = cookieToken(r)
			}
			if token == "" || len(secret) == 0 {
				unauthorized(w)
				return
			}

			claims, err := Parse(secret, token)
			if err != nil {
				unauthorized(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// CheckCronSecret compares the request's bearer token with secret in constant time.
func CheckCronSecret(r *http.Request, secret string) error {
	if secret == "" {
		return ErrCronSecretNotConfigured
	}
	token := extractToken(r)
	if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
		return ErrUnauthorized
	}
	return nil
}

// CronSecret guards job triggers with the shared bearer secret. With
// allowUnconfigured set, a server without a secret lets every call through;
// only development wiring sets it.
func CronSecret(secret string, allowUnconfigured bool, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			err := CheckCronSecret(r, secret)
			switch {
			case err == nil:
				next.ServeHTTP(w, r)
			case errors.Is(err, ErrCronSecretNotConfigured) && allowUnconfigured:
				logger.Debug().Str("path", r.URL.Path).Msg("cron secret not configured, development bypass")
				next.ServeHTTP(w, r)
			case errors.Is(err, ErrCronSecretNotConfigured):
				logger.Error().Str("path", r.URL.Path).Msg("cron secret not configured")
				writeError(w, http.StatusInternalServerError, "server_misconfigured")
			default:
				logger.Warn().Str("path", r.URL.Path).Str("remote", r.RemoteAddr).Msg("rejected cron trigger")
				unauthorized(w)
			}
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeError(w, http.StatusUnauthorized, "unauthorized")
}

func writeError(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + code + `"}`))
}

func extractToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	return ""
}

func cookieToken(r *http.Request) string {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(c.Value)
}
