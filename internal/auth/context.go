/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package auth

import "context"

type sessionKey struct{}

// WithClaims returns a copy of ctx carrying the verified session.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, sessionKey{}, claims)
}

// ClaimsFromContext returns the session verified by the middleware, if any.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, _ := ctx.Value(sessionKey{}).(*Claims)
	return claims, claims != nil
}
