/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package media turns stored audio locations into URLs the streaming engine can fetch.
package media

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
)

// Signer presigns object keys.
type Signer interface {
	Bucket() string
	Presign(ctx context.Context, key string) (string, error)
}

// Resolver maps stored audio locations to playable URLs. Absolute http(s)
// URLs pass through; object keys are presigned when a signer is configured,
// otherwise prefixed with the public base URL.
type Resolver struct {
	signer  Signer
	baseURL string
	logger  zerolog.Logger
}

// NewResolver creates a resolver. signer may be nil.
func NewResolver(signer Signer, publicBaseURL string, logger zerolog.Logger) *Resolver {
	return &Resolver{
		signer:  signer,
		baseURL: strings.TrimRight(strings.TrimSpace(publicBaseURL), "/"),
		logger:  logger.With().Str("component", "media").Logger(),
	}
}

// URL resolves one location. An empty location stays empty.
func (r *Resolver) URL(ctx context.Context, location string) string {
	location = strings.TrimSpace(location)
	if location == "" {
		return ""
	}
	lower := strings.ToLower(location)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return location
	}

	key := r.key(location)
	if r.signer != nil {
		u, err := r.signer.Presign(ctx, key)
		if err == nil {
			return u
		}
		r.logger.Warn().Err(err).Str("key", key).Msg("presign failed, using public url")
	}
	if r.baseURL != "" {
		return r.baseURL + "/" + key
	}
	return location
}

// key strips an s3://bucket/ prefix and leading slashes.
func (r *Resolver) key(location string) string {
	if rest, ok := strings.CutPrefix(location, "s3://"); ok {
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			location = rest[i+1:]
		} else {
			location = ""
		}
	}
	return strings.TrimLeft(location, "/")
}
