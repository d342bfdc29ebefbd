/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */

package satsuki

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"
	"time"
)

type authCtxKey int

const authedUserKey authCtxKey = 0

// ParseBasicAuth extracts the credentials from the Authorization header.
// Every failure comes back as an auth error, so the caller answers 401
// without revealing whether a subdomain exists.
func ParseBasicAuth(r *http.Request) (string, string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", "", Errf(ErrAuth, "missing Authorization header")
	}
	scheme, payload, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Basic") {
		return "", "", Errf(ErrAuth, "expected Basic auth")
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return "", "", Errf(ErrAuth, "invalid Basic payload")
	}
	username, password, found := strings.Cut(string(raw), ":")
	if !found {
		return "", "", Errf(ErrAuth, "invalid Basic payload")
	}
	return username, password, nil
}

// BasicAuthMiddleware authenticates every request on the user subrouter
// against the user store and stashes the user in the request context.
func BasicAuthMiddleware(conf *Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			username, password, err := ParseBasicAuth(r)
			if err != nil {
				writeAPIError(w, err)
				return
			}
			user, err := conf.Internal.UserDB.VerifyAndTouch(username, password, time.Now())
			if err != nil {
				writeAPIError(w, err)
				return
			}
			ctx := context.WithValue(r.Context(), authedUserKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AuthedUser returns the user that BasicAuthMiddleware attached to the
// request, or nil on an unauthenticated route.
func AuthedUser(r *http.Request) *User {
	u, _ := r.Context().Value(authedUserKey).(*User)
	return u
}
