package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/SamSjosten/FitChallenge-sub003/internal/auth"
	"github.com/SamSjosten/FitChallenge-sub003/internal/logging"
	"github.com/SamSjosten/FitChallenge-sub003/internal/models/dtos/responses"
)

// AuthMiddleware verifies the bearer token and stores the caller's claims on the request
func AuthMiddleware(tokens *auth.TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				responses.WriteError(w, http.StatusUnauthorized, "Unauthorized. Missing bearer token")
				return
			}

			claims, err := tokens.Parse(strings.TrimPrefix(authHeader, "Bearer "))
			if err != nil {
				logging.Debug("Rejected bearer token", "request_id", GetRequestID(r.Context()), "error", err)
				msg := "Unauthorized. Invalid bearer token"
				if errors.Is(err, auth.ErrMissingToken) {
					msg = "Unauthorized. Missing bearer token"
				}
				responses.WriteError(w, http.StatusUnauthorized, msg)
				return
			}

			ctx := auth.SetUserClaims(r.Context(), claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
