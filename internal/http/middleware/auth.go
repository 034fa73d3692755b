package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/vuxmai/catalog-admin/internal/apperr"
	"github.com/vuxmai/catalog-admin/internal/auth"
	"github.com/vuxmai/catalog-admin/internal/http/apierr"
	"github.com/vuxmai/catalog-admin/internal/service"
)

type claimsCtxKey struct{}

// ClaimsFromContext returns the admin claims the Auth middleware verified.
func ClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(claimsCtxKey{}).(*auth.Claims)
	return claims, ok
}

// Auth verifies the Bearer token and rejects tokens revoked by logout.
// Verified claims are placed on the request context.
func Auth(log *slog.Logger, jwt *auth.JWTManager, denylist service.TokenDenylist) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				writeAuthError(w, r, log, apperr.ErrMissingAuthHeader)
				return
			}

			claims, err := jwt.ValidateToken(token)
			if err != nil {
				writeAuthError(w, r, log, apperr.ErrInvalidToken.WrapParent(err))
				return
			}

			revoked, err := denylist.IsRevoked(r.Context(), claims.ID)
			if err != nil {
				// The denylist being down must not open the door.
				writeAuthError(w, r, log, apperr.ErrInvalidToken.WrapParent(err))
				return
			}
			if revoked {
				writeAuthError(w, r, log, apperr.ErrTokenRevoked)
				return
			}

			ctx := context.WithValue(r.Context(), claimsCtxKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return header[len(prefix):], true
}

func writeAuthError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	res := apierr.New(err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(res.StatusCode)

	log.WarnContext(r.Context(), "request rejected", slog.Any("error", err))

	if err := json.NewEncoder(w).Encode(res); err != nil {
		log.ErrorContext(r.Context(), "error encoding error response", slog.Any("error", err))
	}
}
