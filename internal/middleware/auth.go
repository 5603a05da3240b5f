package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/larder/internal/auth"
	"github.com/dukerupert/larder/internal/store"
)

// TokenCookieName is the cookie carrying the session token.
const TokenCookieName = "jwt"

// RequireUser authenticates the request from the jwt cookie or a Bearer
// Authorization header, then resolves the user's current household from the
// store so every operation sees fresh membership.
func RequireUser(tokens *auth.Tokens, users *store.UserStore, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				writeError(w, http.StatusUnauthorized, "Unauthorized", "unauthorized")
				return
			}

			userID, err := tokens.Parse(raw)
			if err != nil {
				logger.Debug("rejected token", "error", err, "remote", RealIP(r))
				writeError(w, http.StatusUnauthorized, "Unauthorized", "unauthorized")
				return
			}

			u, err := users.GetByID(r.Context(), userID)
			if err != nil {
				logger.Error("load user", "user_id", userID, "error", err)
				writeError(w, http.StatusInternalServerError, "Something went wrong", "store_failure")
				return
			}
			if u == nil {
				writeError(w, http.StatusUnauthorized, "Unauthorized", "unauthorized")
				return
			}

			ctx := auth.WithUser(r.Context(), auth.UserContext{UserID: u.ID, HouseholdID: u.HouseholdID})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	if cookie, err := r.Cookie(TokenCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func writeError(w http.ResponseWriter, status int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message, "code": code})
}
