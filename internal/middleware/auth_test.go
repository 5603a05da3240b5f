package middleware

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dukerupert/larder/internal/auth"
	"github.com/dukerupert/larder/internal/database"
	"github.com/dukerupert/larder/internal/store"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func setupAuthMiddleware(t *testing.T) (*auth.Tokens, *store.UserStore, *store.HouseholdStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return auth.NewTokens("test-secret", time.Hour), store.NewUserStore(db), store.NewHouseholdStore(db)
}

func unreachable(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("should not reach handler")
	})
}

func assertUnauthorized(t *testing.T, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"] != "Unauthorized" {
		t.Errorf("error = %q, want %q", body["error"], "Unauthorized")
	}
}

func TestRequireUserNoToken(t *testing.T) {
	tokens, users, _ := setupAuthMiddleware(t)

	rec := httptest.NewRecorder()
	RequireUser(tokens, users, discard)(unreachable(t)).ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	assertUnauthorized(t, rec)
}

func TestRequireUserInvalidToken(t *testing.T) {
	tokens, users, _ := setupAuthMiddleware(t)

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: TokenCookieName, Value: "invalid-token"})
	rec := httptest.NewRecorder()
	RequireUser(tokens, users, discard)(unreachable(t)).ServeHTTP(rec, req)

	assertUnauthorized(t, rec)
}

func TestRequireUserUnknownUser(t *testing.T) {
	tokens, users, _ := setupAuthMiddleware(t)
	signed, _ := tokens.Issue(999)

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()
	RequireUser(tokens, users, discard)(unreachable(t)).ServeHTTP(rec, req)

	assertUnauthorized(t, rec)
}

func TestRequireUserLoadsCurrentHousehold(t *testing.T) {
	tokens, users, households := setupAuthMiddleware(t)
	ctx := context.Background()

	alice, err := households.Register(ctx, store.RegisterParams{Username: "alice", Email: "alice@example.com"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	signed, _ := tokens.Issue(alice.ID)

	// Token issued before the move still resolves to the new household.
	change, err := households.Leave(ctx, alice.ID)
	if err != nil {
		t.Fatalf("leave: %v", err)
	}

	for _, viaCookie := range []bool{true, false} {
		var got auth.UserContext
		handler := RequireUser(tokens, users, discard)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, _ = auth.FromContext(r.Context())
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest("GET", "/", nil)
		if viaCookie {
			req.AddCookie(&http.Cookie{Name: TokenCookieName, Value: signed})
		} else {
			req.Header.Set("Authorization", "bearer "+signed)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}
		if got.UserID != alice.ID {
			t.Errorf("UserID = %d, want %d", got.UserID, alice.ID)
		}
		if got.HouseholdID != change.HouseholdID {
			t.Errorf("HouseholdID = %d, want %d", got.HouseholdID, change.HouseholdID)
		}
	}
}
