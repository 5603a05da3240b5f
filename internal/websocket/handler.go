package websocket

import (
	"context"
	"log/slog"
	"net/http"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/larder/internal/auth"
	"github.com/dukerupert/larder/internal/model"
)

// UserLookup loads a user's current membership.
type UserLookup interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
}

// HandleWebSocket upgrades an authenticated request and subscribes the
// connection to the caller's household feed.
func HandleWebSocket(hub *Hub, users UserLookup, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uc, ok := auth.FromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		conn, err := ws.Accept(w, r, nil)
		if err != nil {
			logger.Warn("websocket accept", "error", err, "user_id", uc.UserID)
			return
		}

		client := NewClient(hub, conn, uc.UserID, uc.HouseholdID)
		hub.Register(client)
		defer hub.Unregister(client)

		// A join or leave that committed after the request was authenticated
		// moved the user before this client was registered. Once registered,
		// later moves reach it, so one re-read settles the subscription.
		u, err := users.GetByID(r.Context(), uc.UserID)
		switch {
		case err != nil:
			logger.Error("websocket membership check", "error", err, "user_id", uc.UserID)
			conn.Close(ws.StatusInternalError, "membership check failed")
			return
		case u == nil:
			conn.Close(ws.StatusPolicyViolation, "user not found")
			return
		case u.HouseholdID != uc.HouseholdID:
			hub.Move(uc.UserID, uc.HouseholdID, u.HouseholdID)
		}

		client.Run(r.Context())
	}
}
