package websocket

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/larder/internal/auth"
	"github.com/dukerupert/larder/internal/model"
)

type fakeUsers map[int64]*model.User

func (f fakeUsers) GetByID(_ context.Context, id int64) (*model.User, error) {
	return f[id], nil
}

// dialAs serves the websocket handler as uc and connects to it.
func dialAs(t *testing.T, ctx context.Context, hub *Hub, users UserLookup, uc auth.UserContext) *ws.Conn {
	t.Helper()
	handler := HandleWebSocket(hub, users, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler(w, r.WithContext(auth.WithUser(r.Context(), uc)))
	}))
	t.Cleanup(ts.Close)

	conn, _, err := ws.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.CloseNow() })
	return conn
}

func householdClients(hub *Hub, householdID int64) int {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	return len(hub.households[householdID])
}

func TestHandleWebSocketSubscribesCurrentHousehold(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	// The user moved from household 1 to 2 after the request was authenticated.
	users := fakeUsers{7: {ID: 7, HouseholdID: 2}}
	conn := dialAs(t, ctx, hub, users, auth.UserContext{UserID: 7, HouseholdID: 1})

	for householdClients(hub, 2) != 1 {
		select {
		case <-ctx.Done():
			t.Fatal("client never subscribed to household 2")
		case <-time.After(10 * time.Millisecond):
		}
	}
	if n := householdClients(hub, 1); n != 0 {
		t.Errorf("household 1 clients = %d, want 0", n)
	}

	hub.Broadcast(1, NewMessage("fridge", "updated", 1, nil))
	hub.Broadcast(2, NewMessage("fridge", "updated", 2, nil))

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got Message
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.ID != 2 {
		t.Errorf("received message for household %d, want 2", got.ID)
	}
}

func TestHandleWebSocketClosesForUnknownUser(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	conn := dialAs(t, ctx, hub, fakeUsers{}, auth.UserContext{UserID: 7, HouseholdID: 1})

	_, _, err := conn.Read(ctx)
	if status := ws.CloseStatus(err); status != ws.StatusPolicyViolation {
		t.Errorf("close status = %v, want %v (err %v)", status, ws.StatusPolicyViolation, err)
	}
	for hub.ClientCount() != 0 {
		select {
		case <-ctx.Done():
			t.Fatal("client never unregistered")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
