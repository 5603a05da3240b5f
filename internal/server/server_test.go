package server

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/larder/internal/auth"
	"github.com/dukerupert/larder/internal/database"
	"github.com/dukerupert/larder/internal/model"
	"github.com/dukerupert/larder/internal/store"
	larderws "github.com/dukerupert/larder/internal/websocket"
)

type testEnv struct {
	db     *sql.DB
	srv    *Server
	router http.Handler
	tokens *auth.Tokens
}

func setupServer(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	tokens := auth.NewTokens("test-secret", time.Hour)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := New(db, tokens, JoinLimit{Requests: 3, Window: time.Minute}, logger)
	return &testEnv{db: db, srv: srv, router: srv.Router(), tokens: tokens}
}

type testUser struct {
	*model.User
	token string
}

func (e *testEnv) register(t *testing.T, username string) testUser {
	t.Helper()
	u, err := store.NewHouseholdStore(e.db).Register(context.Background(), store.RegisterParams{
		Username:  username,
		Email:     username + "@example.com",
		FirstName: username,
	})
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	token, err := e.tokens.Issue(u.ID)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return testUser{User: u, token: token}
}

func (e *testEnv) item(t *testing.T, name string) int64 {
	t.Helper()
	item, err := store.NewItemStore(e.db).Create(context.Background(), name)
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	return item.ID
}

type envelope struct {
	Data     json.RawMessage `json:"data"`
	Message  string          `json:"message"`
	Redirect string          `json:"redirect"`
	Error    string          `json:"error"`
	Code     string          `json:"code"`
}

func (e *testEnv) do(t *testing.T, u testUser, method, path string, body any) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if u.token != "" {
		req.AddCookie(&http.Cookie{Name: "jwt", Value: u.token})
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	var env envelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("%s %s: decode response: %v", method, path, err)
	}
	return rec.Code, env
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(env.Data, &v); err != nil {
		t.Fatalf("decode data %s: %v", env.Data, err)
	}
	return v
}

func TestHealth(t *testing.T) {
	e := setupServer(t)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestAPIRequiresAuth(t *testing.T) {
	e := setupServer(t)
	code, env := e.do(t, testUser{}, "GET", "/api/households/members", nil)
	if code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", code, http.StatusUnauthorized)
	}
	if env.Error != "Unauthorized" {
		t.Errorf("error = %q", env.Error)
	}
}

func TestHouseholdFlow(t *testing.T) {
	e := setupServer(t)
	alice := e.register(t, "alice")
	bob := e.register(t, "bob")

	code, env := e.do(t, alice, "GET", "/api/households/current", nil)
	if code != http.StatusOK {
		t.Fatalf("current: status = %d (%s)", code, env.Error)
	}
	h := decodeData[model.Household](t, env)

	code, env = e.do(t, bob, "POST", "/api/households/join", map[string]string{"join_code": strings.ToLower(h.JoinCode)})
	if code != http.StatusOK {
		t.Fatalf("join: status = %d (%s)", code, env.Error)
	}
	if env.Message != "Successfully joined household" {
		t.Errorf("message = %q", env.Message)
	}

	code, env = e.do(t, bob, "GET", "/api/households/members", nil)
	if code != http.StatusOK {
		t.Fatalf("members: status = %d", code)
	}
	if members := decodeData[[]model.Member](t, env); len(members) != 2 {
		t.Errorf("members = %+v, want 2", members)
	}

	code, env = e.do(t, bob, "PUT", "/api/households/edit", map[string]string{"name": strings.Repeat("x", 25)})
	if code != http.StatusBadRequest || env.Error != "Name too long" {
		t.Errorf("edit: status = %d error = %q, want 400 Name too long", code, env.Error)
	}

	code, env = e.do(t, bob, "PUT", "/api/households/edit", map[string]string{"name": "Bag End"})
	if code != http.StatusOK {
		t.Fatalf("edit: status = %d (%s)", code, env.Error)
	}

	code, env = e.do(t, alice, "POST", "/api/households/leave", nil)
	if code != http.StatusOK {
		t.Fatalf("leave: status = %d (%s)", code, env.Error)
	}
	if got := decodeData[model.Household](t, env); got.ID == h.ID {
		t.Error("alice should be in a new household")
	}

	code, env = e.do(t, bob, "GET", "/api/households/current", nil)
	if got := decodeData[model.Household](t, env); code != http.StatusOK || got.Name != "Bag End" {
		t.Errorf("bob's household = %+v, want Bag End", got)
	}
}

func TestJoinInvalidCodeAndRateLimit(t *testing.T) {
	e := setupServer(t)
	alice := e.register(t, "alice")

	for i := 0; i < 3; i++ {
		code, env := e.do(t, alice, "POST", "/api/households/join", map[string]string{"join_code": "ZZZZZZZZ"})
		if code != http.StatusBadRequest || env.Error != "Invalid join code" {
			t.Errorf("attempt %d: status = %d error = %q", i+1, code, env.Error)
		}
	}

	code, env := e.do(t, alice, "POST", "/api/households/join", map[string]string{"join_code": "ZZZZZZZZ"})
	if code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want %d", code, http.StatusTooManyRequests)
	}
	if env.Code != "rate_limited" {
		t.Errorf("code = %q, want rate_limited", env.Code)
	}
}

func TestShoppingListFlow(t *testing.T) {
	e := setupServer(t)
	alice := e.register(t, "alice")
	milk, eggs := e.item(t, "Milk"), e.item(t, "Eggs")

	code, env := e.do(t, alice, "POST", "/api/fridge/items", map[string][]int64{"items": {milk}})
	if code != http.StatusOK {
		t.Fatalf("fridge add: status = %d (%s)", code, env.Error)
	}

	code, env = e.do(t, alice, "POST", "/api/shopping-lists", map[string]any{"name": "Weekly", "items": []int64{milk}})
	if code != http.StatusCreated {
		t.Fatalf("create: status = %d (%s)", code, env.Error)
	}
	list := decodeData[model.ShoppingList](t, env)
	if env.Redirect != "/shopping-lists/"+itoa(list.ID) {
		t.Errorf("redirect = %q", env.Redirect)
	}
	base := "/api/shopping-lists/" + itoa(list.ID)

	code, env = e.do(t, alice, "POST", base+"/items", map[string]int64{"item_id": eggs})
	if code != http.StatusOK {
		t.Fatalf("add item: status = %d (%s)", code, env.Error)
	}
	code, env = e.do(t, alice, "POST", base+"/items", map[string]int64{"item_id": eggs})
	if code != http.StatusConflict {
		t.Errorf("duplicate add: status = %d, want %d", code, http.StatusConflict)
	}

	code, env = e.do(t, alice, "PUT", base+"/items/"+itoa(milk)+"/purchased", nil)
	if code != http.StatusOK || !decodeData[model.ShoppingListItem](t, env).Purchased {
		t.Fatalf("toggle purchased: status = %d (%s)", code, env.Error)
	}

	code, env = e.do(t, alice, "PUT", base+"/archive", nil)
	if code != http.StatusOK {
		t.Fatalf("archive: status = %d (%s)", code, env.Error)
	}
	archived := decodeData[model.ShoppingList](t, env)
	if !archived.Archived || len(archived.Items) != 1 || archived.Items[0].ItemID != eggs {
		t.Errorf("archived list = %+v, want archived with only eggs", archived)
	}

	code, env = e.do(t, alice, "GET", "/api/fridge/items", nil)
	if fridge := decodeData[[]model.Item](t, env); code != http.StatusOK || len(fridge) != 1 {
		t.Errorf("fridge = %+v, want only milk", fridge)
	}

	code, env = e.do(t, alice, "DELETE", base+"/items/"+itoa(eggs), nil)
	if code != http.StatusBadRequest || env.Code != "list_archived" {
		t.Errorf("remove from archived: status = %d code = %q", code, env.Code)
	}

	code, _ = e.do(t, alice, "DELETE", base, nil)
	if code != http.StatusOK {
		t.Errorf("delete: status = %d", code)
	}
	code, _ = e.do(t, alice, "GET", base, nil)
	if code != http.StatusNotFound {
		t.Errorf("get deleted: status = %d, want %d", code, http.StatusNotFound)
	}
}

func TestShoppingListRequestValidation(t *testing.T) {
	e := setupServer(t)
	alice := e.register(t, "alice")

	code, env := e.do(t, alice, "POST", "/api/shopping-lists", map[string]string{"name": "Weekly"})
	if code != http.StatusBadRequest || env.Error != "Missing items" {
		t.Errorf("status = %d error = %q", code, env.Error)
	}
	for _, path := range []string{"/api/shopping-lists", "/api/households/join"} {
		code, env = e.do(t, alice, "POST", path, "not an object")
		if code != http.StatusBadRequest || env.Error != "Invalid JSON" {
			t.Errorf("POST %s malformed body: status = %d error = %q", path, code, env.Error)
		}
	}
	code, env = e.do(t, alice, "GET", "/api/shopping-lists/abc", nil)
	if code != http.StatusBadRequest {
		t.Errorf("bad id: status = %d", code)
	}
	code, env = e.do(t, alice, "POST", "/api/fridge/items", map[string][]int64{"items": {}})
	if code != http.StatusBadRequest || env.Error != "Items cannot be empty" {
		t.Errorf("empty fridge add: status = %d error = %q", code, env.Error)
	}
	code, env = e.do(t, alice, "DELETE", "/api/fridge/items", map[string]string{})
	if code != http.StatusBadRequest || env.Error != "Items not provided" {
		t.Errorf("missing items: status = %d error = %q", code, env.Error)
	}
	code, env = e.do(t, alice, "GET", "/api/shopping-lists", nil)
	if code != http.StatusOK || string(env.Data) != "[]" {
		t.Errorf("empty list: status = %d data = %s", code, env.Data)
	}
}

func TestCreateFromRecipe(t *testing.T) {
	e := setupServer(t)
	alice := e.register(t, "alice")
	flour, milk := e.item(t, "Flour"), e.item(t, "Milk")
	recipe, err := store.NewRecipeStore(e.db).Create(context.Background(), "Crepes", "", nil, []model.RecipeIngredient{
		{ItemID: flour}, {ItemID: milk},
	})
	if err != nil {
		t.Fatalf("create recipe: %v", err)
	}
	e.do(t, alice, "POST", "/api/fridge/items", map[string][]int64{"items": {milk}})

	code, env := e.do(t, alice, "POST", "/api/recipes/"+itoa(recipe.ID)+"/shopping-list", nil)
	if code != http.StatusCreated {
		t.Fatalf("status = %d (%s)", code, env.Error)
	}
	list := decodeData[model.ShoppingList](t, env)
	if list.Description != "Shopping list for: Crepes" || len(list.Items) != 1 || list.Items[0].ItemID != flour {
		t.Errorf("list = %+v", list)
	}

	code, env = e.do(t, alice, "POST", "/api/recipes/999/shopping-list", nil)
	if code != http.StatusNotFound || env.Error != "Recipe not found" {
		t.Errorf("status = %d error = %q", code, env.Error)
	}
}

func TestWebSocketFeedScopedToHousehold(t *testing.T) {
	e := setupServer(t)
	alice := e.register(t, "alice")
	bob := e.register(t, "bob")

	ts := httptest.NewServer(e.router)
	t.Cleanup(ts.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	dial := func(u testUser) *ws.Conn {
		conn, _, err := ws.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", &ws.DialOptions{
			HTTPHeader: http.Header{"Authorization": {"Bearer " + u.token}},
		})
		if err != nil {
			t.Fatalf("dial: %v", err)
		}
		t.Cleanup(func() { conn.CloseNow() })
		return conn
	}
	aliceConn := dial(alice)
	dial(bob)

	for e.srv.hub.ClientCount() < 2 {
		select {
		case <-ctx.Done():
			t.Fatal("clients never registered")
		case <-time.After(10 * time.Millisecond):
		}
	}

	code, env := e.do(t, bob, "PUT", "/api/households/edit", map[string]string{"name": "Bob's place"})
	if code != http.StatusOK {
		t.Fatalf("edit: status = %d (%s)", code, env.Error)
	}
	code, env = e.do(t, alice, "PUT", "/api/households/edit", map[string]string{"name": "Alice's place"})
	if code != http.StatusOK {
		t.Fatalf("edit: status = %d (%s)", code, env.Error)
	}

	_, data, err := aliceConn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg larderws.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Type != "household_renamed" || msg.ID != alice.HouseholdID {
		t.Errorf("alice got %+v, want household_renamed for %d", msg, alice.HouseholdID)
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
