package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/larder/internal/auth"
	"github.com/dukerupert/larder/internal/handler"
	"github.com/dukerupert/larder/internal/household"
	"github.com/dukerupert/larder/internal/middleware"
	"github.com/dukerupert/larder/internal/shopping"
	"github.com/dukerupert/larder/internal/store"
	ws "github.com/dukerupert/larder/internal/websocket"
)

// JoinLimit bounds join attempts per user, since join codes are guessable
// by brute force.
type JoinLimit struct {
	Requests int
	Window   time.Duration
}

type Server struct {
	db          *sql.DB
	hub         *ws.Hub
	tokens      *auth.Tokens
	userStore   *store.UserStore
	householdH  *handler.HouseholdHandler
	shoppingH   *handler.ShoppingListHandler
	fridgeH     *handler.FridgeHandler
	rateLimiter *middleware.RateLimiter
	joinLimit   JoinLimit
	logger      *slog.Logger
}

func New(db *sql.DB, tokens *auth.Tokens, joinLimit JoinLimit, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	householdStore := store.NewHouseholdStore(db)
	listStore := store.NewShoppingListStore(db)
	recipeStore := store.NewRecipeStore(db)
	fridgeStore := store.NewFridgeStore(db)

	return &Server{
		db:          db,
		hub:         hub,
		tokens:      tokens,
		userStore:   store.NewUserStore(db),
		householdH:  handler.NewHouseholdHandler(household.NewManager(householdStore, hub, logger)),
		shoppingH:   handler.NewShoppingListHandler(shopping.NewReconciler(listStore, recipeStore, hub, logger)),
		fridgeH:     handler.NewFridgeHandler(shopping.NewFridge(fridgeStore, hub, logger)),
		rateLimiter: middleware.NewRateLimiter(),
		joinLimit:   joinLimit,
		logger:      logger,
	}
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()
	outerMux.HandleFunc("GET /health", s.healthHandler)

	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	requireUser := middleware.RequireUser(s.tokens, s.userStore, s.logger.With("component", "auth"))
	outerMux.Handle("/", requireUser(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	joinLimited := middleware.RateLimit(s.rateLimiter, middleware.UserKey, s.joinLimit.Requests, s.joinLimit.Window)

	// Household routes
	mux.Handle("POST /api/households/join", joinLimited(http.HandlerFunc(s.householdH.Join)))
	mux.HandleFunc("POST /api/households/leave", s.householdH.Leave)
	mux.HandleFunc("GET /api/households/members", s.householdH.Members)
	mux.HandleFunc("GET /api/households/current", s.householdH.Current)
	mux.HandleFunc("PUT /api/households/edit", s.householdH.EditName)

	// Fridge routes
	mux.HandleFunc("GET /api/fridge/items", s.fridgeH.List)
	mux.HandleFunc("POST /api/fridge/items", s.fridgeH.Add)
	mux.HandleFunc("DELETE /api/fridge/items", s.fridgeH.Remove)

	// Shopping list routes
	mux.HandleFunc("GET /api/shopping-lists", s.shoppingH.List)
	mux.HandleFunc("POST /api/shopping-lists", s.shoppingH.Create)
	mux.HandleFunc("GET /api/shopping-lists/{id}", s.shoppingH.Get)
	mux.HandleFunc("DELETE /api/shopping-lists/{id}", s.shoppingH.Delete)
	mux.HandleFunc("PUT /api/shopping-lists/{id}/archive", s.shoppingH.ToggleArchive)
	mux.HandleFunc("POST /api/shopping-lists/{id}/items", s.shoppingH.AddItem)
	mux.HandleFunc("DELETE /api/shopping-lists/{id}/items/{item_id}", s.shoppingH.RemoveItem)
	mux.HandleFunc("PUT /api/shopping-lists/{id}/items/{item_id}/purchased", s.shoppingH.TogglePurchased)
	mux.HandleFunc("POST /api/recipes/{id}/shopping-list", s.shoppingH.CreateFromRecipe)

	// WebSocket
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.userStore, s.logger.With("component", "websocket")))
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("health check", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"status": "unavailable"})
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
