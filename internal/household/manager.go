// Package household manages which household a user belongs to. Every user is
// in exactly one household and a household is deleted in the same
// transaction that removes its last member.
package household

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/dukerupert/larder/internal/apperror"
	"github.com/dukerupert/larder/internal/auth"
	"github.com/dukerupert/larder/internal/model"
	"github.com/dukerupert/larder/internal/store"
	"github.com/dukerupert/larder/internal/websocket"
)

const maxNameLength = 24

// Notifier receives membership and household changes after they commit.
type Notifier interface {
	Broadcast(householdID int64, msg websocket.Message)
	Move(userID, from, to int64)
}

type Manager struct {
	households *store.HouseholdStore
	notifier   Notifier
	logger     *slog.Logger
}

func NewManager(households *store.HouseholdStore, notifier Notifier, logger *slog.Logger) *Manager {
	return &Manager{
		households: households,
		notifier:   notifier,
		logger:     logger.With("component", "household"),
	}
}

// Change is the outcome of a join or leave. Household is nil when the row
// could not be reloaded after the change committed.
type Change struct {
	Household       *model.Household
	HouseholdID     int64
	PreviousID      int64
	PreviousDeleted bool
}

// Join moves the caller into the household owning joinCode. The code is
// matched case-insensitively.
func (m *Manager) Join(ctx context.Context, user auth.UserContext, joinCode string) (*Change, error) {
	code := strings.ToUpper(strings.TrimSpace(joinCode))
	if code == "" {
		return nil, apperror.Validation("invalid_join_code", "Invalid join code")
	}

	mc, err := m.households.Join(ctx, user.UserID, code)
	switch {
	case errors.Is(err, store.ErrJoinCodeNotFound):
		return nil, apperror.Validation("invalid_join_code", "Invalid join code")
	case err != nil:
		return nil, m.storeError("join household", user, err)
	}

	change := m.finish(ctx, user, mc)
	if mc.HouseholdID != mc.PreviousHouseholdID {
		m.logger.Info("joined household",
			"user_id", user.UserID,
			"household_id", mc.HouseholdID,
			"previous_household_id", mc.PreviousHouseholdID,
			"previous_deleted", mc.PreviousDeleted,
		)
	}
	return change, nil
}

// Leave moves the caller into a new household of their own.
func (m *Manager) Leave(ctx context.Context, user auth.UserContext) (*Change, error) {
	mc, err := m.households.Leave(ctx, user.UserID)
	switch {
	case errors.Is(err, store.ErrJoinCodeExhausted):
		m.logger.Warn("join code space exhausted", "user_id", user.UserID)
		return nil, apperror.Conflict("join_code_collision", "Could not create a new household, try again")
	case err != nil:
		return nil, m.storeError("leave household", user, err)
	}

	change := m.finish(ctx, user, mc)
	m.logger.Info("left household",
		"user_id", user.UserID,
		"household_id", mc.HouseholdID,
		"previous_household_id", mc.PreviousHouseholdID,
		"previous_deleted", mc.PreviousDeleted,
	)
	return change, nil
}

// Members lists the people in the caller's household.
func (m *Manager) Members(ctx context.Context, user auth.UserContext) ([]model.Member, error) {
	members, err := m.households.ListMembers(ctx, user.HouseholdID)
	if err != nil {
		return nil, m.storeError("list members", user, err)
	}
	if members == nil {
		members = []model.Member{}
	}
	return members, nil
}

// EditName renames the caller's household. The length limit counts characters
// after NFC normalization, so a decomposed accent counts once.
func (m *Manager) EditName(ctx context.Context, user auth.UserContext, name string) (*model.Household, error) {
	name = norm.NFC.String(name)
	if name == "" {
		return nil, apperror.Validation("invalid_name", "Invalid name")
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return nil, apperror.Validation("name_too_long", "Name too long")
	}

	h, err := m.households.UpdateName(ctx, user.HouseholdID, name)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil, apperror.NotFound("household_not_found", "Household not found")
	case err != nil:
		return nil, m.storeError("rename household", user, err)
	}

	m.notifier.Broadcast(h.ID, websocket.NewMessage("household", "renamed", h.ID, map[string]any{"name": h.Name}))
	return h, nil
}

// Household returns the caller's household, including the join code to share.
func (m *Manager) Household(ctx context.Context, user auth.UserContext) (*model.Household, error) {
	h, err := m.households.GetByID(ctx, user.HouseholdID)
	if err != nil {
		return nil, m.storeError("get household", user, err)
	}
	if h == nil {
		return nil, apperror.NotFound("household_not_found", "Household not found")
	}
	return h, nil
}

// Register creates a user in a fresh household of their own.
func (m *Manager) Register(ctx context.Context, p store.RegisterParams) (*model.User, error) {
	p.Username = strings.TrimSpace(p.Username)
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	if p.Username == "" {
		return nil, apperror.Validation("invalid_username", "Username is required")
	}
	if p.Email == "" || !strings.Contains(p.Email, "@") {
		return nil, apperror.Validation("invalid_email", "Invalid email")
	}
	p.HouseholdName = norm.NFC.String(p.HouseholdName)
	if utf8.RuneCountInString(p.HouseholdName) > maxNameLength {
		return nil, apperror.Validation("name_too_long", "Name too long")
	}

	u, err := m.households.Register(ctx, p)
	switch {
	case errors.Is(err, store.ErrDuplicate):
		return nil, apperror.Conflict("user_exists", "Username or email already in use")
	case errors.Is(err, store.ErrJoinCodeExhausted):
		return nil, apperror.Conflict("join_code_collision", "Could not create a new household, try again")
	case err != nil:
		m.logger.Error("register user", "username", p.Username, "error", err)
		return nil, apperror.Infrastructure(err)
	}

	m.logger.Info("registered user", "user_id", u.ID, "household_id", u.HouseholdID)
	return u, nil
}

// finish tells connected clients about a committed membership change and
// loads the household the user landed in. The change has already happened, so
// a failed reload is logged and the change is returned without Household.
func (m *Manager) finish(ctx context.Context, user auth.UserContext, mc store.MembershipChange) *Change {
	if mc.HouseholdID != mc.PreviousHouseholdID {
		m.notifier.Move(user.UserID, mc.PreviousHouseholdID, mc.HouseholdID)
		m.notifier.Broadcast(mc.HouseholdID, websocket.NewMessage("household", "member_joined", mc.HouseholdID, map[string]any{"user_id": user.UserID}))
		if !mc.PreviousDeleted {
			m.notifier.Broadcast(mc.PreviousHouseholdID, websocket.NewMessage("household", "member_left", mc.PreviousHouseholdID, map[string]any{"user_id": user.UserID}))
		}
	}

	change := &Change{
		HouseholdID:     mc.HouseholdID,
		PreviousID:      mc.PreviousHouseholdID,
		PreviousDeleted: mc.PreviousDeleted,
	}
	h, err := m.households.GetByID(ctx, mc.HouseholdID)
	switch {
	case err != nil:
		m.logger.Error("reload household", "user_id", user.UserID, "household_id", mc.HouseholdID, "error", err)
	case h == nil:
		// Emptied and deleted by a later leave of the same user.
		m.logger.Warn("household gone after membership change", "user_id", user.UserID, "household_id", mc.HouseholdID)
	default:
		change.Household = h
	}
	return change
}

func (m *Manager) storeError(op string, user auth.UserContext, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperror.NotFound("not_found", "User or household not found")
	}
	m.logger.Error(op, "user_id", user.UserID, "household_id", user.HouseholdID, "error", err)
	return apperror.Infrastructure(err)
}
