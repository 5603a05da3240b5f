package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dukerupert/larder/internal/model"
)

const defaultHouseholdName = "My Household"

type HouseholdStore struct {
	db       *sql.DB
	joinCode func() (string, error)
}

func NewHouseholdStore(db *sql.DB) *HouseholdStore {
	return &HouseholdStore{db: db, joinCode: GenerateJoinCode}
}

// MembershipChange describes where a join or leave moved a user and whether
// the household they left was deleted because it became empty.
type MembershipChange struct {
	UserID              int64
	HouseholdID         int64
	PreviousHouseholdID int64
	PreviousDeleted     bool
}

type RegisterParams struct {
	Username      string
	Email         string
	FirstName     string
	LastName      string
	AvatarURL     string
	HouseholdName string
}

func scanHousehold(scanner interface{ Scan(...any) error }) (*model.Household, error) {
	var h model.Household
	err := scanner.Scan(&h.ID, &h.JoinCode, &h.Name, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

const householdCols = `id, join_code, name, created_at, updated_at`

func (s *HouseholdStore) GetByID(ctx context.Context, id int64) (*model.Household, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+householdCols+` FROM households WHERE id = ?`, id)
	h, err := scanHousehold(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get household: %w", err)
	}
	return h, nil
}

func (s *HouseholdStore) GetByJoinCode(ctx context.Context, joinCode string) (*model.Household, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+householdCols+` FROM households WHERE join_code = ?`, joinCode)
	h, err := scanHousehold(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get household by join code: %w", err)
	}
	return h, nil
}

// UpdateName renames a household. Returns ErrNotFound if it no longer exists.
func (s *HouseholdStore) UpdateName(ctx context.Context, id int64, name string) (*model.Household, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE households SET name = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		name, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update household: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return nil, ErrNotFound
	}
	return s.GetByID(ctx, id)
}

func (s *HouseholdStore) ListMembers(ctx context.Context, householdID int64) ([]model.Member, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT first_name, last_name, avatar_url FROM users WHERE household_id = ? ORDER BY id ASC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []model.Member
	for rows.Next() {
		var m model.Member
		if err := rows.Scan(&m.FirstName, &m.LastName, &m.AvatarURL); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (s *HouseholdStore) CountMembers(ctx context.Context, householdID int64) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE household_id = ?`,
		householdID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count members: %w", err)
	}
	return count, nil
}

// Register creates a household with a fresh join code and its first user in
// a single transaction. Returns ErrDuplicate if the username or email is taken.
func (s *HouseholdStore) Register(ctx context.Context, p RegisterParams) (*model.User, error) {
	name := p.HouseholdName
	if name == "" {
		name = defaultHouseholdName
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	householdID, err := s.insertHousehold(ctx, tx, name)
	if err != nil {
		return nil, err
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO users (household_id, username, email, first_name, last_name, avatar_url) VALUES (?, ?, ?, ?, ?, ?)`,
		householdID, p.Username, p.Email, p.FirstName, p.LastName, p.AvatarURL,
	)
	if isUniqueViolation(err) {
		return nil, ErrDuplicate
	}
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	userID, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	row := tx.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE id = ?`, userID)
	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return u, nil
}

// Join moves a user into the household owning joinCode. The user's previous
// household is snapshotted before the move and deleted in the same
// transaction if nobody is left in it. Joining the current household is a
// no-op.
func (s *HouseholdStore) Join(ctx context.Context, userID int64, joinCode string) (MembershipChange, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return MembershipChange{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var targetID int64
	err = tx.QueryRowContext(ctx, `SELECT id FROM households WHERE join_code = ?`, joinCode).Scan(&targetID)
	if errors.Is(err, sql.ErrNoRows) {
		return MembershipChange{}, ErrJoinCodeNotFound
	}
	if err != nil {
		return MembershipChange{}, fmt.Errorf("lookup join code: %w", err)
	}

	previousID, err := currentHousehold(ctx, tx, userID)
	if err != nil {
		return MembershipChange{}, err
	}

	change := MembershipChange{UserID: userID, HouseholdID: targetID, PreviousHouseholdID: previousID}
	if targetID == previousID {
		if err := tx.Commit(); err != nil {
			return MembershipChange{}, fmt.Errorf("commit: %w", err)
		}
		return change, nil
	}

	if err := moveUser(ctx, tx, userID, targetID); err != nil {
		return MembershipChange{}, err
	}
	change.PreviousDeleted, err = deleteIfEmpty(ctx, tx, previousID)
	if err != nil {
		return MembershipChange{}, err
	}

	if err := tx.Commit(); err != nil {
		return MembershipChange{}, fmt.Errorf("commit: %w", err)
	}
	return change, nil
}

// Leave moves a user into a brand-new household of their own and deletes the
// previous household if it became empty. Nothing is mutated when a unique
// join code cannot be generated.
func (s *HouseholdStore) Leave(ctx context.Context, userID int64) (MembershipChange, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return MembershipChange{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	previousID, err := currentHousehold(ctx, tx, userID)
	if err != nil {
		return MembershipChange{}, err
	}

	newID, err := s.insertHousehold(ctx, tx, defaultHouseholdName)
	if err != nil {
		return MembershipChange{}, err
	}
	if err := moveUser(ctx, tx, userID, newID); err != nil {
		return MembershipChange{}, err
	}

	change := MembershipChange{UserID: userID, HouseholdID: newID, PreviousHouseholdID: previousID}
	change.PreviousDeleted, err = deleteIfEmpty(ctx, tx, previousID)
	if err != nil {
		return MembershipChange{}, err
	}

	if err := tx.Commit(); err != nil {
		return MembershipChange{}, fmt.Errorf("commit: %w", err)
	}
	return change, nil
}

// insertHousehold creates a household, regenerating the join code on collision.
func (s *HouseholdStore) insertHousehold(ctx context.Context, tx *sql.Tx, name string) (int64, error) {
	for attempt := 0; attempt < maxJoinCodeAttempts; attempt++ {
		code, err := s.joinCode()
		if err != nil {
			return 0, err
		}
		result, err := tx.ExecContext(ctx,
			`INSERT INTO households (join_code, name) VALUES (?, ?)`,
			code, name,
		)
		if isUniqueViolation(err) {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("insert household: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("last insert id: %w", err)
		}
		return id, nil
	}
	return 0, ErrJoinCodeExhausted
}

func currentHousehold(ctx context.Context, tx *sql.Tx, userID int64) (int64, error) {
	var householdID int64
	err := tx.QueryRowContext(ctx, `SELECT household_id FROM users WHERE id = ?`, userID).Scan(&householdID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("get current household: %w", err)
	}
	return householdID, nil
}

func moveUser(ctx context.Context, tx *sql.Tx, userID, householdID int64) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE users SET household_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		householdID, userID,
	)
	if isForeignKeyViolation(err) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("move user: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// deleteIfEmpty removes a household in one statement only when no user
// references it, so the member count can never be observed at zero.
func deleteIfEmpty(ctx context.Context, tx *sql.Tx, householdID int64) (bool, error) {
	result, err := tx.ExecContext(ctx,
		`DELETE FROM households
		 WHERE id = ? AND NOT EXISTS (SELECT 1 FROM users WHERE household_id = ?)`,
		householdID, householdID,
	)
	if err != nil {
		return false, fmt.Errorf("delete empty household: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}
