package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/forgo/tours/api/internal/database"
	"github.com/forgo/tours/api/internal/model"
	"github.com/forgo/tours/api/internal/query"
)

// UserRepository handles user data access
type UserRepository struct {
	db database.Database
}

// NewUserRepository creates a new user repository
func NewUserRepository(db database.Database) *UserRepository {
	return &UserRepository{db: db}
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	// Default to user role if not specified
	role := user.Role
	if role == "" {
		role = model.UserRoleUser
	}

	query := `
		CREATE type::thing("user", $key) CONTENT {
			name: $name,
			email: $email,
			photo: $photo,
			role: $role,
			passwordHash: $passwordHash,
			createdAt: time::now()
		}
	`

	vars := map[string]interface{}{
		"key":          newRecordKey(),
		"name":         user.Name,
		"email":        user.Email,
		"photo":        user.Photo,
		"role":         role,
		"passwordHash": user.PasswordHash,
	}

	result, err := r.db.Query(ctx, query, vars)
	if err != nil {
		return duplicateFromError(err)
	}

	records := extractRecords(result)
	if len(records) == 0 {
		return errors.New("no result returned")
	}
	*user = *parseUser(records[0])
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	key, err := recordKey(tableUser, id)
	if err != nil {
		return nil, err
	}
	return r.getOne(ctx, `SELECT * FROM type::thing("user", $key)`, map[string]interface{}{"key": key})
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT * FROM user WHERE email = $email LIMIT 1`
	return r.getOne(ctx, query, map[string]interface{}{"email": strings.ToLower(strings.TrimSpace(email))})
}

// GetByResetToken retrieves the user holding an unexpired reset token hash
func (r *UserRepository) GetByResetToken(ctx context.Context, tokenHash string, now time.Time) (*model.User, error) {
	query := `
		SELECT * FROM user
		WHERE passwordResetToken = $hash AND passwordResetExpires > <datetime> $now
		LIMIT 1
	`
	vars := map[string]interface{}{
		"hash": tokenHash,
		"now":  now.UTC().Format(time.RFC3339Nano),
	}
	return r.getOne(ctx, query, vars)
}

// GetByIDs retrieves the users with the given ids, skipping missing ones
func (r *UserRepository) GetByIDs(ctx context.Context, ids []string) ([]*model.User, error) {
	if len(ids) == 0 {
		return []*model.User{}, nil
	}
	keys, err := recordKeys(tableUser, ids)
	if err != nil {
		return nil, err
	}

	query := `SELECT * FROM user WHERE id IN $keys.map(|$k| type::thing("user", $k))`
	result, err := r.db.Query(ctx, query, map[string]interface{}{"keys": keys})
	if err != nil {
		return nil, err
	}

	records := extractRecords(result)
	users := make([]*model.User, 0, len(records))
	for _, rec := range records {
		users = append(users, parseUser(rec))
	}
	return users, nil
}

// List returns the users matching q
func (r *UserRepository) List(ctx context.Context, q query.Query) ([]*model.User, error) {
	sel, err := buildSelect(userSchema, q, "")
	if err != nil {
		return nil, err
	}

	result, err := r.db.Query(ctx, sel.SQL, sel.Vars)
	if err != nil {
		return nil, err
	}

	records := extractRecords(result)
	users := make([]*model.User, 0, len(records))
	for _, rec := range records {
		users = append(users, parseUser(rec))
	}
	return users, nil
}

// UpdateProfile applies the whitelisted fields and returns the updated user
func (r *UserRepository) UpdateProfile(ctx context.Context, id string, update model.UserUpdate) (*model.User, error) {
	key, err := recordKey(tableUser, id)
	if err != nil {
		return nil, err
	}

	sets := []string{}
	vars := map[string]interface{}{"key": key}
	if update.Name != nil {
		sets = append(sets, "name = $name")
		vars["name"] = *update.Name
	}
	if update.Email != nil {
		sets = append(sets, "email = $email")
		vars["email"] = *update.Email
	}
	if update.Photo != nil {
		sets = append(sets, "photo = $photo")
		vars["photo"] = *update.Photo
	}
	if len(sets) == 0 {
		return r.GetByID(ctx, id)
	}

	query := `UPDATE user SET ` + strings.Join(sets, ", ") +
		` WHERE id = type::thing("user", $key) RETURN AFTER`

	result, err := r.db.Query(ctx, query, vars)
	if err != nil {
		return nil, duplicateFromError(err)
	}
	records := extractRecords(result)
	if len(records) == 0 {
		return nil, nil
	}
	return parseUser(records[0]), nil
}

// SetResetToken stores a reset token hash and its expiry
func (r *UserRepository) SetResetToken(ctx context.Context, id, tokenHash string, expires time.Time) error {
	key, err := recordKey(tableUser, id)
	if err != nil {
		return err
	}

	query := `
		UPDATE type::thing("user", $key) SET
			passwordResetToken = $hash,
			passwordResetExpires = <datetime> $expires
	`
	vars := map[string]interface{}{
		"key":     key,
		"hash":    tokenHash,
		"expires": expires.UTC().Format(time.RFC3339Nano),
	}
	return r.db.Execute(ctx, query, vars)
}

// ClearResetToken removes any pending reset token
func (r *UserRepository) ClearResetToken(ctx context.Context, id string) error {
	key, err := recordKey(tableUser, id)
	if err != nil {
		return err
	}

	query := `UPDATE type::thing("user", $key) SET passwordResetToken = NONE, passwordResetExpires = NONE`
	return r.db.Execute(ctx, query, map[string]interface{}{"key": key})
}

// ClearExpiredResetTokens removes every reset token that expired before now
// and returns how many users were touched
func (r *UserRepository) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int, error) {
	query := `
		UPDATE user SET passwordResetToken = NONE, passwordResetExpires = NONE
		WHERE passwordResetExpires != NONE AND passwordResetExpires < <datetime> $now
		RETURN BEFORE
	`
	result, err := r.db.Query(ctx, query, map[string]interface{}{
		"now": now.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return 0, err
	}
	return len(extractRecords(result)), nil
}

// UpdatePassword stores a new hash, records the change time and clears any
// pending reset token
func (r *UserRepository) UpdatePassword(ctx context.Context, id, hash string, changedAt time.Time) error {
	key, err := recordKey(tableUser, id)
	if err != nil {
		return err
	}

	query := `
		UPDATE type::thing("user", $key) SET
			passwordHash = $hash,
			passwordChangedAt = <datetime> $changedAt,
			passwordResetToken = NONE,
			passwordResetExpires = NONE
	`
	vars := map[string]interface{}{
		"key":       key,
		"hash":      hash,
		"changedAt": changedAt.UTC().Format(time.RFC3339Nano),
	}
	return r.db.Execute(ctx, query, vars)
}

func (r *UserRepository) getOne(ctx context.Context, query string, vars map[string]interface{}) (*model.User, error) {
	result, err := r.db.QueryOne(ctx, query, vars)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	data, ok := result.(map[string]interface{})
	if !ok {
		return nil, errors.New("unexpected result format")
	}
	return parseUser(data), nil
}

func parseUser(data map[string]interface{}) *model.User {
	return &model.User{
		ID:                   convertSurrealID(data["id"]),
		Name:                 getString(data, "name"),
		Email:                getString(data, "email"),
		Photo:                getString(data, "photo"),
		Role:                 model.UserRole(getString(data, "role")),
		PasswordHash:         getString(data, "passwordHash"),
		PasswordChangedAt:    getTimePtr(data, "passwordChangedAt"),
		PasswordResetToken:   getString(data, "passwordResetToken"),
		PasswordResetExpires: getTimePtr(data, "passwordResetExpires"),
		CreatedAt:            getTime(data, "createdAt"),
	}
}
