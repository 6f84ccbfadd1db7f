package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mkrupp/postboard/internal/domain"
	"github.com/mkrupp/postboard/internal/infra/logging"
	"github.com/mkrupp/postboard/internal/infra/sqlite"
	"github.com/mkrupp/postboard/internal/util/encoding"
)

// SQLiteUserRepository implements Repository on the embedded SQLite store.
// Ids are UUIDv7 in lowercase Crockford base32.
type SQLiteUserRepository struct {
	db  *sqlite.DB
	log logging.Logger
}

var _ Repository = (*SQLiteUserRepository)(nil)

// SQLiteUserRepositoryFactory returns a RepositoryFactory bound to db.
func SQLiteUserRepositoryFactory(db *sqlite.DB) RepositoryFactory {
	return func() (Repository, error) {
		return NewSQLiteUserRepository(db), nil
	}
}

// NewSQLiteUserRepository creates a repository on an opened database.
func NewSQLiteUserRepository(db *sqlite.DB) *SQLiteUserRepository {
	return &SQLiteUserRepository{
		db:  db,
		log: logging.GetLogger("repo.user.sqlite_user_repository"),
	}
}

// newID generates a time-ordered record id.
func newID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}

	return encoding.EncodeCrockfordB32LC(id[:]), nil
}

// validID reports whether id could have been produced by newID. Anything else
// cannot exist in the table.
func validID(id string) bool {
	raw, err := encoding.DecodeCrockfordB32LC(id)

	return err == nil && len(raw) == len(uuid.UUID{})
}

// CreateUser implements Repository.CreateUser.
func (r *SQLiteUserRepository) CreateUser(ctx context.Context, user *domain.User) (domain.UserID, error) {
	id, err := newID()
	if err != nil {
		return "", err
	}

	_, err = r.db.ExecContext(ctx,
		"INSERT INTO users (id, name, email, password_hash, created_at) VALUES (?, ?, ?, ?, ?)",
		id,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.CreatedAt.UnixNano(),
	)
	if err != nil {
		if sqlite.IsUniqueViolation(err) {
			err = errors.Join(domain.ErrEmailExists, err)
		}

		return "", fmt.Errorf("insert user: %w", err)
	}

	return domain.UserID(id), nil
}

const selectUser = "SELECT id, name, email, password_hash, created_at FROM users"

func scanUser(row interface{ Scan(dest ...any) error }) (*domain.User, error) {
	var (
		user      domain.User
		createdAt int64
	)

	if err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &createdAt); err != nil {
		return nil, err //nolint:wrapcheck
	}

	user.CreatedAt = time.Unix(0, createdAt).UTC()

	return &user, nil
}

func (r *SQLiteUserRepository) getUser(ctx context.Context, where string, arg any) (*domain.User, bool, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, selectUser+" WHERE "+where+" = ?", arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}

		return nil, false, fmt.Errorf("query user: %w", err)
	}

	return user, true, nil
}

// GetUserByID implements Repository.GetUserByID.
func (r *SQLiteUserRepository) GetUserByID(ctx context.Context, id domain.UserID) (*domain.User, bool, error) {
	if !validID(id.String()) {
		return nil, false, nil
	}

	return r.getUser(ctx, "id", encoding.NormalizeCrockfordB32LC(id.String()))
}

// GetUserByEmail implements Repository.GetUserByEmail.
func (r *SQLiteUserRepository) GetUserByEmail(ctx context.Context, email string) (*domain.User, bool, error) {
	return r.getUser(ctx, "email", email)
}

// ListUsers implements Repository.ListUsers.
func (r *SQLiteUserRepository) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx, selectUser+" ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	users := []domain.User{}

	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}

		users = append(users, *user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}

	return users, nil
}

// UpdateUser implements Repository.UpdateUser.
func (r *SQLiteUserRepository) UpdateUser(
	ctx context.Context,
	id domain.UserID,
	update domain.UserUpdate,
) (bool, error) {
	if !validID(id.String()) {
		return false, nil
	}

	var (
		sets []string
		args []any
	)

	if update.Name != nil {
		sets, args = append(sets, "name = ?"), append(args, *update.Name)
	}

	if update.Email != nil {
		sets, args = append(sets, "email = ?"), append(args, *update.Email)
	}

	if update.PasswordHash != nil {
		sets, args = append(sets, "password_hash = ?"), append(args, *update.PasswordHash)
	}

	if len(sets) == 0 {
		_, found, err := r.GetUserByID(ctx, id)

		return found, err
	}

	args = append(args, encoding.NormalizeCrockfordB32LC(id.String()))

	res, err := r.db.ExecContext(ctx, "UPDATE users SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		if sqlite.IsUniqueViolation(err) {
			err = errors.Join(domain.ErrEmailExists, err)
		}

		return false, fmt.Errorf("update user: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}

	return n > 0, nil
}

// DeleteUser implements Repository.DeleteUser.
func (r *SQLiteUserRepository) DeleteUser(ctx context.Context, id domain.UserID) (bool, error) {
	if !validID(id.String()) {
		return false, nil
	}

	res, err := r.db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", encoding.NormalizeCrockfordB32LC(id.String()))
	if err != nil {
		return false, fmt.Errorf("delete user: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}

	r.log.DebugContext(ctx, "user deleted", "id", id, "found", n > 0)

	return n > 0, nil
}
