package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/wirapratamaz185/MandalaChain-Forum-sub000/internal/domain"
	"github.com/wirapratamaz185/MandalaChain-Forum-sub000/pkg/database"
	apperrors "github.com/wirapratamaz185/MandalaChain-Forum-sub000/pkg/errors"
)

const userColumns = `id, email, username, password_hash, avatar_url, bio, provider, provider_subject, is_active, created_at, updated_at`

const (
	queryCreateUser = `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	queryGetUserByID = `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	queryGetUserByEmail = `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	queryUpdateUser = `
		UPDATE users
		SET username = $1, password_hash = $2, avatar_url = $3, bio = $4, is_active = $5, updated_at = $6
		WHERE id = $7`

	// The no-op style SET on conflict makes RETURNING yield the existing row,
	// so concurrent callbacks for the same email converge on one id.
	queryUpsertUserByEmail = `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (email) DO UPDATE
		SET avatar_url = CASE WHEN users.avatar_url = '' THEN EXCLUDED.avatar_url ELSE users.avatar_url END
		RETURNING ` + userColumns
)

// UserRepository implements repository.UserRepository on PostgreSQL.
type UserRepository struct {
	db     database.DBTX
	tracer database.QueryTracer
}

// NewUserRepository creates a repository over db, typically a *pgxpool.Pool.
func NewUserRepository(db database.DBTX, tracer database.QueryTracer) *UserRepository {
	return &UserRepository{db: db, tracer: tracer}
}

// Create inserts a new user.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) (err error) {
	ctx, end := r.tracer.Start(ctx, "users.Create", queryCreateUser)
	defer func() { end(err) }()

	_, err = r.db.Exec(ctx, queryCreateUser,
		u.ID,
		u.Email,
		u.Username,
		u.PasswordHash,
		u.AvatarURL,
		u.Bio,
		u.Provider,
		u.ProviderSubject,
		u.IsActive,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("user", "email", u.Email)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by id.
func (r *UserRepository) GetByID(ctx context.Context, id string) (_ *domain.User, err error) {
	ctx, end := r.tracer.Start(ctx, "users.GetByID", queryGetUserByID)
	defer func() { end(ignoreNotFound(err)) }()

	return scanUser(r.db.QueryRow(ctx, queryGetUserByID, id))
}

// GetByEmail retrieves a user by normalised email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (_ *domain.User, err error) {
	ctx, end := r.tracer.Start(ctx, "users.GetByEmail", queryGetUserByEmail)
	defer func() { end(ignoreNotFound(err)) }()

	return scanUser(r.db.QueryRow(ctx, queryGetUserByEmail, email))
}

// Update writes the mutable fields of u. UpdatedAt must be set by the caller.
func (r *UserRepository) Update(ctx context.Context, u *domain.User) (err error) {
	ctx, end := r.tracer.Start(ctx, "users.Update", queryUpdateUser)
	defer func() { end(ignoreNotFound(err)) }()

	ct, err := r.db.Exec(ctx, queryUpdateUser,
		u.Username,
		u.PasswordHash,
		u.AvatarURL,
		u.Bio,
		u.IsActive,
		u.UpdatedAt,
		u.ID,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("user", u.ID)
	}
	return nil
}

// UpsertByEmail inserts u or returns the row already registered under its
// email in a single statement.
func (r *UserRepository) UpsertByEmail(ctx context.Context, u *domain.User) (_ *domain.User, err error) {
	ctx, end := r.tracer.Start(ctx, "users.UpsertByEmail", queryUpsertUserByEmail)
	defer func() { end(err) }()

	stored, err := scanUser(r.db.QueryRow(ctx, queryUpsertUserByEmail,
		u.ID,
		u.Email,
		u.Username,
		u.PasswordHash,
		u.AvatarURL,
		u.Bio,
		u.Provider,
		u.ProviderSubject,
		u.IsActive,
		u.CreatedAt,
		u.UpdatedAt,
	))
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	return stored, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Username,
		&u.PasswordHash,
		&u.AvatarURL,
		&u.Bio,
		&u.Provider,
		&u.ProviderSubject,
		&u.IsActive,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

// isUniqueViolation reports SQLSTATE 23505.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// ignoreNotFound keeps expected misses off the span error status.
func ignoreNotFound(err error) error {
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil
	}
	return err
}
