package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/CyberDuck79/fullstack-template/internal/core/domain"
	"github.com/CyberDuck79/fullstack-template/internal/repository"
)

var userColumns = []string{
	"id",
	"external_id",
	"email",
	"name",
	"password_hash",
	"is_email_confirmed",
	"refresh_token_hashes",
	"token_version",
	"registered_at",
}

// UserRepository implements port.UserRepository using PostgreSQL.
type UserRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewUserRepository wires a PostgreSQL-backed user repository.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{
		pool:    pool,
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *UserRepository) WithTx(tx pgx.Tx) *UserRepository {
	if tx == nil {
		return r
	}
	return &UserRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// Create inserts a new user row and returns it with the generated id.
func (r *UserRepository) Create(ctx context.Context, user domain.User) (*domain.User, error) {
	var externalID any
	if user.ExternalID != nil {
		externalID = *user.ExternalID
	}

	hashes := user.RefreshTokenHashes
	if hashes == nil {
		hashes = []string{}
	}

	registeredAt := user.RegisteredAt
	if registeredAt.IsZero() {
		registeredAt = time.Now().UTC()
	}

	stmt, args, err := r.builder.Insert("users").
		Columns(
			"external_id",
			"email",
			"name",
			"password_hash",
			"is_email_confirmed",
			"refresh_token_hashes",
			"token_version",
			"registered_at",
		).
		Values(
			externalID,
			user.Email,
			user.Name,
			user.PasswordHash,
			user.IsEmailConfirmed,
			hashes,
			0,
			registeredAt,
		).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build insert user sql: %w", err)
	}

	created := user
	created.RefreshTokenHashes = hashes
	created.TokenVersion = 0
	created.RegisteredAt = registeredAt

	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&created.ID); err != nil {
		return nil, repository.MapError(fmt.Errorf("insert user: %w", err))
	}

	return &created, nil
}

// GetByID retrieves a user by identifier.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.getBy(ctx, squirrel.Eq{"id": id}, "user by id")
}

// GetByEmail retrieves a user by unique email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getBy(ctx, squirrel.Eq{"email": email}, "user by email")
}

// GetByExternalID retrieves a federated user by provider identifier.
func (r *UserRepository) GetByExternalID(ctx context.Context, externalID int64) (*domain.User, error) {
	return r.getBy(ctx, squirrel.Eq{"external_id": externalID}, "user by external id")
}

func (r *UserRepository) getBy(ctx context.Context, pred squirrel.Eq, what string) (*domain.User, error) {
	stmt, args, err := r.builder.
		Select(userColumns...).
		From("users").
		Where(pred).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select %s sql: %w", what, err)
	}

	row := r.exec.QueryRow(ctx, stmt, args...)

	var (
		externalID sql.NullInt64
		user       domain.User
	)

	if err := row.Scan(
		&user.ID,
		&externalID,
		&user.Email,
		&user.Name,
		&user.PasswordHash,
		&user.IsEmailConfirmed,
		&user.RefreshTokenHashes,
		&user.TokenVersion,
		&user.RegisteredAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan %s: %w", what, err)
	}

	if externalID.Valid {
		val := externalID.Int64
		user.ExternalID = &val
	}

	return &user, nil
}

// Update modifies the mutable profile fields and returns the fresh row.
func (r *UserRepository) Update(ctx context.Context, id int64, name, email string) (*domain.User, error) {
	update := r.builder.Update("users").Where(squirrel.Eq{"id": id})
	if name != "" {
		update = update.Set("name", name)
	}
	if email != "" {
		update = update.Set("email", email)
	}

	stmt, args, err := update.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build update user sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return nil, repository.MapError(fmt.Errorf("update user: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return nil, repository.ErrNotFound
	}

	return r.GetByID(ctx, id)
}

// SetEmailConfirmed marks the user's email address as confirmed.
func (r *UserRepository) SetEmailConfirmed(ctx context.Context, id int64) error {
	stmt, args, err := r.builder.Update("users").
		Set("is_email_confirmed", true).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build confirm email sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("confirm email: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// UpdateRefreshTokens replaces the hashed refresh-token list using an
// optimistic compare-and-swap on token_version. A concurrent writer that
// bumped the version first causes ErrVersionConflict; the caller decides
// whether to reload and retry or to fail the request.
func (r *UserRepository) UpdateRefreshTokens(ctx context.Context, id int64, hashes []string, expectedVersion int64) error {
	if hashes == nil {
		hashes = []string{}
	}

	stmt, args, err := r.builder.Update("users").
		Set("refresh_token_hashes", hashes).
		Set("token_version", expectedVersion+1).
		Where(squirrel.Eq{"id": id, "token_version": expectedVersion}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update refresh tokens sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update refresh tokens: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrVersionConflict
	}

	return nil
}
