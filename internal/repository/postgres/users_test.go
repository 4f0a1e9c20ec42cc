package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/CyberDuck79/fullstack-template/internal/core/domain"
	"github.com/CyberDuck79/fullstack-template/internal/repository"
)

func newMockRepo(t *testing.T) (*UserRepository, pgxmock.PgxPoolIface) {
	t.Helper()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	t.Cleanup(mock.Close)

	repo := &UserRepository{
		exec:    mock,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	return repo, mock
}

func TestCreateReturnsGeneratedID(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("INSERT INTO users").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(7)))

	user, err := repo.Create(context.Background(), domain.User{
		Email:        "alice@example.com",
		Name:         "alice",
		PasswordHash: "salt:hash",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if user.ID != 7 {
		t.Fatalf("expected generated id 7, got %d", user.ID)
	}
	if user.TokenVersion != 0 {
		t.Fatalf("new rows start at token_version 0, got %d", user.TokenVersion)
	}
	if user.RefreshTokenHashes == nil || len(user.RefreshTokenHashes) != 0 {
		t.Fatalf("new rows start with an empty hash list, got %v", user.RefreshTokenHashes)
	}
	if user.RegisteredAt.IsZero() {
		t.Fatal("RegisteredAt must be populated")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreateMapsDuplicateEmail(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("INSERT INTO users").
		WillReturnError(&pgconn.PgError{
			Code:           "23505",
			ConstraintName: "users_email_key",
			Detail:         "Key (email)=(alice@example.com) already exists.",
		})

	_, err := repo.Create(context.Background(), domain.User{
		Email:        "alice@example.com",
		Name:         "alice",
		PasswordHash: "salt:hash",
	})

	var dup *repository.DuplicateFieldError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateFieldError, got %v", err)
	}
	if dup.Field != "email" {
		t.Fatalf("expected duplicate field email, got %q", dup.Field)
	}
}

func TestGetByEmailNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT .+ FROM users WHERE email").
		WithArgs("nobody@example.com").
		WillReturnRows(pgxmock.NewRows(userColumns))

	_, err := repo.GetByEmail(context.Background(), "nobody@example.com")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetByIDScansRow(t *testing.T) {
	repo, mock := newMockRepo(t)

	registeredAt := time.Date(2026, time.January, 2, 3, 4, 5, 0, time.UTC)
	rows := pgxmock.NewRows(userColumns).AddRow(
		int64(7),
		nil,
		"alice@example.com",
		"alice",
		"salt:hash",
		true,
		[]string{"h1", "h2"},
		int64(3),
		registeredAt,
	)

	mock.ExpectQuery("SELECT .+ FROM users WHERE id").
		WithArgs(int64(7)).
		WillReturnRows(rows)

	user, err := repo.GetByID(context.Background(), 7)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}

	if user.ExternalID != nil {
		t.Fatalf("expected nil external id, got %v", *user.ExternalID)
	}
	if len(user.RefreshTokenHashes) != 2 || user.RefreshTokenHashes[0] != "h1" {
		t.Fatalf("hash list scanned incorrectly: %v", user.RefreshTokenHashes)
	}
	if user.TokenVersion != 3 {
		t.Fatalf("token version scanned incorrectly: %d", user.TokenVersion)
	}
	if !user.RegisteredAt.Equal(registeredAt) {
		t.Fatalf("registered at scanned incorrectly: %v", user.RegisteredAt)
	}
}

func TestUpdateRefreshTokensVersionConflict(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("UPDATE users SET refresh_token_hashes").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.UpdateRefreshTokens(context.Background(), 7, []string{"h1"}, 3)
	if !errors.Is(err, repository.ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}
}

func TestUpdateRefreshTokensBumpsVersion(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("UPDATE users SET refresh_token_hashes").
		WithArgs([]string{"h1", "h2"}, int64(4), int64(7), int64(3)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	if err := repo.UpdateRefreshTokens(context.Background(), 7, []string{"h1", "h2"}, 3); err != nil {
		t.Fatalf("UpdateRefreshTokens: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSetEmailConfirmedNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("UPDATE users SET is_email_confirmed").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	if err := repo.SetEmailConfirmed(context.Background(), 99); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
