// FilePath: internal/repository/postgres/postgres.owner.go
package postgres

import (
	"context"
	"database/sql"

	"github.com/ecohack/envhub/internal/database"
	"github.com/ecohack/envhub/internal/errors"
	"github.com/ecohack/envhub/internal/models"
	"github.com/ecohack/envhub/internal/repository"
	"github.com/lib/pq"
)

type OwnerRepo struct {
	PostgresBaseRepo
}

func NewOwnerRepository(db database.DB) (*OwnerRepo, error) {
	repo := &OwnerRepo{PostgresBaseRepo: PostgresBaseRepo{db: db}}
	queries := []string{
		`CREATE TABLE IF NOT EXISTS owners (
			id TEXT PRIMARY KEY,
			login TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			last_name TEXT NOT NULL DEFAULT '',
			token TEXT NOT NULL UNIQUE,
			has_device BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL
		)`,
	}
	if err := repo.initializeSchema(queries); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *OwnerRepo) Create(ctx context.Context, owner *models.Owner) error {
	query := `
		INSERT INTO owners (
			id, login, password_hash, name, last_name, token, has_device, created_at
		) VALUES (
			:id, :login, :password_hash, :name, :last_name, :token, :has_device, :created_at
		)`

	_, err := r.db.GetDB().NamedExecContext(ctx, query, owner)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return repository.ErrDuplicate
		}
		return errors.NewDatabaseError("failed to create owner", err)
	}
	return nil
}

func (r *OwnerRepo) GetByLogin(ctx context.Context, login string) (*models.Owner, error) {
	owner := &models.Owner{}
	query := `SELECT * FROM owners WHERE login = $1`

	err := r.db.GetDB().GetContext(ctx, owner, query, login)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, errors.NewDatabaseError("failed to get owner by login", err)
	}
	return owner, nil
}

func (r *OwnerRepo) GetByToken(ctx context.Context, token string) (*models.Owner, error) {
	owner := &models.Owner{}
	query := `SELECT * FROM owners WHERE token = $1`

	err := r.db.GetDB().GetContext(ctx, owner, query, token)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, errors.NewDatabaseError("failed to get owner by token", err)
	}
	return owner, nil
}
