package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/Trandev/Medlink/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User, passwordHash string) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, string, error)
}

type UserRepo struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepo {
	return &UserRepo{db: db}
}

func (ur *UserRepo) CreateUser(ctx context.Context, user *model.User, passwordHash string) error {
	err := ur.db.QueryRow(ctx, `
		INSERT INTO users (username, email, phone, password_hash, role, balance)
		VALUES ($1, $2, $3, $4, $5, 0)
		RETURNING id, created_at, updated_at`,
		user.Username, user.Email, user.Phone, passwordHash, user.Role,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating user: %w", err)
	}
	return nil
}

func (ur *UserRepo) GetUserByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var u model.User
	err := ur.db.QueryRow(ctx, `
		SELECT id, username, email, phone, role, balance, created_at, updated_at
		FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Username, &u.Email, &u.Phone, &u.Role, &u.Balance, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching user %s: %w", id, err)
	}
	return &u, nil
}

func (ur *UserRepo) GetUserByEmail(ctx context.Context, email string) (*model.User, string, error) {
	var u model.User
	var hash string
	err := ur.db.QueryRow(ctx, `
		SELECT id, username, email, phone, role, balance, password_hash, created_at, updated_at
		FROM users WHERE email = $1`, email,
	).Scan(&u.ID, &u.Username, &u.Email, &u.Phone, &u.Role, &u.Balance, &hash, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, "", model.ErrNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("fetching user by email: %w", err)
	}
	return &u, hash, nil
}
