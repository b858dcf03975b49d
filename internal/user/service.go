package user

import (
	"context"
	"fmt"

	"github.com/Trandev/Medlink/internal/auth"
	"github.com/Trandev/Medlink/internal/config"
	"github.com/Trandev/Medlink/internal/model"
	"github.com/Trandev/Medlink/pkg/types"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type UserService struct {
	repo    UserRepository
	authCfg config.AuthConfig
}

func NewUserService(repo UserRepository, authCfg config.AuthConfig) *UserService {
	return &UserService{
		repo:    repo,
		authCfg: authCfg,
	}
}

// Register creates an account with a zero balance. Email verification flows
// live outside this service.
func (us *UserService) Register(ctx context.Context, req *types.RegisterRequest) (*model.User, error) {
	role := model.Role(req.Role)
	if role == "" {
		role = model.RoleUser
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	u := &model.User{
		Username: req.Username,
		Email:    req.Email,
		Phone:    req.Phone,
		Role:     role,
	}
	if err := us.repo.CreateUser(ctx, u, string(hash)); err != nil {
		return nil, err
	}
	return u, nil
}

// Login checks credentials and issues a signed session token.
func (us *UserService) Login(ctx context.Context, req *types.LoginRequest) (*types.LoginResponse, error) {
	u, hash, err := us.repo.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return nil, model.ErrUnauthenticated
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)) != nil {
		return nil, model.ErrUnauthenticated
	}

	token, err := auth.GenerateUserJWT(u.ID, us.authCfg.TokenTTL, []byte(us.authCfg.JWTSecret))
	if err != nil {
		return nil, fmt.Errorf("issuing token: %w", err)
	}

	return &types.LoginResponse{Token: token, UserID: u.ID}, nil
}

func (us *UserService) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return us.repo.GetUserByID(ctx, id)
}
