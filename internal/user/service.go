package user

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/kartify/storefront/internal/auth"
)

var ErrBadCredentials = errors.New("invalid email or password")

type Service struct {
	repo   Repository
	tokens *auth.TokenIssuer
}

func NewService(repo Repository, tokens *auth.TokenIssuer) *Service {
	return &Service{repo: repo, tokens: tokens}
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (*User, string, error) {
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return nil, "", errors.New("username, email and password are required")
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, "", err
	}
	u := &User{
		ID:           uuid.NewString(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         auth.RoleCustomer,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, "", err
	}
	token, err := s.tokens.Issue(u.ID, u.Role)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (*User, string, error) {
	if req.Email == "" || req.Password == "" {
		return nil, "", ErrBadCredentials
	}
	u, err := s.repo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, "", ErrBadCredentials
		}
		return nil, "", err
	}
	if !auth.CheckPassword(u.PasswordHash, req.Password) {
		return nil, "", ErrBadCredentials
	}
	token, err := s.tokens.Issue(u.ID, u.Role)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}
