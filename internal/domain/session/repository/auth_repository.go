package repository

import (
	"context"

	"forum_client/internal/domain/session/model"
	"forum_client/internal/pkg/apiclient"
)

// AuthRepository 认证相关接口
type AuthRepository interface {
	Login(ctx context.Context, input model.LoginInput) (*model.LoginResponse, error)
	LoginOAuth(ctx context.Context, input model.OAuthInput) (*model.LoginResponse, error)
	RequestPasswordReset(ctx context.Context, email string) error
}

type authRepository struct {
	api *apiclient.Client
}

func NewAuthRepository(api *apiclient.Client) AuthRepository {
	return &authRepository{api: api}
}

func (r *authRepository) Login(ctx context.Context, input model.LoginInput) (*model.LoginResponse, error) {
	var resp model.LoginResponse
	if err := r.api.Post(ctx, "/v1.0/login", input, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (r *authRepository) LoginOAuth(ctx context.Context, input model.OAuthInput) (*model.LoginResponse, error) {
	var resp model.LoginResponse
	if err := r.api.Post(ctx, "/v1.0/login/oauth", input, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (r *authRepository) RequestPasswordReset(ctx context.Context, email string) error {
	return r.api.Post(ctx, "/v1.0/password/reset", map[string]string{"email": email}, nil)
}
