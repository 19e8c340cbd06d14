package user

import (
	"context"
	"fmt"
)

type Service interface {
	CurrentPreferences(ctx context.Context) (Preferences, error)
}

type UserServiceImpl struct {
	repo Repo
}

func NewUserService(repo Repo) *UserServiceImpl {
	return &UserServiceImpl{repo: repo}
}

func (u *UserServiceImpl) CurrentPreferences(ctx context.Context) (Preferences, error) {
	userId, err := CurrentId(ctx)
	if err != nil {
		return Preferences{}, fmt.Errorf("failed to get current user: %w", err)
	}
	return u.repo.GetPreferences(ctx, userId)
}
