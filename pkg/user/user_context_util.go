package user

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"
)

type contextKey string

const UserIdKey contextKey = "userId"

var ErrNoUser = errors.New("user not found")

// CurrentId retrieves the calling user's id from the context. Returns ErrNoUser if none is present.
func CurrentId(ctx context.Context) (string, error) {
	userId, ok := ctx.Value(UserIdKey).(string)
	if !ok || userId == "" {
		log.Trace("user id not found in context")
		return "", ErrNoUser
	}
	return userId, nil
}

func WithUserId(ctx context.Context, userId string) context.Context {
	return context.WithValue(ctx, UserIdKey, userId)
}
