package mock

import (
	"context"

	"github.com/buzkaaclicker/persona"
)

type ActivityStore struct {
	AddLogFn func(ctx context.Context, userId persona.UserId, activity persona.Activity) error

	ByUserIdFn func(ctx context.Context, userId persona.UserId) ([]persona.ActivityLog, error)
}

func (s ActivityStore) AddLog(ctx context.Context, userId persona.UserId, activity persona.Activity) error {
	return s.AddLogFn(ctx, userId, activity)
}

func (s ActivityStore) ByUserId(ctx context.Context, userId persona.UserId) ([]persona.ActivityLog, error) {
	return s.ByUserIdFn(ctx, userId)
}
