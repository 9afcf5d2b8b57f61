package persona

import (
	"context"
	"time"
)

const (
	ActivitySignedUp         = "signed_up"
	ActivityEmailConfirmed   = "email_confirmed"
	ActivitySessionCreated   = "session_created"
	ActivitySessionRefreshed = "session_refreshed"
	ActivitySignedOut        = "signed_out"
)

type Activity struct {
	Name string
	Data map[string]interface{}
}

type ActivityLog struct {
	Id        int64
	CreatedAt time.Time
	UserId    UserId
	Name      string
	Data      map[string]interface{}
}

type ActivityStore interface {
	AddLog(ctx context.Context, userId UserId, activity Activity) error

	// Newest first.
	ByUserId(ctx context.Context, userId UserId) ([]ActivityLog, error)
}
