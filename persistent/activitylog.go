package persistent

import (
	"context"
	"fmt"
	"time"

	"github.com/buzkaaclicker/persona"
	"github.com/uptrace/bun"
)

type ActivityLog struct {
	bun.BaseModel `bun:"table:activity_log"`

	Id        int64                  `bun:",pk,autoincrement"`
	CreatedAt time.Time              `bun:",nullzero,notnull,default:current_timestamp"`
	UserId    string                 `bun:",notnull"`
	Name      string                 `bun:",notnull"`
	Data      map[string]interface{} `bun:",notnull"`
}

func (l *ActivityLog) ToDomain() persona.ActivityLog {
	return persona.ActivityLog{
		Id:        l.Id,
		CreatedAt: l.CreatedAt,
		UserId:    persona.UserId(l.UserId),
		Name:      l.Name,
		Data:      l.Data,
	}
}

type ActivityStore struct {
	DB *bun.DB
}

var _ persona.ActivityStore = (*ActivityStore)(nil)

func (s *ActivityStore) AddLog(ctx context.Context, userId persona.UserId, activity persona.Activity) error {
	data := activity.Data
	if data == nil {
		data = map[string]interface{}{}
	}
	_, err := s.DB.NewInsert().
		Model(&ActivityLog{
			UserId: string(userId),
			Name:   activity.Name,
			Data:   data,
		}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("insert log entry: %w", err)
	}
	return nil
}

func (s *ActivityStore) ByUserId(ctx context.Context, userId persona.UserId) ([]persona.ActivityLog, error) {
	var logs []ActivityLog
	err := s.DB.NewSelect().
		Model((*ActivityLog)(nil)).
		Where("user_id=?", string(userId)).
		Order("id DESC").
		Scan(ctx, &logs)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}

	ml := make([]persona.ActivityLog, len(logs))
	for i, l := range logs {
		ml[i] = l.ToDomain()
	}
	return ml, nil
}
