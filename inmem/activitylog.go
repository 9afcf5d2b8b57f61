package inmem

import (
	"context"
	"sync"
	"time"

	"github.com/buzkaaclicker/persona"
)

type ActivityStore struct {
	lastId int64
	logs   map[persona.UserId][]persona.ActivityLog
	mutex  sync.RWMutex
}

func NewActivityStore() *ActivityStore {
	return &ActivityStore{
		logs: make(map[persona.UserId][]persona.ActivityLog),
	}
}

var _ persona.ActivityStore = (*ActivityStore)(nil)

func (s *ActivityStore) AddLog(ctx context.Context, userId persona.UserId, activity persona.Activity) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.lastId++
	s.logs[userId] = append(s.logs[userId], persona.ActivityLog{
		Id:        s.lastId,
		CreatedAt: time.Now().UTC(),
		UserId:    userId,
		Name:      activity.Name,
		Data:      activity.Data,
	})
	return nil
}

func (s *ActivityStore) ByUserId(ctx context.Context, userId persona.UserId) ([]persona.ActivityLog, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	logs := s.logs[userId]
	newestFirst := make([]persona.ActivityLog, len(logs))
	for i, l := range logs {
		newestFirst[len(logs)-1-i] = l
	}
	return newestFirst, nil
}
