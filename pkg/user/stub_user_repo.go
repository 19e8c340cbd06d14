package user

import (
	"context"
	"sync"
)

type StubUserRepository struct {
	mu    sync.RWMutex
	data  map[string]Preferences
	Err   error
	Calls int
}

func NewStubUserRepository() *StubUserRepository {
	return &StubUserRepository{data: map[string]Preferences{}}
}

func (s *StubUserRepository) GetPreferences(ctx context.Context, userId string) (Preferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls++
	if s.Err != nil {
		return Preferences{}, s.Err
	}
	prefs, ok := s.data[userId]
	if !ok {
		return Preferences{UserId: userId}, nil
	}
	return prefs, nil
}

func (s *StubUserRepository) SetPreferences(prefs Preferences) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[prefs.UserId] = prefs
}
