package category

import (
	"context"
	"sync"

	"github.com/rush86999/atomic-scheduler/pkg/event"
)

type RepositoryStub struct {
	mu             sync.RWMutex
	userCategories map[string][]event.Category // userId -> categories
	eventLinks     map[string][]string         // eventId -> category ids
	Err            error
}

func NewRepositoryStub() *RepositoryStub {
	return &RepositoryStub{
		userCategories: map[string][]event.Category{},
		eventLinks:     map[string][]string{},
	}
}

func (r *RepositoryStub) AddCategory(c event.Category) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.userCategories[c.UserId] = append(r.userCategories[c.UserId], c)
}

// Assign links categories to an event.
func (r *RepositoryStub) Assign(eventId string, categoryIds ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.eventLinks[eventId] = append(r.eventLinks[eventId], categoryIds...)
}

func (r *RepositoryStub) ListUserCategories(ctx context.Context, userId string) ([]event.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.Err != nil {
		return nil, r.Err
	}
	return append([]event.Category(nil), r.userCategories[userId]...), nil
}

func (r *RepositoryStub) ListEventCategories(ctx context.Context, eventId string) ([]event.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.Err != nil {
		return nil, r.Err
	}
	var result []event.Category
	for _, id := range r.eventLinks[eventId] {
		for _, categories := range r.userCategories {
			for _, c := range categories {
				if c.Id == id {
					result = append(result, c)
				}
			}
		}
	}
	return result, nil
}
