package planner

import (
	"context"
	"net/http"
	"sync"
)

type ClientStub struct {
	mu        sync.RWMutex
	submitted []Payload
	Err       error
}

func NewClientStub() *ClientStub {
	return &ClientStub{}
}

func (c *ClientStub) Submit(ctx context.Context, payload Payload) (Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return Result{}, c.Err
	}
	c.submitted = append(c.submitted, payload)
	return Result{StatusCode: http.StatusAccepted}, nil
}

func (c *ClientStub) Submitted() []Payload {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Payload(nil), c.submitted...)
}
