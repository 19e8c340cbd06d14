package queue

import (
	"context"
	"slices"
	"strconv"
	"sync"
	"time"
)

// StreamStub is an in-memory stream with a single consumer.
type StreamStub struct {
	mu          sync.Mutex
	seq         int
	unread      []Message
	pending     map[string]Message
	reclaimable []string
	acked       []string
	keys        map[string]string

	ReadErr    error
	AckErr     error
	PublishErr error
	Groups     int
}

func NewStreamStub() *StreamStub {
	return &StreamStub{
		pending: make(map[string]Message),
		keys:    make(map[string]string),
	}
}

// Enqueue appends a message as a producer would, bypassing idempotency keys.
func (s *StreamStub) Enqueue(body []byte) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.append(body)
}

func (s *StreamStub) append(body []byte) string {
	s.seq++
	id := strconv.Itoa(s.seq) + "-0"
	s.unread = append(s.unread, Message{Id: id, Body: slices.Clone(body)})
	return id
}

// Expire makes a pending message claimable, as if it had been idle for too long.
func (s *StreamStub) Expire(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pending[id]; ok {
		s.reclaimable = append(s.reclaimable, id)
	}
}

func (s *StreamStub) Acked() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.acked)
}

func (s *StreamStub) Pending() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.pending))
	for id := range s.pending {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (s *StreamStub) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

func (s *StreamStub) EnsureGroup(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Groups++
	return nil
}

func (s *StreamStub) Read(ctx context.Context) (*Message, error) {
	s.mu.Lock()
	if s.ReadErr != nil {
		s.mu.Unlock()
		return nil, s.ReadErr
	}
	if len(s.unread) == 0 {
		s.mu.Unlock()
		// stands in for the blocking read
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Millisecond):
		}
		return nil, nil
	}
	defer s.mu.Unlock()
	msg := s.unread[0]
	s.unread = s.unread[1:]
	msg.Deliveries = 1
	s.pending[msg.Id] = msg
	return &msg, nil
}

func (s *StreamStub) Claim(ctx context.Context) (*Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ReadErr != nil {
		return nil, s.ReadErr
	}
	for len(s.reclaimable) > 0 {
		id := s.reclaimable[0]
		s.reclaimable = s.reclaimable[1:]
		msg, ok := s.pending[id]
		if !ok {
			continue
		}
		msg.Deliveries++
		s.pending[id] = msg
		return &msg, nil
	}
	return nil, nil
}

func (s *StreamStub) Ack(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.AckErr != nil {
		return s.AckErr
	}
	if _, ok := s.pending[id]; ok {
		delete(s.pending, id)
		s.acked = append(s.acked, id)
	}
	return nil
}

func (s *StreamStub) Publish(ctx context.Context, key string, body []byte) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.PublishErr != nil {
		return "", false, s.PublishErr
	}
	if id, ok := s.keys[key]; ok {
		return id, false, nil
	}
	id := s.append(body)
	s.keys[key] = id
	return id, true, nil
}
