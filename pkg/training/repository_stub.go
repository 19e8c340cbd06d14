package training

import (
	"cmp"
	"context"
	"math"
	"slices"
	"sync"
)

// RepositoryStub keeps records in memory and searches them by exact cosine distance.
type RepositoryStub struct {
	mu          sync.RWMutex
	vectors     map[string][]float32
	records     map[string]Record
	maxDistance float64

	Err error
	// Calls counts every method invocation by name.
	Calls map[string]int
}

func NewRepositoryStub(maxDistance float64) *RepositoryStub {
	return &RepositoryStub{
		vectors:     make(map[string][]float32),
		records:     make(map[string]Record),
		maxDistance: maxDistance,
		Calls:       make(map[string]int),
	}
}

func (r *RepositoryStub) SetVector(eventId string, vector []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vectors[eventId] = vector
}

func (r *RepositoryStub) Records() []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	records := make([]Record, 0, len(r.records))
	for _, rec := range r.records {
		records = append(records, rec)
	}
	slices.SortFunc(records, func(a, b Record) int { return cmp.Compare(a.Id, b.Id) })
	return records
}

func (r *RepositoryStub) TotalCalls() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	total := 0
	for _, c := range r.Calls {
		total += c
	}
	return total
}

func (r *RepositoryStub) GetVectorById(ctx context.Context, eventId string) ([]float32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls["GetVectorById"]++
	if r.Err != nil {
		return nil, r.Err
	}
	return slices.Clone(r.vectors[eventId]), nil
}

func (r *RepositoryStub) SearchNearest(ctx context.Context, userId string, vector []float32) (*Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls["SearchNearest"]++
	if r.Err != nil {
		return nil, r.Err
	}
	if len(vector) == 0 {
		return nil, ErrEmptyVector
	}
	var best *Match
	for _, rec := range r.records {
		if rec.UserId != userId {
			continue
		}
		d := cosineDistance(vector, rec.Vector)
		if best == nil || d < best.Distance {
			best = &Match{Id: rec.Id, Distance: d}
		}
	}
	if best == nil || best.Distance > r.maxDistance {
		return nil, nil
	}
	return best, nil
}

func (r *RepositoryStub) Insert(ctx context.Context, record Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls["Insert"]++
	if r.Err != nil {
		return r.Err
	}
	if len(record.Vector) == 0 {
		return ErrEmptyVector
	}
	r.records[record.Id] = record
	return nil
}

func (r *RepositoryStub) DeleteById(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls["DeleteById"]++
	if r.Err != nil {
		return r.Err
	}
	delete(r.records, id)
	return nil
}

func cosineDistance(a, b []float32) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}
