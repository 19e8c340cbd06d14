package event

// IdSet is a set of event ids.
type IdSet map[string]struct{}

func NewIdSet(ids ...string) IdSet {
	s := make(IdSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s IdSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

func (s IdSet) Add(ids ...string) {
	for _, id := range ids {
		s[id] = struct{}{}
	}
}

// With returns a new set holding the ids of s and the given ones. s is left untouched.
func (s IdSet) With(ids ...string) IdSet {
	c := make(IdSet, len(s)+len(ids))
	for id := range s {
		c[id] = struct{}{}
	}
	c.Add(ids...)
	return c
}
