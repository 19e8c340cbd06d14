package category

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/rush86999/atomic-scheduler/pkg/event"
	log "github.com/sirupsen/logrus"
)

// Rules owns the user's category definitions and decides which of them apply to an event.
type Rules interface {
	MatchCategories(ctx context.Context, e event.Event, vector []float32) ([]event.Category, error)
}

// KeywordRules matches a category when its name appears as a whole phrase in the event's
// title, summary or notes.
type KeywordRules struct {
	repo Repository
}

func NewKeywordRules(repo Repository) *KeywordRules {
	return &KeywordRules{repo: repo}
}

// MatchCategories ignores the vector; categories carry no embeddings of their own.
func (r *KeywordRules) MatchCategories(ctx context.Context, e event.Event, _ []float32) ([]event.Category, error) {
	categories, err := r.repo.ListUserCategories(ctx, e.UserId)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories of user %s: %w", e.UserId, err)
	}
	text := normalize(strings.Join([]string{e.Title, e.Summary, e.Notes}, " "))
	var matched []event.Category
	for _, c := range categories {
		name := normalize(c.Name)
		if strings.TrimSpace(name) == "" {
			continue
		}
		if strings.Contains(text, name) {
			matched = append(matched, c)
		}
	}
	log.Debugf("event %s matched %d of %d categories", e.Id, len(matched), len(categories))
	return matched, nil
}

// normalize lowercases s, turns every non alphanumeric rune into a single space and pads the
// result with spaces so phrases can be matched on word boundaries.
func normalize(s string) string {
	var b strings.Builder
	b.WriteByte(' ')
	space := true
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	if !space {
		b.WriteByte(' ')
	}
	return b.String()
}
