package history

import (
	"context"
	"slices"
	"strings"

	"clantool/internal/components/db"

	"github.com/antzucaro/matchr"
)

// NameMatch is a name a member was seen with, Similarity is in [0, 1].
type NameMatch struct {
	ID         int32
	Name       string
	LastSeen   string
	Similarity float64
}

// Search ranks every name ever seen against query, each member appears once
// with its best matching name.
func (s Service) Search(ctx context.Context, query string, limit int) ([]NameMatch, error) {
	names, err := s.qry.GetMemberNames(ctx)
	if err != nil {
		return nil, err
	}
	query = strings.ToLower(query)

	best := map[int32]NameMatch{}
	for _, n := range names {
		similarity := matchr.JaroWinkler(strings.ToLower(n.Name), query, false)
		if similarity == 0 {
			continue
		}
		id := int32(n.ID)
		current, ok := best[id]
		if ok && current.Similarity >= similarity {
			continue
		}
		best[id] = NameMatch{
			ID:         id,
			Name:       n.Name,
			LastSeen:   n.Updated,
			Similarity: similarity,
		}
	}

	matches := make([]NameMatch, 0, len(best))
	for _, m := range best {
		matches = append(matches, m)
	}
	slices.SortFunc(matches, func(a, b NameMatch) int {
		if a.Similarity != b.Similarity {
			if a.Similarity > b.Similarity {
				return -1
			}
			return 1
		}
		return int(a.ID) - int(b.ID)
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// RecordName stores a name observed outside of a roster crawl, like a profile lookup.
func (s Service) RecordName(ctx context.Context, id int32, name string) error {
	return s.qry.UpsertMemberName(ctx, db.UpsertMemberNameParams{
		ID:   int64(id),
		Name: name,
		Date: db.FormatDate(s.time.Now()),
	})
}
