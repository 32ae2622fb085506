package search

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sells-group/prospect-cli/internal/geo"
	"github.com/sells-group/prospect-cli/internal/model"
)

// Relevance weights. The keyword bonus applies when the keyword appears in the name.
const (
	scoreWeight     = 0.7
	proximityWeight = 0.3
	keywordBonus    = 0.1
)

// matchesKeyword reports whether any keyword token appears in the business's name, type,
// tags or city. An empty keyword matches everything.
func matchesKeyword(b *model.BusinessRecord, keyword string) bool {
	if keyword == "" {
		return true
	}
	hay := strings.ToLower(strings.Join(append([]string{b.Name, b.Type.Label(), b.City}, b.Tags...), " "))
	for _, tok := range strings.Fields(keyword) {
		if strings.Contains(hay, tok) {
			return true
		}
	}
	return false
}

func relevance(it *model.ResultItem, radius float64, keyword string) float64 {
	r := scoreWeight*float64(it.OverallScore)/100 + proximityWeight*geo.Proximity(it.DistanceMiles, radius)
	if keyword != "" && strings.Contains(strings.ToLower(it.Name()), keyword) {
		r += keywordBonus
	}
	switch {
	case r < 0:
		return 0
	case r > 1:
		return 1
	}
	return r
}

func matchReason(it *model.ResultItem) string {
	var parts []string
	if a := it.Area; a != nil {
		parts = append(parts,
			fmt.Sprintf("%d residents", a.Population),
			fmt.Sprintf("%d businesses", a.BusinessCount),
			fmt.Sprintf("market potential %d", a.MarketPotential),
		)
	} else if b := it.Business; b != nil {
		parts = append(parts, b.Type.Label())
		if emp := b.EffectiveEmployees(); emp > 0 {
			parts = append(parts, fmt.Sprintf("%d employees", emp))
		}
		if b.BureauAccredited {
			parts = append(parts, "bureau accredited")
		}
		if b.HasConferenceRoom {
			parts = append(parts, "conference room")
		}
		if b.HasEventSpace {
			parts = append(parts, "event space")
		}
		if b.Rating > 0 {
			parts = append(parts, fmt.Sprintf("rated %.1f", b.Rating))
		}
	}
	if it.DistanceMiles > 0 {
		parts = append(parts, fmt.Sprintf("%.1f mi away", it.DistanceMiles))
	}
	return strings.Join(parts, ", ")
}

// rank sorts items by the query's sort key in its natural order, flipped by Reverse. The sort is
// stable, so ties keep insertion order.
func rank(q model.SearchQuery, items []*model.ResultItem) {
	key := q.EffectiveSort()
	desc := key.Descending() != q.Reverse
	cmp := comparator(key)
	sort.SliceStable(items, func(i, j int) bool {
		c := cmp(items[i], items[j])
		if desc {
			return c > 0
		}
		return c < 0
	})
}

func comparator(key model.SortKey) func(a, b *model.ResultItem) int {
	switch key {
	case model.SortDistance:
		return func(a, b *model.ResultItem) int { return compareFloat(a.DistanceMiles, b.DistanceMiles) }
	case model.SortName:
		return func(a, b *model.ResultItem) int {
			return strings.Compare(strings.ToLower(a.Name()), strings.ToLower(b.Name()))
		}
	case model.SortRating:
		return func(a, b *model.ResultItem) int { return compareFloat(rating(a), rating(b)) }
	case model.SortEmployees:
		return func(a, b *model.ResultItem) int { return employees(a) - employees(b) }
	}
	return func(a, b *model.ResultItem) int { return a.OverallScore - b.OverallScore }
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func rating(it *model.ResultItem) float64 {
	if it.Business != nil {
		return it.Business.Rating
	}
	return 0
}

func employees(it *model.ResultItem) int {
	if it.Business != nil {
		return it.Business.EffectiveEmployees()
	}
	if it.Area != nil {
		return it.Area.Workforce
	}
	return 0
}
