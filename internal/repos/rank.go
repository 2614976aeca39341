package repos

import (
	"slices"
	"sort"

	"github.com/hoanghai1803/folio/internal/models"
)

// Rank marks featured cards, orders featured before the rest with the most
// recently pushed first inside each group, and keeps at most n cards. The
// input slice is reordered in place.
func Rank(cards []models.RepositoryCard, featured []string, n int) []models.RepositoryCard {
	for i := range cards {
		cards[i].Featured = slices.Contains(featured, cards[i].Name)
	}

	sort.SliceStable(cards, func(i, j int) bool {
		if cards[i].Featured != cards[j].Featured {
			return cards[i].Featured
		}
		return cards[i].UpdatedAt.After(cards[j].UpdatedAt)
	})

	if len(cards) > n {
		cards = cards[:n]
	}
	return cards
}
