package ownership

import "github.com/ramonehamilton/cardfinder/internal/catalog"

// Summary describes collection progress over a catalog.
type Summary struct {
	Cards    int `json:"cards"`    // cards in the catalog
	Owned    int `json:"owned"`    // cards with at least one copy
	Complete int `json:"complete"` // cards owned up to capacity
	Copies   int `json:"copies"`   // owned copies, capped per card
	MaxCopy  int `json:"maxCopy"`  // sum of capacities
}

// Summarize computes collection progress for every card in cat.
func (s *Store) Summarize(cat *catalog.Catalog) Summary {
	doc := s.All()

	var sum Summary
	for _, card := range cat.Cards() {
		capacity := s.Capacity(card.CD, card.Race)
		total := min(doc[card.CD].Total(), capacity)

		sum.Cards++
		sum.MaxCopy += capacity
		sum.Copies += total
		if total > 0 {
			sum.Owned++
		}
		if total >= capacity {
			sum.Complete++
		}
	}
	return sum
}
