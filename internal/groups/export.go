package groups

// Exported is a group as handed to external tools: its cards as sorted,
// zero-padded ids.
type Exported struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	System bool     `json:"system"`
	Active bool     `json:"active"`
	Cards  []string `json:"cards"`
}

// Export lists every group in display order.
func (s *Store) Export() []Exported {
	st := s.read()
	out := make([]Exported, 0, len(st.Order))
	for _, id := range st.Order {
		g := st.Groups[id]
		cards := g.Cards.Sorted()
		if cards == nil {
			cards = []string{}
		}
		out = append(out, Exported{
			ID:     id,
			Name:   g.Name,
			System: IsSystem(id),
			Active: st.ActiveID == id,
			Cards:  cards,
		})
	}
	return out
}
