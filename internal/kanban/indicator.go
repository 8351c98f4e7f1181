package kanban

// Indicator is a drop marker: dropping on it inserts before the card Before.
type Indicator struct {
	Column string
	Before string
	Top    int
}

// Indicators returns one marker above each card of column plus the trailing
// append marker. tops[i] is the row of marker i; missing rows continue one
// below the previous marker.
func (b *Board) Indicators(column string, tops []int) []Indicator {
	cards := b.Cards(column)
	out := make([]Indicator, 0, len(cards)+1)
	top := 0
	for i := 0; i <= len(cards); i++ {
		if i < len(tops) {
			top = tops[i]
		} else if i > 0 {
			top++
		}
		before := AppendMarker
		if i < len(cards) {
			before = cards[i].ID
		}
		out = append(out, Indicator{Column: column, Before: before, Top: top})
	}
	return out
}

// NearestIndicator returns the first marker under the cursor: of the markers
// with Top+offset greater than cursorY, the one with the smallest Top+offset.
// With no such marker it returns the last one. ok is false only when
// indicators is empty.
func NearestIndicator(cursorY int, indicators []Indicator, offset int) (Indicator, bool) {
	if len(indicators) == 0 {
		return Indicator{}, false
	}
	best := indicators[len(indicators)-1]
	found := false
	bestDistance := 0
	for _, indicator := range indicators {
		distance := cursorY - (indicator.Top + offset)
		if distance < 0 && (!found || distance > bestDistance) {
			best = indicator
			bestDistance = distance
			found = true
		}
	}
	return best, true
}
